package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// BlockType - тип блока контента
type BlockType string

const (
	BlockTitle        BlockType = "title"
	BlockText         BlockType = "text"
	BlockLocation     BlockType = "location"
	BlockDivider      BlockType = "divider"
	BlockPhoto        BlockType = "photo"
	BlockSlide        BlockType = "slide"
	BlockThreeColumns BlockType = "3columns"
)

// BlockContent - вариант содержимого блока. Конкретный тип определяется BlockType.
type BlockContent interface {
	BlockType() BlockType
}

type TitleContent struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

// TextRole различает вступление и завершение дня
type TextRole string

const (
	TextIntro   TextRole = "intro"
	TextClosing TextRole = "closing"
)

type TextContent struct {
	Role TextRole `json:"role"`
	Text string   `json:"text"`
}

// LocationCard - основная или альтернативная локация внутри блока location
type LocationCard struct {
	Name           string     `json:"name"`
	Address        string     `json:"address"`
	Description    string     `json:"description"`
	Recommendation string     `json:"recommendation"`
	Rating         float64    `json:"rating"`
	PriceLevel     int        `json:"priceLevel"`
	Photos         []string   `json:"photos"`
	SourceTier     SourceTier `json:"sourceTier"`
	StableIdentity string     `json:"stableIdentity,omitempty"`
	Category       string     `json:"category"`
}

// IdentityKey - ключ дедупликации, см. model.IdentityKey
func (c LocationCard) IdentityKey() string {
	return IdentityKey(c.SourceTier, c.StableIdentity)
}

type LocationContent struct {
	TimeWindow           string         `json:"timeWindow"` // "09:00-10:00"
	Label                string         `json:"label"`
	Time                 string         `json:"time"` // время исходного TimeSlot
	MainLocation         LocationCard   `json:"mainLocation"`
	AlternativeLocations []LocationCard `json:"alternativeLocations"`
}

type DividerContent struct {
	Label string `json:"label"`
}

type PhotoContent struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

type SlideContent struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	PhotoURL string `json:"photoUrl"`
}

type Column struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	PhotoURL string `json:"photoUrl"`
}

type ThreeColumnsContent struct {
	Columns [3]Column `json:"columns"`
}

func (TitleContent) BlockType() BlockType        { return BlockTitle }
func (TextContent) BlockType() BlockType         { return BlockText }
func (LocationContent) BlockType() BlockType     { return BlockLocation }
func (DividerContent) BlockType() BlockType      { return BlockDivider }
func (PhotoContent) BlockType() BlockType        { return BlockPhoto }
func (SlideContent) BlockType() BlockType        { return BlockSlide }
func (ThreeColumnsContent) BlockType() BlockType { return BlockThreeColumns }

// ContentBlock - один блок итогового документа.
// Slot - позиция в фиксированном шаблоне дня, по ней сливаются превью и дозаполнение.
type ContentBlock struct {
	OrderIndex int
	Slot       int
	Content    BlockContent
}

// Type возвращает тип блока по его содержимому
func (b ContentBlock) Type() BlockType {
	if b.Content == nil {
		return ""
	}
	return b.Content.BlockType()
}

type contentBlockJSON struct {
	BlockType  BlockType       `json:"blockType"`
	OrderIndex int             `json:"orderIndex"`
	Slot       int             `json:"slot"`
	Content    json.RawMessage `json:"content"`
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	if b.Content == nil {
		return nil, fmt.Errorf("content block %d has no content", b.OrderIndex)
	}
	raw, err := json.Marshal(b.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(contentBlockJSON{
		BlockType:  b.Content.BlockType(),
		OrderIndex: b.OrderIndex,
		Slot:       b.Slot,
		Content:    raw,
	})
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var aux contentBlockJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var content BlockContent
	switch aux.BlockType {
	case BlockTitle:
		content = &TitleContent{}
	case BlockText:
		content = &TextContent{}
	case BlockLocation:
		content = &LocationContent{}
	case BlockDivider:
		content = &DividerContent{}
	case BlockPhoto:
		content = &PhotoContent{}
	case BlockSlide:
		content = &SlideContent{}
	case BlockThreeColumns:
		content = &ThreeColumnsContent{}
	default:
		return fmt.Errorf("unknown block type %q", aux.BlockType)
	}
	if len(aux.Content) > 0 {
		if err := json.Unmarshal(aux.Content, content); err != nil {
			return fmt.Errorf("decode %s content: %w", aux.BlockType, err)
		}
	}

	b.OrderIndex = aux.OrderIndex
	b.Slot = aux.Slot
	b.Content = deref(content)
	return nil
}

// deref хранит содержимое блоков значениями, а не указателями
func deref(c BlockContent) BlockContent {
	switch v := c.(type) {
	case *TitleContent:
		return *v
	case *TextContent:
		return *v
	case *LocationContent:
		return *v
	case *DividerContent:
		return *v
	case *PhotoContent:
		return *v
	case *SlideContent:
		return *v
	case *ThreeColumnsContent:
		return *v
	}
	return c
}

// Reindex сортирует блоки по слоту шаблона и проставляет orderIndex 0..N-1.
func Reindex(blocks []ContentBlock) []ContentBlock {
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Slot < blocks[j].Slot })
	for i := range blocks {
		blocks[i].OrderIndex = i
	}
	return blocks
}

// ValidateOrder проверяет, что orderIndex идут подряд с нуля.
func ValidateOrder(blocks []ContentBlock) error {
	for i, b := range blocks {
		if b.OrderIndex != i {
			return fmt.Errorf("block at position %d has orderIndex %d", i, b.OrderIndex)
		}
	}
	return nil
}

// LocationBlocks возвращает содержимое всех блоков location по порядку.
func LocationBlocks(blocks []ContentBlock) []LocationContent {
	var out []LocationContent
	for _, b := range blocks {
		if lc, ok := b.Content.(LocationContent); ok {
			out = append(out, lc)
		}
	}
	return out
}
