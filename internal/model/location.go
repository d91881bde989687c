package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SourceTier - откуда пришла локация
type SourceTier string

const (
	SourceCatalog   SourceTier = "catalog"
	SourceExternal  SourceTier = "external"
	SourceSynthetic SourceTier = "synthetic"
)

// BudgetTier - ценовой ориентир слота
type BudgetTier string

const (
	BudgetTierLow    BudgetTier = "budget"
	BudgetTierMedium BudgetTier = "moderate"
	BudgetTierHigh   BudgetTier = "premium"
)

// TimeSlot - абстрактная единица плана до привязки к реальному месту.
type TimeSlot struct {
	Time       string     `json:"time"` // HH:MM
	Activity   string     `json:"activity"`
	Category   string     `json:"category"`
	Keywords   []string   `json:"keywords"`
	BudgetTier BudgetTier `json:"budgetTier"`
}

// Minutes возвращает время слота в минутах от полуночи.
func (s TimeSlot) Minutes() (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s.Time), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: bad time %q", ErrValidation, s.Time)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrValidation, s.Time)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrValidation, s.Time)
	}
	return h*60 + m, nil
}

// Hour возвращает час слота или -1, если время не разбирается.
func (s TimeSlot) Hour() int {
	m, err := s.Minutes()
	if err != nil {
		return -1
	}
	return m / 60
}

// SortTimeSlots сортирует слоты по времени. Слоты с неразборчивым временем уходят в конец.
func SortTimeSlots(slots []TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, errA := slots[i].Minutes()
		b, errB := slots[j].Minutes()
		switch {
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		return a < b
	})
}

// ResolvedLocation - конкретное место, привязанное к TimeSlot.
// После резолва не меняется.
type ResolvedLocation struct {
	Name           string     `json:"name"`
	Address        string     `json:"address"`
	Rating         float64    `json:"rating"`
	PriceLevel     int        `json:"priceLevel"` // 0..4
	Photos         []string   `json:"photos"`
	SourceTier     SourceTier `json:"sourceTier"`
	StableIdentity string     `json:"stableIdentity,omitempty"`
	Category       string     `json:"category"`
	Description    string     `json:"description,omitempty"`
	Recommendation string     `json:"recommendation,omitempty"`
	Slot           TimeSlot   `json:"slot"`
}

// IdentityKey - ключ для дедупликации. Пустой для синтетических мест.
func (l ResolvedLocation) IdentityKey() string {
	return IdentityKey(l.SourceTier, l.StableIdentity)
}

// IdentityKey строит ключ tier:id, чтобы id из разных источников не пересекались.
func IdentityKey(tier SourceTier, id string) string {
	if id == "" {
		return ""
	}
	return string(tier) + ":" + id
}

// ClampPriceLevel приводит уровень цены к диапазону 0..4
func ClampPriceLevel(level int) int {
	switch {
	case level < 0:
		return 0
	case level > 4:
		return 4
	}
	return level
}
