package service

import (
	"context"
	"fmt"
	"strings"

	"itinerary-server/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	alternativesPerSlot = 2
	defaultStockPhoto   = "https://images.unsplash.com/photo-1488646953014-85cb44e25828"
	photoSearchSize     = 5
)

// AssembleInput - все, что нужно для сборки блоков одного дня
type AssembleInput struct {
	City      string
	Date      string
	Audience  string
	Interests []string
	Concept   string
	Locations []model.ResolvedLocation
	// LocationLimit > 0 - превью: только первые N слотов location
	LocationLimit int
}

// Assembler заполняет фиксированный шаблон дня
type Assembler struct {
	narrative   *NarrativeGenerator
	photos      PhotoSearcher // может быть nil - тогда только стоковые фото
	stockPhotos []string
	concurrency int
	logger      *zap.Logger
}

// NewAssembler создает сборщик блоков
func NewAssembler(narrative *NarrativeGenerator, photos PhotoSearcher, stockPhotos []string, concurrency int, logger *zap.Logger) *Assembler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Assembler{
		narrative:   narrative,
		photos:      photos,
		stockPhotos: stockPhotos,
		concurrency: concurrency,
		logger:      logger.Named("Assembler"),
	}
}

// assemblyRun - состояние одного прогона сборки
type assemblyRun struct {
	*Assembler
	in    AssembleInput
	used  *usedRegistry
	mains map[int]model.ResolvedLocation // слот шаблона -> основное место
	day   DayContext
}

type blockHandler func(run *assemblyRun, ctx context.Context, slot int) (model.BlockContent, error)

var blockHandlers = map[model.BlockType]blockHandler{
	model.BlockTitle:        (*assemblyRun).titleBlock,
	model.BlockText:         (*assemblyRun).textBlock,
	model.BlockLocation:     (*assemblyRun).locationBlock,
	model.BlockDivider:      (*assemblyRun).dividerBlock,
	model.BlockPhoto:        (*assemblyRun).photoBlock,
	model.BlockSlide:        (*assemblyRun).slideBlock,
	model.BlockThreeColumns: (*assemblyRun).threeColumnsBlock,
}

// Assemble собирает все блоки дня. Слоты location без подходящего места пропускаются.
func (a *Assembler) Assemble(ctx context.Context, in AssembleInput) ([]model.ContentBlock, error) {
	run := a.newRun(in, newUsedRegistry())
	matches := matchWindows(locationSlots(in.Locations), nil, in.LocationLimit)
	run.claimMains(matches)

	slots := make([]int, 0, len(dayTemplate))
	for i, ts := range dayTemplate {
		if ts.Type == model.BlockLocation {
			if _, ok := run.mains[i]; !ok {
				continue
			}
		}
		slots = append(slots, i)
	}
	return run.build(ctx, slots)
}

// Extend дособирает недостающие слоты location к уже показанным блокам.
// Существующие блоки не меняются и занимают свои места и фото в реестре.
func (a *Assembler) Extend(ctx context.Context, existing []model.ContentBlock, in AssembleInput) ([]model.ContentBlock, error) {
	used := newUsedRegistry()
	used.SeedFrom(existing)

	present := make(map[int]bool, len(existing))
	for _, b := range existing {
		present[b.Slot] = true
	}

	run := a.newRun(in, used)
	for _, lc := range model.LocationBlocks(existing) {
		run.day.Places = append(run.day.Places, lc.MainLocation.Name)
	}
	run.claimMains(matchWindows(locationSlots(in.Locations), present, 0))

	slots := make([]int, 0, len(run.mains))
	for i := range dayTemplate {
		if _, ok := run.mains[i]; ok {
			slots = append(slots, i)
		}
	}
	added, err := run.build(ctx, slots)
	if err != nil {
		return nil, err
	}

	merged := make([]model.ContentBlock, 0, len(existing)+len(added))
	merged = append(merged, existing...)
	merged = append(merged, added...)
	return model.Reindex(merged), nil
}

func (a *Assembler) newRun(in AssembleInput, used *usedRegistry) *assemblyRun {
	return &assemblyRun{
		Assembler: a,
		in:        in,
		used:      used,
		mains:     make(map[int]model.ResolvedLocation),
		day: DayContext{
			City:      in.City,
			Date:      in.Date,
			Audience:  in.Audience,
			Interests: in.Interests,
			Concept:   in.Concept,
		},
	}
}

func locationSlots(locations []model.ResolvedLocation) []model.TimeSlot {
	out := make([]model.TimeSlot, len(locations))
	for i, l := range locations {
		out[i] = l.Slot
	}
	return out
}

// claimMains занимает основные места последовательно в порядке слотов,
// поэтому "второе вхождение" дубликата определено однозначно.
func (r *assemblyRun) claimMains(matches []windowMatch) {
	for _, m := range matches {
		loc := r.in.Locations[m.Item]
		if !r.used.ClaimLocation(loc.Name, loc.IdentityKey()) {
			r.logger.Info("Duplicate main location replaced",
				zap.String("name", loc.Name),
				zap.String("identity", loc.IdentityKey()),
				zap.Int("slot", m.Slot),
			)
			loc = model.ResolvedLocation{
				Name:       r.used.ClaimSynthetic(anotherOption(r.in.City)),
				Address:    r.in.City,
				Rating:     syntheticRating,
				PriceLevel: syntheticPriceLevel,
				SourceTier: model.SourceSynthetic,
				Category:   loc.Category,
				Slot:       loc.Slot,
			}
		}

		photos := make([]string, 0, len(loc.Photos))
		for _, p := range loc.Photos {
			if r.used.ClaimPhoto(p) {
				photos = append(photos, p)
			}
		}
		loc.Photos = photos

		r.mains[m.Slot] = loc
		r.day.Places = append(r.day.Places, loc.Name)
	}
}

// build параллельно генерирует блоки для слотов шаблона и возвращает их в порядке шаблона.
func (r *assemblyRun) build(ctx context.Context, slots []int) ([]model.ContentBlock, error) {
	results := make([]model.BlockContent, len(slots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, slot := range slots {
		g.Go(func() error {
			ts := dayTemplate[slot]
			handler, ok := blockHandlers[ts.Type]
			if !ok {
				return fmt.Errorf("no handler for block type %q", ts.Type)
			}
			content, err := handler(r, gctx, slot)
			if err != nil {
				return fmt.Errorf("slot %d (%s): %w", slot, ts.Type, err)
			}
			results[i] = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	blocks := make([]model.ContentBlock, 0, len(slots))
	for i, slot := range slots {
		blocks = append(blocks, model.ContentBlock{Slot: slot, Content: results[i]})
	}
	return model.Reindex(blocks), nil
}

// --- Обработчики блоков ---

func (r *assemblyRun) titleBlock(ctx context.Context, _ int) (model.BlockContent, error) {
	title := r.narrative.Title(ctx, r.day)
	return model.TitleContent{Title: title, Subtitle: r.in.Concept}, ctx.Err()
}

func (r *assemblyRun) textBlock(ctx context.Context, slot int) (model.BlockContent, error) {
	role := dayTemplate[slot].Role
	var text string
	if role == model.TextClosing {
		text = r.narrative.ClosingText(ctx, r.day)
	} else {
		text = r.narrative.IntroText(ctx, r.day)
	}
	return model.TextContent{Role: role, Text: text}, ctx.Err()
}

func (r *assemblyRun) dividerBlock(ctx context.Context, slot int) (model.BlockContent, error) {
	return model.DividerContent{Label: dividerLabel(slot)}, ctx.Err()
}

func (r *assemblyRun) photoBlock(ctx context.Context, _ int) (model.BlockContent, error) {
	subject := r.in.City + " street life"
	url := r.pickPhoto(ctx, subject)
	caption := r.narrative.PhotoCaption(ctx, r.day, subject)
	return model.PhotoContent{URL: url, Caption: caption}, ctx.Err()
}

func (r *assemblyRun) slideBlock(ctx context.Context, _ int) (model.BlockContent, error) {
	text := r.narrative.Slide(ctx, r.day)
	return model.SlideContent{
		Title:    text.Title,
		Text:     text.Text,
		PhotoURL: r.pickPhoto(ctx, r.in.City+" "+text.Title),
	}, ctx.Err()
}

func (r *assemblyRun) threeColumnsBlock(ctx context.Context, _ int) (model.BlockContent, error) {
	texts := r.narrative.ThreeColumns(ctx, r.day)
	var content model.ThreeColumnsContent
	for i, t := range texts {
		content.Columns[i] = model.Column{
			Title:    t.Title,
			Text:     t.Text,
			PhotoURL: r.pickPhoto(ctx, r.in.City+" "+t.Title),
		}
	}
	return content, ctx.Err()
}

func (r *assemblyRun) locationBlock(ctx context.Context, slot int) (model.BlockContent, error) {
	main := r.mains[slot]
	window := dayTemplate[slot].Window

	pc := PlaceContext{
		Name:      main.Name,
		Address:   main.Address,
		Category:  main.Category,
		City:      r.in.City,
		TimeLabel: window.Label,
		Audience:  r.in.Audience,
		Interests: r.in.Interests,
		Concept:   r.in.Concept,
		Used:      r.day.Places,
	}
	if main.SourceTier == model.SourceCatalog {
		pc.CatalogDescription = main.Description
		pc.CatalogRecommendation = main.Recommendation
	}
	narrative := r.narrative.LocationSlot(ctx, pc)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alternatives := make([]model.LocationCard, 0, alternativesPerSlot)
	for _, cand := range narrative.Alternatives {
		if len(alternatives) == alternativesPerSlot {
			break
		}
		if r.used.ClaimLocation(cand.Name, "") {
			alternatives = append(alternatives, r.alternativeCard(ctx, cand, main.Category))
			continue
		}
		r.logger.Debug("Alternative rejected as duplicate", zap.String("name", cand.Name), zap.Int("slot", slot))
		alternatives = append(alternatives, r.syntheticAlternative(ctx, main.Category))
	}
	for len(alternatives) < alternativesPerSlot {
		alternatives = append(alternatives, r.syntheticAlternative(ctx, main.Category))
	}

	return model.LocationContent{
		TimeWindow: window.String(),
		Label:      window.Label,
		Time:       main.Slot.Time,
		MainLocation: model.LocationCard{
			Name:           main.Name,
			Address:        main.Address,
			Description:    narrative.Description,
			Recommendation: narrative.Recommendation,
			Rating:         main.Rating,
			PriceLevel:     main.PriceLevel,
			Photos:         main.Photos,
			SourceTier:     main.SourceTier,
			StableIdentity: main.StableIdentity,
			Category:       main.Category,
		},
		AlternativeLocations: alternatives,
	}, ctx.Err()
}

func (r *assemblyRun) alternativeCard(ctx context.Context, cand AlternativeCandidate, category string) model.LocationCard {
	address := strings.TrimSpace(cand.Address)
	if address == "" {
		address = r.in.City
	}
	pc := PlaceContext{Name: cand.Name, Category: category, City: r.in.City}
	return model.LocationCard{
		Name:           cand.Name,
		Address:        address,
		Description:    firstNonEmpty(cand.Description, fallbackDescription(pc)),
		Recommendation: firstNonEmpty(cand.Recommendation, fallbackRecommendation(pc)),
		Rating:         syntheticRating,
		PriceLevel:     syntheticPriceLevel,
		Photos:         []string{r.pickPhoto(ctx, cand.Name+" "+r.in.City)},
		SourceTier:     model.SourceSynthetic,
		Category:       category,
	}
}

func (r *assemblyRun) syntheticAlternative(ctx context.Context, category string) model.LocationCard {
	name := r.used.ClaimSynthetic(anotherOption(r.in.City))
	pc := PlaceContext{Name: name, Category: category, City: r.in.City}
	return model.LocationCard{
		Name:           name,
		Address:        r.in.City,
		Description:    fallbackDescription(pc),
		Recommendation: fallbackRecommendation(pc),
		Rating:         syntheticRating,
		PriceLevel:     syntheticPriceLevel,
		Photos:         []string{r.pickPhoto(ctx, r.in.City+" "+category)},
		SourceTier:     model.SourceSynthetic,
		Category:       category,
	}
}

// pickPhoto берет первое незанятое фото по запросу, затем стоковое.
// Фото не повторяются в пределах документа.
// Ошибка поиска фото не прерывает сборку.
func (r *assemblyRun) pickPhoto(ctx context.Context, query string) string {
	if r.photos != nil {
		urls, err := r.photos.Search(ctx, query, photoSearchSize)
		if err != nil {
			if !isCancellation(err) {
				r.logger.Warn("Photo search failed, using stock photo", zap.String("query", query), zap.Error(err))
			}
		}
		for _, u := range urls {
			if r.used.ClaimPhoto(u) {
				return u
			}
		}
	}
	for _, u := range r.stockPhotos {
		if r.used.ClaimPhoto(u) {
			return u
		}
	}
	for n := 1; ; n++ {
		u := fmt.Sprintf("%s?sig=%d", defaultStockPhoto, n)
		if r.used.ClaimPhoto(u) {
			return u
		}
	}
}

// anotherOption - базовое имя синтетической альтернативы
func anotherOption(city string) string {
	return "Another option in " + city
}
