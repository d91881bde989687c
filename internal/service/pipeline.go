package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"itinerary-server/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const dateLayout = "2006-01-02"

// GenerateRequest - параметры генерации маршрута
type GenerateRequest struct {
	City        string   `json:"city"`
	Date        string   `json:"date"`
	Budget      float64  `json:"budget"`
	Audience    string   `json:"audience"`
	Interests   []string `json:"interests"`
	PreviewOnly bool     `json:"previewOnly"`
}

// PipelineConfig - настройки оркестратора
type PipelineConfig struct {
	Timeout              time.Duration
	PreviewLocationSlots int
	SlotConcurrency      int
	Currency             string
}

// ItineraryPipeline - оркестратор: идея дня, места, блоки, бюджет, метаданные, сохранение.
type ItineraryPipeline struct {
	resolver   *PlaceResolver
	narrative  *NarrativeGenerator
	assembler  *Assembler
	normalizer *BudgetNormalizer
	store      SessionStore
	cfg        PipelineConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewItineraryPipeline создает оркестратор со всеми зависимостями
func NewItineraryPipeline(
	resolver *PlaceResolver,
	narrative *NarrativeGenerator,
	assembler *Assembler,
	store SessionStore,
	cfg PipelineConfig,
	logger *zap.Logger,
) *ItineraryPipeline {
	if cfg.SlotConcurrency < 1 {
		cfg.SlotConcurrency = 1
	}
	if cfg.PreviewLocationSlots < 1 {
		cfg.PreviewLocationSlots = 2
	}
	return &ItineraryPipeline{
		resolver:   resolver,
		narrative:  narrative,
		assembler:  assembler,
		normalizer: NewBudgetNormalizer(cfg.Currency),
		store:      store,
		cfg:        cfg,
		logger:     logger.Named("ItineraryPipeline"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	pipelineDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

const minBudget = 1.0

func (p *ItineraryPipeline) validate(req *GenerateRequest) error {
	req.City = strings.TrimSpace(req.City)
	if req.City == "" {
		return fmt.Errorf("%w: city is required", model.ErrValidation)
	}
	// нормализация округляет цены до целых единиц валюты
	if req.Budget < minBudget {
		return fmt.Errorf("%w: budget must be at least %v, got %v", model.ErrValidation, minBudget, req.Budget)
	}
	req.Date = strings.TrimSpace(req.Date)
	if req.Date == "" {
		req.Date = p.now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, req.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", model.ErrValidation, req.Date)
	}
	return nil
}

func (p *ItineraryPipeline) ready() error {
	if err := p.narrative.Ready(); err != nil {
		return err
	}
	return p.resolver.Ready()
}

func (p *ItineraryPipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.Timeout)
}

// Generate строит маршрут. В режиме превью документ сохраняется; при сбое сохранения
// вызывающий получает и готовый маршрут, и ошибку ErrPersistence.
func (p *ItineraryPipeline) Generate(ctx context.Context, req GenerateRequest) (it *model.Itinerary, err error) {
	start := time.Now()
	defer func() { observe("generate", start, err) }()

	if err := p.validate(&req); err != nil {
		return nil, err
	}
	if err := p.ready(); err != nil {
		return nil, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	log := p.logger.With(zap.String("city", req.City), zap.String("date", req.Date), zap.Bool("preview", req.PreviewOnly))
	log.Info("Generating itinerary", zap.Float64("budget", req.Budget), zap.Strings("interests", req.Interests))

	concept := p.narrative.DayConcept(ctx, ConceptRequest{
		City:      req.City,
		Date:      req.Date,
		Budget:    req.Budget,
		Audience:  req.Audience,
		Interests: req.Interests,
	})
	if concept.Fallback {
		log.Warn("Day concept fell back to the default template")
	}

	limit := 0
	if req.PreviewOnly {
		limit = p.cfg.PreviewLocationSlots
	}
	matches := matchWindows(concept.TimeSlots, nil, limit)
	locations, err := p.resolveSlots(ctx, concept.TimeSlots, matches, req.City, req.Interests)
	if err != nil {
		return nil, err
	}

	blocks, err := p.assembler.Assemble(ctx, AssembleInput{
		City:          req.City,
		Date:          req.Date,
		Audience:      req.Audience,
		Interests:     req.Interests,
		Concept:       concept.Text,
		Locations:     locations,
		LocationLimit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble blocks: %w", err)
	}

	now := p.now()
	it = &model.Itinerary{
		City:          req.City,
		Date:          req.Date,
		Budget:        req.Budget,
		Audience:      req.Audience,
		Interests:     req.Interests,
		Concept:       model.Concept{Text: concept.Text, TimeSlots: concept.TimeSlots},
		ContentBlocks: blocks,
		Status:        model.StatusGenerating,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.applyBudget(it, log)

	meta := p.narrative.Metadata(ctx, p.dayContext(it))
	it.Title, it.Subtitle, it.Weather = meta.Title, meta.Subtitle, meta.Weather

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !req.PreviewOnly {
		// Полный план без превью не сохраняется и сразу полный
		it.Status = model.StatusFull
		it.Visibility = model.VisibilityFull
		it.FullPlanReady = true
		log.Info("Full itinerary generated", zap.Int("blocks", len(it.ContentBlocks)))
		return it, nil
	}

	if err := Transition(it, model.StatusPreview); err != nil {
		return nil, err
	}
	it.Visibility = model.VisibilityPreview
	it.FullPlanReady = len(matchWindows(concept.TimeSlots, nil, 0)) == len(matches)

	id, err := p.store.Save(ctx, it)
	if err != nil {
		log.Error("Failed to save preview itinerary", zap.Error(err))
		return it, fmt.Errorf("%w: save preview: %w", model.ErrPersistence, err)
	}
	it.ID = id
	log.Info("Preview itinerary saved", zap.String("itinerary_id", id), zap.Int("blocks", len(it.ContentBlocks)))
	return it, nil
}

// resolveSlots параллельно резолвит слоты, попавшие в окна шаблона. Порядок сохраняется.
func (p *ItineraryPipeline) resolveSlots(ctx context.Context, slots []model.TimeSlot, matches []windowMatch, city string, interests []string) ([]model.ResolvedLocation, error) {
	out := make([]model.ResolvedLocation, len(matches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.SlotConcurrency)
	for i, m := range matches {
		g.Go(func() error {
			loc, err := p.resolver.Resolve(gctx, slots[m.Item], city, interests)
			if err != nil {
				return err
			}
			out[i] = loc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve places: %w", err)
	}
	return out, nil
}

// applyBudget пересчитывает активности, нормализует цены и итоги.
func (p *ItineraryPipeline) applyBudget(it *model.Itinerary, log *zap.Logger) {
	activities := DeriveActivities(it.ContentBlocks, p.cfg.Currency)
	normalized, err := p.normalizer.Normalize(activities, it.Budget)
	switch {
	case errors.Is(err, model.ErrDegenerateBudget):
		budgetNormalizationTotal.WithLabelValues("degenerate").Inc()
		log.Warn("Budget normalization skipped", zap.Error(err))
	case TotalCost(normalized) != TotalCost(activities):
		budgetNormalizationTotal.WithLabelValues("scaled").Inc()
	default:
		budgetNormalizationTotal.WithLabelValues("untouched").Inc()
	}
	it.Activities = normalized
	it.TotalCost = TotalCost(normalized)
	it.WithinBudget = WithinBudget(it.TotalCost, it.Budget)
}

func (p *ItineraryPipeline) dayContext(it *model.Itinerary) DayContext {
	dc := DayContext{
		City:      it.City,
		Date:      it.Date,
		Audience:  it.Audience,
		Interests: it.Interests,
		Concept:   it.Concept.Text,
	}
	for _, lc := range model.LocationBlocks(it.ContentBlocks) {
		dc.Places = append(dc.Places, lc.MainLocation.Name)
	}
	return dc
}

func (p *ItineraryPipeline) load(ctx context.Context, id string) (*model.Itinerary, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: itinerary id is required", model.ErrValidation)
	}
	return p.store.Load(ctx, id)
}

// Get возвращает сохраненный маршрут
func (p *ItineraryPipeline) Get(ctx context.Context, id string) (*model.Itinerary, error) {
	return p.load(ctx, id)
}

// Complete дозаполняет слоты превью. Уже показанные блоки не меняются.
func (p *ItineraryPipeline) Complete(ctx context.Context, id string) (it *model.Itinerary, err error) {
	start := time.Now()
	defer func() { observe("complete", start, err) }()

	it, err = p.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.FullPlanReady {
		return it, nil
	}
	if err := p.completeInPlace(ctx, it); err != nil {
		return nil, err
	}
	if _, err := p.store.Save(ctx, it); err != nil {
		return nil, err
	}
	p.logger.Info("Itinerary completed", zap.String("itinerary_id", id), zap.Int("blocks", len(it.ContentBlocks)))
	return it, nil
}

func (p *ItineraryPipeline) completeInPlace(ctx context.Context, it *model.Itinerary) error {
	if err := p.ready(); err != nil {
		return err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	log := p.logger.With(zap.String("itinerary_id", it.ID), zap.String("city", it.City))

	present := make(map[int]bool, len(it.ContentBlocks))
	for _, b := range it.ContentBlocks {
		present[b.Slot] = true
	}
	matches := matchWindows(it.Concept.TimeSlots, present, 0)
	locations, err := p.resolveSlots(ctx, it.Concept.TimeSlots, matches, it.City, it.Interests)
	if err != nil {
		return err
	}

	blocks, err := p.assembler.Extend(ctx, it.ContentBlocks, AssembleInput{
		City:      it.City,
		Date:      it.Date,
		Audience:  it.Audience,
		Interests: it.Interests,
		Concept:   it.Concept.Text,
		Locations: locations,
	})
	if err != nil {
		return fmt.Errorf("extend blocks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	it.ContentBlocks = blocks
	it.FullPlanReady = true
	p.applyBudget(it, log)
	return nil
}

// MarkPaid фиксирует внешнее событие оплаты: preview -> payment.
func (p *ItineraryPipeline) MarkPaid(ctx context.Context, id string) (*model.Itinerary, error) {
	it, err := p.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.Status == model.StatusPayment || it.Status == model.StatusFull {
		return it, nil
	}
	// оплаченный документ после сбоя unlock: повторное событие оплаты ничего не меняет,
	// восстановление делает Unlock
	if it.Status == model.StatusError && it.PaidAt != nil {
		return it, nil
	}
	if err := Transition(it, model.StatusPayment); err != nil {
		return nil, err
	}
	paidAt := p.now()
	it.PaidAt = &paidAt
	if _, err := p.store.Save(ctx, it); err != nil {
		return nil, err
	}
	p.logger.Info("Itinerary marked as paid", zap.String("itinerary_id", id))
	return it, nil
}

// Unlock открывает полный план после оплаты. Повторный вызов возвращает документ без изменений.
func (p *ItineraryPipeline) Unlock(ctx context.Context, id string) (it *model.Itinerary, err error) {
	start := time.Now()
	defer func() { observe("unlock", start, err) }()

	it, err = p.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.Visibility == model.VisibilityFull {
		return it, nil
	}

	if it.Status == model.StatusError && it.PaidAt != nil {
		if err := p.resumePaid(it); err != nil {
			return nil, err
		}
	}

	// status=full с visibility=preview - прерванный прошлый unlock, осталось открыть видимость
	if it.Status != model.StatusFull {
		if it.Status != model.StatusPayment {
			return nil, fmt.Errorf("%w: unlock requires payment, status is %s", model.ErrInvalidTransition, it.Status)
		}
		if !it.FullPlanReady {
			if err := p.completeInPlace(ctx, it); err != nil {
				return nil, err
			}
		}
		if err := Transition(it, model.StatusFull); err != nil {
			return nil, err
		}
		if _, err := p.store.Save(ctx, it); err != nil {
			return nil, err
		}
	}

	it, err = p.store.SetVisibility(ctx, id, model.VisibilityFull)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Itinerary unlocked", zap.String("itinerary_id", id))
	return it, nil
}

// resumePaid возвращает оплаченный документ из error в payment по разрешенным переходам.
// Изменения сохраняются вместе с остальным unlock.
func (p *ItineraryPipeline) resumePaid(it *model.Itinerary) error {
	for _, to := range []model.Status{model.StatusGenerating, model.StatusPreview, model.StatusPayment} {
		if err := Transition(it, to); err != nil {
			return err
		}
	}
	p.logger.Info("Paid itinerary resumed after error", zap.String("itinerary_id", it.ID))
	return nil
}

// Fail переводит документ в error после сбоя фоновой задачи.
func (p *ItineraryPipeline) Fail(ctx context.Context, id string, cause error) error {
	it, err := p.load(ctx, id)
	if err != nil {
		return err
	}
	if it.Status == model.StatusError {
		return nil
	}
	if err := Transition(it, model.StatusError); err != nil {
		return err
	}
	if _, err := p.store.Save(ctx, it); err != nil {
		return err
	}
	p.logger.Warn("Itinerary moved to error", zap.String("itinerary_id", id), zap.Error(cause))
	return nil
}
