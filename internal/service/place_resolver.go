package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"itinerary-server/internal/model"

	"go.uber.org/zap"
)

const (
	syntheticRating     = 4.0
	syntheticPriceLevel = 2
	defaultCatalogLimit = 10
)

type catalogTier struct {
	tier  string
	query model.CatalogQuery
}

// PlaceResolver превращает TimeSlot в конкретное место: каталог, внешний поиск, заглушка.
type PlaceResolver struct {
	catalog  CatalogStore          // может быть nil - тогда уровни каталога пропускаются
	external ExternalPlaceSearcher // может быть nil
	language string
	limit    int
	logger   *zap.Logger
}

// NewPlaceResolver создает резолвер мест
func NewPlaceResolver(catalog CatalogStore, external ExternalPlaceSearcher, language string, limit int, logger *zap.Logger) *PlaceResolver {
	if limit <= 0 {
		limit = defaultCatalogLimit
	}
	return &PlaceResolver{
		catalog:  catalog,
		external: external,
		language: language,
		limit:    limit,
		logger:   logger.Named("PlaceResolver"),
	}
}

// Ready сообщает ErrConfiguration, если внешнему поиску не хватает ключа.
func (r *PlaceResolver) Ready() error {
	if r.external == nil {
		return fmt.Errorf("%w: external place provider is not set", model.ErrConfiguration)
	}
	if err := r.external.Ready(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	return nil
}

// Resolve находит место для слота. Ошибка возвращается только при сбое каталога
// или отмене контекста; сбои внешнего поиска приводят к заглушке.
func (r *PlaceResolver) Resolve(ctx context.Context, slot model.TimeSlot, city string, interests []string) (model.ResolvedLocation, error) {
	log := r.logger.With(zap.String("city", city), zap.String("time", slot.Time), zap.String("activity", slot.Activity))

	if r.catalog != nil {
		queries := []catalogTier{
			{"catalog_strict", model.CatalogQuery{City: city, Categories: categoryList(slot.Category), Tags: slot.Keywords, Interests: interests, Limit: r.limit}},
			{"catalog_any_category", model.CatalogQuery{City: city, Tags: slot.Keywords, Interests: interests, Limit: r.limit}},
		}
		if len(interests) > 0 {
			queries = append(queries, catalogTier{"catalog_any_interest", model.CatalogQuery{City: city, Categories: categoryList(slot.Category), Tags: slot.Keywords, Limit: r.limit}})
		}

		for _, q := range queries {
			entries, err := r.catalog.Search(ctx, q.query)
			if err != nil {
				resolverTierTotal.WithLabelValues(q.tier, "error").Inc()
				return model.ResolvedLocation{}, fmt.Errorf("%w: %s: %w", model.ErrCatalog, q.tier, err)
			}
			if len(entries) > 0 {
				resolverTierTotal.WithLabelValues(q.tier, "hit").Inc()
				log.Debug("Resolved from catalog", zap.String("tier", q.tier), zap.String("name", entries[0].Name))
				return fromCatalog(entries[0], slot), nil
			}
			resolverTierTotal.WithLabelValues(q.tier, "miss").Inc()
		}
	}

	if r.external != nil {
		query := externalQuery(slot, city)
		places, err := r.external.SearchText(ctx, query, r.language)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.ResolvedLocation{}, ctxErr
			}
			result := "error"
			if !errors.Is(err, model.ErrProvider) {
				result = "unexpected"
			}
			resolverTierTotal.WithLabelValues("external", result).Inc()
			log.Warn("External place search failed, using placeholder", zap.String("query", query), zap.Error(err))
		case len(places) == 0:
			resolverTierTotal.WithLabelValues("external", "miss").Inc()
		default:
			resolverTierTotal.WithLabelValues("external", "hit").Inc()
			return fromExternal(places[0], slot), nil
		}
	}

	resolverTierTotal.WithLabelValues("synthetic", "hit").Inc()
	return Placeholder(slot, city), nil
}

// Placeholder - синтетическое место, названное по активности слота
func Placeholder(slot model.TimeSlot, city string) model.ResolvedLocation {
	name := strings.TrimSpace(slot.Activity)
	if name == "" {
		name = "Free time in " + city
	}
	return model.ResolvedLocation{
		Name:       name,
		Address:    city,
		Rating:     syntheticRating,
		PriceLevel: syntheticPriceLevel,
		SourceTier: model.SourceSynthetic,
		Category:   slot.Category,
		Slot:       slot,
	}
}

func fromCatalog(e model.CatalogEntry, slot model.TimeSlot) model.ResolvedLocation {
	category := e.Category
	if category == "" {
		category = slot.Category
	}
	return model.ResolvedLocation{
		Name:           e.Name,
		Address:        e.Address,
		Rating:         e.Rating,
		PriceLevel:     model.ClampPriceLevel(e.PriceLevel),
		Photos:         e.Photos,
		SourceTier:     model.SourceCatalog,
		StableIdentity: e.ID,
		Category:       category,
		Description:    e.Description,
		Recommendation: e.Recommendation,
		Slot:           slot,
	}
}

func fromExternal(p model.ExternalPlace, slot model.TimeSlot) model.ResolvedLocation {
	level := p.PriceLevel
	if level < 0 {
		level = syntheticPriceLevel
	}
	return model.ResolvedLocation{
		Name:           p.Name,
		Address:        p.Address,
		Rating:         p.Rating,
		PriceLevel:     model.ClampPriceLevel(level),
		Photos:         p.Photos,
		SourceTier:     model.SourceExternal,
		StableIdentity: p.ID,
		Category:       slot.Category,
		Slot:           slot,
	}
}

// externalQuery - свободный текст: ключевые слова + категория + город
func externalQuery(slot model.TimeSlot, city string) string {
	parts := make([]string, 0, len(slot.Keywords)+2)
	for _, k := range slot.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			parts = append(parts, k)
		}
	}
	if slot.Category != "" {
		parts = append(parts, slot.Category)
	}
	parts = append(parts, city)
	return strings.Join(parts, " ")
}

func categoryList(category string) []string {
	if strings.TrimSpace(category) == "" {
		return nil
	}
	return []string{category}
}

// isCancellation - ошибка вызвана отменой или дедлайном
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
