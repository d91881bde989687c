package repository

import (
	"context"
	"fmt"
	"strings"

	"itinerary-server/internal/model"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

const defaultCatalogLimit = 10

// Проверенные места первыми, затем рейтинг, затем имя: порядок детерминирован.
const searchCatalogQuery = `
	SELECT l.id::text AS id, l.name, l.address, l.rating, l.price_level, l.category,
	       l.tags, l.interests, l.photos, l.description, l.recommendation, l.source
	FROM catalog_locations l
	JOIN cities c ON c.id = l.city_id
	WHERE l.active
	  AND LOWER(c.name) = LOWER($1)
	  AND (cardinality($2::text[]) = 0 OR l.category = ANY($2))
	  AND (cardinality($3::text[]) = 0 OR l.tags && $3)
	  AND (cardinality($4::text[]) = 0 OR l.interests && $4)
	ORDER BY (l.source = 'verified') DESC, l.rating DESC, l.name ASC
	LIMIT $5`

// PgCatalogStore - каталог проверенных локаций в Postgres
type PgCatalogStore struct {
	db     pgxscan.Querier
	logger *zap.Logger
}

// NewPgCatalogStore создает каталог поверх пула или транзакции
func NewPgCatalogStore(db pgxscan.Querier, logger *zap.Logger) *PgCatalogStore {
	return &PgCatalogStore{
		db:     db,
		logger: logger.Named("PgCatalogStore"),
	}
}

// Search ищет активные локации города. Пустые списки фильтра не сужают выборку.
func (s *PgCatalogStore) Search(ctx context.Context, q model.CatalogQuery) ([]model.CatalogEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultCatalogLimit
	}

	var entries []model.CatalogEntry
	err := pgxscan.Select(ctx, s.db, &entries, searchCatalogQuery,
		strings.TrimSpace(q.City), nonNil(q.Categories), nonNil(lower(q.Tags)), nonNil(lower(q.Interests)), limit)
	if err != nil {
		s.logger.Error("Catalog search failed", zap.String("city", q.City), zap.Error(err))
		return nil, fmt.Errorf("search catalog for %s: %w", q.City, err)
	}

	s.logger.Debug("Catalog search",
		zap.String("city", q.City),
		zap.Strings("categories", q.Categories),
		zap.Int("found", len(entries)),
	)
	return entries, nil
}

func lower(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// nonNil - pgx кодирует nil-срез как NULL, а cardinality(NULL) не равно 0
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
