package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"itinerary-server/internal/model"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	places "google.golang.org/api/places/v1"
)

// ErrPlacesNotConfigured - нет ключа Places API
var ErrPlacesNotConfigured = errors.New("places api key is not configured")

const (
	searchFields     = "places.id,places.displayName,places.formattedAddress,places.rating,places.priceLevel,places.photos"
	photosPerPlace   = 2
	defaultMaxResult = 5
)

// PlacesConfig - настройки клиента Google Places
type PlacesConfig struct {
	APIKey     string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	CacheTTL   time.Duration
	PhotoSize  int64
	MaxResults int64
	Endpoint   string // пусто - боевой адрес
}

// PlacesClient - внешний гео-поиск через Google Places API (New)
type PlacesClient struct {
	svc     *places.Service
	cfg     PlacesConfig
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewPlacesClient создает клиент. Без ключа клиент создается, но Ready возвращает ошибку.
func NewPlacesClient(ctx context.Context, cfg PlacesConfig, logger *zap.Logger) (*PlacesClient, error) {
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResult
	}
	if cfg.PhotoSize <= 0 {
		cfg.PhotoSize = 1200
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}

	c := &PlacesClient{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cache:   cache.New(cfg.CacheTTL, time.Hour),
		logger:  logger.Named("PlacesClient"),
	}
	if cfg.APIKey == "" {
		c.logger.Warn("Places API key is empty, external place search is disabled")
		return c, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := places.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create places service: %w", err)
	}
	c.svc = svc
	return c, nil
}

// Ready возвращает ErrPlacesNotConfigured, если ключа нет
func (c *PlacesClient) Ready() error {
	if c.svc == nil {
		return ErrPlacesNotConfigured
	}
	return nil
}

// SearchText ищет места по свободному тексту. Результаты кэшируются по (язык, запрос).
func (c *PlacesClient) SearchText(ctx context.Context, query, language string) ([]model.ExternalPlace, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}

	key := language + "|" + strings.ToLower(strings.TrimSpace(query))
	if cached, found := c.cache.Get(key); found {
		return cached.([]model.ExternalPlace), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.svc.Places.SearchText(&places.GoogleMapsPlacesV1SearchTextRequest{
		TextQuery:      query,
		LanguageCode:   language,
		MaxResultCount: c.cfg.MaxResults,
	}).Fields(googleapi.Field(searchFields)).Context(ctx).Do()
	if err != nil {
		c.logger.Warn("Places text search failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("%w: places text search: %w", model.ErrProvider, err)
	}

	result := make([]model.ExternalPlace, 0, len(resp.Places))
	for _, p := range resp.Places {
		if p == nil || p.DisplayName == nil || strings.TrimSpace(p.DisplayName.Text) == "" {
			continue
		}
		result = append(result, model.ExternalPlace{
			ID:         p.Id,
			Name:       strings.TrimSpace(p.DisplayName.Text),
			Address:    p.FormattedAddress,
			Rating:     p.Rating,
			PriceLevel: priceLevel(p.PriceLevel),
			Photos:     c.photoURIs(ctx, p.Photos),
		})
	}

	c.logger.Debug("Places text search", zap.String("query", query), zap.Int("found", len(result)))
	c.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

// photoURIs получает прямые ссылки на первые фото места. Ошибки фото не критичны.
func (c *PlacesClient) photoURIs(ctx context.Context, photos []*places.GoogleMapsPlacesV1Photo) []string {
	var out []string
	for _, ph := range photos {
		if len(out) == photosPerPlace {
			break
		}
		if ph == nil || ph.Name == "" {
			continue
		}
		media, err := c.svc.Places.Photos.GetMedia(ph.Name + "/media").
			MaxWidthPx(c.cfg.PhotoSize).
			SkipHttpRedirect(true).
			Context(ctx).
			Do()
		if err != nil {
			c.logger.Debug("Failed to resolve place photo", zap.String("photo", ph.Name), zap.Error(err))
			continue
		}
		if media.PhotoUri != "" {
			out = append(out, media.PhotoUri)
		}
	}
	return out
}

// priceLevel переводит enum Places в 0..4; -1 - неизвестно
func priceLevel(level string) int {
	switch level {
	case "PRICE_LEVEL_FREE":
		return 0
	case "PRICE_LEVEL_INEXPENSIVE":
		return 1
	case "PRICE_LEVEL_MODERATE":
		return 2
	case "PRICE_LEVEL_EXPENSIVE":
		return 3
	case "PRICE_LEVEL_VERY_EXPENSIVE":
		return 4
	default:
		return -1
	}
}
