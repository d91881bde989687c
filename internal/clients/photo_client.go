package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"itinerary-server/internal/model"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// PhotoConfig - настройки клиента Unsplash
type PhotoConfig struct {
	BaseURL   string
	AccessKey string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

// PhotoClient ищет иллюстративные фото через Unsplash Search API
type PhotoClient struct {
	cfg    PhotoConfig
	http   *http.Client
	cache  *cache.Cache
	logger *zap.Logger
}

type unsplashSearchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// NewPhotoClient создает клиент фото
func NewPhotoClient(cfg PhotoConfig, logger *zap.Logger) *PhotoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.unsplash.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	return &PhotoClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		cache:  cache.New(cfg.CacheTTL, time.Hour),
		logger: logger.Named("PhotoClient"),
	}
}

// Search возвращает до n ссылок на фото. Без ключа доступа возвращает пустой результат.
func (c *PhotoClient) Search(ctx context.Context, query string, n int) ([]string, error) {
	if c.cfg.AccessKey == "" {
		return nil, nil
	}
	if n <= 0 {
		n = 1
	}

	key := strconv.Itoa(n) + "|" + strings.ToLower(strings.TrimSpace(query))
	if cached, found := c.cache.Get(key); found {
		return cached.([]string), nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(n))
	params.Set("orientation", "landscape")
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/search/photos?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build unsplash request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.cfg.AccessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: unsplash request failed: %w", model.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Unsplash returned non-200", zap.Int("status", resp.StatusCode), zap.String("body", string(body)))
		return nil, fmt.Errorf("%w: unsplash search: status %d", model.ErrProvider, resp.StatusCode)
	}

	var parsed unsplashSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode unsplash response: %w", model.ErrProvider, err)
	}

	urls := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URLs.Regular != "" {
			urls = append(urls, r.URLs.Regular)
		}
	}
	c.cache.Set(key, urls, cache.DefaultExpiration)
	return urls, nil
}
