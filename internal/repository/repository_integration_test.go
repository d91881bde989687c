package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"itinerary-server/internal/model"
	"itinerary-server/internal/repository"
	"itinerary-server/internal/service"
	"itinerary-server/pkg/migration"

	"github.com/docker/docker/client"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

var (
	_ service.SessionStore = (*repository.RedisSessionStore)(nil)
	_ service.CatalogStore = (*repository.PgCatalogStore)(nil)
)

// RepositorySuite поднимает Postgres и Redis в контейнерах
type RepositorySuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	rdContainer *tcredis.RedisContainer
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	logger      *zap.Logger

	sessions *repository.RedisSessionStore
	catalog  *repository.PgCatalogStore
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger, err = zap.NewDevelopment()
	require.NoError(s.T(), err)

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("itinerary_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	dsn, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)
	s.pgPool, err = pgxpool.New(s.ctx, dsn)
	require.NoError(s.T(), err)

	migrator := migration.NewMigrator(migration.Config{
		MigrationsFS:   repository.MigrationsFS,
		MigrationsPath: repository.MigrationsPath,
	}, s.pgPool)
	require.NoError(s.T(), migrator.Up(), "Failed to apply migrations")

	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	host, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)
	s.redisClient = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(s.T(), s.redisClient.Ping(s.ctx).Err())

	s.sessions = repository.NewRedisSessionStore(s.redisClient, time.Hour, s.logger)
	s.catalog = repository.NewPgCatalogStore(s.pgPool, s.logger)
}

func (s *RepositorySuite) TearDownSuite() {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate postgres container", zap.Error(err))
		}
	}
	if s.rdContainer != nil {
		if err := s.rdContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate redis container", zap.Error(err))
		}
	}
}

func (s *RepositorySuite) SetupTest() {
	require.NoError(s.T(), s.redisClient.FlushDB(s.ctx).Err())
	_, err := s.pgPool.Exec(s.ctx, "TRUNCATE TABLE catalog_locations, cities CASCADE")
	require.NoError(s.T(), err)
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Skipf("Docker client init error: %v", err)
	}
	defer cli.Close()
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Skipf("Docker daemon is not reachable: %v", err)
	}

	suite.Run(t, new(RepositorySuite))
}

// --- Session store ---

func previewItinerary() *model.Itinerary {
	return &model.Itinerary{
		City:       "Lisbon",
		Date:       "2026-05-02",
		Budget:     100,
		Status:     model.StatusPreview,
		Visibility: model.VisibilityPreview,
		ContentBlocks: []model.ContentBlock{
			{OrderIndex: 0, Slot: 0, Content: model.TitleContent{Title: "A slow day in Lisbon"}},
			{OrderIndex: 1, Slot: 2, Content: model.LocationContent{
				TimeWindow:   "09:00-10:00",
				Label:        "breakfast / gentle start",
				MainLocation: model.LocationCard{Name: "Fábrica Coffee Roasters", SourceTier: model.SourceCatalog, StableIdentity: "c1"},
				AlternativeLocations: []model.LocationCard{
					{Name: "Dear Breakfast", SourceTier: model.SourceSynthetic},
					{Name: "Another option in Lisbon", SourceTier: model.SourceSynthetic},
				},
			}},
		},
	}
}

func (s *RepositorySuite) TestSessionStore_SaveAndLoad() {
	t := s.T()
	it := previewItinerary()

	id, err := s.sessions.Save(s.ctx, it)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, int64(1), it.Version)

	loaded, err := s.sessions.Load(s.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", loaded.City)
	require.Len(t, loaded.ContentBlocks, 2)
	lc, ok := loaded.ContentBlocks[1].Content.(model.LocationContent)
	require.True(t, ok, "блок location восстанавливается своим типом")
	assert.Equal(t, "Fábrica Coffee Roasters", lc.MainLocation.Name)
	assert.Equal(t, 2, loaded.ContentBlocks[1].Slot)

	ttl, err := s.redisClient.TTL(s.ctx, "itinerary:"+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Minute)
}

func (s *RepositorySuite) TestSessionStore_NotFound() {
	_, err := s.sessions.Load(s.ctx, "missing")
	assert.ErrorIs(s.T(), err, model.ErrNotFound)

	_, err = s.sessions.SetVisibility(s.ctx, "missing", model.VisibilityFull)
	assert.ErrorIs(s.T(), err, model.ErrNotFound)
}

func (s *RepositorySuite) TestSessionStore_VersionConflict() {
	t := s.T()
	it := previewItinerary()
	id, err := s.sessions.Save(s.ctx, it)
	require.NoError(t, err)

	first, err := s.sessions.Load(s.ctx, id)
	require.NoError(t, err)
	second, err := s.sessions.Load(s.ctx, id)
	require.NoError(t, err)

	first.Status = model.StatusPayment
	_, err = s.sessions.Save(s.ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Version)

	second.Status = model.StatusError
	_, err = s.sessions.Save(s.ctx, second)
	assert.ErrorIs(t, err, model.ErrVersionConflict)

	stored, err := s.sessions.Load(s.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPayment, stored.Status)
}

func (s *RepositorySuite) TestSessionStore_ConcurrentWritersOneWins() {
	t := s.T()
	id, err := s.sessions.Save(s.ctx, previewItinerary())
	require.NoError(t, err)

	const writers = 5
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it, err := s.sessions.Load(s.ctx, id)
			if err != nil {
				errs[i] = err
				return
			}
			it.Title = fmt.Sprintf("writer %d", i)
			_, errs[i] = s.sessions.Save(s.ctx, it)
		}(i)
	}
	wg.Wait()

	stored, err := s.sessions.Load(s.ctx, id)
	require.NoError(t, err)
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, model.ErrVersionConflict)
	}
	assert.Equal(t, int64(1+succeeded), stored.Version)
	assert.GreaterOrEqual(t, succeeded, 1)
}

func (s *RepositorySuite) TestSessionStore_SetVisibility() {
	t := s.T()
	id, err := s.sessions.Save(s.ctx, previewItinerary())
	require.NoError(t, err)

	updated, err := s.sessions.SetVisibility(s.ctx, id, model.VisibilityFull)
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityFull, updated.Visibility)
	assert.Equal(t, int64(2), updated.Version)

	loaded, err := s.sessions.Load(s.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityFull, loaded.Visibility)
}

// --- Catalog ---

func (s *RepositorySuite) seedCatalog() {
	var cityID string
	err := s.pgPool.QueryRow(s.ctx, `INSERT INTO cities (name, country) VALUES ('Lisbon', 'PT') RETURNING id::text`).Scan(&cityID)
	require.NoError(s.T(), err)

	rows := []struct {
		name, category, source string
		rating                 float64
		tags, interests        []string
		active                 bool
	}{
		{"Fábrica Coffee Roasters", "cafe", "verified", 4.5, []string{"coffee", "breakfast"}, []string{"food"}, true},
		{"Copenhagen Coffee Lab", "cafe", "admin", 4.9, []string{"coffee"}, []string{"food"}, true},
		{"Hello Kristof", "cafe", "verified", 4.5, []string{"coffee"}, []string{"design"}, true},
		{"Closed Café", "cafe", "verified", 5.0, []string{"coffee"}, []string{"food"}, false},
		{"Taberna da Rua das Flores", "restaurant", "verified", 4.7, []string{"lunch"}, []string{"food"}, true},
	}
	for _, r := range rows {
		_, err := s.pgPool.Exec(s.ctx, `
			INSERT INTO catalog_locations (city_id, name, address, rating, price_level, category, tags, interests, source, active)
			VALUES ($1, $2, 'Lisbon', $3, 2, $4, $5, $6, $7, $8)`,
			cityID, r.name, r.rating, r.category, r.tags, r.interests, r.source, r.active)
		require.NoError(s.T(), err)
	}
}

func (s *RepositorySuite) TestCatalog_SearchOrdering() {
	t := s.T()
	s.seedCatalog()

	entries, err := s.catalog.Search(s.ctx, model.CatalogQuery{City: "lisbon", Categories: []string{"cafe"}, Tags: []string{"Coffee"}})
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	// verified первыми, при равном рейтинге по имени; неактивные не возвращаются
	assert.Equal(t, []string{"Fábrica Coffee Roasters", "Hello Kristof", "Copenhagen Coffee Lab"}, names)
	assert.Equal(t, model.CatalogVerified, entries[0].Source)
	assert.NotEmpty(t, entries[0].ID)
}

func (s *RepositorySuite) TestCatalog_SearchFilters() {
	t := s.T()
	s.seedCatalog()

	entries, err := s.catalog.Search(s.ctx, model.CatalogQuery{City: "Lisbon", Interests: []string{"design"}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Hello Kristof", entries[0].Name)

	entries, err = s.catalog.Search(s.ctx, model.CatalogQuery{City: "Porto"})
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = s.catalog.Search(s.ctx, model.CatalogQuery{City: "Lisbon", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
