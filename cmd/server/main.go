package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"itinerary-server/internal/clients"
	"itinerary-server/internal/config"
	"itinerary-server/internal/handler"
	"itinerary-server/internal/messaging"
	"itinerary-server/internal/repository"
	"itinerary-server/internal/service"
	"itinerary-server/pkg/ai"
	"itinerary-server/pkg/database"
	"itinerary-server/pkg/logger"
	"itinerary-server/pkg/migration"
	"itinerary-server/pkg/taskmanager"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const (
	connectRetries    = 20
	connectRetryDelay = 3 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		// в production .env обычно нет
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Service:  "itinerary-server",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	cfg.LogSummary(log)

	// --- External Connections ---
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startupCancel()

	pgPool, err := database.Connect(startupCtx, database.Config{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
		MaxRetries:  cfg.DBMaxRetries,
		RetryDelay:  connectRetryDelay,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsFS:   repository.MigrationsFS,
		MigrationsPath: repository.MigrationsPath,
	}, pgPool)
	if err := migrator.Up(); err != nil {
		log.Fatal("Failed to apply catalog migrations", zap.Error(err))
	}

	redisClient, err := setupRedis(startupCtx, cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	mqConn, err := connectRabbitMQ(cfg.RabbitMQURL, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()

	// --- Providers ---
	aiClient, err := ai.NewAIClient(cfg.AIConfig(), log)
	if err != nil {
		if !errors.Is(err, ai.ErrNotConfigured) {
			log.Fatal("Failed to create AI client", zap.Error(err))
		}
		// генерация будет отвечать ErrConfiguration, остальное продолжает работать
		log.Warn("AI client is not configured", zap.Error(err))
		aiClient = nil
	}

	placesClient, err := clients.NewPlacesClient(startupCtx, clients.PlacesConfig{
		APIKey:    cfg.PlacesAPIKey,
		Timeout:   cfg.PlacesTimeout,
		RPS:       cfg.PlacesRPS,
		Burst:     cfg.PlacesBurst,
		CacheTTL:  cfg.PlacesCacheTTL,
		PhotoSize: cfg.PlacesPhotoSize,
	}, log)
	if err != nil {
		log.Fatal("Failed to create Places client", zap.Error(err))
	}

	photoClient := clients.NewPhotoClient(clients.PhotoConfig{
		BaseURL:   cfg.UnsplashBaseURL,
		AccessKey: cfg.UnsplashAccessKey,
		Timeout:   cfg.PhotoTimeout,
	}, log)

	// --- Dependency Injection ---
	catalogStore := repository.NewPgCatalogStore(pgPool, log)
	sessionStore := repository.NewRedisSessionStore(redisClient, cfg.SessionTTL, log)

	narrative := service.NewNarrativeGenerator(aiClient, cfg.NarrativeLanguage, log)
	resolver := service.NewPlaceResolver(catalogStore, placesClient, cfg.PlacesLanguage, cfg.CatalogSearchLimit, log)
	assembler := service.NewAssembler(narrative, photoClient, cfg.StockPhotoURLs, cfg.SlotConcurrency, log)
	pipeline := service.NewItineraryPipeline(resolver, narrative, assembler, sessionStore, service.PipelineConfig{
		Timeout:              cfg.PipelineTimeout,
		PreviewLocationSlots: cfg.PreviewLocationSlots,
		SlotConcurrency:      cfg.SlotConcurrency,
		Currency:             cfg.Currency,
	}, log)

	tasks := taskmanager.New(taskmanager.Config{
		MaxConcurrent: cfg.BackgroundTasks,
		MaxAge:        cfg.BackgroundTaskMaxAge,
	}, log)

	notifier, err := messaging.NewNotifier(mqConn, cfg.NotificationQueue, log)
	if err != nil {
		log.Fatal("Failed to create Notifier", zap.Error(err))
	}
	defer notifier.Close()

	paymentConsumer, err := messaging.NewPaymentConsumer(mqConn, messaging.ConsumerConfig{
		Exchange:   cfg.PaymentExchange,
		Queue:      cfg.PaymentQueue,
		RoutingKey: cfg.PaymentRoutingKey,
	}, pipeline, tasks, notifier, log)
	if err != nil {
		log.Fatal("Failed to create PaymentConsumer", zap.Error(err))
	}

	itineraryHandler := handler.NewItineraryHandler(pipeline, log)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := newRouter(cfg, itineraryHandler, log)

	// --- Background Workers ---
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go func() {
		log.Info("Starting PaymentConsumer...")
		if err := paymentConsumer.Start(consumerCtx); err != nil {
			log.Error("PaymentConsumer stopped with error", zap.Error(err))
		} else {
			log.Info("PaymentConsumer stopped")
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Сначала перестаем принимать оплаты, затем ждем фоновые unlock задачи
	if err := paymentConsumer.Stop(); err != nil {
		log.Error("Error stopping PaymentConsumer", zap.Error(err))
	}
	stopConsumer()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		log.Error("Background tasks did not finish in time", zap.Error(err))
	}

	log.Info("Server exiting")
}

// newRouter собирает gin engine. Prometheus middleware подключается до роутов:
// gin фиксирует цепочку обработчиков в момент регистрации маршрута.
func newRouter(cfg *config.Config, itineraryHandler *handler.ItineraryHandler, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(handler.GinZapLogger(log))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	itineraryHandler.RegisterRoutes(router)
	return router
}

// setupRedis подключается к Redis с повторными попытками ping.
func setupRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	var lastErr error
	for attempt := 1; attempt <= connectRetries; attempt++ {
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Info("Connected to Redis", zap.String("address", opts.Addr), zap.Int("attempt", attempt))
			return client, nil
		}

		_ = client.Close()
		lastErr = fmt.Errorf("unable to ping redis (attempt %d/%d): %w", attempt, connectRetries, err)
		log.Warn("Redis ping failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis connect cancelled: %w", ctx.Err())
		case <-time.After(connectRetryDelay):
		}
	}
	return nil, lastErr
}

// connectRabbitMQ устанавливает соединение с повторными попытками.
func connectRabbitMQ(rawURL string, log *zap.Logger) (*amqp091.Connection, error) {
	var err error
	for attempt := 1; attempt <= connectRetries; attempt++ {
		var conn *amqp091.Connection
		conn, err = amqp091.Dial(rawURL)
		if err == nil {
			log.Info("Connected to RabbitMQ", zap.String("url", maskRabbitMQURL(rawURL)), zap.Int("attempt", attempt))
			go func() {
				closeErr := <-conn.NotifyClose(make(chan *amqp091.Error, 1))
				if closeErr != nil {
					log.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				}
			}()
			return conn, nil
		}
		log.Warn("RabbitMQ connection failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(connectRetryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", connectRetries, err)
}

func maskRabbitMQURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[invalid url]"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "********")
	}
	return u.String()
}
