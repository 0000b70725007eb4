package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/clients"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/config"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/database"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/handler"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/messaging"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/notification"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/platform"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/service"
	"github.com/maxwellt7/ai-hypnosis-generator/pkg/logger"
	"github.com/maxwellt7/ai-hypnosis-generator/pkg/migration"
	"github.com/maxwellt7/ai-hypnosis-generator/pkg/taskmanager"
)

// maxIndexedTokens caps one indexed document below the embedding model's input limit.
const maxIndexedTokens = 8000

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "json", Service: "api"})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	log.Info("Configuration loaded", zap.String("env", cfg.Env), zap.String("logLevel", cfg.LogLevel))

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("Invalid stats timezone", zap.Error(err))
	}

	// --- External connections ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgPool, err := platform.ConnectPostgres(ctx, platform.PostgresConfig{
		DSN:         cfg.PostgresDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
	}, platform.DefaultRetry, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	migrator := migration.NewMigrator(migration.Config{FS: database.MigrationsFS, Path: database.MigrationsPath}, pgPool, log)
	if err := migrator.Up(); err != nil {
		log.Fatal("Failed to apply database migrations", zap.Error(err))
	}

	redisClient, err := platform.ConnectRedis(ctx, &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, platform.DefaultRetry, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	mqConn, err := platform.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, platform.DefaultRetry, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()

	// --- Dependency injection ---
	store := database.NewStore(pgPool, log)
	tokenRepo := database.NewRedisTokenRepository(redisClient, log)
	limiter := database.NewRedisCreationLimiter(redisClient, cfg.JourneyCreateLimit, cfg.JourneyCreateWindow, log)

	publisher, err := messaging.NewRabbitEmailPublisher(mqConn, cfg.EmailQueueName, log)
	if err != nil {
		log.Fatal("Failed to create e-mail publisher", zap.Error(err))
	}
	notifier := notification.NewEmailNotifier(store.Users(), publisher, cfg.AdminEmail, cfg.AppBaseURL, log)

	tasks := taskmanager.New(taskmanager.Config{
		MaxConcurrent: cfg.TaskMaxConcurrent,
		Timeout:       cfg.TaskTimeout,
	}, log, nil)

	generator := clients.NewGeneratorClient(cfg.GeneratorWebhookURL, cfg.GeneratorAPIKey, cfg.GeneratorTimeout, log)

	var (
		retriever interfaces.ContextRetriever
		indexer   interfaces.ContextIndexer
	)
	if cfg.ContextRetrievalEnabled() {
		index, err := clients.NewPineconeIndex(cfg.PineconeAPIKey, cfg.PineconeIndexHost)
		if err != nil {
			log.Fatal("Failed to create Pinecone client", zap.Error(err))
		}
		embedder := clients.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		retriever = clients.NewContextRetriever(
			embedder,
			index,
			clients.NewTokenBudget(cfg.EmbeddingModel, cfg.ContextTokenBudget, log),
			cfg.ContextTopK,
			log,
		)
		indexer = clients.NewContextIndexer(
			embedder,
			index,
			clients.NewTokenBudget(cfg.EmbeddingModel, maxIndexedTokens, log),
			log,
		)
		log.Info("User context retrieval enabled", zap.String("indexHost", cfg.PineconeIndexHost))
	} else {
		log.Info("User context retrieval disabled")
	}

	providers := cfg.GetWebhookProviders()
	if len(providers) == 0 {
		log.Fatal("WEBHOOK_PROVIDERS must name at least one provider")
	}
	callbackURL := fmt.Sprintf("%s/webhooks/%s/journey-complete", strings.TrimRight(cfg.PublicBaseURL, "/"), providers[0])

	statsSvc := service.NewStatsService(store, loc, log)
	authSvc := service.NewAuthService(store, tokenRepo, service.AuthConfig{
		JWTSecret:       cfg.JWTSecret,
		PasswordPepper:  cfg.PasswordPepper,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}, log)
	journeySvc := service.NewJourneyService(service.JourneyDeps{
		Store:       store,
		Limiter:     limiter,
		Generator:   generator,
		Retriever:   retriever,
		Tasks:       tasks,
		Stats:       statsSvc,
		CallbackURL: callbackURL,
	}, log)
	webhookSvc := service.NewWebhookService(store, notifier, tasks, log)
	profileSvc := service.NewProfileService(store, indexer, tasks, log)

	h := handler.NewHandler(authSvc, journeySvc, webhookSvc, statsSvc, profileSvc, handler.Config{
		Production:       cfg.IsProduction(),
		WebhookSecret:    cfg.WebhookSecret,
		WebhookProviders: providers,
		WebhookTimeout:   cfg.WebhookTimeout,
	}, log)

	// --- Rate limiting for credential endpoints ---
	rateLimitStore := rateli.RedisStore(&rateli.RedisOptions{
		RedisClient: redisClient,
		Rate:        time.Minute,
		Limit:       uint(cfg.AuthRateLimit),
	})
	authLimiter := rateli.RateLimiter(rateLimitStore, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			log.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	// --- HTTP server ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := newRouter(log, ginprometheus.NewPrometheus("gin"), cfg.GetAllowedOrigins(), h, authLimiter)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	stop()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	// Detached generation triggers and notifications get their own grace period.
	tasksCtx, cancelTasks := context.WithTimeout(context.Background(), cfg.TaskShutdownTimeout)
	defer cancelTasks()
	if err := tasks.Shutdown(tasksCtx); err != nil {
		log.Warn("Detached tasks did not finish in time", zap.Error(err))
	}

	log.Info("Server exiting")
}
