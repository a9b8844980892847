package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richxcame/agroverify/internal/applications"
	"github.com/richxcame/agroverify/internal/evidence"
	"github.com/richxcame/agroverify/internal/fraud"
	"github.com/richxcame/agroverify/pkg/common"
	"github.com/richxcame/agroverify/pkg/config"
	"github.com/richxcame/agroverify/pkg/database"
	"github.com/richxcame/agroverify/pkg/events"
	"github.com/richxcame/agroverify/pkg/health"
	"github.com/richxcame/agroverify/pkg/logger"
	"github.com/richxcame/agroverify/pkg/middleware"
	"github.com/richxcame/agroverify/pkg/redis"
	"github.com/richxcame/agroverify/pkg/storage"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load("verification")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Sentry.Enabled && cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Environment,
		}); err != nil {
			logger.Warn("failed to initialize sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Database
	if err := database.RunMigrations(&cfg.Database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)

	// Redis backs the satellite imagery cache; the service still works
	// without it, every fetch just goes to the providers.
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, satellite cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// NATS carries evaluation lifecycle events
	var publisher events.Publisher = events.NoopPublisher{}
	var natsPublisher *events.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = events.NewNATSPublisher(&cfg.NATS)
		if err != nil {
			logger.Warn("nats unavailable, evaluation events disabled", zap.Error(err))
		} else {
			publisher = natsPublisher
			defer natsPublisher.Close()
		}
	}

	// Document storage
	store, err := storage.NewS3Storage(context.Background(), storage.Config{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		BaseURL:   cfg.Storage.BaseURL,
	})
	if err != nil {
		logger.Fatal("failed to initialize document storage", zap.Error(err))
	}

	// Evidence providers
	ocrClient := evidence.NewOCRClient(cfg.Providers.OCRBaseURL,
		time.Duration(cfg.Providers.OCRTimeout)*time.Second, store)
	satelliteFetcher := evidence.NewSatelliteFetcher(cfg.Providers, redisClient)
	detectorClient := evidence.NewDetectorClient(cfg.Providers.DetectorBaseURL,
		time.Duration(cfg.Providers.DetectorTimeout)*time.Second)

	aggregator := evidence.NewAggregator(ocrClient, satelliteFetcher, detectorClient, evidence.AggregatorConfig{
		TextTimeout:      time.Duration(cfg.Providers.OCRTimeout) * time.Second,
		SatelliteTimeout: time.Duration(cfg.Providers.SatelliteTimeout) * time.Second,
	})

	// Core pipeline
	repo := applications.NewPostgresRepository(pool)
	analyzer := fraud.NewAnalyzer(cfg.Fraud.LoanPerHectareCeiling)
	service := fraud.NewService(repo, aggregator, analyzer)
	worker := fraud.NewWorker(service, publisher, fraud.WorkerConfig{
		Workers:           cfg.Fraud.Workers,
		QueueSize:         cfg.Fraud.QueueSize,
		EvaluationTimeout: time.Duration(cfg.Fraud.EvaluationTimeout) * time.Second,
	})
	worker.Start()
	defer worker.Stop()

	router := buildRouter(cfg, pool, redisClient, natsPublisher, repo, worker, store)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("verification service starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

func buildRouter(
	cfg *config.Config,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	natsPublisher *events.NATSPublisher,
	repo applications.Repository,
	worker *fraud.Worker,
	store storage.Storage,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(cfg.Server.ServiceName))
	if cfg.Sentry.Enabled {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	checks := map[string]func() error{
		"database": health.DatabaseChecker(pool),
	}
	if redisClient != nil {
		checks["redis"] = health.RedisChecker(redisClient.Client)
	}
	if natsPublisher != nil {
		checks["nats"] = health.NATSChecker(natsPublisher.Conn())
	}
	router.GET("/healthz", common.HealthCheckWithDeps(cfg.Server.ServiceName, serviceVersion, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	appHandler := applications.NewHandler(repo, worker, store)
	appHandler.RegisterRoutes(api)

	fraudHandler := fraud.NewHandler(repo, worker)
	evaluateTimeout := timeout.New(
		timeout.WithTimeout(30*time.Second),
		timeout.WithResponse(func(c *gin.Context) {
			common.ErrorResponse(c, http.StatusGatewayTimeout, "Evaluation request timed out")
		}),
	)
	api.POST("/applications/:id/evaluate", evaluateTimeout, fraudHandler.Evaluate)
	api.GET("/applications/:id/status", fraudHandler.Status)
	api.GET("/applications/:id/report", fraudHandler.Report)

	return router
}
