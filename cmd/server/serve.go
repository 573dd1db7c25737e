package main

import (
	"alcyxob/bmi-tracker/internal/api"
	"alcyxob/bmi-tracker/internal/auth"
	"alcyxob/bmi-tracker/internal/config"
	"alcyxob/bmi-tracker/internal/logging"
	"alcyxob/bmi-tracker/internal/repository/mongo"
	"alcyxob/bmi-tracker/internal/service"
	"alcyxob/bmi-tracker/internal/storage"
	"alcyxob/bmi-tracker/internal/validation"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting BMI tracker", "address", cfg.Server.Address)

	if cfg.Session.Secret == config.DefaultSessionSecret {
		logger.Warn("using the default session secret; set SESSION_SECRET outside development")
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			logger.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		logger.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connection established", "database", cfg.Database.Name)

	// deferred after DisconnectDB, so the index build is stopped first
	stopIndexes := runInBackground(ctx, time.Minute, func(ctx context.Context) {
		if err := mongo.EnsureIndexes(ctx, appDB); err == nil {
			logger.Info("database indexes ensured")
		}
	})
	defer stopIndexes()

	// --- Initialize Storage ---
	fileStorage := storage.Disabled()
	if cfg.S3.Enabled() {
		fileStorage, err = storage.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("initialize S3 storage: %w", err)
		}
	} else {
		logger.Info("S3 not configured; history export disabled")
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	recordRepo := mongo.NewMongoBMIRecordRepository(appDB)
	planRepo := mongo.NewMongoDietPlanRepository(appDB, cfg.Database.UseTransactions)

	// --- Initialize Services ---
	sessions := auth.NewSessions(cfg.Session.Secret, cfg.Session.Expiration)
	services := api.Services{
		Auth: service.NewAuthService(userRepo, sessions, service.InstructorCredentials{
			LoginID:  cfg.Instructor.LoginID,
			Password: cfg.Instructor.Password,
		}),
		BMI:        service.NewBMIService(recordRepo),
		Export:     service.NewExportService(recordRepo, fileStorage, cfg.Export.URLExpiry),
		DietPlan:   service.NewDietPlanService(planRepo, userRepo, validation.New()),
		Stats:      service.NewStatsService(userRepo, recordRepo),
		Instructor: service.NewInstructorService(userRepo, recordRepo),
	}

	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	loginLimiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go loginLimiter.Run(5*time.Minute, stopCleanup)

	// --- Initialize Gin Engine ---
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.RouterConfig{
		Sessions: sessions,
		Cookie: api.CookieOptions{
			Name:   cfg.Session.CookieName,
			MaxAge: int(sessions.Expiration().Seconds()),
			Secure: cfg.Session.SecureCookie,
		},
		LoginLimiter: loginLimiter,
		Logger:       logger,
	}, services)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", api.RequestIDHeader},
		ExposedHeaders:   []string{api.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      corsHandler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// runInBackground runs fn with a context bounded by timeout. The returned stop
// cancels that context and blocks until fn has returned.
func runInBackground(ctx context.Context, timeout time.Duration, fn func(context.Context)) (stop func()) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn(ctx)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

// runIndexes creates the indexes synchronously, for deploy pipelines.
func runIndexes(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() { _ = mongo.DisconnectDB(dbClient) }()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := mongo.EnsureIndexes(ctx, dbClient.Database(cfg.Database.Name)); err != nil {
		return err
	}
	logger.Info("indexes created", "database", cfg.Database.Name)
	return nil
}
