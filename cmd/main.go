package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/questai/mongodb-tools-api/internal/auth"
	"github.com/questai/mongodb-tools-api/internal/config"
	"github.com/questai/mongodb-tools-api/internal/documents"
	"github.com/questai/mongodb-tools-api/internal/handlers"
	"github.com/questai/mongodb-tools-api/internal/logger"
	"github.com/questai/mongodb-tools-api/internal/platform"
	"github.com/questai/mongodb-tools-api/internal/tier"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	flag.Parse()

	var outputs []string
	if cfg.LogFile != "" {
		outputs = append(outputs, cfg.LogFile)
	}
	appLogger := logger.NewWithOptions(logger.Options{Debug: cfg.DebugMode, ExtraOutputs: outputs})
	defer func() {
		_ = appLogger.Sync() // Ignore sync errors on close, as per zap documentation
	}()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration",
			"error", err,
		)
	}

	gin.SetMode(gin.ReleaseMode) // Explicitly set release mode
	if cfg.DebugMode {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestID(), handlers.RequestLogger(appLogger))
	router.Use(cors.New(corsConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())

	cleanup := registerHandlers(ctx, router, cfg, appLogger)
	defer cleanup()

	srv, err := newServer(cfg, router)
	if err != nil {
		appLogger.Fatal("Failed to configure server",
			"error", err,
		)
	}

	go func() {
		appLogger.Info("Server starting",
			"title", cfg.AppTitle,
			"address", cfg.Address,
			"secure", cfg.Secure,
			"debug_mode", cfg.DebugMode,
			"service_tier", cfg.ServiceTier,
		)
		if err := listenAndServe(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server failed to start",
				"error", err,
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutdown signal received, shutting down server...")

	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			"error", err,
		)
		return
	}

	appLogger.Info("Server exited gracefully")
}

// corsConfig allows ALLOWED_ORIGINS; "*" or debug mode reflects any origin.
func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if cfg.DebugMode || len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		c.AllowOriginFunc = func(string) bool { return true }
		return c
	}

	c.AllowOrigins = cfg.AllowedOrigins
	return c
}

// registerHandlers wires the components and mounts every route. The returned
// function releases shared resources.
func registerHandlers(ctx context.Context, router *gin.Engine, cfg *config.Config, appLogger *logger.Logger) func() {
	cleanup := func() {}

	router.GET("/health", handlers.NewHealthHandler(cfg.ServiceID, version).HealthCheck)

	clientKeys, err := cfg.ClientKeys()
	if err != nil {
		appLogger.Fatal("Failed to load client keys",
			"error", err,
		)
	}

	verifier, err := auth.NewVerifier(clientKeys, cfg.PublicKeyB64, cfg.ServiceID)
	if err != nil {
		appLogger.Fatal("Failed to create token verifier",
			"error", err,
		)
	}

	minimum, err := tier.Parse(cfg.ServiceTier)
	if err != nil {
		appLogger.Fatal("Invalid SERVICE_TIER",
			"error", err,
		)
	}

	var fetcher tier.Fetcher = tier.NewHTTPFetcher(appLogger, cfg.SubscriptionTimeout)
	if cfg.TierCacheRedisURL != "" {
		redisClient, err := tier.NewRedisClient(ctx, cfg.TierCacheRedisURL)
		if err != nil {
			appLogger.Fatal("Failed to connect to tier cache redis",
				"error", err,
			)
		}
		cleanup = func() {
			if err := redisClient.Close(); err != nil {
				appLogger.Error("Failed to close tier cache redis",
					"error", err,
				)
			}
		}
		fetcher = tier.NewRedisFetcher(appLogger, redisClient, fetcher, cfg.SubscriptionCacheTTL)
		appLogger.Info("Sharing subscription tiers through redis")
	}

	tierCache := tier.NewCache(appLogger, fetcher, cfg.MarketplaceURL, cfg.SubscriptionCacheTTL, cfg.SubscriptionCacheSize)
	gate := tier.NewGate(appLogger, tierCache, minimum)

	platformClient := platform.NewClient(appLogger, cfg.PlatformURL, cfg.PlatformTimeout)
	documentService := documents.NewService(appLogger, platformClient, documents.NewMongoDialer(cfg.ServiceID, cfg.MongoConnectTimeout))
	documentHandler := documents.NewHandler(appLogger, documentService)

	//nolint:contextcheck // Context is properly accessed via gin.Context in the returned handler
	apiRoutes := router.Group(cfg.APIPrefix, auth.RequireToken(verifier, appLogger))
	apiRoutes.GET("/subscription/tier", tier.NewHandler(gate).TierLookup)

	//nolint:contextcheck
	gated := apiRoutes.Group("", gate.RequireSubscription())
	documentHandler.RegisterRoutes(gated)

	return cleanup
}
