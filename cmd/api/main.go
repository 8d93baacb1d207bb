package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"slidecart/api/controllers"
	"slidecart/api/routes"
	"slidecart/internal/cache"
	"slidecart/internal/drawer"
	"slidecart/internal/recommend"
	"slidecart/internal/storefront"
	"slidecart/pkg/config"
	"slidecart/pkg/logger"
	"slidecart/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "slidecart-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "slidecart-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	stores, redisStore, err := buildCacheStores(ctx, cfg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap cache backend", err)
		os.Exit(1)
	}
	var cachePinger controllers.Pinger
	if redisStore != nil {
		cachePinger = redisStore
	}
	lookups := cache.NewLookups(cache.LookupsParams{
		Products:        stores[cache.NameProducts],
		ManualFlags:     stores[cache.NameManualFlags],
		Recommendations: stores[cache.NameRecommendations],
		ClearInterval:   cfg.Cache.ClearInterval,
		Metrics:         pipelineMetrics,
		Logger:          logg,
	})
	lookups.StartJanitor(ctx)

	client, err := storefront.NewClient(cfg.Storefront.BaseURL,
		storefront.WithHTTPClient(&http.Client{Timeout: cfg.Storefront.Timeout}))
	if err != nil {
		logg.Error(ctx, "failed to build storefront client", err)
		os.Exit(1)
	}

	resolver, err := recommend.NewResolver(recommend.ResolverParams{
		Client:  client,
		Lookups: lookups,
		Logger:  logg,
		Mode:    recommend.ParseMode(cfg.Recommendations.Source),
		Limit:   cfg.Recommendations.Limit,
	})
	if err != nil {
		logg.Error(ctx, "failed to build resolver", err)
		os.Exit(1)
	}

	sessions := drawer.NewRegistry(drawer.RegistryParams{
		TTL:    cfg.Drawer.SessionTTL,
		Logger: logg,
	})
	sessions.StartSweeper(ctx, time.Minute)

	drawerService, err := drawer.NewService(drawer.ServiceParams{
		Gateway:         client,
		Registry:        sessions,
		Resolver:        resolver,
		Drawer:          cfg.Drawer,
		Recommendations: cfg.Recommendations,
		Metrics:         pipelineMetrics,
		Logger:          logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build drawer service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting slidecart api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, drawerService, cachePinger, registry),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildCacheStores wires the configured cache backend: in-process memory
// by default, redis when configured for multi-instance deployments.
func buildCacheStores(ctx context.Context, cfg *config.Config) (map[string]cache.Store, *cache.Redis, error) {
	names := []string{cache.NameProducts, cache.NameManualFlags, cache.NameRecommendations}
	stores := make(map[string]cache.Store, len(names))

	if cfg.Cache.Backend != "redis" {
		for _, name := range names {
			stores[name] = cache.NewMemory()
		}
		return stores, nil, nil
	}

	var pinger *cache.Redis
	for _, name := range names {
		store, err := cache.NewRedis(ctx, cfg.Redis, name)
		if err != nil {
			return nil, nil, err
		}
		stores[name] = store
		pinger = store
	}
	return stores, pinger, nil
}
