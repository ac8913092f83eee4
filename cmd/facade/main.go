package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/apierrors"
	"github.com/IoFMT/Inception/internal/auth"
	"github.com/IoFMT/Inception/internal/config"
	"github.com/IoFMT/Inception/internal/handler"
	"github.com/IoFMT/Inception/internal/health"
	"github.com/IoFMT/Inception/internal/metrics"
	"github.com/IoFMT/Inception/internal/server"
	"github.com/IoFMT/Inception/internal/service"
	"github.com/IoFMT/Inception/internal/store"
	"github.com/IoFMT/Inception/internal/upstream"
)

func main() {
	genkey := flag.String("genkey", "", "print the obfuscated form of the given key and exit")
	flag.Parse()
	if *genkey != "" {
		fmt.Println(auth.Obfuscate(*genkey))
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting IoFMT facade")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	logger.Info("configuration loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Database))

	m := metrics.NewMetrics()

	ctx := context.Background()
	pool, err := store.NewPool(ctx, cfg.Database.ConnString(), logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	tenantStore := store.NewPostgresTenantStore(pool, logger)
	cacheStore := store.NewPostgresCacheStore(pool, m, logger)
	tenantCache := store.NewTenantCache(cfg.Cache.TenantConfigTTL)

	sfg20 := upstream.NewClient(cfg.Upstream.Timeout, m, logger)

	cacheService := service.NewCacheService(cacheStore, tenantStore, sfg20, logger)
	tenantService := service.NewTenantService(tenantStore, tenantCache, sfg20, logger)

	resolver := auth.NewResolver(tenantStore, tenantCache, cfg.Auth.MasterKey, logger)
	errorHandler := apierrors.NewHandler(logger)
	handlers := handler.NewHandlers(cacheService, tenantService, errorHandler, logger)
	healthCheck := health.NewHealthCheck(logger, tenantStore, cacheStore)

	srv := server.NewServer(cfg, handlers, healthCheck, resolver, m, logger)
	srv.SetupRoutes()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("facade stopped")
}
