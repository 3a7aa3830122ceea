package main

import (
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "video-digest-service/internal/api/grpc"
	"video-digest-service/internal/app"
	"video-digest-service/internal/batch"
	"video-digest-service/internal/config"
	digesthttp "video-digest-service/internal/http"
	"video-digest-service/internal/observability"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	logger := application.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start application")
	}

	obs := observability.NewServer(":"+cfg.Service.MetricsPort, application.Ready, nil)
	obs.Start()

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to listen")
	}
	grpcServer := grpcapi.New(application.Metrics)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("grpc serve failed")
		}
	}()

	httpServer := &nethttp.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           digesthttp.NewRouter(application),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Video digest HTTP API started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http serve failed")
		}
	}()

	var watcher *batch.Watcher
	if cfg.Batch.Enabled {
		for _, dir := range []string{cfg.Batch.InputDir, cfg.Batch.OutputDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Fatal().Err(err).Str("dir", dir).Msg("failed to create batch dir")
			}
		}
		watcher, err = batch.New(batch.Config{
			InputDir:       cfg.Batch.InputDir,
			OutputDir:      cfg.Batch.OutputDir,
			MaxConcurrent:  cfg.Batch.MaxConcurrent,
			TargetLanguage: cfg.Batch.TargetLanguage,
		}, application.Coordinator, application.Metrics)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create batch watcher")
		}
		go func() {
			if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("batch watcher stopped")
			}
		}()
	}

	grpcServer.SetServing(true)

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	grpcServer.Stop(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	if watcher != nil {
		watcher.Stop()
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("observability shutdown")
	}
	application.Shutdown()
}
