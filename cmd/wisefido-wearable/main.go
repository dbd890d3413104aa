package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-wearable/common/logger"
	"wisefido-wearable/internal/config"
	"wisefido-wearable/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-wearable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Wearable service exited with error", zap.Error(err))
	}
	log.Info("Wearable service stopped")
}

// run 启动服务并阻塞到收到 SIGINT/SIGTERM
func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := service.NewWearableService(cfg, log)
	if err != nil {
		return fmt.Errorf("create wearable service: %w", err)
	}
	defer svc.Stop()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, svc.Metrics().Handler(), log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("Metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start wearable service: %w", err)
	}
	log.Info("Wearable service running")

	<-ctx.Done()
	log.Info("Shutdown signal received")
	return nil
}

// serveMetrics 在后台暴露 /metrics
func serveMetrics(addr string, handler http.Handler, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	log.Info("Metrics endpoint enabled", zap.String("addr", addr))
	return srv
}
