package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"demand-forecast/internal/cache"
	"demand-forecast/internal/client"
	"demand-forecast/internal/config"
	"demand-forecast/internal/handler"
	"demand-forecast/internal/logging"
	"demand-forecast/internal/service"
	"demand-forecast/internal/store"
)

const (
	readTimeout       = 1 * time.Minute
	readHeaderTimeout = 20 * time.Second
	writeTimeout      = 2 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

func main() {
	loaded := config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Unable to load configuration: %s", err)
	}

	logger, err := logging.New(cfg.Production)
	if err != nil {
		log.Fatalf("Unable to initialize logger: %s", err)
	}
	defer func() { _ = logger.Sync() }()

	if len(loaded) > 0 {
		logger.Infof("Loaded environment from %v", loaded)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatalf("Unable to run forecast server: %s", err)
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	var predictor client.Predictor = client.NewClient(cfg.PredictServiceURL, cfg.PredictTimeout, logger)
	logger.Infof("Prediction service: %s (timeout: %s)", cfg.PredictServiceURL, cfg.PredictTimeout)

	switch cfg.CacheBackend {
	case config.CacheMemory:
		predictor = cache.NewCachedPredictor(predictor, cache.NewMemory(), cfg.CacheTTL, logger)
		logger.Infof("Caching predictions in memory for %s", cfg.CacheTTL)
	case config.CacheRedis:
		r, err := cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer r.Close()
		predictor = cache.NewCachedPredictor(predictor, r, cfg.CacheTTL, logger)
		logger.Infof("Caching predictions in redis at %s for %s", cfg.RedisAddr, cfg.CacheTTL)
	}

	var (
		recorder service.Recorder
		history  handler.History
	)
	if cfg.HistoryDBPath != "" {
		st, err := store.Open(cfg.HistoryDBPath, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		st.StartPruner(ctx, cfg.HistoryRetention, cfg.HistoryPruneInterval)
		recorder, history = st, st
	} else {
		logger.Info("Forecast history is disabled")
	}

	sessions := service.NewSessions(predictor, recorder, cfg.SessionTTL, logger)
	router := handler.NewRouter(handler.NewHandler(sessions, history, logger), handler.RouterConfig{
		AllowOrigins: cfg.AllowOrigins,
		APIToken:     cfg.APIToken,
	})

	server := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server starting on port: %s", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("unable to start HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shut down HTTP server: %w", err)
	}
	return nil
}
