package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/glbter/distributed-systems/admin-service/config"
	adminHttp "github.com/glbter/distributed-systems/admin-service/http"
)

// ExecuteServer serves the admin HTTP API until ctx is cancelled.
func ExecuteServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	service, cleanup := NewAggregator(cfg, logger)
	defer cleanup()

	handler := adminHttp.AdminHandler{
		Logger:     logger,
		Aggregator: service,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           adminHttp.NewRouter(handler, cfg.Server.GetRequestTimeout()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server is shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	return nil
}
