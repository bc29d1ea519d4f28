package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/feedauth/internal/config"
	httpx "github.com/you/feedauth/internal/http"
	"github.com/you/feedauth/internal/http/middleware"
)

// Handler builds the HTTP router over the container's services
func (c *Container) Handler() http.Handler {
	return httpx.BuildRouter(c.AuthHandlers, c.Logger, middleware.RateLimitConfig{
		RequestsPerWindow: c.Config.RateLimitRequests,
		Window:            c.Config.RateLimitWindow,
		Burst:             c.Config.RateLimitBurst,
	})
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests for up
// to cfg.ShutdownTimeout.
func Run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	container, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error("failed to close resources", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           container.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "db_driver", cfg.DBDriver, "notify", cfg.NotifyChannel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
