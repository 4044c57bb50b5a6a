package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gotrs-io/gotrs-feedback/internal/api"
	"github.com/gotrs-io/gotrs-feedback/internal/config"
	"github.com/gotrs-io/gotrs-feedback/internal/logger"
	"github.com/gotrs-io/gotrs-feedback/internal/metrics"
	"github.com/gotrs-io/gotrs-feedback/internal/middleware"
	"github.com/gotrs-io/gotrs-feedback/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the feedback form and JSON API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	validator := config.NewValidator(cfg)
	if err := validator.Validate(); err != nil {
		return err
	}

	logger.Init(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logger.Get()
	for _, w := range validator.Warnings() {
		log.Warn("configuration warning", zap.String("warning", w))
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	opts, err := cfg.FeedbackOptions()
	if err != nil {
		return err
	}
	opts.Remote.UserAgent = "feedbackdesk/" + version.Short()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	handler, err := api.NewFeedbackHandler(opts, formSettings(cfg), m, log)
	if err != nil {
		return err
	}
	config.OnReload(func(reloaded *config.Config) {
		handler.UpdateSettings(formSettings(reloaded))
		if reloaded.TestMode != cfg.TestMode || reloaded.Ticketing != cfg.Ticketing {
			log.Warn("ticketing and test_mode changes take effect after a restart")
		}
	})

	limiter, closeRedis, err := newRateLimiter(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	router := api.NewRouter(api.RouterConfig{
		Feedback:    handler,
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		RateLimiter: limiter,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("feedback server listening",
			zap.String("addr", srv.Addr),
			zap.String("version", version.Short()),
			zap.Bool("test_mode", opts.TestMode != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down feedback server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// formSettings picks the settings of cfg that apply per request and can
// change on reload.
func formSettings(cfg *config.Config) api.FormSettings {
	return api.FormSettings{
		AppendPageURL: cfg.Form.AppendPageURL,
		SanitizeHTML:  cfg.Form.SanitizeHTML,
		FilterUnicode: cfg.Form.FilterUnicode,
		Title:         cfg.App.Name,
	}
}

// newRateLimiter connects to Redis when rate limiting and Redis are both
// enabled. The returned close function is always safe to call.
func newRateLimiter(ctx context.Context, cfg *config.Config, log *zap.Logger) (*middleware.RateLimiter, func(), error) {
	noop := func() {}
	if !cfg.RateLimiting.Enabled || !cfg.Redis.Enabled {
		return nil, noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, noop, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	limiter := middleware.NewRateLimiter(client, cfg.RateLimiting.RequestsPerWindow, cfg.RateLimiting.Window, log)
	return limiter, func() { _ = client.Close() }, nil
}
