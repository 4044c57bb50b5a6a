package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gotrs-io/gotrs-feedback/internal/metrics"
	"github.com/gotrs-io/gotrs-feedback/internal/middleware"
	"github.com/gotrs-io/gotrs-feedback/internal/version"
)

// RouterConfig wires the HTTP surface together.
type RouterConfig struct {
	Feedback *FeedbackHandler
	// Metrics is optional; MetricsPath is only served when it is set.
	Metrics     *metrics.Metrics
	MetricsPath string
	// RateLimiter is optional and only guards submissions.
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

// NewRouter creates the gin engine for the feedback service.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(cfg.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.Short(),
		})
	})

	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		r.GET(cfg.MetricsPath, gin.WrapH(cfg.Metrics.Handler()))
	}

	submit := []gin.HandlerFunc{}
	if cfg.RateLimiter != nil {
		submit = append(submit, cfg.RateLimiter.Middleware(cfg.Metrics.RateLimited))
	}

	r.GET(feedbackPath, cfg.Feedback.HandleFeedbackForm)
	r.POST(feedbackPath, append(submit, cfg.Feedback.HandleFeedbackSubmit)...)

	v1 := r.Group("/api/v1")
	v1.POST("/feedback", append(submit, cfg.Feedback.HandleFeedbackAPI)...)

	return r
}
