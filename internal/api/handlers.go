package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"newsletter/internal/domain"
	"newsletter/internal/service"
)

// 1x1 transparent GIF
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type Runner interface {
	Run(ctx context.Context) (*domain.RunResult, error)
}

type EventRecorder interface {
	Record(ctx context.Context, event *domain.TrackingEvent) error
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	runner     Runner
	recorder   EventRecorder
	db         Pinger
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewHandler(runner Runner, recorder EventRecorder, db Pinger, runTimeout time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		runner:     runner,
		recorder:   recorder,
		db:         db,
		runTimeout: runTimeout,
		logger:     logger.With("component", "api"),
	}
}

// SendNewsletter runs the newsletter synchronously and reports the outcome. The run is
// detached from the request so a dropped client does not stop it halfway through.
func (h *Handler) SendNewsletter(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.runTimeout)
	defer cancel()

	result, err := h.runner.Run(ctx)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("newsletter run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if result.Outcome != domain.OutcomeDelivered {
		c.JSON(http.StatusOK, gin.H{"message": result.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          result.Message,
		"sent":             result.Sent,
		"failed":           result.Failed,
		"articlesIncluded": result.ArticlesIncluded,
	})
}

// Track records an open or click. Opens always get the pixel and clicks always
// redirect, whether or not recording succeeded.
func (h *Handler) Track(c *gin.Context) {
	eventType := domain.EventType(c.Query("type"))
	target := c.Query("url")

	if eventType == domain.EventTypeClick && !isRedirectable(target) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
		return
	}

	event := &domain.TrackingEvent{
		LogID:     c.Query("logId"),
		Type:      eventType,
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
	if eventType == domain.EventTypeClick {
		event.URL = target
	}

	if err := h.recorder.Record(c.Request.Context(), event); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, service.ErrInvalidEvent) {
			level = slog.LevelDebug
		}
		h.logger.Log(c.Request.Context(), level, "failed to record tracking event",
			"type", eventType,
			"log_id", event.LogID,
			"error", err,
		)
	}

	if eventType == domain.EventTypeClick {
		c.Redirect(http.StatusFound, target)
		return
	}

	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	c.Header("Pragma", "no-cache")
	c.Data(http.StatusOK, "image/gif", trackingPixel)
}

func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.PingContext(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "ok"
	}

	c.JSON(http.StatusOK, resp)
}

func isRedirectable(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
