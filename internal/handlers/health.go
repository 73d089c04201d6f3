package handlers

import (
	"context"
	"net/http"
	"time"

	"fire-news/internal/database"
	"fire-news/internal/events"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StatusReporter describes a background job for /health
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

type HealthHandler struct {
	db      *gorm.DB
	hub     *events.Hub
	worker  StatusReporter
	version string
	startAt time.Time
}

// NewHealthHandler creates a health handler. worker may be nil when the
// rescore schedule is disabled.
func NewHealthHandler(db *gorm.DB, hub *events.Hub, worker StatusReporter, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		hub:     hub,
		worker:  worker,
		version: version,
		startAt: time.Now(),
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	db := checkDB(ctx, h.db)
	status, code := "healthy", http.StatusOK
	if db["status"] != "up" {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	rescore := gin.H{"status": "disabled"}
	if h.worker != nil {
		rescore = h.worker.GetStatus()
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": gin.H{
			"database":       db,
			"rescore_worker": rescore,
		},
		"stream_subscribers": h.hub.Subscribers(),
		"uptime_seconds":     int(time.Since(h.startAt).Seconds()),
		"version":            h.version,
	})
}

func checkDB(ctx context.Context, db *gorm.DB) gin.H {
	start := time.Now()
	err := database.Ping(ctx, db)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return gin.H{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return gin.H{
		"status":     "up",
		"latency_ms": latency,
	}
}
