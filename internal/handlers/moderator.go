package handlers

import (
	"context"
	"net/http"

	"fire-news/internal/auth"
	"fire-news/internal/events"
	"fire-news/internal/models"
	"fire-news/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ModeratorHandler serves the moderation console
type ModeratorHandler struct {
	queue     *services.QueueService
	overrides *services.OverrideService
	reports   *services.ReportService
	rescore   *services.RescoreService
	articles  *services.ArticleService
	streamer  *events.Streamer
}

// NewModeratorHandler wires the queue stream to the same queue builder as
// the JSON endpoint.
func NewModeratorHandler(
	queue *services.QueueService,
	overrides *services.OverrideService,
	reports *services.ReportService,
	rescore *services.RescoreService,
	articles *services.ArticleService,
	hub *events.Hub,
	allowedOrigins []string,
) *ModeratorHandler {
	h := &ModeratorHandler{
		queue:     queue,
		overrides: overrides,
		reports:   reports,
		rescore:   rescore,
		articles:  articles,
	}
	h.streamer = events.NewStreamer(hub, func(ctx context.Context) (any, error) {
		return queue.BuildQueue(ctx, services.Page{})
	}, allowedOrigins)
	return h
}

// GetQueue handles GET /api/v1/moderator/queue
func (h *ModeratorHandler) GetQueue(c *gin.Context) {
	page, err := h.queue.BuildQueue(c.Request.Context(), pageParams(c))
	if err != nil {
		respondError(c, err, "build moderation queue")
		return
	}
	c.JSON(http.StatusOK, page)
}

// StreamQueue handles GET /api/v1/moderator/queue/stream
func (h *ModeratorHandler) StreamQueue(c *gin.Context) {
	h.streamer.Handle(c)
}

type overrideRequest struct {
	ArticleID  string   `json:"article_id"`
	NewLabel   string   `json:"new_label"`
	Confidence *float64 `json:"confidence"`
	Notes      string   `json:"notes"`
}

// ApplyOverride handles POST /api/v1/moderator/override
func (h *ModeratorHandler) ApplyOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	articleID, err := uuid.Parse(req.ArticleID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": "article_id must be a uuid",
		})
		return
	}

	override, err := h.overrides.ApplyOverride(c.Request.Context(), services.OverrideRequest{
		ArticleID:   articleID,
		NewLabel:    req.NewLabel,
		Confidence:  req.Confidence,
		Notes:       req.Notes,
		ModeratorID: auth.ModeratorID(c),
	})
	if err != nil {
		respondError(c, err, "apply override")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"override": override,
		"status":   "applied",
	})
}

// GetReports handles GET /api/v1/moderator/articles/:id/reports. It lists
// the open reports with the override currently in force, if any.
func (h *ModeratorHandler) GetReports(c *gin.Context) {
	id, ok := articleIDParam(c)
	if !ok {
		return
	}

	reports, err := h.reports.OpenReports(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "retrieve reports")
		return
	}
	override, err := h.overrides.ActiveOverride(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "retrieve override")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"article_id": id,
		"reports":    reports,
		"override":   override,
	})
}

// Rescore handles POST /api/v1/moderator/articles/:id/rescore
func (h *ModeratorHandler) Rescore(c *gin.Context) {
	id, ok := articleIDParam(c)
	if !ok {
		return
	}

	if _, err := h.rescore.Rescore(c.Request.Context(), id); err != nil {
		respondError(c, err, "rescore article")
		return
	}

	article, err := h.articles.GetArticle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "retrieve article")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"article_id": article.ID,
		"fire_score": article.FireScore,
	})
}

// scoreBands lists the canonical bands for the console legend
func scoreBands() []gin.H {
	return []gin.H{
		{"category": models.CategoryMisleading, "min": models.MinScore, "max": models.MisleadingBelow - 1},
		{"category": models.CategoryUnverified, "min": models.MisleadingBelow, "max": models.UnverifiedBelow - 1},
		{"category": models.CategoryNoRisk, "min": models.UnverifiedBelow, "max": models.MaxScore},
	}
}

// GetBands handles GET /api/v1/bands
func GetBands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bands": scoreBands()})
}
