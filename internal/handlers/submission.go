package handlers

import (
	"errors"
	"net/http"

	"fire-news/internal/services"

	"github.com/gin-gonic/gin"
)

// SubmissionHandler accepts partner submissions
type SubmissionHandler struct {
	submissions *services.SubmissionService
}

func NewSubmissionHandler(submissions *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// submitRequest accepts both naming schemes partners send
type submitRequest struct {
	Headline      string `json:"headline"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	Content       string `json:"content"`
	Author        string `json:"author"`
	Source        string `json:"source"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date"`
	PublishedAt   string `json:"publishedAt"`
}

func (r submitRequest) submission() services.Submission {
	return services.Submission{
		Headline:      firstNonEmpty(r.Headline, r.Title),
		Body:          firstNonEmpty(r.Body, r.Content),
		Author:        r.Author,
		Source:        r.Source,
		URL:           r.URL,
		PublishedDate: firstNonEmpty(r.PublishedDate, r.PublishedAt),
	}
}

// Submit handles POST /api/v1/submit. An article that was saved but could
// not be scored answers 202 with a null fire_score.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.submissions.Submit(c.Request.Context(), req.submission())
	if err != nil && result != nil && errors.Is(err, services.ErrScoringUnavailable) {
		c.JSON(http.StatusAccepted, gin.H{
			"article_id":    result.ArticleID,
			"fire_score":    nil,
			"scoring_error": "scoring unavailable, score pending",
		})
		return
	}
	if err != nil {
		respondError(c, err, "submit article")
		return
	}

	c.JSON(http.StatusCreated, result)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
