package handlers

import (
	"net/http"

	"fire-news/internal/services"

	"github.com/gin-gonic/gin"
)

// ArticleHandler serves the public article views and reader reports
type ArticleHandler struct {
	articles *services.ArticleService
	reports  *services.ReportService
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(articles *services.ArticleService, reports *services.ReportService) *ArticleHandler {
	return &ArticleHandler{articles: articles, reports: reports}
}

// ListArticles handles GET /api/v1/articles
func (h *ArticleHandler) ListArticles(c *gin.Context) {
	list, err := h.articles.ListArticles(c.Request.Context(), pageParams(c))
	if err != nil {
		respondError(c, err, "retrieve articles")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetArticle handles GET /api/v1/articles/:id
func (h *ArticleHandler) GetArticle(c *gin.Context) {
	id, ok := articleIDParam(c)
	if !ok {
		return
	}

	article, err := h.articles.GetArticle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "retrieve article")
		return
	}
	c.JSON(http.StatusOK, article)
}

type reportRequest struct {
	Reason string `json:"reason"`
}

// FileReport handles POST /api/v1/articles/:id/report
func (h *ArticleHandler) FileReport(c *gin.Context) {
	id, ok := articleIDParam(c)
	if !ok {
		return
	}

	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	report, err := h.reports.FileReport(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err, "file report")
		return
	}
	c.JSON(http.StatusCreated, report)
}
