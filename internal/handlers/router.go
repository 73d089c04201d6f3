package handlers

import (
	"io/fs"
	"net/http"

	"fire-news/internal/auth"
	"fire-news/internal/events"
	"fire-news/internal/logging"
	"fire-news/internal/metrics"
	"fire-news/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RouterDeps carries everything the HTTP layer needs
type RouterDeps struct {
	DB          *gorm.DB
	Articles    *services.ArticleService
	Reports     *services.ReportService
	Submissions *services.SubmissionService
	Queue       *services.QueueService
	Overrides   *services.OverrideService
	Rescore     *services.RescoreService
	Hub         *events.Hub
	Worker      StatusReporter
	Tokens      auth.TokenValidator
	Docs        fs.FS

	CORSOrigins []string
	Version     string
}

// SetupRouter builds the gin engine with every route mounted
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(logging.RequestLogger())
	r.Use(metrics.Middleware())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(deps.CORSOrigins))

	articleHandler := NewArticleHandler(deps.Articles, deps.Reports)
	submissionHandler := NewSubmissionHandler(deps.Submissions)
	moderatorHandler := NewModeratorHandler(deps.Queue, deps.Overrides, deps.Reports, deps.Rescore, deps.Articles, deps.Hub, deps.CORSOrigins)
	healthHandler := NewHealthHandler(deps.DB, deps.Hub, deps.Worker, deps.Version)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", metrics.Handler())

	if deps.Docs != nil {
		docsHandler := NewDocsHandler(deps.Docs)
		r.GET("/docs/:doc", docsHandler.ServeMarkdownAsHTML)
	}

	api := r.Group("/api/v1")
	{
		api.GET("/bands", GetBands)

		articles := api.Group("/articles")
		{
			articles.GET("", articleHandler.ListArticles)
			articles.GET("/:id", articleHandler.GetArticle)
			articles.POST("/:id/report", articleHandler.FileReport)
		}

		api.POST("/submit", submissionHandler.Submit)
		api.POST("/partner/submit", submissionHandler.Submit)

		moderator := api.Group("/moderator", auth.RequireModerator(deps.Tokens))
		{
			moderator.GET("/queue", moderatorHandler.GetQueue)
			moderator.GET("/queue/stream", moderatorHandler.StreamQueue)
			moderator.POST("/override", moderatorHandler.ApplyOverride)
			moderator.GET("/articles/:id/reports", moderatorHandler.GetReports)
			moderator.POST("/articles/:id/rescore", moderatorHandler.Rescore)
		}
	}

	return r
}

// corsMiddleware echoes allowed origins; an empty list allows any origin
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allowed) == 0 || allowed["*"]:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
