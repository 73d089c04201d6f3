package handlers

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/russross/blackfriday/v2"
)

// publishedDocs maps a URL name to its markdown file and page title
var publishedDocs = map[string]struct {
	file  string
	title string
}{
	"MODEL_CARD": {"MODEL_CARD.md", "Model Card"},
	"DATA_CARD":  {"DATA_CARD.md", "Data Card"},
	"API":        {"API.md", "API Reference"},
}

type DocsHandler struct {
	files fs.FS
}

// NewDocsHandler serves markdown out of files, normally docs.FS
func NewDocsHandler(files fs.FS) *DocsHandler {
	return &DocsHandler{files: files}
}

// ServeMarkdownAsHTML serves a published document as styled HTML
func (h *DocsHandler) ServeMarkdownAsHTML(c *gin.Context) {
	docName := strings.ToUpper(c.Param("doc"))
	if docName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document name required"})
		return
	}

	doc, exists := publishedDocs[docName]
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	content, err := fs.ReadFile(h.files, doc.file)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	extensions := blackfriday.CommonExtensions | blackfriday.AutoHeadingIDs
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags,
	})
	htmlContent := blackfriday.Run(content, blackfriday.WithRenderer(renderer), blackfriday.WithExtensions(extensions))

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, wrapWithTheme(string(htmlContent), doc.title))
}

// wrapWithTheme wraps the rendered markdown in the docs page layout
func wrapWithTheme(content, title string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + title + ` - FIRE News</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #1f2937;
            background: #fafaf9;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 960px; margin: 0 auto; }
        .header {
            background: linear-gradient(135deg, #b91c1c 0%, #ea580c 100%);
            color: white;
            padding: 1.5rem 2rem;
            border-radius: 10px;
            margin-bottom: 1.5rem;
        }
        .header h1 { margin: 0; font-size: 2rem; }
        .header a { color: white; opacity: 0.85; text-decoration: none; }
        .content {
            background: white;
            padding: 2.5rem;
            border-radius: 10px;
            border: 1px solid #e7e5e4;
        }
        .content h2 { color: #b91c1c; }
        .content table { width: 100%; border-collapse: collapse; margin-bottom: 1.5rem; }
        .content th, .content td { border: 1px solid #d6d3d1; padding: 0.6rem; text-align: left; }
        .content th { background: #f5f5f4; }
        .content pre {
            background: #f5f5f4;
            border-radius: 6px;
            padding: 1rem;
            overflow-x: auto;
        }
        .content code { font-family: 'Menlo', 'Ubuntu Mono', monospace; font-size: 0.9rem; }
        @media (max-width: 768px) {
            body { padding: 10px; }
            .content { padding: 1.5rem; }
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>` + title + `</h1>
            <a href="/docs/API">API</a> / <a href="/docs/MODEL_CARD">Model Card</a> / <a href="/docs/DATA_CARD">Data Card</a>
        </div>
        <div class="content">
            ` + content + `
        </div>
    </div>
</body>
</html>`
}
