// Package content turns submitted article bodies into plain text for the
// classifier and derives reading statistics.
package content

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// WordsPerMinute is the average reading speed used for ReadingTime
const WordsPerMinute = 200

var whitespace = regexp.MustCompile(`\s+`)

// Document is what could be learned from a body
type Document struct {
	Text        string
	WordCount   int
	ReadingTime int // minutes

	// Only filled for HTML bodies that carry the metadata
	Author      string
	PublishedAt *time.Time
}

// Extract reads a body that may be plain text or an HTML fragment/page.
func Extract(body string) Document {
	var doc Document
	if looksLikeHTML(body) {
		doc = extractHTML(body)
	} else {
		doc.Text = normalize(body)
	}

	doc.WordCount = CountWords(doc.Text)
	doc.ReadingTime = ReadingTime(doc.WordCount)
	return doc
}

// CountWords counts whitespace separated words
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ReadingTime rounds to the nearest minute with a floor of one minute for
// any non-empty text.
func ReadingTime(words int) int {
	if words <= 0 {
		return 0
	}
	minutes := int(float64(words)/WordsPerMinute + 0.5)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func looksLikeHTML(body string) bool {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "<") {
		return false
	}
	return strings.Contains(trimmed, ">")
}

func extractHTML(body string) Document {
	page, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Document{Text: normalize(body)}
	}

	var doc Document
	doc.Author = metaContent(page, `meta[name="author"]`, `meta[property="article:author"]`)
	if published := metaContent(page, `meta[property="article:published_time"]`, `meta[property="article:published"]`); published != "" {
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			doc.PublishedAt = &t
		}
	}

	page.Find("script, style, noscript, head").Remove()

	// Prefer the article element when the page has one
	root := page.Find("article").First()
	if root.Length() == 0 {
		root = page.Find("body")
	}
	if root.Length() == 0 {
		root = page.Selection
	}

	var parts []string
	for _, n := range root.Nodes {
		parts = appendText(parts, n)
	}

	doc.Text = normalize(strings.Join(parts, " "))
	return doc
}

// appendText collects text nodes in document order. Joining with spaces
// keeps words from adjacent block elements apart.
func appendText(parts []string, n *html.Node) []string {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			parts = append(parts, text)
		}
		return parts
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		parts = appendText(parts, c)
	}
	return parts
}

func metaContent(page *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if v, ok := page.Find(selector).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func normalize(text string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
}
