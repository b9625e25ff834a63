package adapters

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/wikigap/internal/model"
)

// WikipediaAdapter extracts content from MediaWiki-rendered article pages
type WikipediaAdapter struct {
	BaseAdapter
}

// NewWikipediaAdapter creates a new Wikipedia adapter
func NewWikipediaAdapter() *WikipediaAdapter {
	return &WikipediaAdapter{}
}

// Name returns the adapter name
func (a *WikipediaAdapter) Name() string {
	return "wikipedia"
}

// CanHandle checks if this is a Wikipedia URL
func (a *WikipediaAdapter) CanHandle(rawURL string, contentType string) bool {
	return strings.Contains(rawURL, "wikipedia.org")
}

// Extract reads headings, citations, the first .infobox and #mw-content-text
func (a *WikipediaAdapter) Extract(doc *html.Node) model.ContentRecord {
	return a.build(doc, contentRegion{
		title: func(doc *html.Node) string {
			return strings.TrimSpace(strings.TrimSuffix(a.documentTitle(doc), " - Wikipedia"))
		},
		main: func(doc *html.Node) *html.Node {
			return a.FindFirst(doc, func(n *html.Node) bool {
				return n.Type == html.ElementNode && a.GetAttribute(n, "id") == "mw-content-text"
			})
		},
		factTable: func(doc *html.Node) *html.Node {
			return a.FindFirst(doc, func(n *html.Node) bool {
				return a.HasClass(n, "infobox")
			})
		},
	})
}
