package adapters

import (
	"golang.org/x/net/html"

	"github.com/ppiankov/wikigap/internal/model"
)

// GenericAdapter is the fallback for wiki mirrors and other article sites
type GenericAdapter struct {
	BaseAdapter
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(url string, contentType string) bool {
	return true
}

// Extract uses <main>, <article> or <body> as the content region and the
// first .infobox or .vcard table as the fact table
func (a *GenericAdapter) Extract(doc *html.Node) model.ContentRecord {
	return a.build(doc, contentRegion{
		title: a.documentTitle,
		main: func(doc *html.Node) *html.Node {
			for _, tag := range []string{"main", "article", "body"} {
				if n := a.FindFirst(doc, a.isElement(tag)); n != nil {
					return n
				}
			}
			return nil
		},
		factTable: func(doc *html.Node) *html.Node {
			return a.FindFirst(doc, func(n *html.Node) bool {
				return a.HasClass(n, "infobox") || (n.Type == html.ElementNode && n.Data == "table" && a.HasClass(n, "vcard"))
			})
		},
	})
}
