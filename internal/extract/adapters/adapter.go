package adapters

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/wikigap/internal/model"
)

// Adapter turns a rendered document from one site family into a content record
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter understands pages at the given URL
	CanHandle(url string, contentType string) bool

	// Extract builds a content record; absent regions yield empty defaults
	Extract(doc *html.Node) model.ContentRecord
}

// Registry manages site adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}
	registry.Register(NewWikipediaAdapter())
	registry.generic = NewGenericAdapter()
	return registry
}

// Register registers a new adapter ahead of the generic fallback
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the first adapter that handles url, or the generic one
func (r *Registry) FindAdapter(url string, contentType string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(url, contentType) {
			return adapter
		}
	}
	return r.generic
}

// BaseAdapter provides DOM helpers shared by adapters
type BaseAdapter struct{}

// ExtractText extracts space-joined, trimmed text from a node
func (b *BaseAdapter) ExtractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	if b.skipText(n) {
		return ""
	}

	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := b.ExtractText(c); t != "" {
			if buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(t)
		}
	}
	return buf.String()
}

// TextContent concatenates raw text nodes the way a browser's textContent does,
// minus scripts, styles and edit links
func (b *BaseAdapter) TextContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
			return
		}
		if b.skipText(node) {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

func (b *BaseAdapter) skipText(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "script", "style", "noscript":
		return true
	}
	return b.HasClass(n, "mw-editsection")
}

// HasClass checks if a node has a specific CSS class
func (b *BaseAdapter) HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, class := range strings.Fields(attr.Val) {
				if class == className {
					return true
				}
			}
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// FindAll finds all nodes matching a predicate, in document order
func (b *BaseAdapter) FindAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// FindFirst finds the first node matching a predicate
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}

// IsHeading reports whether n is an h1..h6 element
func (b *BaseAdapter) IsHeading(n *html.Node) bool {
	if n.Type != html.ElementNode || len(n.Data) != 2 || n.Data[0] != 'h' {
		return false
	}
	return n.Data[1] >= '1' && n.Data[1] <= '6'
}

// isHeadingBlock matches a heading or the wrapper div newer skins put around it
func (b *BaseAdapter) isHeadingBlock(n *html.Node) bool {
	return b.IsHeading(n) || (n.Type == html.ElementNode && n.Data == "div" && b.HasClass(n, "mw-heading"))
}

// SectionBody returns the text of the siblings that follow a heading,
// up to the next heading
func (b *BaseAdapter) SectionBody(heading *html.Node) string {
	start := heading
	if p := heading.Parent; p != nil && p.Type == html.ElementNode && p.Data == "div" && b.HasClass(p, "mw-heading") {
		start = p
	}

	var parts []string
	for sib := start.NextSibling; sib != nil; sib = sib.NextSibling {
		if b.isHeadingBlock(sib) {
			break
		}
		if t := b.ExtractText(sib); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// contentRegion describes where an adapter finds each part of a record
type contentRegion struct {
	title     func(doc *html.Node) string
	main      func(doc *html.Node) *html.Node
	factTable func(doc *html.Node) *html.Node
}

// build applies the shared heading, citation and fact table conventions
func (b *BaseAdapter) build(doc *html.Node, region contentRegion) model.ContentRecord {
	rec := model.ContentRecord{
		Sections:   []model.Section{},
		FieldTable: map[string]string{},
	}
	if doc == nil {
		return rec
	}

	rec.Title = region.title(doc)

	for _, h := range b.FindAll(doc, b.IsHeading) {
		rec.Sections = append(rec.Sections, model.Section{
			Title: strings.TrimSpace(b.TextContent(h)),
			Body:  b.SectionBody(h),
		})
	}

	if main := region.main(doc); main != nil {
		rec.RawText = strings.ToLower(b.TextContent(main))
	}

	rec.CitationCount = len(b.FindAll(doc, func(n *html.Node) bool {
		return b.HasClass(n, "reference") || b.HasClass(n, "cite")
	}))

	if table := region.factTable(doc); table != nil {
		for _, row := range b.FindAll(table, b.isElement("tr")) {
			cells := b.FindAll(row, func(n *html.Node) bool {
				return n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th")
			})
			if len(cells) < 2 {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(b.TextContent(cells[0])))
			rec.FieldTable[key] = strings.TrimSpace(b.TextContent(cells[1]))
		}
	}

	return rec
}

func (b *BaseAdapter) isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func (b *BaseAdapter) documentTitle(doc *html.Node) string {
	t := b.FindFirst(doc, b.isElement("title"))
	if t == nil {
		return ""
	}
	return strings.TrimSpace(b.TextContent(t))
}
