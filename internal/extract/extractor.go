package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/wikigap/internal/extract/adapters"
	"github.com/ppiankov/wikigap/internal/model"
)

// Extractor builds content records from rendered article pages
type Extractor struct {
	registry *adapters.Registry
}

// NewExtractor creates an extractor with the built-in site adapters
func NewExtractor() *Extractor {
	return &Extractor{registry: adapters.NewRegistry()}
}

// Extract builds a content record from a parsed document.
// It never fails: regions the page lacks come back as empty defaults.
func (e *Extractor) Extract(doc *html.Node, pageURL string) model.ContentRecord {
	return e.registry.FindAdapter(pageURL, "text/html").Extract(doc)
}

// ExtractHTML parses htmlContent and extracts it
func (e *Extractor) ExtractHTML(htmlContent, pageURL string) (model.ContentRecord, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return model.ContentRecord{}, fmt.Errorf("parse html: %w", err)
	}
	return e.Extract(doc, pageURL), nil
}

// AdapterName reports which adapter handles pageURL
func (e *Extractor) AdapterName(pageURL string) string {
	return e.registry.FindAdapter(pageURL, "text/html").Name()
}
