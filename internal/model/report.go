package model

import "time"

// Report represents the complete analysis of one article
type Report struct {
	Subject   string    `json:"subject"`    // Article title
	SourceURL string    `json:"source_url"` // URL that was analyzed
	FetchedAt time.Time `json:"fetched_at"` // When the analysis ran
	FetchMeta FetchMeta `json:"fetch_meta"` // HTTP metadata

	Archetype string `json:"archetype"`       // Detected article type
	Relevant  bool   `json:"region_relevant"` // Whether the article mentions the focus region
	Source    string `json:"analysis_source"` // "template" or the model provider name
	Model     string `json:"model,omitempty"` // Model used when Source is a provider

	Result   AnalysisResult `json:"result"`             // Score, gaps and suggestions
	Sections *SectionReport `json:"sections,omitempty"` // Per-section breakdown
}

// FetchMeta contains HTTP metadata from fetching the source
type FetchMeta struct {
	StatusCode   int               `json:"status_code"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// AnalysisSourceTemplate marks results computed locally from a template
const AnalysisSourceTemplate = "template"
