package model

// ContentRecord is the normalized content of one rendered article.
// It is built fresh per analysis and has no persisted identity.
type ContentRecord struct {
	Title         string            `json:"title"`
	Sections      []Section         `json:"sections"`
	RawText       string            `json:"rawText"` // Lowercased main content text
	CitationCount int               `json:"citationCount"`
	FieldTable    map[string]string `json:"fieldTable"` // Lowercased infobox key -> value
}

// Section is a heading and the text that follows it
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SectionTitles returns the section titles in document order
func (c ContentRecord) SectionTitles() []string {
	titles := make([]string, len(c.Sections))
	for i, s := range c.Sections {
		titles[i] = s.Title
	}
	return titles
}
