// Package render turns analysis results into presentation: UI patch
// operations for an article overlay, Markdown and JSON reports, and the
// export artifact.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/score"
)

// Op is the kind of a patch operation
type Op string

const (
	OpSetText       Op = "set_text"
	OpSetClass      Op = "set_class"
	OpClearList     Op = "clear_list"
	OpAppendItem    Op = "append_item"
	OpRemoveMarkers Op = "remove_markers"
	OpInsertMarker  Op = "insert_marker"
)

// Panel element ids
const (
	TargetScore       = "score-value"
	TargetLastRun     = "last-analysis"
	TargetGaps        = "gaps-list"
	TargetSuggestions = "suggestions-list"
)

// AnchorKind names the page element a marker is positioned against
type AnchorKind string

const (
	AnchorHeading    AnchorKind = "heading"
	AnchorReferences AnchorKind = "references"
	AnchorContent    AnchorKind = "content"
	AnchorInfobox    AnchorKind = "infobox"
)

// Placement says which side of the anchor a marker goes on
type Placement string

const (
	Before Placement = "before"
	After  Placement = "after"
)

// Anchor locates an element of the article page
type Anchor struct {
	Kind    AnchorKind `json:"kind"`
	Heading string     `json:"heading,omitempty"`
}

// Marker is an inline annotation placed next to an anchor
type Marker struct {
	Anchor    Anchor    `json:"anchor"`
	Placement Placement `json:"placement"`
	Label     string    `json:"label,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Items     []string  `json:"items,omitempty"`
}

// Patch is one UI update. Target names a panel element; Marker is set
// only for OpInsertMarker.
type Patch struct {
	Op       Op      `json:"op"`
	Target   string  `json:"target,omitempty"`
	Text     string  `json:"text,omitempty"`
	Class    string  `json:"class,omitempty"`
	Emphasis bool    `json:"emphasis,omitempty"`
	Marker   *Marker `json:"marker,omitempty"`
}

// Page describes the article the annotations are placed on
type Page struct {
	// Headings in document order
	Headings      []string
	HasInfobox    bool
	HasReferences bool
}

// PageFromRecord derives the page layout from an extracted record
func PageFromRecord(rec model.ContentRecord) Page {
	p := Page{
		Headings:   rec.SectionTitles(),
		HasInfobox: len(rec.FieldTable) > 0,
	}
	for _, h := range p.Headings {
		if strings.EqualFold(strings.TrimSpace(h), "references") {
			p.HasReferences = true
			break
		}
	}
	return p
}

// Render returns the panel patches followed by the inline annotations
func Render(result model.AnalysisResult, tpl *model.Template, page Page, now time.Time) []Patch {
	patches := Panel(result, now)
	return append(patches, Annotations(result.Gaps, tpl, page)...)
}

// Panel updates the score, timestamp, gap list and suggestion list
func Panel(result model.AnalysisResult, now time.Time) []Patch {
	patches := []Patch{
		{Op: OpSetText, Target: TargetScore, Text: scoreText(result.Score)},
		{Op: OpSetClass, Target: TargetScore, Class: ScoreClass(result.Score)},
		{Op: OpSetText, Target: TargetLastRun, Text: "Last analyzed: " + now.Format("2006-01-02 15:04:05")},
		{Op: OpClearList, Target: TargetGaps},
	}
	for _, g := range result.Gaps {
		patches = append(patches, Patch{
			Op:       OpAppendItem,
			Target:   TargetGaps,
			Text:     g.Detail,
			Class:    "gap-item " + string(g.Severity),
			Emphasis: g.Severity == model.SeverityHigh,
		})
	}
	patches = append(patches, Patch{Op: OpClearList, Target: TargetSuggestions})
	for _, s := range result.Suggestions {
		patches = append(patches, Patch{Op: OpAppendItem, Target: TargetSuggestions, Text: s, Class: "suggestion-item"})
	}
	return patches
}

func scoreText(s model.Score) string {
	if s == model.ScoreNA {
		return s.String()
	}
	return s.String() + "%"
}

// ScoreClass is the CSS class of a score: high-score, medium-score or low-score
func ScoreClass(s model.Score) string {
	if s == model.ScoreNA {
		return "low-score"
	}
	return score.Classify(int(s)) + "-score"
}

// Annotations removes earlier markers and places one marker per gap the
// page can anchor. Gaps without a suitable anchor are skipped.
func Annotations(gaps []model.Gap, tpl *model.Template, page Page) []Patch {
	patches := []Patch{{Op: OpRemoveMarkers}}
	for _, g := range gaps {
		m := markerFor(g, tpl, page)
		if m == nil {
			continue
		}
		patches = append(patches, Patch{Op: OpInsertMarker, Marker: m})
	}
	return patches
}

func markerFor(g model.Gap, tpl *model.Template, page Page) *Marker {
	switch g.Kind {
	case model.GapMissingSection:
		return &Marker{
			Anchor:    InsertionPoint(tpl, page, g.Detail),
			Placement: Before,
			Label:     fmt.Sprintf("Suggested: %s section", g.Detail),
			Title:     "Suggested Section: " + g.Detail,
			Body:      fmt.Sprintf("This article would be more complete with a %s section. %s", g.Detail, score.SectionGuideline(g.Detail)),
		}
	case model.GapMissingField:
		if !page.HasInfobox {
			return nil
		}
		return &Marker{
			Anchor:    Anchor{Kind: AnchorInfobox},
			Placement: After,
			Title:     "Missing Information",
			Body:      fmt.Sprintf("Add %s information to the infobox to improve completeness. %s", g.Detail, score.EntityGuideline(g.Detail)),
		}
	case model.GapInsufficientCitations:
		if !page.HasReferences {
			return nil
		}
		return &Marker{
			Anchor:    Anchor{Kind: AnchorReferences},
			Placement: Before,
			Title:     "Citation Needed",
			Body:      g.Detail + " Consider adding citations from:",
			Items:     append([]string(nil), score.CitationSources...),
		}
	}
	return nil
}

// InsertionPoint finds where a missing section belongs: before the first
// page heading that matches a later section of the template. Without one
// the marker goes before the references, or at the end of the content.
func InsertionPoint(tpl *model.Template, page Page, section string) Anchor {
	if tpl != nil {
		target := indexOf(tpl.RequiredSections, section)
		for _, h := range page.Headings {
			if templateIndex(tpl.RequiredSections, h) > target {
				return Anchor{Kind: AnchorHeading, Heading: h}
			}
		}
	}
	if page.HasReferences {
		return Anchor{Kind: AnchorReferences}
	}
	return Anchor{Kind: AnchorContent}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// templateIndex is the first template section the heading contains, or -1
func templateIndex(sections []string, heading string) int {
	h := strings.ToLower(heading)
	for i, s := range sections {
		if strings.Contains(h, strings.ToLower(s)) {
			return i
		}
	}
	return -1
}
