package llm

import (
	"encoding/json"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ppiankov/wikigap/internal/model"
)

const emptyResponseMessage = "Model returned an empty response"

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize strips all markup from untrusted model text
func Sanitize(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// ParseResult converts raw model output into an analysis result. Output
// that is not a JSON object satisfying the result schema becomes a degraded
// result whose only suggestion is the sanitized raw text.
func ParseResult(raw string) model.AnalysisResult {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Degraded(emptyResponseMessage)
	}

	doc, ok := extractJSON(raw)
	if !ok {
		return degradedFrom(raw)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return degradedFrom(raw)
	}

	if result.Gaps == nil {
		result.Gaps = []model.Gap{}
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}
	sanitizeResult(&result)

	if err := result.Validate(); err != nil {
		return degradedFrom(raw)
	}
	return result
}

func degradedFrom(raw string) model.AnalysisResult {
	msg := Sanitize(raw)
	if msg == "" {
		msg = emptyResponseMessage
	}
	return model.Degraded(msg)
}

// extractJSON finds the outermost object in s, skipping code fences and
// any prose the model wrapped around it
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func sanitizeResult(r *model.AnalysisResult) {
	for i := range r.Gaps {
		r.Gaps[i].Detail = Sanitize(r.Gaps[i].Detail)
		r.Gaps[i].Kind = model.GapKind(strings.ToLower(strings.TrimSpace(string(r.Gaps[i].Kind))))
		r.Gaps[i].Severity = model.Severity(strings.ToLower(strings.TrimSpace(string(r.Gaps[i].Severity))))
	}

	suggestions := r.Suggestions[:0]
	for _, s := range r.Suggestions {
		if clean := Sanitize(s); clean != "" {
			suggestions = append(suggestions, clean)
		}
	}
	r.Suggestions = suggestions

	for i := range r.NewArticles {
		a := &r.NewArticles[i]
		a.Name = Sanitize(a.Name)
		a.Rationale = Sanitize(a.Rationale)
		for j := range a.SuggestedSections {
			a.SuggestedSections[j] = Sanitize(a.SuggestedSections[j])
		}
	}
}
