package llm

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/ppiankov/wikigap/internal/model"
)

// MaxArticleChars bounds the article text placed in a prompt
const MaxArticleChars = 12000

const systemPrompt = "You are an expert Wikipedia editor. You answer with a single JSON object and nothing else."

// BuildPrompt asks for a completeness review of one article. When tpl is
// set its sections are offered as the expected outline.
func BuildPrompt(title, article string, tpl *model.Template) string {
	var sb strings.Builder
	sb.WriteString("Review the following article and:\n")
	sb.WriteString("1. Suggest missing sections or improvements to make it more complete, based on best practices for this topic.\n")
	sb.WriteString("2. Identify any notable people mentioned (especially in the infobox or main text) who do not have their own articles, and recommend creating articles for them, including suggested sections for those new articles.\n")
	sb.WriteString("Respond in JSON with these keys:\n")
	sb.WriteString("  - score: (number, 0-100, completeness score)\n")
	sb.WriteString("  - gaps: array of {type, content, severity} where type is one of missing_section, missing_entity, insufficient_citations and severity is one of high, medium, low\n")
	sb.WriteString("  - suggestions: array of strings (for improving the article)\n")
	sb.WriteString("  - new_articles: array of {name, rationale, suggested_sections}\n")

	if tpl != nil && len(tpl.RequiredSections) > 0 {
		fmt.Fprintf(&sb, "\nExpected sections for this kind of article: %s\n", strings.Join(tpl.RequiredSections, ", "))
		if tpl.MinCitations > 0 {
			fmt.Fprintf(&sb, "Expected minimum citations: %d\n", tpl.MinCitations)
		}
	}

	fmt.Fprintf(&sb, "\nArticle title: %s\n\nArticle text:\n%s", title, truncate(article, MaxArticleChars))
	return sb.String()
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "\n[truncated]"
}

// MarkdownConverter renders article HTML as Markdown for prompts
type MarkdownConverter struct {
	conv *converter.Converter
}

// NewMarkdownConverter creates a converter with table support
func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert returns the Markdown form of html, or fallback when conversion
// fails or yields nothing
func (m *MarkdownConverter) Convert(html, pageURL, fallback string) string {
	if html == "" {
		return fallback
	}
	var opts []converter.ConvertOptionFunc
	if pageURL != "" {
		opts = append(opts, converter.WithDomain(pageURL))
	}
	out, err := m.conv.ConvertString(html, opts...)
	if err != nil || strings.TrimSpace(out) == "" {
		return fallback
	}
	return strings.TrimSpace(out)
}
