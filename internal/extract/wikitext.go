package extract

import (
	"regexp"
	"strings"
)

// Wikitext summarizes raw article markup for the bulk audit
type Wikitext struct {
	Sections   []string
	HasInfobox bool
	RefCount   int
	WordCount  int
}

var (
	infoboxRe  = regexp.MustCompile(`(?i)\{\{Infobox`)
	refRe      = regexp.MustCompile(`(?i)<ref[\s\S]*?>[\s\S]*?</ref>`)
	templateRe = regexp.MustCompile(`\{\{[^}]*\}\}`)
	linkRe     = regexp.MustCompile(`\[\[[^\]]*\]\]`)
	headingRe  = regexp.MustCompile(`(?m)^(={2,6})\s*(.+?)\s*={2,6}\s*$`)
)

// ParseWikitext counts references and words, detects an infobox and
// collects == Heading == lines
func ParseWikitext(text string) Wikitext {
	wt := Wikitext{
		Sections:   []string{},
		HasInfobox: infoboxRe.MatchString(text),
		RefCount:   len(refRe.FindAllStringIndex(text, -1)),
	}

	for _, m := range headingRe.FindAllStringSubmatch(text, -1) {
		wt.Sections = append(wt.Sections, m[2])
	}

	plain := templateRe.ReplaceAllString(text, " ")
	plain = linkRe.ReplaceAllString(plain, " ")
	plain = refRe.ReplaceAllString(plain, " ")
	wt.WordCount = len(strings.Fields(plain))
	if wt.WordCount == 0 {
		wt.WordCount = 1
	}
	return wt
}

// RefsPer100Words is the reference density used by the audit score
func (w Wikitext) RefsPer100Words() float64 {
	words := w.WordCount
	if words <= 0 {
		words = 1
	}
	return float64(w.RefCount) / float64(words) * 100
}
