package query

import (
	"regexp"
	"strings"
)

type CitationKind string

const (
	CitationArticle CitationKind = "article"
	CitationSection CitationKind = "section"
)

// Citation is an explicit "Article 21" or "Section 103" reference.
type Citation struct {
	Kind   CitationKind
	Number string
}

var (
	articleRef = regexp.MustCompile(`(?i)\b(?:article|art\.?)\s*(\d+[a-z]?)\b`)
	sectionRef = regexp.MustCompile(`(?i)\b(?:section|sec\.?)\s*(\d+[a-z]?)\b`)
)

// ParseCitation finds the first article or section number in text. Articles
// take precedence when both are cited.
func ParseCitation(text string) (Citation, bool) {
	if m := articleRef.FindStringSubmatch(text); m != nil {
		return Citation{Kind: CitationArticle, Number: strings.ToUpper(m[1])}, true
	}
	if m := sectionRef.FindStringSubmatch(text); m != nil {
		return Citation{Kind: CitationSection, Number: strings.ToUpper(m[1])}, true
	}
	return Citation{}, false
}

// Resolve swaps a cited legacy section for its current number when the
// translator has already mapped it.
func (c Citation) Resolve(t Translation) Citation {
	if c.Kind == CitationSection && t.Applied() && strings.EqualFold(c.Number, t.Legacy) {
		return Citation{Kind: CitationSection, Number: t.Current}
	}
	return c
}
