package retrieval

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultContextBudget = 30000
	DefaultItemCharLimit = 2000
	blockSeparator       = "\n\n---\n\n"
)

var (
	fillerRun  = regexp.MustCompile(`_{2,}|\.{4,}|-{4,}`)
	pageMarker = regexp.MustCompile(`\bPage\s+\d+\b`)
	spaceRun   = regexp.MustCompile(`\s+`)
)

// Source is the citation shown next to an answer. RelevanceScore is the
// neighbour distance rounded to three places; lower is closer.
type Source struct {
	Source         string   `json:"source"`
	Page           *int     `json:"page,omitempty"`
	Article        string   `json:"article,omitempty"`
	Section        string   `json:"section,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
}

type Assembler struct {
	itemLimit int
}

func NewAssembler(itemCharLimit int) *Assembler {
	if itemCharLimit <= 0 {
		itemCharLimit = DefaultItemCharLimit
	}
	return &Assembler{itemLimit: itemCharLimit}
}

// Assemble formats hits in order until the next block would push the
// context past budget characters. Blocks are never cut, and sources only
// cover blocks that made it into the context.
func (a *Assembler) Assemble(hits []Hit, budget int) (string, []Source) {
	var b strings.Builder
	used := 0
	sources := make([]Source, 0, len(hits))

	for i, h := range hits {
		block := a.formatBlock(i+1, h)
		size := utf8.RuneCountInString(block)
		if used > 0 {
			size += utf8.RuneCountInString(blockSeparator)
		}
		if used+size > budget {
			break
		}
		if used > 0 {
			b.WriteString(blockSeparator)
		}
		b.WriteString(block)
		used += size
		sources = append(sources, sourceOf(h))
	}
	return b.String(), sources
}

func (a *Assembler) formatBlock(n int, h Hit) string {
	var tags []string
	if h.Article != "" {
		tags = append(tags, "Article "+h.Article)
	}
	if h.SectionNumber != "" {
		tags = append(tags, "Section "+h.SectionNumber)
	}
	label := fmt.Sprintf("[SOURCE %d]", n)
	if len(tags) > 0 {
		label += " " + strings.Join(tags, " ")
	}
	label += " | File: " + CleanSourceLabel(h.Source)

	return label + "\n" + truncateRunes(CleanText(h.Text), a.itemLimit)
}

func sourceOf(h Hit) Source {
	s := Source{
		Source:  CleanSourceLabel(h.Source),
		Page:    h.Page,
		Article: h.Article,
		Section: h.SectionNumber,
	}
	if h.Distance != nil {
		score := math.Round(*h.Distance*1000) / 1000
		s.RelevanceScore = &score
	}
	return s
}

// CleanText removes scan artefacts so text reads well aloud: filler runs,
// page markers, control characters and repeated whitespace.
func CleanText(text string) string {
	text = fillerRun.ReplaceAllString(text, " ")
	text = pageMarker.ReplaceAllString(text, " ")
	text = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}

// CleanSourceLabel turns a file-style label into a readable book name.
func CleanSourceLabel(label string) string {
	switch ext := filepath.Ext(label); strings.ToLower(ext) {
	case ".pdf", ".txt", ".json", ".md":
		label = strings.TrimSuffix(label, ext)
	}
	label = strings.NewReplacer("_", " ", "-", " ").Replace(label)
	return strings.TrimSpace(spaceRun.ReplaceAllString(label, " "))
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit])) + "..."
}
