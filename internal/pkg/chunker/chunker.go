// Package chunker splits law-book text into retrievable passages, one per
// article or section where headings can be found.
package chunker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxChars = 1400
	DefaultOverlap  = 200
	maxTitleRunes   = 120
)

type Kind string

const (
	KindConstitution Kind = "constitution"
	KindCriminal     Kind = "criminal"
	KindGeneric      Kind = "generic"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindConstitution, KindCriminal, KindGeneric:
		return k, nil
	case "":
		return KindGeneric, nil
	default:
		return "", fmt.Errorf("unknown document kind %q", s)
	}
}

type Page struct {
	Number int
	Text   string
}

// Chunk is one passage ready for embedding. Page is 0 when unknown.
type Chunk struct {
	Text          string
	Page          int
	Article       string
	SectionNumber string
	SectionTitle  string
}

type Options struct {
	Kind     Kind
	MaxChars int
	Overlap  int
}

// heading matches "21. Protection of life..." and "Section 103. Punishment...".
var heading = regexp.MustCompile(`(?m)^[ \t]*(?:((?i:article|section))[ \t]+)?(\d{1,3}[A-Z]{0,2})\.[ \t]+([A-Z][^\n]*)`)

var titleEnd = regexp.MustCompile(`\.?\s*[—–]|\.\s|\.$`)

// Split finds article or section headings and emits one chunk per heading,
// windowing long ones. Text without at least two headings falls back to
// overlapping windows per page.
func Split(pages []Page, opts Options) []Chunk {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.MaxChars {
		opts.Overlap = DefaultOverlap
	}

	var (
		b      strings.Builder
		starts []int
		nums   []int
	)
	for _, p := range pages {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		starts = append(starts, b.Len())
		nums = append(nums, p.Number)
		b.WriteString(p.Text)
	}
	full := b.String()
	pageAt := func(offset int) int {
		i := sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
		if i < 0 {
			return 0
		}
		return nums[i]
	}

	matches := headingMatches(full, opts.Kind)
	if len(matches) < 2 {
		var out []Chunk
		for _, p := range pages {
			for _, w := range windows(normalize(p.Text), opts.MaxChars, opts.Overlap) {
				out = append(out, Chunk{Text: w, Page: p.Number})
			}
		}
		return out
	}

	var out []Chunk
	if pre := normalize(full[:matches[0][0]]); pre != "" {
		for _, w := range windows(pre, opts.MaxChars, opts.Overlap) {
			out = append(out, Chunk{Text: w, Page: pageAt(0)})
		}
	}
	for i, m := range matches {
		end := len(full)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		label := labelFor(opts.Kind, full, m)
		number := full[m[4]:m[5]]
		body := normalize(full[m[6]:end])
		prefix := fmt.Sprintf("%s %s.", label, number)

		base := Chunk{Page: pageAt(m[0]), SectionTitle: title(full[m[6]:m[7]])}
		if label == "Article" {
			base.Article = number
		} else {
			base.SectionNumber = number
		}

		for j, w := range windows(body, opts.MaxChars-utf8.RuneCountInString(prefix)-10, opts.Overlap) {
			c := base
			if j == 0 {
				c.Text = prefix + " " + w
			} else {
				c.Text = fmt.Sprintf("%s %s (contd.) %s", label, number, w)
			}
			out = append(out, c)
		}
	}
	return out
}

// headingMatches keeps only headings that fit the kind: generic text needs
// an explicit "Article"/"Section" keyword.
func headingMatches(text string, kind Kind) [][]int {
	all := heading.FindAllStringSubmatchIndex(text, -1)
	if kind != KindGeneric {
		return all
	}
	out := all[:0:0]
	for _, m := range all {
		if m[2] >= 0 {
			out = append(out, m)
		}
	}
	return out
}

func labelFor(kind Kind, text string, m []int) string {
	if m[2] >= 0 {
		if strings.EqualFold(text[m[2]:m[3]], "article") {
			return "Article"
		}
		return "Section"
	}
	if kind == KindConstitution {
		return "Article"
	}
	return "Section"
}

func title(line string) string {
	if loc := titleEnd.FindStringIndex(line); loc != nil {
		line = line[:loc[0]]
	}
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) > maxTitleRunes {
		line = string([]rune(line)[:maxTitleRunes])
	}
	return line
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// windows cuts s into pieces of at most size runes that overlap by
// overlap runes, preferring to break on a space.
func windows(s string, size, overlap int) []string {
	if s == "" {
		return nil
	}
	if size <= overlap {
		size = overlap + 1
	}
	r := []rune(s)
	if len(r) <= size {
		return []string{s}
	}

	var out []string
	start := 0
	for start < len(r) {
		end := start + size
		if end >= len(r) {
			out = append(out, strings.TrimSpace(string(r[start:])))
			break
		}
		for cut := end; cut > start+size*7/10; cut-- {
			if r[cut] == ' ' {
				end = cut
				break
			}
		}
		out = append(out, strings.TrimSpace(string(r[start:end])))
		start = end - overlap
	}
	return out
}
