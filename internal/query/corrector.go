package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minCorrectableLen = 4
	maxEditDistance   = 2
	maxLengthDelta    = 2
)

// Corrector replaces misspelled words with the closest vocabulary keyword.
type Corrector struct {
	vocabulary []string
	keep       map[string]struct{}
}

// NewCorrector builds a corrector over vocabulary. Words in keep are
// correctly spelled English that happens to sit close to a keyword ("case"
// and "rape", "life" and "fine") and are never rewritten.
func NewCorrector(vocabulary []string, keep ...string) *Corrector {
	words := make([]string, 0, len(vocabulary))
	for _, w := range vocabulary {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			words = append(words, w)
		}
	}
	kept := make(map[string]struct{}, len(keep))
	for _, w := range keep {
		kept[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Corrector{vocabulary: words, keep: kept}
}

// Correct rewrites each whitespace-delimited token. Tokens are compared on
// their lowercase letters only; surrounding punctuation is kept. Tokens with
// digits (section codes, CNRs) are never touched.
func (c *Corrector) Correct(text string) string {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		tokens[i] = c.correctToken(tok)
	}
	return strings.Join(tokens, " ")
}

func (c *Corrector) correctToken(tok string) string {
	prefix, core, suffix := splitToken(tok)
	if strings.IndexFunc(core, unicode.IsDigit) >= 0 {
		return tok
	}
	clean := lettersOnly(core)
	n := len([]rune(clean))
	if n < minCorrectableLen {
		return tok
	}
	if _, ok := c.keep[clean]; ok {
		return tok
	}

	best := ""
	bestDist := maxEditDistance + 1
	for _, kw := range c.vocabulary {
		if abs(len([]rune(kw))-n) > maxLengthDelta {
			continue
		}
		if d := editDistance(clean, kw); d < bestDist {
			best, bestDist = kw, d
		}
	}
	if best == "" || bestDist == 0 {
		return tok
	}
	return prefix + best + suffix
}

// splitToken separates leading and trailing punctuation from the word body.
func splitToken(tok string) (string, string, string) {
	isBody := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
	start := strings.IndexFunc(tok, isBody)
	if start < 0 {
		return tok, "", ""
	}
	end := strings.LastIndexFunc(tok, isBody)
	_, size := utf8.DecodeRuneInString(tok[end:])
	return tok[:start], tok[start : end+size], tok[end+size:]
}

func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// editDistance is the Levenshtein distance with unit costs.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
