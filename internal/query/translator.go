package query

import (
	"fmt"
	"regexp"
	"strings"
)

// Translation is the outcome of mapping an IPC reference onto BNS.
type Translation struct {
	Query   string
	Note    string
	Legacy  string
	Current string
}

func (t Translation) Applied() bool { return t.Current != "" }

// Translator rewrites questions that cite the old penal code.
type Translator struct {
	mappings []SectionMapping
	flag     *regexp.Regexp
}

func NewTranslator(mappings []SectionMapping, flags []string) *Translator {
	return &Translator{mappings: mappings, flag: flagPattern(flags)}
}

// Translate appends a cross reference for the first legacy section found.
// Nothing happens unless the question flags the old regime explicitly.
func (t *Translator) Translate(text string) Translation {
	out := Translation{Query: text}
	lower := strings.ToLower(text)
	if !t.flag.MatchString(lower) {
		return out
	}
	for _, m := range t.mappings {
		if !containsCode(lower, strings.ToLower(m.Legacy)) {
			continue
		}
		out.Query = fmt.Sprintf("%s (Refers to BNS Section %s)", text, m.Current)
		out.Note = fmt.Sprintf("Note: IPC Section %s is now BNS Section %s.", m.Legacy, m.Current)
		out.Legacy = m.Legacy
		out.Current = m.Current
		return out
	}
	return out
}

// containsCode finds code as a whole token, so "302" does not match inside
// "3020". A code may follow letters directly, as in "ipc302".
func containsCode(text, code string) bool {
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], code)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(code)
		if startsToken(text, start, code) && (end == len(text) || !isAlnum(text[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func startsToken(text string, start int, code string) bool {
	if start == 0 {
		return true
	}
	prev := text[start-1]
	return !isAlnum(prev) || (isLetter(prev) && isDigit(code[0]))
}

func isAlnum(b byte) bool { return isLetter(b) || isDigit(b) }

func isLetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// flagPattern is wordPattern that also accepts a section number run into
// the flag ("IPC302").
func flagPattern(flags []string) *regexp.Regexp {
	quoted := make([]string, 0, len(flags))
	for _, f := range flags {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(f)))
	}
	if len(quoted) == 0 {
		return regexp.MustCompile(`[^\s\S]`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)(?:\b|[0-9])`)
}

// wordPattern compiles a case-insensitive alternation bounded by word edges.
func wordPattern(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(w)))
	}
	if len(quoted) == 0 {
		return regexp.MustCompile(`[^\s\S]`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
