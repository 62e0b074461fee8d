package model

import "strings"

// Scope restricts retrieval to one subset of the corpus.
type Scope string

const (
	ScopeAll          Scope = "all"
	ScopeConstitution Scope = "constitution"
	ScopeCriminal     Scope = "criminal"
)

// scopeLabels are the source-label fragments that belong to each scope.
var scopeLabels = map[Scope][]string{
	ScopeConstitution: {"constitution"},
	ScopeCriminal:     {"bharatiya", "nyaya", "sanhita", "bns", "criminal"},
}

// ParseScope maps user and adapter spellings onto a Scope. Unknown values mean all.
func ParseScope(raw string) Scope {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return ScopeAll
	case strings.Contains(s, "constitution"):
		return ScopeConstitution
	case s == "criminal", s == "bns", s == "ipc", strings.Contains(s, "bharatiya"), strings.Contains(s, "sanhita"):
		return ScopeCriminal
	default:
		return ScopeAll
	}
}

func (s Scope) Valid() bool {
	return s == ScopeAll || s == ScopeConstitution || s == ScopeCriminal
}

// Matches reports whether a document with the given source label is in scope.
func (s Scope) Matches(sourceLabel string) bool {
	fragments, ok := scopeLabels[s]
	if !ok {
		return true
	}
	label := strings.ToLower(sourceLabel)
	for _, f := range fragments {
		if strings.Contains(label, f) {
			return true
		}
	}
	return false
}
