package query

import (
	"regexp"
	"strings"

	"lawgpt/internal/model"
)

// Intent is the route a question takes through the pipeline.
type Intent string

const (
	IntentCaseLookup Intent = "case_lookup"
	IntentStatistics Intent = "statistics"
	IntentIdentity   Intent = "identity"
	IntentLegal      Intent = "legal"
)

// Classification holds every signal found in a question. Intent is the
// signal that won under the rule precedence.
type Classification struct {
	Intent       Intent
	IsIdentity   bool
	IsSmallTalk  bool
	IsCaseLookup bool
	IsStatsQuery bool
	Topic        Topic
	CaseID       string
	Scope        model.Scope
}

// Rule is one classifier stage. Rules are evaluated in slice order and the
// first matching rule decides the intent.
type Rule struct {
	Name   string
	Intent Intent
	Match  func(c Classification) bool
}

var (
	// CNRs always carry digits; this keeps 16-letter words out.
	cnrToken     = regexp.MustCompile(`(?i)\b[a-z0-9]{16}\b`)
	cnrMention   = regexp.MustCompile(`(?i)\bcnr\b(?:\s*(?:no\.?|number))?\s*[:#-]?\s*([a-z0-9]*[0-9][a-z0-9]*)`)
	hasDigit     = regexp.MustCompile(`[0-9]`)
	trailingJunk = regexp.MustCompile(`[\s!?.,]+$`)
)

// DefaultRules encode the routing precedence: case lookup, statistics,
// identity and small talk, then law retrieval.
var DefaultRules = []Rule{
	{Name: "case-lookup", Intent: IntentCaseLookup, Match: func(c Classification) bool { return c.IsCaseLookup }},
	{Name: "statistics", Intent: IntentStatistics, Match: func(c Classification) bool { return c.IsStatsQuery }},
	{Name: "identity", Intent: IntentIdentity, Match: func(c Classification) bool { return c.IsIdentity || c.IsSmallTalk }},
}

type Classifier struct {
	rules        []Rule
	constitution *regexp.Regexp
	criminal     *regexp.Regexp
	identity     []compiledPhrase
	smallTalk    []compiledPhrase
}

type compiledPhrase struct {
	re    *regexp.Regexp
	topic Topic
}

func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{
		rules:        rules,
		constitution: wordPattern(constitutionKeywords),
		criminal:     wordPattern(criminalKeywords),
		identity:     compilePhrases(identityPhrases),
		smallTalk:    compilePhrases(smallTalkPhrases),
	}
}

func compilePhrases(phrases []phrase) []compiledPhrase {
	out := make([]compiledPhrase, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, compiledPhrase{re: wordPattern([]string{p.text}), topic: p.topic})
	}
	return out
}

func (c *Classifier) Classify(text string) Classification {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	out := Classification{Intent: IntentLegal, Scope: c.scope(trimmed)}

	if id := detectCaseID(trimmed); id != "" {
		out.IsCaseLookup = true
		out.CaseID = strings.ToUpper(id)
	}
	for _, kw := range statisticsKeywords {
		if strings.Contains(trimmed, kw) {
			out.IsStatsQuery = true
			break
		}
	}
	if topic, ok := matchPhrase(c.identity, trimmed); ok {
		out.IsIdentity = true
		out.Topic = topic
	}
	if topic, ok := c.smallTalkTopic(trimmed); ok {
		out.IsSmallTalk = true
		if out.Topic == TopicNone {
			out.Topic = topic
		}
	}

	for _, r := range c.rules {
		if r.Match(out) {
			out.Intent = r.Intent
			break
		}
	}
	return out
}

func (c *Classifier) scope(text string) model.Scope {
	constitutional := c.constitution.MatchString(text)
	criminal := c.criminal.MatchString(text)
	switch {
	case constitutional && !criminal:
		return model.ScopeConstitution
	case criminal && !constitutional:
		return model.ScopeCriminal
	default:
		return model.ScopeAll
	}
}

func (c *Classifier) smallTalkTopic(text string) (Topic, bool) {
	bare := trailingJunk.ReplaceAllString(text, "")
	for _, g := range greetings {
		if bare == g {
			return TopicGreeting, true
		}
	}
	return matchPhrase(c.smallTalk, text)
}

func matchPhrase(phrases []compiledPhrase, text string) (Topic, bool) {
	for _, p := range phrases {
		if p.re.MatchString(text) {
			return p.topic, true
		}
	}
	return TopicNone, false
}

func detectCaseID(text string) string {
	for _, tok := range cnrToken.FindAllString(text, -1) {
		if hasDigit.MatchString(tok) {
			return tok
		}
	}
	if m := cnrMention.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
