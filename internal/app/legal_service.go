package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lawgpt/internal/ai"
	"lawgpt/internal/answer"
	"lawgpt/internal/logging"
	"lawgpt/internal/model"
	"lawgpt/internal/pkg/retry"
	"lawgpt/internal/query"
	"lawgpt/internal/retrieval"
)

type Mode string

const (
	ModeDirectArticle Mode = "direct-article"
	ModeDirectSection Mode = "direct-section"
	ModeSemantic      Mode = "semantic"
	ModeStatistics    Mode = "statistics"
	ModeIdentity      Mode = "identity"
	ModeCaseStatus    Mode = "case-status"
)

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrServiceBusy   = errors.New("ai service is busy, please try again shortly")
	ErrUpstream      = errors.New("ai service rejected the request")
)

const (
	NoResultsAnswer = "I could not find specific details for that in the relevant law book."
	BusyNotice      = "AI service is busy; showing the law text directly."

	defaultMaxAnswerTokens = 800
	excerptRunes           = 600
)

const answerSystemPrompt = `You are LawGPT, an assistant that explains Indian law in plain language.
Answer only from the numbered sources in the context. Cite them as [SOURCE n].
If the sources do not answer the question, say that the law books provided do not cover it.
Do not give personal legal advice.`

type AskInput struct {
	Question         string
	DatasetScope     string
	ChannelSessionID string
}

type AskResult struct {
	Answer           string             `json:"answer"`
	Sources          []retrieval.Source `json:"sources"`
	Notice           string             `json:"notice,omitempty"`
	Mode             Mode               `json:"mode"`
	Scope            model.Scope        `json:"scope"`
	RerankerFallback bool               `json:"reranker_fallback"`
	Degraded         bool               `json:"degraded"`
}

type PreferenceStore interface {
	GetScope(ctx context.Context, channelID string) (model.Scope, bool, error)
	SetScope(ctx context.Context, channelID string, scope model.Scope) error
}

// Auditor receives one record per answered question. Failures are logged,
// never returned to the caller.
type Auditor interface {
	Record(ctx context.Context, entry model.QueryLog) error
}

type AuditorFunc func(ctx context.Context, entry model.QueryLog) error

func (f AuditorFunc) Record(ctx context.Context, entry model.QueryLog) error { return f(ctx, entry) }

type StructuralFinder interface {
	FindByArticle(ctx context.Context, number string, scope model.Scope) ([]retrieval.Hit, error)
	FindBySection(ctx context.Context, number string, scope model.Scope) ([]retrieval.Hit, error)
}

type SemanticSearcher interface {
	Search(ctx context.Context, question string, k int, scope model.Scope) (retrieval.SearchResult, error)
}

type CaseLookup interface {
	Lookup(ctx context.Context, raw string) answer.CaseAnswer
}

type StatsLookup interface {
	Answer(ctx context.Context, question string) (string, bool)
}

// LegalService turns a raw question into an answer with citations.
type LegalService struct {
	corrector  *query.Corrector
	translator *query.Translator
	classifier *query.Classifier
	structural StructuralFinder
	semantic   SemanticSearcher
	assembler  *retrieval.Assembler
	completer  retrieval.Completer

	cases   CaseLookup
	stats   StatsLookup
	prefs   PreferenceStore
	auditor Auditor

	retry           retry.Policy
	contextBudget   int
	maxAnswerTokens int
}

type LegalServiceOption func(*LegalService)

func WithCaseLookup(cases CaseLookup) LegalServiceOption {
	return func(s *LegalService) { s.cases = cases }
}

func WithStatsLookup(stats StatsLookup) LegalServiceOption {
	return func(s *LegalService) { s.stats = stats }
}

func WithPreferences(prefs PreferenceStore) LegalServiceOption {
	return func(s *LegalService) { s.prefs = prefs }
}

func WithAuditor(a Auditor) LegalServiceOption {
	return func(s *LegalService) { s.auditor = a }
}

func WithAssembler(a *retrieval.Assembler) LegalServiceOption {
	return func(s *LegalService) { s.assembler = a }
}

// WithAnswerRetry sets the backoff used for the final completion call.
func WithAnswerRetry(p retry.Policy) LegalServiceOption {
	return func(s *LegalService) { s.retry = p }
}

func WithContextBudget(chars int) LegalServiceOption {
	return func(s *LegalService) {
		if chars > 0 {
			s.contextBudget = chars
		}
	}
}

func WithMaxAnswerTokens(n int) LegalServiceOption {
	return func(s *LegalService) {
		if n > 0 {
			s.maxAnswerTokens = n
		}
	}
}

func NewLegalService(structural StructuralFinder, semantic SemanticSearcher, completer retrieval.Completer, opts ...LegalServiceOption) *LegalService {
	s := &LegalService{
		corrector:       query.NewCorrector(query.LegalKeywords, query.CommonWords...),
		translator:      query.NewTranslator(query.IPCToBNS, query.LegacyFlags),
		classifier:      query.NewClassifier(query.DefaultRules),
		structural:      structural,
		semantic:        semantic,
		completer:       completer,
		assembler:       retrieval.NewAssembler(retrieval.DefaultItemCharLimit),
		retry:           retry.Policy{Attempts: 3, BaseDelay: 2 * time.Second},
		contextBudget:   retrieval.DefaultContextBudget,
		maxAnswerTokens: defaultMaxAnswerTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask runs the whole pipeline. Validation and provider failures come back
// as ErrEmptyQuestion, ErrServiceBusy or ErrUpstream; finding nothing is a
// normal answer.
func (s *LegalService) Ask(ctx context.Context, in AskInput) (*AskResult, error) {
	start := time.Now()
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	corrected := s.corrector.Correct(question)
	cls := s.classifier.Classify(corrected)
	scope := s.resolveScope(ctx, in, cls.Scope)

	res, err := s.route(ctx, corrected, cls, scope)
	if err != nil {
		logging.FromContext(ctx).Error("ask failed",
			slog.String("intent", string(cls.Intent)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	res.Scope = scope

	latency := time.Since(start)
	logging.FromContext(ctx).Info("question answered",
		slog.String("mode", string(res.Mode)),
		slog.String("scope", string(scope)),
		slog.Int("sources", len(res.Sources)),
		slog.Bool("reranker_fallback", res.RerankerFallback),
		slog.Bool("degraded", res.Degraded),
		slog.Int64("latency_ms", latency.Milliseconds()),
	)
	s.audit(ctx, model.QueryLog{
		RequestID:        logging.RequestID(ctx),
		ChannelSessionID: in.ChannelSessionID,
		Question:         question,
		Corrected:        corrected,
		Mode:             string(res.Mode),
		Scope:            string(scope),
		HitCount:         len(res.Sources),
		RerankerFallback: res.RerankerFallback,
		Degraded:         res.Degraded,
		LatencyMS:        latency.Milliseconds(),
	})
	return res, nil
}

// ChannelScope returns the stored preference for a channel.
func (s *LegalService) ChannelScope(ctx context.Context, channelID string) (model.Scope, bool, error) {
	if s.prefs == nil || channelID == "" {
		return "", false, nil
	}
	return s.prefs.GetScope(ctx, channelID)
}

func (s *LegalService) SetChannelScope(ctx context.Context, channelID string, scope model.Scope) error {
	if s.prefs == nil {
		return nil
	}
	return s.prefs.SetScope(ctx, channelID, scope)
}

// resolveScope prefers an explicit scope (remembered for the channel), then
// the channel's stored preference, then what the question itself implies.
func (s *LegalService) resolveScope(ctx context.Context, in AskInput, classified model.Scope) model.Scope {
	log := logging.FromContext(ctx)
	if strings.TrimSpace(in.DatasetScope) != "" {
		scope := model.ParseScope(in.DatasetScope)
		if in.ChannelSessionID != "" && s.prefs != nil {
			if err := s.prefs.SetScope(ctx, in.ChannelSessionID, scope); err != nil {
				log.Warn("save channel preference failed", slog.String("error", err.Error()))
			}
		}
		return scope
	}
	if in.ChannelSessionID != "" && s.prefs != nil {
		scope, ok, err := s.prefs.GetScope(ctx, in.ChannelSessionID)
		if err != nil {
			log.Warn("load channel preference failed", slog.String("error", err.Error()))
		} else if ok {
			return scope
		}
	}
	return classified
}

func (s *LegalService) route(ctx context.Context, corrected string, cls query.Classification, scope model.Scope) (*AskResult, error) {
	switch cls.Intent {
	case query.IntentCaseLookup:
		if s.cases != nil {
			a := s.cases.Lookup(ctx, cls.CaseID)
			res := &AskResult{Answer: a.Text, Mode: ModeCaseStatus, Sources: []retrieval.Source{}}
			if a.Found {
				res.Sources = append(res.Sources, retrieval.Source{Source: answer.CaseSourceLabel})
			}
			return res, nil
		}
	case query.IntentStatistics:
		if s.stats != nil {
			if text, ok := s.stats.Answer(ctx, corrected); ok {
				return &AskResult{
					Answer:  text,
					Mode:    ModeStatistics,
					Sources: []retrieval.Source{{Source: answer.StatsSourceLabel}},
				}, nil
			}
		}
	case query.IntentIdentity:
		return &AskResult{
			Answer:  answer.IdentityReply(cls.Topic),
			Mode:    ModeIdentity,
			Sources: []retrieval.Source{},
		}, nil
	}
	return s.answerFromLaw(ctx, corrected, scope)
}

func (s *LegalService) answerFromLaw(ctx context.Context, corrected string, scope model.Scope) (*AskResult, error) {
	tr := s.translator.Translate(corrected)
	res := &AskResult{Mode: ModeSemantic, Notice: tr.Note, Sources: []retrieval.Source{}}

	var hits []retrieval.Hit
	if cit, ok := query.ParseCitation(corrected); ok && s.structural != nil {
		cit = cit.Resolve(tr)
		var err error
		if cit.Kind == query.CitationArticle {
			hits, err = s.structural.FindByArticle(ctx, cit.Number, scope)
			res.Mode = ModeDirectArticle
		} else {
			hits, err = s.structural.FindBySection(ctx, cit.Number, scope)
			res.Mode = ModeDirectSection
		}
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			res.Mode = ModeSemantic
		}
	}

	if len(hits) == 0 {
		found, err := s.semantic.Search(ctx, tr.Query, 0, scope)
		if err != nil {
			return nil, classify(err)
		}
		hits = found.Hits
		res.RerankerFallback = found.RerankerFallback
	}

	contextBlock, sources := s.assembler.Assemble(hits, s.contextBudget)
	if len(sources) == 0 {
		res.Answer = NoResultsAnswer
		return res, nil
	}
	res.Sources = sources

	text, err := s.complete(ctx, tr.Query, contextBlock)
	switch {
	case err == nil:
		res.Answer = text
	case ai.IsTransient(err):
		logging.FromContext(ctx).Warn("answer degraded to excerpts", slog.String("error", err.Error()))
		res.Answer = excerpts(hits[:len(sources)])
		res.Degraded = true
		res.Notice = joinNotices(res.Notice, BusyNotice)
	default:
		return nil, classify(err)
	}
	return res, nil
}

func (s *LegalService) complete(ctx context.Context, question, contextBlock string) (string, error) {
	temperature := 0.2
	req := ai.CompletionRequest{
		Messages: []ai.ChatMessage{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, question)},
		},
		MaxTokens:   s.maxAnswerTokens,
		Temperature: &temperature,
	}

	var text string
	err := s.retry.Do(ctx, ai.IsTransient, func(ctx context.Context) error {
		out, err := s.completer.Complete(ctx, req)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return ai.ErrMalformedResponse
		}
		text = strings.TrimSpace(out)
		return nil
	})
	return text, err
}

func (s *LegalService) audit(ctx context.Context, entry model.QueryLog) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.FromContext(ctx).Warn("record query log failed", slog.String("error", err.Error()))
	}
}

// classify maps provider and store failures onto the pipeline errors.
func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, retrieval.ErrStoreUnavailable):
		return err
	case ai.IsTransient(err):
		return fmt.Errorf("%w: %v", ErrServiceBusy, err)
	default:
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}

func excerpts(hits []retrieval.Hit) string {
	var b strings.Builder
	b.WriteString("Here is the relevant law text:")
	for _, h := range hits {
		var tag []string
		if h.Article != "" {
			tag = append(tag, "Article "+h.Article)
		}
		if h.SectionNumber != "" {
			tag = append(tag, "Section "+h.SectionNumber)
		}
		label := retrieval.CleanSourceLabel(h.Source)
		if len(tag) > 0 {
			label += ", " + strings.Join(tag, " ")
		}
		text := []rune(retrieval.CleanText(h.Text))
		if len(text) > excerptRunes {
			text = append(text[:excerptRunes], []rune("...")...)
		}
		fmt.Fprintf(&b, "\n\n%s: %s", label, string(text))
	}
	return b.String()
}

func joinNotices(notices ...string) string {
	var out []string
	for _, n := range notices {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}
