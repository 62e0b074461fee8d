package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"lawgpt/internal/ai"
	"lawgpt/internal/logging"
	"lawgpt/internal/pkg/retry"
)

const (
	MaxReranked       = 5
	rerankPreviewLen  = 400
	rerankMaxTokens   = 100
	rerankSchemaTitle = "relevant_passages"
)

var rerankDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"indices": map[string]any{
			"type":        "array",
			"description": "zero-based indices of the relevant passages, most relevant first",
			"items":       map[string]any{"type": "integer"},
		},
	},
	"required":             []any{"indices"},
	"additionalProperties": false,
}

var rerankSchema = mustSchema(rerankDefinition)

func mustSchema(def map[string]any) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
	if err != nil {
		panic(fmt.Sprintf("compile rerank schema: %v", err))
	}
	return s
}

// RerankResult tells callers whether the model ordered the hits or the
// reranker fell back to distance order.
type RerankResult struct {
	Hits         []Hit
	UsedFallback bool
}

// Reranker asks a completion model which candidates actually answer the
// question.
type Reranker struct {
	completer Completer
	policy    retry.Policy
}

func NewReranker(completer Completer, policy retry.Policy) *Reranker {
	return &Reranker{completer: completer, policy: policy}
}

// Rerank never fails: when the model cannot be reached or keeps answering
// outside the schema, the first MaxReranked candidates are returned as is.
func (r *Reranker) Rerank(ctx context.Context, question string, candidates []Hit) RerankResult {
	if len(candidates) == 0 {
		return RerankResult{}
	}
	if r.completer == nil {
		return fallback(candidates)
	}

	req := ai.CompletionRequest{
		Messages:  rerankMessages(question, candidates),
		MaxTokens: rerankMaxTokens,
		Schema:    &ai.ResponseSchema{Name: rerankSchemaTitle, Definition: rerankDefinition},
	}

	var picked []int
	err := r.policy.Do(ctx, ai.IsTransient, func(ctx context.Context) error {
		raw, err := r.completer.Complete(ctx, req)
		if err != nil {
			return err
		}
		picked, err = parseSelection(raw, len(candidates))
		return err
	})
	if err != nil {
		logging.FromContext(ctx).Warn("rerank degraded to distance order",
			slog.Int("candidates", len(candidates)),
			slog.Bool("transient", ai.IsTransient(err)),
			slog.String("error", err.Error()),
		)
		return fallback(candidates)
	}

	hits := make([]Hit, 0, len(picked))
	for _, i := range picked {
		hits = append(hits, candidates[i])
	}
	return RerankResult{Hits: hits}
}

func fallback(candidates []Hit) RerankResult {
	n := min(len(candidates), MaxReranked)
	hits := make([]Hit, n)
	copy(hits, candidates[:n])
	return RerankResult{Hits: hits, UsedFallback: true}
}

func rerankMessages(question string, candidates []Hit) []ai.ChatMessage {
	var b strings.Builder
	for i, c := range candidates {
		text := []rune(strings.TrimSpace(c.Text))
		if len(text) > rerankPreviewLen {
			text = text[:rerankPreviewLen]
		}
		fmt.Fprintf(&b, "[%d] %s\n", i, string(text))
	}
	return []ai.ChatMessage{
		{
			Role: "system",
			Content: "You select passages from Indian law books that answer a legal question. " +
				`Reply only with JSON of the form {"indices":[...]} listing the relevant passage numbers, most relevant first. ` +
				"Return an empty list when none apply.",
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Question: %s\n\nPassages:\n%s", question, b.String()),
		},
	}
}

// parseSelection validates the model reply against the schema and keeps the
// in-range, first-seen indices. A non-empty list with no usable index is
// treated as malformed.
func parseSelection(raw string, n int) ([]int, error) {
	raw = strings.TrimSpace(raw)
	result, err := rerankSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: rerank reply is not json: %v", ai.ErrMalformedResponse, err)
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("%w: rerank reply failed validation: %s", ai.ErrMalformedResponse, strings.Join(details, "; "))
	}

	var parsed struct {
		Indices []int `json:"indices"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode rerank reply: %v", ai.ErrMalformedResponse, err)
	}

	seen := make(map[int]struct{}, len(parsed.Indices))
	picked := make([]int, 0, MaxReranked)
	for _, i := range parsed.Indices {
		if i < 0 || i >= n {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		picked = append(picked, i)
		if len(picked) == MaxReranked {
			break
		}
	}
	if len(parsed.Indices) > 0 && len(picked) == 0 {
		return nil, fmt.Errorf("%w: every rerank index out of range", ai.ErrMalformedResponse)
	}
	return picked, nil
}
