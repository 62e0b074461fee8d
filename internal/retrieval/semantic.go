package retrieval

import (
	"context"
	"fmt"

	"lawgpt/internal/ai"
	"lawgpt/internal/model"
	"lawgpt/internal/pkg/retry"
)

const (
	DefaultTopK        = 8
	DefaultMaxDistance = 0.85
	DefaultMaxResults  = 3
)

type SemanticConfig struct {
	TopK        int
	MaxDistance float64
	MaxResults  int
	Retry       retry.Policy
}

// SearchResult is what the semantic path hands to the answer stage.
type SearchResult struct {
	Hits             []Hit
	Candidates       int
	RerankerFallback bool
}

// SemanticRetriever runs embed, nearest neighbours, scope and distance
// filtering, then reranking.
type SemanticRetriever struct {
	store    Store
	embedder Embedder
	reranker *Reranker
	cfg      SemanticConfig
}

func NewSemanticRetriever(store Store, embedder Embedder, reranker *Reranker, cfg SemanticConfig) *SemanticRetriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = DefaultMaxDistance
	}
	if cfg.MaxResults <= 0 || cfg.MaxResults > MaxReranked {
		cfg.MaxResults = DefaultMaxResults
	}
	return &SemanticRetriever{store: store, embedder: embedder, reranker: reranker, cfg: cfg}
}

// Search returns at most MaxResults hits, none farther than MaxDistance.
// k <= 0 uses the configured TopK. Embedding failures are returned so the
// caller can tell a busy provider from an empty result.
func (r *SemanticRetriever) Search(ctx context.Context, question string, k int, scope model.Scope) (SearchResult, error) {
	if k <= 0 {
		k = r.cfg.TopK
	}

	var vec []float32
	err := r.cfg.Retry.Do(ctx, ai.IsTransient, func(ctx context.Context) error {
		var err error
		vec, err = r.embedder.Embed(ctx, question)
		return err
	})
	if err != nil {
		return SearchResult{}, fmt.Errorf("embed question failed: %w", err)
	}

	neighbors, err := r.store.NearestNeighbors(ctx, vec, k)
	if err != nil {
		return SearchResult{}, fmt.Errorf("%w: nearest neighbours: %v", ErrStoreUnavailable, err)
	}

	candidates := make([]Hit, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Distance > r.cfg.MaxDistance {
			continue
		}
		doc, err := r.store.GetByID(ctx, n.DocumentID)
		if err != nil {
			return SearchResult{}, fmt.Errorf("%w: load document %d: %v", ErrStoreUnavailable, n.DocumentID, err)
		}
		if doc == nil || !scope.Matches(doc.Source) {
			continue
		}
		distance := n.Distance
		candidates = append(candidates, HitFromDocument(*doc, &distance))
	}
	candidates = keepTraceable(candidates)

	out := SearchResult{Candidates: len(candidates)}
	if len(candidates) == 0 {
		return out, nil
	}

	selected := RerankResult{Hits: candidates}
	if r.reranker != nil {
		selected = r.reranker.Rerank(ctx, question, candidates)
	}
	out.RerankerFallback = selected.UsedFallback
	out.Hits = selected.Hits
	if len(out.Hits) > r.cfg.MaxResults {
		out.Hits = out.Hits[:r.cfg.MaxResults]
	}
	return out, nil
}
