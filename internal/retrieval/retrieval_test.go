package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"lawgpt/internal/ai"
	"lawgpt/internal/model"
	"lawgpt/internal/pkg/retry"
)

const (
	constitution = "Constitution of India"
	bns          = "Bharatiya Nyaya Sanhita 2023"
)

var fastRetry = retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}

func TestStructuralLookupMatchesWholeNumber(t *testing.T) {
	store := newFakeStore(
		doc(1, constitution, "Article 210. Language to be used in the Legislature."),
		doc(2, constitution, "Article 21. Protection of life and personal liberty."),
		doc(3, constitution, "Article 21A. Right to education."),
	)
	hits, err := NewStructuralLookup(store).FindByArticle(context.Background(), "21", model.ScopeAll)
	if err != nil {
		t.Fatalf("FindByArticle: %v", err)
	}
	if len(hits) != 1 || hits[0].DocumentID != 2 {
		t.Fatalf("hits = %+v, want only document 2", hits)
	}
	if hits[0].Distance != nil {
		t.Fatal("structural hits carry no distance")
	}
}

func TestStructuralLookupCapsAndScopes(t *testing.T) {
	var docs []model.LegalDocument
	for i := uint(1); i <= 8; i++ {
		docs = append(docs, doc(i, bns, fmt.Sprintf("Section 103 part %d", i)))
	}
	docs = append(docs, doc(20, constitution, "Section 103 appears here too"))
	store := newFakeStore(docs...)
	lookup := NewStructuralLookup(store)

	hits, err := lookup.FindBySection(context.Background(), "103", model.ScopeAll)
	if err != nil {
		t.Fatalf("FindBySection: %v", err)
	}
	if len(hits) != 5 {
		t.Fatalf("len(hits) = %d, want 5", len(hits))
	}

	scoped, _ := lookup.FindBySection(context.Background(), "103", model.ScopeConstitution)
	if len(scoped) != 1 || scoped[0].DocumentID != 20 {
		t.Fatalf("scoped = %+v, want document 20", scoped)
	}
}

func TestStructuralLookupPagesPastLongerNumbers(t *testing.T) {
	var docs []model.LegalDocument
	for i := uint(1); i <= 25; i++ {
		docs = append(docs, doc(i, constitution, fmt.Sprintf("Subject to Article 2%d, Parliament may by law provide.", i)))
	}
	docs = append(docs, doc(26, constitution, "Article 2. Admission or establishment of new States."))
	store := newFakeStore(docs...)

	hits, err := NewStructuralLookup(store).FindByArticle(context.Background(), "2", model.ScopeAll)
	if err != nil {
		t.Fatalf("FindByArticle: %v", err)
	}
	if len(hits) != 1 || hits[0].DocumentID != 26 {
		t.Fatalf("hits = %+v, want only document 26", hits)
	}
	if store.scans != 2 {
		t.Fatalf("scans = %d, want 2 pages", store.scans)
	}
}

func TestStructuralLookupStopsOnceFull(t *testing.T) {
	var docs []model.LegalDocument
	for i := uint(1); i <= 60; i++ {
		docs = append(docs, doc(i, bns, fmt.Sprintf("Section 303 part %d", i)))
	}
	store := newFakeStore(docs...)

	hits, err := NewStructuralLookup(store).FindBySection(context.Background(), "303", model.ScopeAll)
	if err != nil {
		t.Fatalf("FindBySection: %v", err)
	}
	if len(hits) != 5 || store.scans != 1 {
		t.Fatalf("len(hits) = %d after %d scans, want 5 after 1", len(hits), store.scans)
	}
}

func TestSemanticSearchAppliesDistanceThreshold(t *testing.T) {
	store := newFakeStore(
		doc(1, bns, "murder"),
		doc(2, bns, "theft"),
		doc(3, bns, "far away"),
	)
	store.neighbors = []Neighbor{{1, 0.2}, {2, 0.85}, {3, 0.86}}
	r := NewSemanticRetriever(store, &fakeEmbedder{}, nil, SemanticConfig{MaxDistance: 0.85, MaxResults: 5, Retry: fastRetry})

	res, err := r.Search(context.Background(), "q", 0, model.ScopeAll)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if store.lastK != DefaultTopK {
		t.Fatalf("k = %d, want default %d", store.lastK, DefaultTopK)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("hits = %+v, want 2", res.Hits)
	}
	for _, h := range res.Hits {
		if h.Distance == nil || *h.Distance > 0.85 {
			t.Fatalf("hit beyond threshold: %+v", h)
		}
	}
}

func TestSemanticSearchFiltersScopeAndUntraceable(t *testing.T) {
	store := newFakeStore(
		doc(1, constitution, "liberty"),
		doc(2, bns, "theft"),
		doc(3, "", "orphan passage"),
	)
	store.neighbors = []Neighbor{{1, 0.1}, {2, 0.2}, {3, 0.3}, {99, 0.4}}
	r := NewSemanticRetriever(store, &fakeEmbedder{}, nil, SemanticConfig{Retry: fastRetry})

	res, err := r.Search(context.Background(), "q", 8, model.ScopeCriminal)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].DocumentID != 2 {
		t.Fatalf("hits = %+v, want only the BNS passage", res.Hits)
	}

	all, _ := r.Search(context.Background(), "q", 8, model.ScopeAll)
	for _, h := range all.Hits {
		if h.Source == "" {
			t.Fatalf("untraceable hit surfaced: %+v", h)
		}
	}
}

func TestSemanticSearchCapsResults(t *testing.T) {
	var docs []model.LegalDocument
	var neighbors []Neighbor
	for i := uint(1); i <= 8; i++ {
		docs = append(docs, doc(i, bns, fmt.Sprintf("passage %d", i)))
		neighbors = append(neighbors, Neighbor{i, float64(i) / 100})
	}
	store := newFakeStore(docs...)
	store.neighbors = neighbors
	completer := &fakeCompleter{replies: []string{`{"indices":[7,6,5,4,3,2]}`}}
	r := NewSemanticRetriever(store, &fakeEmbedder{}, NewReranker(completer, fastRetry), SemanticConfig{MaxResults: 3, Retry: fastRetry})

	res, err := r.Search(context.Background(), "q", 8, model.ScopeAll)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 3 || res.Hits[0].DocumentID != 8 {
		t.Fatalf("hits = %+v, want reranked top 3 starting at document 8", res.Hits)
	}
	if res.Candidates != 8 || res.RerankerFallback {
		t.Fatalf("result = %+v", res)
	}
}

func TestSemanticSearchRetriesTransientEmbedding(t *testing.T) {
	store := newFakeStore(doc(1, bns, "theft"))
	store.neighbors = []Neighbor{{1, 0.1}}
	embedder := &fakeEmbedder{errs: []error{errRateLimited, errRateLimited}}
	r := NewSemanticRetriever(store, embedder, nil, SemanticConfig{Retry: fastRetry})

	res, err := r.Search(context.Background(), "q", 8, model.ScopeAll)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if embedder.calls != 3 || len(res.Hits) != 1 {
		t.Fatalf("calls = %d hits = %d", embedder.calls, len(res.Hits))
	}
}

func TestSemanticSearchSurfacesPermanentEmbeddingError(t *testing.T) {
	denied := &ai.APIError{Op: "embedding", StatusCode: 401}
	embedder := &fakeEmbedder{errs: []error{denied}}
	r := NewSemanticRetriever(newFakeStore(), embedder, nil, SemanticConfig{Retry: fastRetry})

	_, err := r.Search(context.Background(), "q", 8, model.ScopeAll)
	if !errors.As(err, new(*ai.APIError)) || ai.IsTransient(err) {
		t.Fatalf("err = %v, want permanent APIError", err)
	}
	if embedder.calls != 1 {
		t.Fatalf("calls = %d, want 1", embedder.calls)
	}
}

func TestSemanticSearchStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.nnErr = errors.New("connection reset")
	r := NewSemanticRetriever(store, &fakeEmbedder{}, nil, SemanticConfig{Retry: fastRetry})
	if _, err := r.Search(context.Background(), "q", 8, model.ScopeAll); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestSemanticSearchNoHits(t *testing.T) {
	store := newFakeStore(doc(1, bns, "far"))
	store.neighbors = []Neighbor{{1, 1.4}}
	completer := &fakeCompleter{replies: []string{`{"indices":[0]}`}}
	r := NewSemanticRetriever(store, &fakeEmbedder{}, NewReranker(completer, fastRetry), SemanticConfig{Retry: fastRetry})

	res, err := r.Search(context.Background(), "q", 8, model.ScopeAll)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 0 || completer.calls != 0 {
		t.Fatalf("hits = %d rerank calls = %d, want none", len(res.Hits), completer.calls)
	}
}

func candidates(n int) []Hit {
	out := make([]Hit, n)
	for i := range out {
		out[i] = Hit{DocumentID: uint(i + 1), Source: bns, Text: fmt.Sprintf("passage %d", i)}
	}
	return out
}

func TestRerankOrdersBySelection(t *testing.T) {
	completer := &fakeCompleter{replies: []string{`{"indices":[2,0,2,9,-1]}`}}
	res := NewReranker(completer, fastRetry).Rerank(context.Background(), "q", candidates(4))
	if res.UsedFallback {
		t.Fatal("unexpected fallback")
	}
	if len(res.Hits) != 2 || res.Hits[0].DocumentID != 3 || res.Hits[1].DocumentID != 1 {
		t.Fatalf("hits = %+v, want documents 3 then 1", res.Hits)
	}
	if completer.last.Schema == nil || completer.last.Schema.Name == "" {
		t.Fatal("rerank request must carry the response schema")
	}
}

func TestRerankFallsBackWhenEveryAttemptFails(t *testing.T) {
	completer := &fakeCompleter{errs: []error{errRateLimited}}
	res := NewReranker(completer, fastRetry).Rerank(context.Background(), "q", candidates(7))
	if !res.UsedFallback {
		t.Fatal("expected fallback")
	}
	if completer.calls != 3 {
		t.Fatalf("calls = %d, want 3 attempts", completer.calls)
	}
	if len(res.Hits) != MaxReranked || res.Hits[0].DocumentID != 1 {
		t.Fatalf("hits = %+v, want first %d in distance order", res.Hits, MaxReranked)
	}
}

func TestRerankRetriesMalformedReplies(t *testing.T) {
	completer := &fakeCompleter{replies: []string{"Sure! [1, 2]", `{"idx":[1]}`, `{"indices":[1]}`}}
	res := NewReranker(completer, fastRetry).Rerank(context.Background(), "q", candidates(3))
	if res.UsedFallback || len(res.Hits) != 1 || res.Hits[0].DocumentID != 2 {
		t.Fatalf("res = %+v, want document 2 after two bad replies", res)
	}
	if completer.calls != 3 {
		t.Fatalf("calls = %d, want 3", completer.calls)
	}
}

func TestRerankAllOutOfRangeDegrades(t *testing.T) {
	completer := &fakeCompleter{replies: []string{`{"indices":[10,11]}`}}
	res := NewReranker(completer, fastRetry).Rerank(context.Background(), "q", candidates(2))
	if !res.UsedFallback || len(res.Hits) != 2 {
		t.Fatalf("res = %+v, want fallback with both candidates", res)
	}
}

func TestRerankPermanentErrorDegradesWithoutRetry(t *testing.T) {
	completer := &fakeCompleter{errs: []error{&ai.APIError{Op: "test", StatusCode: 401}}}
	res := NewReranker(completer, fastRetry).Rerank(context.Background(), "q", candidates(2))
	if !res.UsedFallback || completer.calls != 1 {
		t.Fatalf("res = %+v calls = %d", res, completer.calls)
	}
}

func TestRerankHonoursEmptySelection(t *testing.T) {
	completer := &fakeCompleter{replies: []string{`{"indices":[]}`}}
	res := NewReranker(completer, fastRetry).Rerank(context.Background(), "q", candidates(3))
	if res.UsedFallback || len(res.Hits) != 0 {
		t.Fatalf("res = %+v, want empty reranked result", res)
	}
}

func TestRerankWithoutCompleter(t *testing.T) {
	res := NewReranker(nil, fastRetry).Rerank(context.Background(), "q", candidates(6))
	if !res.UsedFallback || len(res.Hits) != MaxReranked {
		t.Fatalf("res = %+v", res)
	}
	if empty := NewReranker(nil, fastRetry).Rerank(context.Background(), "q", nil); len(empty.Hits) != 0 || empty.UsedFallback {
		t.Fatalf("empty candidates = %+v", empty)
	}
}

func TestAssembleNeverExceedsBudget(t *testing.T) {
	hits := make([]Hit, 6)
	for i := range hits {
		hits[i] = Hit{Source: bns, SectionNumber: fmt.Sprint(100 + i), Text: strings.Repeat("word ", 40*(i+1))}
	}
	a := NewAssembler(300)
	for budget := 0; budget <= 3000; budget += 37 {
		ctx, sources := a.Assemble(hits, budget)
		if n := utf8.RuneCountInString(ctx); n > budget {
			t.Fatalf("budget %d: assembled %d characters", budget, n)
		}
		if got := strings.Count(ctx, "[SOURCE "); got != len(sources) {
			t.Fatalf("budget %d: %d blocks but %d sources", budget, got, len(sources))
		}
	}
}

func TestAssembleStopsAtFirstBlockThatDoesNotFit(t *testing.T) {
	hits := []Hit{
		{Source: bns, Text: "short one"},
		{Source: bns, Text: strings.Repeat("x", 500)},
		{Source: bns, Text: "short two"},
	}
	ctx, sources := NewAssembler(2000).Assemble(hits, 200)
	if len(sources) != 1 {
		t.Fatalf("sources = %+v, want only the first block", sources)
	}
	if strings.Contains(ctx, "short two") {
		t.Fatal("assembler skipped ahead past a block that did not fit")
	}
}

func TestAssembleFormatsBlocksAndSources(t *testing.T) {
	page := 12
	d := 0.12345
	hits := []Hit{{
		Source:        "Constitution_of_India.pdf",
		Article:       "21",
		Page:          &page,
		Text:          "No person shall be deprived ____ of his life Page 12 \x07 or   personal liberty.",
		Distance:      &d,
		SectionNumber: "",
	}}
	ctx, sources := NewAssembler(2000).Assemble(hits, DefaultContextBudget)

	wantHeader := "[SOURCE 1] Article 21 | File: Constitution of India"
	if !strings.HasPrefix(ctx, wantHeader+"\n") {
		t.Fatalf("context = %q, want header %q", ctx, wantHeader)
	}
	if !strings.HasSuffix(ctx, "No person shall be deprived of his life or personal liberty.") {
		t.Fatalf("context body not cleaned: %q", ctx)
	}
	if len(sources) != 1 || sources[0].Source != "Constitution of India" || *sources[0].Page != 12 {
		t.Fatalf("sources = %+v", sources)
	}
	if *sources[0].RelevanceScore != 0.123 {
		t.Fatalf("relevance = %v, want 0.123", *sources[0].RelevanceScore)
	}
}

func TestAssembleTruncatesPerItem(t *testing.T) {
	hits := []Hit{{Source: bns, Text: strings.Repeat("a", 50)}}
	ctx, _ := NewAssembler(10).Assemble(hits, 1000)
	if !strings.HasSuffix(ctx, strings.Repeat("a", 10)+"...") {
		t.Fatalf("context = %q, want truncated body", ctx)
	}
}

func TestCleanText(t *testing.T) {
	in := "Section 303 ____ Theft.\n\n\tWhoever ..... intends​ Page 44 to take"
	want := "Section 303 Theft. Whoever intends to take"
	if got := CleanText(in); got != want {
		t.Fatalf("CleanText = %q, want %q", got, want)
	}
}
