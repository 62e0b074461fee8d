package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"

	"lawgpt/internal/ai"
	"lawgpt/internal/model"
)

type fakeStore struct {
	docs      map[uint]model.LegalDocument
	order     []uint
	neighbors []Neighbor
	nnErr     error
	lastK     int
	scans     int
}

func newFakeStore(docs ...model.LegalDocument) *fakeStore {
	s := &fakeStore{docs: make(map[uint]model.LegalDocument)}
	for _, d := range docs {
		s.docs[d.ID] = d
		s.order = append(s.order, d.ID)
	}
	return s
}

func (s *fakeStore) NearestNeighbors(ctx context.Context, vec []float32, k int) ([]Neighbor, error) {
	s.lastK = k
	if s.nnErr != nil {
		return nil, s.nnErr
	}
	if len(s.neighbors) > k {
		return s.neighbors[:k], nil
	}
	return s.neighbors, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uint) (*model.LegalDocument, error) {
	d, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *fakeStore) ScanLike(ctx context.Context, pattern string, afterID uint, limit int) ([]model.LegalDocument, error) {
	s.scans++
	var out []model.LegalDocument
	for _, id := range s.order {
		d := s.docs[id]
		if id <= afterID {
			continue
		}
		if strings.Contains(strings.ToLower(d.Text), strings.ToLower(pattern)) {
			out = append(out, d)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if len(e.errs) > 0 {
		err := e.errs[0]
		e.errs = e.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []float32{1, 0, 0}, nil
}

// fakeCompleter replays replies in order; the last one repeats.
type fakeCompleter struct {
	mu      sync.Mutex
	calls   int
	replies []string
	errs    []error
	last    ai.CompletionRequest
}

func (c *fakeCompleter) Complete(ctx context.Context, in ai.CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	c.last = in
	if len(c.errs) > 0 {
		if err := c.errs[min(i, len(c.errs)-1)]; err != nil {
			return "", err
		}
	}
	if len(c.replies) == 0 {
		return "", errors.New("no reply configured")
	}
	return c.replies[min(i, len(c.replies)-1)], nil
}

var errRateLimited = &ai.APIError{Op: "test", StatusCode: 429}

func doc(id uint, source, text string) model.LegalDocument {
	return model.LegalDocument{ID: id, Source: source, Text: text}
}
