// Package retrieval finds law-book passages for a question and packs them
// into a bounded prompt context.
package retrieval

import (
	"context"
	"errors"

	"lawgpt/internal/ai"
	"lawgpt/internal/model"
)

var ErrStoreUnavailable = errors.New("document store unavailable")

// Hit is one passage chosen for a request. Distance is nil for exact
// structural matches.
type Hit struct {
	DocumentID    uint
	Text          string
	Source        string
	Page          *int
	Article       string
	SectionNumber string
	Distance      *float64
}

func HitFromDocument(doc model.LegalDocument, distance *float64) Hit {
	return Hit{
		DocumentID:    doc.ID,
		Text:          doc.Text,
		Source:        doc.Source,
		Page:          doc.Page,
		Article:       doc.Article,
		SectionNumber: doc.SectionNumber,
		Distance:      distance,
	}
}

// Neighbor is a nearest-neighbour result; smaller distance is closer.
type Neighbor struct {
	DocumentID uint
	Distance   float64
}

type NeighborSearcher interface {
	NearestNeighbors(ctx context.Context, vec []float32, k int) ([]Neighbor, error)
}

type DocumentReader interface {
	GetByID(ctx context.Context, id uint) (*model.LegalDocument, error)
	// ScanLike pages through documents containing pattern in id order,
	// starting after afterID.
	ScanLike(ctx context.Context, pattern string, afterID uint, limit int) ([]model.LegalDocument, error)
}

// Store is the query surface retrieval needs from the corpus.
type Store interface {
	NeighborSearcher
	DocumentReader
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, in ai.CompletionRequest) (string, error)
}

// keepTraceable drops hits that cannot be cited.
func keepTraceable(hits []Hit) []Hit {
	out := hits[:0:0]
	for _, h := range hits {
		if h.Source != "" {
			out = append(out, h)
		}
	}
	return out
}
