package retrieval

import (
	"context"
	"fmt"
	"regexp"

	"lawgpt/internal/model"
)

const (
	structuralLimit = 5
	scanPageSize    = structuralLimit * 4
)

// StructuralLookup answers exact "Article n" / "Section n" citations from a
// text scan, bypassing vector search.
type StructuralLookup struct {
	docs DocumentReader
}

func NewStructuralLookup(docs DocumentReader) *StructuralLookup {
	return &StructuralLookup{docs: docs}
}

func (s *StructuralLookup) FindByArticle(ctx context.Context, number string, scope model.Scope) ([]Hit, error) {
	return s.find(ctx, "Article", number, scope)
}

func (s *StructuralLookup) FindBySection(ctx context.Context, number string, scope model.Scope) ([]Hit, error) {
	return s.find(ctx, "Section", number, scope)
}

// find pages through the LIKE scan and keeps whole-number matches, so
// "Article 21" does not return "Article 210". Paging continues until enough
// matches are found or the scan is exhausted; longer numbers sharing the
// prefix cannot crowd out the cited one.
func (s *StructuralLookup) find(ctx context.Context, label, number string, scope model.Scope) ([]Hit, error) {
	if number == "" {
		return nil, nil
	}
	literal := fmt.Sprintf("%s %s", label, number)
	exact := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(literal) + `\b`)

	hits := make([]Hit, 0, structuralLimit)
	var afterID uint
	for {
		docs, err := s.docs.ScanLike(ctx, literal, afterID, scanPageSize)
		if err != nil {
			return nil, fmt.Errorf("scan %q failed: %w", literal, err)
		}
		for _, doc := range docs {
			if !exact.MatchString(doc.Text) || !scope.Matches(doc.Source) {
				continue
			}
			hits = append(hits, HitFromDocument(doc, nil))
			if len(hits) == structuralLimit {
				return keepTraceable(hits), nil
			}
		}
		if len(docs) < scanPageSize {
			return keepTraceable(hits), nil
		}
		afterID = docs[len(docs)-1].ID
	}
}
