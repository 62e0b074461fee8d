// Package store composes the corpus backends behind one query surface.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"lawgpt/internal/model"
	"lawgpt/internal/retrieval"
	"lawgpt/internal/vectorindex"
)

const reloadPageSize = 500

// Corpus is what ingestion and the pipeline need from a document store.
type Corpus interface {
	retrieval.Store
	CreateBatch(ctx context.Context, docs []model.LegalDocument) error
	Count(ctx context.Context) (int64, error)
}

// Reloader is implemented by corpora that keep an in-process index.
type Reloader interface {
	Reload(ctx context.Context) (int, error)
}

// DocumentRows is the relational side of MySQLCorpus.
type DocumentRows interface {
	retrieval.DocumentReader
	CreateBatch(ctx context.Context, docs []model.LegalDocument) error
	ListPage(ctx context.Context, afterID uint, limit int) ([]model.LegalDocument, error)
	Count(ctx context.Context) (int64, error)
}

// MySQLCorpus stores passages in MySQL and serves nearest-neighbour
// queries from an in-process index rebuilt at startup.
type MySQLCorpus struct {
	rows  DocumentRows
	index *vectorindex.Index
}

func NewMySQLCorpus(rows DocumentRows, index *vectorindex.Index) *MySQLCorpus {
	return &MySQLCorpus{rows: rows, index: index}
}

func (c *MySQLCorpus) GetByID(ctx context.Context, id uint) (*model.LegalDocument, error) {
	return c.rows.GetByID(ctx, id)
}

func (c *MySQLCorpus) ScanLike(ctx context.Context, pattern string, afterID uint, limit int) ([]model.LegalDocument, error) {
	return c.rows.ScanLike(ctx, pattern, afterID, limit)
}

func (c *MySQLCorpus) Count(ctx context.Context) (int64, error) {
	return c.rows.Count(ctx)
}

func (c *MySQLCorpus) NearestNeighbors(ctx context.Context, vec []float32, k int) ([]retrieval.Neighbor, error) {
	results, err := c.index.Search(vec, k)
	if err != nil {
		return nil, err
	}
	out := make([]retrieval.Neighbor, len(results))
	for i, r := range results {
		out[i] = retrieval.Neighbor{DocumentID: r.ID, Distance: r.Distance}
	}
	return out, nil
}

// CreateBatch persists docs, then makes them searchable. Every embedding is
// checked against the index first so a bad batch writes no rows.
func (c *MySQLCorpus) CreateBatch(ctx context.Context, docs []model.LegalDocument) error {
	vectors := make([][]float32, len(docs))
	for i := range docs {
		vectors[i] = docs[i].EmbeddingVector()
		if err := c.index.Fits(vectors[i]); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	if err := c.rows.CreateBatch(ctx, docs); err != nil {
		return err
	}
	entries := make([]vectorindex.Entry, 0, len(docs))
	for i := range docs {
		entries = append(entries, vectorindex.Entry{ID: docs[i].ID, Vector: vectors[i]})
	}
	if err := c.index.Add(entries...); err != nil {
		return fmt.Errorf("index new documents failed: %w", err)
	}
	return nil
}

// Reload rebuilds the index from the table. Rows whose embedding does not
// match the index dimension are skipped and logged.
func (c *MySQLCorpus) Reload(ctx context.Context) (int, error) {
	var (
		entries []vectorindex.Entry
		afterID uint
		skipped int
	)
	for {
		page, err := c.rows.ListPage(ctx, afterID, reloadPageSize)
		if err != nil {
			return 0, err
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			vec := page[i].EmbeddingVector()
			if len(vec) != c.index.Dimensions() {
				skipped++
				continue
			}
			entries = append(entries, vectorindex.Entry{ID: page[i].ID, Vector: vec})
		}
		afterID = page[len(page)-1].ID
	}

	if err := c.index.Load(entries); err != nil {
		return 0, fmt.Errorf("load vector index failed: %w", err)
	}
	if skipped > 0 {
		slog.WarnContext(ctx, "skipped documents with unusable embeddings", slog.Int("skipped", skipped))
	}
	return len(entries), nil
}
