package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lawgpt/internal/model"
	"lawgpt/internal/retrieval"
)

// PgvectorDocumentRepository keeps passages and their embeddings in
// Postgres and answers nearest-neighbour queries with the pgvector L2
// operator.
type PgvectorDocumentRepository struct {
	db         *pgxpool.Pool
	dimensions int
}

func NewPgvectorDocumentRepository(db *pgxpool.Pool, dimensions int) *PgvectorDocumentRepository {
	return &PgvectorDocumentRepository{db: db, dimensions: dimensions}
}

// EnsureSchema creates the extension, table and index if missing.
func (r *PgvectorDocumentRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS legal_documents (
			id BIGSERIAL PRIMARY KEY,
			source VARCHAR(256) NOT NULL,
			text TEXT NOT NULL,
			page INTEGER,
			article VARCHAR(32) NOT NULL DEFAULT '',
			section_number VARCHAR(32) NOT NULL DEFAULT '',
			section_title VARCHAR(256) NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, r.dimensions),
		"CREATE INDEX IF NOT EXISTS legal_documents_source_idx ON legal_documents (source)",
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure pgvector schema failed: %w", err)
		}
	}
	return nil
}

func (r *PgvectorDocumentRepository) CreateBatch(ctx context.Context, docs []model.LegalDocument) error {
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range docs {
		vec := docs[i].EmbeddingVector()
		if len(vec) != r.dimensions {
			return fmt.Errorf("document %d: embedding must be %d dimensions, got %d", i, r.dimensions, len(vec))
		}
		batch.Queue(`INSERT INTO legal_documents (source, text, page, article, section_number, section_title, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7::vector) RETURNING id, created_at`,
			docs[i].Source, docs[i].Text, docs[i].Page, docs[i].Article, docs[i].SectionNumber, docs[i].SectionTitle, formatVector(vec))
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for i := range docs {
		var id int64
		if err := results.QueryRow().Scan(&id, &docs[i].CreatedAt); err != nil {
			return fmt.Errorf("insert legal document %d failed: %w", i, err)
		}
		docs[i].ID = uint(id)
	}
	return nil
}

func (r *PgvectorDocumentRepository) NearestNeighbors(ctx context.Context, vec []float32, k int) ([]retrieval.Neighbor, error) {
	if len(vec) != r.dimensions {
		return nil, fmt.Errorf("query embedding must be %d dimensions, got %d", r.dimensions, len(vec))
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, embedding <-> $1::vector AS distance
		FROM legal_documents
		ORDER BY embedding <-> $1::vector
		LIMIT $2`, formatVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("query nearest legal documents failed: %w", err)
	}
	defer rows.Close()

	var out []retrieval.Neighbor
	for rows.Next() {
		var id int64
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, fmt.Errorf("scan neighbour failed: %w", err)
		}
		out = append(out, retrieval.Neighbor{DocumentID: uint(id), Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbours failed: %w", err)
	}
	return out, nil
}

const documentColumns = "id, source, text, page, article, section_number, section_title, created_at"

func (r *PgvectorDocumentRepository) GetByID(ctx context.Context, id uint) (*model.LegalDocument, error) {
	row := r.db.QueryRow(ctx, "SELECT "+documentColumns+" FROM legal_documents WHERE id = $1", int64(id))
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query legal document by id failed: %w", err)
	}
	return doc, nil
}

func (r *PgvectorDocumentRepository) ScanLike(ctx context.Context, pattern string, afterID uint, limit int) ([]model.LegalDocument, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		"SELECT "+documentColumns+" FROM legal_documents WHERE id > $1 AND text ILIKE $2 ORDER BY id LIMIT $3",
		int64(afterID), "%"+EscapeLike(pattern)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("scan legal documents failed: %w", err)
	}
	defer rows.Close()

	var docs []model.LegalDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan legal document failed: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legal documents failed: %w", err)
	}
	return docs, nil
}

func (r *PgvectorDocumentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM legal_documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("count legal documents failed: %w", err)
	}
	return n, nil
}

func scanDocument(row pgx.Row) (*model.LegalDocument, error) {
	var (
		doc  model.LegalDocument
		id   int64
		page *int32
	)
	if err := row.Scan(&id, &doc.Source, &doc.Text, &page, &doc.Article, &doc.SectionNumber, &doc.SectionTitle, &doc.CreatedAt); err != nil {
		return nil, err
	}
	doc.ID = uint(id)
	if page != nil {
		p := int(*page)
		doc.Page = &p
	}
	return &doc, nil
}

// formatVector renders an embedding in pgvector's text input format.
func formatVector(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
