package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"lawgpt/internal/ai"
	"lawgpt/internal/logging"
	"lawgpt/internal/model"
	"lawgpt/internal/pkg/chunker"
	"lawgpt/internal/pkg/pdfextract"
	"lawgpt/internal/pkg/retry"
	"lawgpt/internal/storage"
)

// Providers commonly cap embedding batches at around ten inputs.
const embeddingBatchSize = 10

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNothingToIngest  = errors.New("no extractable text in source file")
	ErrUnsupportedInput = errors.New("unsupported source file type")
)

type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type DocumentWriter interface {
	CreateBatch(ctx context.Context, docs []model.LegalDocument) error
}

type IngestInput struct {
	// Key is a storage key or, for local storage, a filesystem path.
	Key    string
	Source string
	Kind   chunker.Kind
}

type IngestResult struct {
	Source string `json:"source"`
	Pages  int    `json:"pages"`
	Chunks int    `json:"chunks"`
}

// IngestService loads a law book from storage, splits it into passages,
// embeds them and writes them to the corpus.
type IngestService struct {
	files    storage.Storage
	docs     DocumentWriter
	embedder BatchEmbedder
	retry    retry.Policy
}

func NewIngestService(files storage.Storage, docs DocumentWriter, embedder BatchEmbedder, policy retry.Policy) *IngestService {
	return &IngestService{files: files, docs: docs, embedder: embedder, retry: policy}
}

func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return nil, ErrInvalidInput
	}
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = storage.DisplayName(key)
	}

	pages, err := s.readPages(ctx, key)
	if err != nil {
		return nil, err
	}
	chunks := chunker.Split(pages, chunker.Options{Kind: in.Kind})
	if len(chunks) == 0 {
		return nil, ErrNothingToIngest
	}

	for i := 0; i < len(chunks); i += embeddingBatchSize {
		batch := chunks[i:min(i+embeddingBatchSize, len(chunks))]
		if err := s.writeBatch(ctx, source, batch); err != nil {
			return nil, fmt.Errorf("ingest chunks %d-%d of %s: %w", i, i+len(batch)-1, source, err)
		}
	}

	logging.FromContext(ctx).Info("source ingested",
		slog.String("source", source),
		slog.Int("pages", len(pages)),
		slog.Int("chunks", len(chunks)),
	)
	return &IngestResult{Source: source, Pages: len(pages), Chunks: len(chunks)}, nil
}

func (s *IngestService) readPages(ctx context.Context, key string) ([]chunker.Page, error) {
	rc, err := s.files.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	switch strings.ToLower(filepath.Ext(key)) {
	case ".pdf":
		extracted, err := pdfextract.ExtractPages(rc)
		if err != nil {
			return nil, err
		}
		pages := make([]chunker.Page, len(extracted))
		for i, p := range extracted {
			pages[i] = chunker.Page{Number: p.Number, Text: p.Text}
		}
		return pages, nil
	case ".txt", ".md", "":
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s failed: %w", key, err)
		}
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("%w: %s is not utf-8 text", ErrUnsupportedInput, key)
		}
		// Form feeds separate pages in text exports.
		var pages []chunker.Page
		for i, text := range strings.Split(string(b), "\f") {
			if strings.TrimSpace(text) != "" {
				pages = append(pages, chunker.Page{Number: i + 1, Text: text})
			}
		}
		return pages, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Ext(key))
	}
}

func (s *IngestService) writeBatch(ctx context.Context, source string, batch []chunker.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	var vectors [][]float32
	err := s.retry.Do(ctx, ai.IsTransient, func(ctx context.Context) error {
		var err error
		vectors, err = s.embedder.EmbedBatch(ctx, texts)
		return err
	})
	if err != nil {
		return err
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("%w: got %d embeddings for %d chunks", ai.ErrMalformedResponse, len(vectors), len(batch))
	}

	docs := make([]model.LegalDocument, len(batch))
	for i, c := range batch {
		docs[i] = model.LegalDocument{
			Source:        source,
			Text:          c.Text,
			Article:       c.Article,
			SectionNumber: c.SectionNumber,
			SectionTitle:  c.SectionTitle,
		}
		if c.Page > 0 {
			page := c.Page
			docs[i].Page = &page
		}
		docs[i].SetEmbedding(vectors[i])
	}
	return s.docs.CreateBatch(ctx, docs)
}
