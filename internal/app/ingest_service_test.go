package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"lawgpt/internal/ai"
	"lawgpt/internal/model"
	"lawgpt/internal/pkg/chunker"
	"lawgpt/internal/pkg/retry"
	"lawgpt/internal/storage"
)

type fakeBatchEmbedder struct {
	calls []int
	errs  []error
}

func (f *fakeBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, len(texts))
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

type fakeDocumentWriter struct {
	docs []model.LegalDocument
}

func (f *fakeDocumentWriter) CreateBatch(ctx context.Context, docs []model.LegalDocument) error {
	f.docs = append(f.docs, docs...)
	return nil
}

const bnsExcerpt = "103. Punishment for murder.—Whoever commits murder shall be punished with death.\f" +
	"104. Punishment for murder by life-convict.—Whoever, being under sentence of imprisonment for life, commits murder.\n"

func newIngestFixture(t *testing.T, name, content string) (*storage.LocalStorage, string) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key, err := files.Save(context.Background(), name, strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	return files, key
}

func TestIngestTextSource(t *testing.T) {
	files, key := newIngestFixture(t, "Bharatiya_Nyaya_Sanhita.txt", bnsExcerpt)
	embedder := &fakeBatchEmbedder{}
	writer := &fakeDocumentWriter{}
	svc := NewIngestService(files, writer, embedder, retry.Policy{Attempts: 1})

	res, err := svc.Ingest(context.Background(), IngestInput{Key: key, Kind: chunker.KindCriminal})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != "Bharatiya_Nyaya_Sanhita.txt" || res.Pages != 2 || res.Chunks != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(writer.docs) != 2 {
		t.Fatalf("wrote %d docs", len(writer.docs))
	}
	first := writer.docs[0]
	if first.SectionNumber != "103" || first.SectionTitle != "Punishment for murder" {
		t.Errorf("first doc = %+v", first)
	}
	if first.Page == nil || *first.Page != 1 || *writer.docs[1].Page != 2 {
		t.Errorf("pages not carried through")
	}
	if len(first.EmbeddingVector()) != 2 {
		t.Errorf("embedding = %q", first.Embedding)
	}
}

func TestIngestBatchesEmbeddings(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 23; i++ {
		fmt.Fprintf(&b, "Section %d. Heading %d.—Body text.\n", 100+i, i)
	}
	files, key := newIngestFixture(t, "guide.txt", b.String())
	embedder := &fakeBatchEmbedder{}
	writer := &fakeDocumentWriter{}
	svc := NewIngestService(files, writer, embedder, retry.Policy{Attempts: 1})

	res, err := svc.Ingest(context.Background(), IngestInput{Key: key, Source: "Legal Aid Guide", Kind: chunker.KindGeneric})
	if err != nil {
		t.Fatal(err)
	}
	if res.Chunks != 23 || res.Source != "Legal Aid Guide" {
		t.Fatalf("result = %+v", res)
	}
	want := []int{10, 10, 3}
	if len(embedder.calls) != len(want) {
		t.Fatalf("batches = %v, want %v", embedder.calls, want)
	}
	for i := range want {
		if embedder.calls[i] != want[i] {
			t.Fatalf("batches = %v, want %v", embedder.calls, want)
		}
	}
}

func TestIngestRetriesTransientEmbeddingErrors(t *testing.T) {
	files, key := newIngestFixture(t, "bns.txt", bnsExcerpt)
	embedder := &fakeBatchEmbedder{errs: []error{&ai.APIError{Op: "embedding", StatusCode: 429}}}
	writer := &fakeDocumentWriter{}
	svc := NewIngestService(files, writer, embedder, retry.Policy{Attempts: 3})

	if _, err := svc.Ingest(context.Background(), IngestInput{Key: key, Kind: chunker.KindCriminal}); err != nil {
		t.Fatal(err)
	}
	if len(embedder.calls) != 2 || len(writer.docs) != 2 {
		t.Fatalf("calls = %v, docs = %d", embedder.calls, len(writer.docs))
	}
}

func TestIngestRejectsBadInput(t *testing.T) {
	files, key := newIngestFixture(t, "scan.docx", "binary")
	svc := NewIngestService(files, &fakeDocumentWriter{}, &fakeBatchEmbedder{}, retry.Policy{})

	if _, err := svc.Ingest(context.Background(), IngestInput{Key: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty key: err = %v", err)
	}
	if _, err := svc.Ingest(context.Background(), IngestInput{Key: key}); !errors.Is(err, ErrUnsupportedInput) {
		t.Errorf("docx: err = %v", err)
	}
	if _, err := svc.Ingest(context.Background(), IngestInput{Key: "uploads/none.txt"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}

	files, key = newIngestFixture(t, "blank.txt", "  \f \n")
	svc = NewIngestService(files, &fakeDocumentWriter{}, &fakeBatchEmbedder{}, retry.Policy{})
	if _, err := svc.Ingest(context.Background(), IngestInput{Key: key}); !errors.Is(err, ErrNothingToIngest) {
		t.Errorf("blank: err = %v", err)
	}
}
