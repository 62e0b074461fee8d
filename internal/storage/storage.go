// Package storage reads and keeps the law-book source files that get
// ingested into the corpus.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("file not found")

type Storage interface {
	// Save stores an uploaded source file and returns its key.
	Save(ctx context.Context, filename string, data io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

type Config struct {
	Type         Type
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	case TypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("s3 bucket is required for s3 storage")
		}
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// uploadKey gives every upload a unique key that keeps the original name
// readable, e.g. "uploads/3f/3f2a..._Constitution_of_India.pdf".
func uploadKey(id uuid.UUID, filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	name := strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(strings.TrimSuffix(base, ext))
	s := id.String()
	return fmt.Sprintf("uploads/%s/%s_%s%s", s[:2], s, name, ext)
}

// DisplayName recovers the original file name from an upload key.
func DisplayName(key string) string {
	base := filepath.Base(key)
	if len(base) > 37 && base[36] == '_' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}
	return base
}
