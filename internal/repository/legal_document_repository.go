package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"lawgpt/internal/model"
)

type LegalDocumentRepository struct {
	db *gorm.DB
}

func NewLegalDocumentRepository(db *gorm.DB) *LegalDocumentRepository {
	return &LegalDocumentRepository{db: db}
}

// CreateBatch inserts docs and fills in their IDs.
func (r *LegalDocumentRepository) CreateBatch(ctx context.Context, docs []model.LegalDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&docs, 100).Error; err != nil {
		return fmt.Errorf("create legal documents batch failed: %w", err)
	}
	return nil
}

func (r *LegalDocumentRepository) GetByID(ctx context.Context, id uint) (*model.LegalDocument, error) {
	var doc model.LegalDocument
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query legal document by id failed: %w", err)
	}
	return &doc, nil
}

// ScanLike returns documents whose text contains pattern, in id order,
// starting after afterID.
func (r *LegalDocumentRepository) ScanLike(ctx context.Context, pattern string, afterID uint, limit int) ([]model.LegalDocument, error) {
	if limit <= 0 {
		limit = 20
	}
	var docs []model.LegalDocument
	err := r.db.WithContext(ctx).
		Where("id > ? AND text LIKE ?", afterID, "%"+EscapeLike(pattern)+"%").
		Order("id ASC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("scan legal documents failed: %w", err)
	}
	return docs, nil
}

// ListPage walks the corpus by id for index loading. Pass the last seen id
// as afterID; an empty page means done.
func (r *LegalDocumentRepository) ListPage(ctx context.Context, afterID uint, limit int) ([]model.LegalDocument, error) {
	var docs []model.LegalDocument
	err := r.db.WithContext(ctx).
		Select("id", "source", "embedding").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list legal documents failed: %w", err)
	}
	return docs, nil
}

func (r *LegalDocumentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.LegalDocument{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count legal documents failed: %w", err)
	}
	return n, nil
}

// EscapeLike quotes LIKE wildcards so pattern matches literally.
func EscapeLike(pattern string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(pattern)
}
