package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lawgpt/internal/model"
)

type CaseRecordRepository struct {
	db *gorm.DB
}

func NewCaseRecordRepository(db *gorm.DB) *CaseRecordRepository {
	return &CaseRecordRepository{db: db}
}

func (r *CaseRecordRepository) GetByCNR(ctx context.Context, cnr string) (*model.CaseRecord, error) {
	var record model.CaseRecord
	if err := r.db.WithContext(ctx).Where("cnr = ?", cnr).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query case record failed: %w", err)
	}
	return &record, nil
}

// Upsert writes the latest importer view of a case.
func (r *CaseRecordRepository) Upsert(ctx context.Context, record *model.CaseRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("upsert case record failed: %w", err)
	}
	return nil
}
