package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"lawgpt/internal/model"
)

type OperatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) Create(ctx context.Context, op *model.Operator) error {
	if err := r.db.WithContext(ctx).Create(op).Error; err != nil {
		return fmt.Errorf("create operator failed: %w", err)
	}
	return nil
}

func (r *OperatorRepository) GetByUsername(ctx context.Context, username string) (*model.Operator, error) {
	var op model.Operator
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query operator by username failed: %w", err)
	}
	return &op, nil
}

func (r *OperatorRepository) GetByID(ctx context.Context, id uint) (*model.Operator, error) {
	var op model.Operator
	if err := r.db.WithContext(ctx).First(&op, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query operator by id failed: %w", err)
	}
	return &op, nil
}
