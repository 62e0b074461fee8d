package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"lawgpt/internal/model"
)

type JudicialStatRepository struct {
	db *gorm.DB
}

func NewJudicialStatRepository(db *gorm.DB) *JudicialStatRepository {
	return &JudicialStatRepository{db: db}
}

func (r *JudicialStatRepository) Create(ctx context.Context, stat *model.JudicialStat) error {
	if err := r.db.WithContext(ctx).Create(stat).Error; err != nil {
		return fmt.Errorf("create judicial stat failed: %w", err)
	}
	return nil
}

// LatestPerMetric returns the newest row of each metric. metricLike is a SQL
// LIKE pattern; empty selects every metric.
func (r *JudicialStatRepository) LatestPerMetric(ctx context.Context, metricLike string) ([]model.JudicialStat, error) {
	latest := r.db.Model(&model.JudicialStat{}).
		Select("metric, MAX(fetched_at) AS fetched_at").
		Group("metric")
	if metricLike != "" {
		latest = latest.Where("metric LIKE ?", metricLike)
	}

	var stats []model.JudicialStat
	err := r.db.WithContext(ctx).
		Table("judicial_stats AS s").
		Select("s.*").
		Joins("JOIN (?) AS latest ON latest.metric = s.metric AND latest.fetched_at = s.fetched_at", latest).
		Order("s.id ASC").
		Find(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("query latest judicial stats failed: %w", err)
	}
	return stats, nil
}
