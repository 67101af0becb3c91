package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mudit2103/csm-web/internal/model"
)

// OverrideRepository 单周改期数据访问接口
type OverrideRepository interface {
	Create(ctx context.Context, override *model.Override) error
	ListBySection(ctx context.Context, sectionID string) ([]model.Override, error)
	ExistsForWeek(ctx context.Context, sectionID string, weekStart time.Time) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type overrideRepo struct {
	db *gorm.DB
}

// NewOverrideRepo 创建 OverrideRepository 实例
func NewOverrideRepo(db *gorm.DB) OverrideRepository {
	return &overrideRepo{db: db}
}

func (r *overrideRepo) Create(ctx context.Context, override *model.Override) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(override).Error
}

func (r *overrideRepo) ListBySection(ctx context.Context, sectionID string) ([]model.Override, error) {
	var overrides []model.Override
	err := r.db.WithContext(ctx).
		Preload("Spacetime").
		Where("section_id = ?", sectionID).
		Order("week_start ASC").
		Find(&overrides).Error
	return overrides, err
}

func (r *overrideRepo) ExistsForWeek(ctx context.Context, sectionID string, weekStart time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Override{}).
		Where("section_id = ? AND week_start = ?", sectionID, weekStart).
		Count(&n).Error
	return n > 0, err
}

func (r *overrideRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Override{}).Count(&n).Error
	return n, err
}
