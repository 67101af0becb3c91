package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mudit2103/csm-web/internal/model"
)

// SpacetimeRepository 上课时空数据访问接口
type SpacetimeRepository interface {
	Create(ctx context.Context, st *model.Spacetime) error
	GetByID(ctx context.Context, id string) (*model.Spacetime, error)
}

type spacetimeRepo struct {
	db *gorm.DB
}

// NewSpacetimeRepo 创建 SpacetimeRepository 实例
func NewSpacetimeRepo(db *gorm.DB) SpacetimeRepository {
	return &spacetimeRepo{db: db}
}

func (r *spacetimeRepo) Create(ctx context.Context, st *model.Spacetime) error {
	return r.db.WithContext(ctx).Create(st).Error
}

func (r *spacetimeRepo) GetByID(ctx context.Context, id string) (*model.Spacetime, error) {
	var st model.Spacetime
	err := r.db.WithContext(ctx).
		Where("spacetime_id = ?", id).
		First(&st).Error
	if err != nil {
		return nil, err
	}
	return &st, nil
}
