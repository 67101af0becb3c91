package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mudit2103/csm-web/internal/model"
)

// ProfileRepository 课程成员数据访问接口
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	ListByCourseAndRoles(ctx context.Context, courseID string, roles []string) ([]model.Profile, error)
	ListStudents(ctx context.Context, sectionID string) ([]model.Profile, error)
	CountStudents(ctx context.Context, sectionID string) (int64, error)
	CountByRole(ctx context.Context) (map[string]int64, error)
}

type profileRepo struct {
	db *gorm.DB
}

// NewProfileRepo 创建 ProfileRepository 实例
func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(profile).Error
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("profile_id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) ListByCourseAndRoles(ctx context.Context, courseID string, roles []string) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND role IN ?", courseID, roles).
		Order("created_at ASC, profile_id ASC").
		Find(&profiles).Error
	return profiles, err
}

// ListStudents 列出某讨论班的学生（含用户）
func (r *profileRepo) ListStudents(ctx context.Context, sectionID string) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("section_id = ? AND role = ?", sectionID, model.RoleStudent).
		Order("created_at ASC, profile_id ASC").
		Find(&profiles).Error
	return profiles, err
}

func (r *profileRepo) CountStudents(ctx context.Context, sectionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("section_id = ? AND role = ?", sectionID, model.RoleStudent).
		Count(&n).Error
	return n, err
}

// CountByRole 按角色统计成员数
func (r *profileRepo) CountByRole(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Role  string
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Select("role, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Role] = row.Total
	}
	return out, nil
}
