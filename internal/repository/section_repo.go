package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mudit2103/csm-web/internal/model"
)

// SectionRepository 讨论班数据访问接口
type SectionRepository interface {
	Create(ctx context.Context, section *model.Section) error
	GetByID(ctx context.Context, id string) (*model.Section, error)
	List(ctx context.Context) ([]model.Section, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.Section, error)
	ListUnderCapacityExcludingCourse(ctx context.Context, courseID string) ([]model.Section, error)
	Count(ctx context.Context) (int64, error)
}

type sectionRepo struct {
	db *gorm.DB
}

// NewSectionRepo 创建 SectionRepository 实例
func NewSectionRepo(db *gorm.DB) SectionRepository {
	return &sectionRepo{db: db}
}

func (r *sectionRepo) Create(ctx context.Context, section *model.Section) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(section).Error
}

func (r *sectionRepo) GetByID(ctx context.Context, id string) (*model.Section, error) {
	var section model.Section
	err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("DefaultSpacetime").
		Preload("Mentor").Preload("Mentor.User").
		Where("section_id = ?", id).
		First(&section).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepo) List(ctx context.Context) ([]model.Section, error) {
	var sections []model.Section
	err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("DefaultSpacetime").
		Order("created_at ASC, section_id ASC").
		Find(&sections).Error
	return sections, err
}

func (r *sectionRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Section, error) {
	var sections []model.Section
	err := r.db.WithContext(ctx).
		Preload("DefaultSpacetime").
		Preload("Mentor").Preload("Mentor.User").
		Preload("Students", "role = ?", model.RoleStudent).
		Preload("Students.User").
		Where("course_id = ?", courseID).
		Order("created_at ASC, section_id ASC").
		Find(&sections).Error
	return sections, err
}

// ListUnderCapacityExcludingCourse 其他课程中学生人数未满的讨论班
func (r *sectionRepo) ListUnderCapacityExcludingCourse(ctx context.Context, courseID string) ([]model.Section, error) {
	db := r.db.WithContext(ctx)
	enrolled := db.Model(&model.Profile{}).
		Select("COUNT(*)").
		Where("profiles.section_id = sections.section_id AND profiles.role = ?", model.RoleStudent)

	var sections []model.Section
	err := db.Model(&model.Section{}).
		Preload("Course").
		Preload("DefaultSpacetime").
		Where("sections.course_id <> ?", courseID).
		Where("sections.capacity > (?)", enrolled).
		Order("sections.created_at ASC, sections.section_id ASC").
		Find(&sections).Error
	return sections, err
}

func (r *sectionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Section{}).Count(&n).Error
	return n, err
}
