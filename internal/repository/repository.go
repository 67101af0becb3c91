package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mudit2103/csm-web/internal/audit"
	"github.com/mudit2103/csm-web/internal/model"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User       UserRepository
	Course     CourseRepository
	Spacetime  SpacetimeRepository
	Profile    ProfileRepository
	Section    SectionRepository
	Attendance AttendanceRepository
	Override   OverrideRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		User:       NewUserRepo(db),
		Course:     NewCourseRepo(db),
		Spacetime:  NewSpacetimeRepo(db),
		Profile:    NewProfileRepo(db),
		Section:    NewSectionRepo(db),
		Attendance: NewAttendanceRepo(db),
		Override:   NewOverrideRepo(db),
	}
}

// BeginTx 开启事务；未绑定数据库（测试 mock）时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务的 Repository；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// flushOrder 清库顺序：先删引用方，再删被引用方
var flushOrder = []interface{}{
	&model.Attendance{},
	&model.Override{},
	&model.Section{},
	&model.Profile{},
	&model.Spacetime{},
	&model.Course{},
	&model.User{},
}

// Flush 清空全部调度数据（破坏性操作），以 raw 模式执行不触发审计日志
func (r *Repository) Flush(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	db := audit.Raw(r.db.WithContext(ctx)).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range flushOrder {
		if err := db.Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}
