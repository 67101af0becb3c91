package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mudit2103/csm-web/internal/model"
)

const attendanceBatchSize = 200

// AttendanceRepository 出勤数据访问接口
type AttendanceRepository interface {
	BatchCreate(ctx context.Context, records []model.Attendance) error
	ListByAttendee(ctx context.Context, attendeeID string) ([]model.Attendance, error)
	Update(ctx context.Context, record *model.Attendance) error
	Count(ctx context.Context) (int64, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) BatchCreate(ctx context.Context, records []model.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&records, attendanceBatchSize).Error
}

func (r *attendanceRepo) ListByAttendee(ctx context.Context, attendeeID string) ([]model.Attendance, error) {
	var records []model.Attendance
	err := r.db.WithContext(ctx).
		Where("attendee_id = ?", attendeeID).
		Order("week_start ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) Update(ctx context.Context, record *model.Attendance) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *attendanceRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Attendance{}).Count(&n).Error
	return n, err
}
