package model

import (
	"time"
)

// BaseModel 通用时间戳字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// All 返回全部调度模型，按依赖顺序排列（用于 AutoMigrate）
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Spacetime{},
		&Profile{},
		&Section{},
		&Attendance{},
		&Override{},
	}
}

// ── 日期辅助 ──

// DateOf 截断为 UTC 日历日期（丢弃时分秒）
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart 返回 t 所在周的周一
func WeekStart(t time.Time) time.Time {
	d := DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
