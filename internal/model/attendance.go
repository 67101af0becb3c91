package model

import "time"

// 出勤状态
const (
	PresencePresent   = "PR"
	PresenceUnexcused = "UN"
	PresenceExcused   = "EX"
	PresenceUnset     = "" // 尚未发生的周次
)

// Presences 可记录的出勤状态（不含未设置）
var Presences = []string{PresencePresent, PresenceUnexcused, PresenceExcused}

// Attendance 出勤表 — 对应 attendances（学生在某周的出勤）
type Attendance struct {
	AttendanceID string    `gorm:"type:uuid;primaryKey"                         json:"attendance_id"`
	SectionID    string    `gorm:"type:uuid;not null;index"                     json:"section_id"`
	AttendeeID   string    `gorm:"type:uuid;not null;index"                     json:"attendee_id"`
	WeekStart    time.Time `gorm:"type:date;not null"                           json:"week_start"`
	Presence     string    `gorm:"type:varchar(2);not null"                     json:"presence"` // PR | UN | EX | ''
	BaseModel
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendances" }
