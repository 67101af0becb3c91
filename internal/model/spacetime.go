package model

import (
	"fmt"
	"time"
)

// DayOfWeek 星期取值，与前端 dayOfWeek 映射一致
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
	Saturday  DayOfWeek = "Saturday"
	Sunday    DayOfWeek = "Sunday"
)

// DaysOfWeek 周一至周日
var DaysOfWeek = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Weekday 转换为 time.Weekday；非法取值返回 false
func (d DayOfWeek) Weekday() (time.Weekday, bool) {
	switch d {
	case Monday:
		return time.Monday, true
	case Tuesday:
		return time.Tuesday, true
	case Wednesday:
		return time.Wednesday, true
	case Thursday:
		return time.Thursday, true
	case Friday:
		return time.Friday, true
	case Saturday:
		return time.Saturday, true
	case Sunday:
		return time.Sunday, true
	}
	return 0, false
}

// DayOfWeekFrom 由 time.Weekday 反查
func DayOfWeekFrom(w time.Weekday) DayOfWeek {
	return DaysOfWeek[(int(w)+6)%7]
}

// Spacetime 上课时空表 — 对应 spacetimes（地点 + 星期 + 开始时间 + 时长）
type Spacetime struct {
	SpacetimeID     string    `gorm:"type:uuid;primaryKey"      json:"spacetime_id"`
	Location        string    `gorm:"type:varchar(100);not null" json:"location"`
	DayOfWeek       DayOfWeek `gorm:"type:varchar(10);not null"  json:"day_of_week"`
	StartTime       string    `gorm:"type:time;not null"         json:"start_time"` // HH:MM:SS
	DurationMinutes int       `gorm:"not null"                   json:"duration_minutes"`
	BaseModel
}

// TableName 指定表名
func (Spacetime) TableName() string { return "spacetimes" }

// Duration 上课时长
func (s *Spacetime) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// ClockOffset 开始时间距当日零点的偏移
func (s *Spacetime) ClockOffset() (time.Duration, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s.StartTime, "%d:%d:%d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("非法开始时间 %q: %w", s.StartTime, err)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

// FirstMeetingOnOrAfter 返回 from 当天或之后第一个上课日期
func (s *Spacetime) FirstMeetingOnOrAfter(from time.Time) (time.Time, error) {
	want, ok := s.DayOfWeek.Weekday()
	if !ok {
		return time.Time{}, fmt.Errorf("非法星期取值 %q", s.DayOfWeek)
	}
	d := DateOf(from)
	delta := (int(want) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, delta), nil
}

// EndTime 下课时间，格式 HH:MM:SS；跨零点时按 24 小时取模
func (s *Spacetime) EndTime() (string, error) {
	off, err := s.ClockOffset()
	if err != nil {
		return "", err
	}
	end := (off + s.Duration()) % (24 * time.Hour)
	return fmt.Sprintf("%02d:%02d:%02d", int(end.Hours()), int(end.Minutes())%60, int(end.Seconds())%60), nil
}
