package model

import "time"

// Course 课程表 — 对应 courses
type Course struct {
	CourseID        string    `gorm:"type:uuid;primaryKey"                      json:"course_id"`
	Name            string    `gorm:"type:varchar(100);not null;uniqueIndex"    json:"name"`
	ValidUntil      time.Time `gorm:"type:date;not null"                        json:"valid_until"`
	EnrollmentStart time.Time `gorm:"not null"                                  json:"enrollment_start"`
	EnrollmentEnd   time.Time `gorm:"not null"                                  json:"enrollment_end"`
	BaseModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }
