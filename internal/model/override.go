package model

import "time"

// Override 单周改期表 — 对应 overrides（替换某一周的默认时空）
type Override struct {
	OverrideID  string    `gorm:"type:uuid;primaryKey"                           json:"override_id"`
	SectionID   string    `gorm:"type:uuid;not null;uniqueIndex:uq_override_week" json:"section_id"`
	SpacetimeID string    `gorm:"type:uuid;not null"                             json:"spacetime_id"`
	WeekStart   time.Time `gorm:"type:date;not null;uniqueIndex:uq_override_week" json:"week_start"`
	BaseModel

	// 关联
	Spacetime *Spacetime `gorm:"foreignKey:SpacetimeID;references:SpacetimeID" json:"spacetime,omitempty"`
}

// TableName 指定表名
func (Override) TableName() string { return "overrides" }
