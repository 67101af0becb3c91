package model

// Section 讨论班表 — 对应 sections
type Section struct {
	SectionID          string `gorm:"type:uuid;primaryKey"     json:"section_id"`
	CourseID           string `gorm:"type:uuid;not null;index" json:"course_id"`
	DefaultSpacetimeID string `gorm:"type:uuid;not null"       json:"default_spacetime_id"`
	Capacity           int    `gorm:"not null"                 json:"capacity"`
	MentorID           string `gorm:"type:uuid;not null;index" json:"mentor_id"`
	BaseModel

	// 关联
	Course           *Course    `gorm:"foreignKey:CourseID;references:CourseID"              json:"course,omitempty"`
	DefaultSpacetime *Spacetime `gorm:"foreignKey:DefaultSpacetimeID;references:SpacetimeID" json:"default_spacetime,omitempty"`
	Mentor           *Profile   `gorm:"foreignKey:MentorID;references:ProfileID"             json:"mentor,omitempty"`
	Students         []Profile  `gorm:"foreignKey:SectionID;references:SectionID"           json:"students,omitempty"`
}

// TableName 指定表名
func (Section) TableName() string { return "sections" }
