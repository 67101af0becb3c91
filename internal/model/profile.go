package model

// 课程内角色
const (
	RoleCoordinator  = "coordinator"
	RoleSeniorMentor = "senior_mentor"
	RoleJuniorMentor = "junior_mentor"
	RoleStudent      = "student"
)

// MentorRoles 视为 mentor 的角色
var MentorRoles = []string{RoleJuniorMentor, RoleSeniorMentor}

// Profile 课程成员表 — 对应 profiles（用户在某课程内的角色身份）
type Profile struct {
	ProfileID string  `gorm:"type:uuid;primaryKey"        json:"profile_id"`
	UserID    string  `gorm:"type:uuid;not null;index"    json:"user_id"`
	CourseID  string  `gorm:"type:uuid;not null;index"    json:"course_id"`
	Role      string  `gorm:"type:varchar(20);not null"   json:"role"` // coordinator | senior_mentor | junior_mentor | student
	LeaderID  *string `gorm:"type:uuid"                   json:"leader_id,omitempty"`
	SectionID *string `gorm:"type:uuid;index"             json:"section_id,omitempty"`
	BaseModel

	// 关联
	User   *User    `gorm:"foreignKey:UserID;references:UserID"       json:"user,omitempty"`
	Course *Course  `gorm:"foreignKey:CourseID;references:CourseID"   json:"course,omitempty"`
	Leader *Profile `gorm:"foreignKey:LeaderID;references:ProfileID"  json:"leader,omitempty"`
}

// TableName 指定表名
func (Profile) TableName() string { return "profiles" }

// IsMentor 是否为 mentor（junior 或 senior）
func (p *Profile) IsMentor() bool {
	return p.Role == RoleJuniorMentor || p.Role == RoleSeniorMentor
}
