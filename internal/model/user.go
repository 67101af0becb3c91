package model

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey"                json:"user_id"`
	Username     string `gorm:"type:varchar(150);not null;uniqueIndex" json:"username"`
	Email        string `gorm:"type:varchar(255);not null"          json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"          json:"-"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
