// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 用户角色
const (
	RoleStudent = "STUDENT"
	RoleTeacher = "TEACHER"
	RoleAdmin   = "ADMIN"
)

// User 对应于数据库中的 'users' 表。
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Password    string    `gorm:"type:varchar(255);not null" json:"-"`
	Role        string    `gorm:"type:varchar(20);not null;default:STUDENT" json:"role"`
	DisplayName string    `gorm:"type:varchar(100)" json:"displayName"`
	Email       string    `gorm:"type:varchar(255)" json:"email"`
	// Level 是学生当前的英语水平描述，例如 "IELTS 6.0"。
	Level     string    `gorm:"type:varchar(50)" json:"level"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// UserProfile 是用于提示词上下文的用户资料，不包含凭证信息。
type UserProfile struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	Level       string `json:"level,omitempty"`
	MemberSince string `json:"memberSince"`
}

// Profile 将 User 转换为 UserProfile。
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Role:        u.Role,
		Level:       u.Level,
		MemberSince: u.CreatedAt.Format("2006-01-02"),
	}
}
