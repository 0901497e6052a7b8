package model

import "time"

// Class 对应于数据库中的 'classes' 表，Members 通过 'class_members' 关联学生。
type Class struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	// Schedule 是人类可读的上课时间，例如 "Mon/Wed 19:00-20:30"。
	Schedule  string    `gorm:"type:varchar(255)" json:"schedule"`
	TeacherID uint      `gorm:"index;not null" json:"teacherId"`
	Teacher   *User     `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Members   []User    `gorm:"many2many:class_members;" json:"members,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Class) TableName() string {
	return "classes"
}

// RosterEntry 是提示词上下文中的一条班级记录。
type RosterEntry struct {
	ClassID     uint     `json:"classId"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Schedule    string   `json:"schedule,omitempty"`
	Teacher     string   `json:"teacher,omitempty"`
	Students    []string `json:"students"`
}

// Roster 将 Class 转换为 RosterEntry，只保留成员的显示名。
func (c *Class) Roster() RosterEntry {
	entry := RosterEntry{
		ClassID:     c.ID,
		Name:        c.Name,
		Description: c.Description,
		Schedule:    c.Schedule,
		Students:    make([]string, 0, len(c.Members)),
	}
	if c.Teacher != nil {
		entry.Teacher = displayName(c.Teacher)
	}
	for i := range c.Members {
		entry.Students = append(entry.Students, displayName(&c.Members[i]))
	}
	return entry
}

func displayName(u *User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
