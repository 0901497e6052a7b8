package model

import "time"

// SubmissionKind 区分写作与口语作业。
type SubmissionKind string

const (
	SubmissionWriting  SubmissionKind = "writing"
	SubmissionSpeaking SubmissionKind = "speaking"
)

// 批改状态
const (
	SubmissionPending = "PENDING"
	SubmissionGrading = "GRADING"
	SubmissionGraded  = "GRADED"
	SubmissionFailed  = "FAILED"
)

// Submission 对应于数据库中的 'submissions' 表，记录一次异步批改任务。
type Submission struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint           `gorm:"index;not null" json:"userId"`
	Kind         SubmissionKind `gorm:"type:varchar(20);not null" json:"kind"`
	QuestionText string         `gorm:"type:text;not null" json:"questionText"`
	// AnswerText 是写作正文或口语转写文本；上传文件时在批改阶段由 Tika 提取后回填。
	AnswerText string `gorm:"type:longtext" json:"answerText"`
	// ObjectKey 非空时表示原文存放在 MinIO 中。
	ObjectKey string     `gorm:"type:varchar(255)" json:"-"`
	FileName  string     `gorm:"type:varchar(255)" json:"fileName,omitempty"`
	Status    string     `gorm:"type:varchar(20);not null;default:PENDING" json:"status"`
	Feedback  string     `gorm:"type:longtext" json:"feedback"`
	LastError string     `gorm:"type:text" json:"lastError,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	GradedAt  *time.Time `gorm:"default:null" json:"gradedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Submission) TableName() string {
	return "submissions"
}

// SubmissionDTO 是返回给客户端的批改结果视图。
type SubmissionDTO struct {
	ID           uint           `json:"id"`
	Kind         SubmissionKind `json:"kind"`
	QuestionText string         `json:"questionText"`
	FileName     string         `json:"fileName,omitempty"`
	Status       string         `json:"status"`
	Feedback     string         `json:"feedback,omitempty"`
	CreatedAt    LocalTime      `json:"createdAt"`
	GradedAt     *LocalTime     `json:"gradedAt,omitempty"`
}

// ToDTO 将 Submission 转换为 SubmissionDTO。
func (s *Submission) ToDTO() SubmissionDTO {
	dto := SubmissionDTO{
		ID:           s.ID,
		Kind:         s.Kind,
		QuestionText: s.QuestionText,
		FileName:     s.FileName,
		Status:       s.Status,
		Feedback:     s.Feedback,
		CreatedAt:    LocalTime(s.CreatedAt),
	}
	if s.GradedAt != nil {
		t := LocalTime(*s.GradedAt)
		dto.GradedAt = &t
	}
	return dto
}
