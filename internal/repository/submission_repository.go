package repository

import (
	"context"
	"time"
	"tutor-smart-go/internal/model"

	"gorm.io/gorm"
)

// SubmissionRepository 接口定义了批改任务记录的持久化操作。
type SubmissionRepository interface {
	Create(ctx context.Context, submission *model.Submission) error
	FindByID(ctx context.Context, id uint) (*model.Submission, error)
	FindByUserID(ctx context.Context, userID uint, limit int) ([]model.Submission, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	SaveAnswerText(ctx context.Context, id uint, text string) error
	MarkGraded(ctx context.Context, id uint, feedback string) error
	MarkFailed(ctx context.Context, id uint, reason string) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository 创建一个新的 SubmissionRepository 实例。
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Create 在数据库中创建一条新的批改记录。
func (r *submissionRepository) Create(ctx context.Context, submission *model.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// FindByID 根据 ID 查找批改记录。
func (r *submissionRepository) FindByID(ctx context.Context, id uint) (*model.Submission, error) {
	var submission model.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindByUserID 按创建时间倒序返回用户最近的批改记录。
func (r *submissionRepository) FindByUserID(ctx context.Context, userID uint, limit int) ([]model.Submission, error) {
	var submissions []model.Submission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&submissions).Error
	return submissions, err
}

// UpdateStatus 更新批改记录的状态。
func (r *submissionRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&model.Submission{}).Where("id = ?", id).Update("status", status).Error
}

// SaveAnswerText 回填从上传文件中提取出的正文。
func (r *submissionRepository) SaveAnswerText(ctx context.Context, id uint, text string) error {
	return r.db.WithContext(ctx).Model(&model.Submission{}).Where("id = ?", id).Update("answer_text", text).Error
}

// MarkGraded 保存批改结果并将状态置为已完成。
func (r *submissionRepository) MarkGraded(ctx context.Context, id uint, feedback string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.Submission{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     model.SubmissionGraded,
		"feedback":   feedback,
		"last_error": "",
		"graded_at":  &now,
	}).Error
}

// MarkFailed 记录失败原因并将状态置为失败。
func (r *submissionRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	return r.db.WithContext(ctx).Model(&model.Submission{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     model.SubmissionFailed,
		"last_error": reason,
	}).Error
}
