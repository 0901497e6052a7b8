package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/repository"
	"tutor-smart-go/pkg/log"
	"tutor-smart-go/pkg/tasks"

	"github.com/google/uuid"
)

// MaxSubmissionFileSize 是写作附件的大小上限。
const MaxSubmissionFileSize = 10 * 1024 * 1024

var (
	ErrEmptySubmission      = errors.New("question and answer must not be empty")
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrSubmissionFileTooBig = errors.New("submission file too large")
	ErrSubmissionForbidden  = errors.New("submission belongs to another user")
)

var supportedSubmissionExts = map[string]struct{}{
	".txt": {}, ".md": {}, ".pdf": {}, ".doc": {}, ".docx": {}, ".odt": {}, ".rtf": {},
}

// TaskPublisher 投递异步批改任务，*kafka.Producer 满足该接口。
type TaskPublisher interface {
	Publish(ctx context.Context, task tasks.GradingTask) error
}

// ObjectStore 存放上传的作业文件，*storage.Bucket 满足该接口。
type ObjectStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// SubmissionFile 是一份待上传的写作文件。
type SubmissionFile struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// GradingService 管理异步批改任务：落库、投递与查询。
type GradingService interface {
	SubmitWriting(ctx context.Context, userID uint, questionText, writingText string) (*model.Submission, error)
	SubmitWritingFile(ctx context.Context, userID uint, questionText string, file SubmissionFile) (*model.Submission, error)
	SubmitSpeaking(ctx context.Context, userID uint, questionText, transcript string) (*model.Submission, error)
	GetSubmission(ctx context.Context, userID, submissionID uint) (*model.Submission, error)
	ListSubmissions(ctx context.Context, userID uint, limit int) ([]model.Submission, error)
}

type gradingService struct {
	submissionRepo repository.SubmissionRepository
	publisher      TaskPublisher
	store          ObjectStore
}

// NewGradingService 创建一个新的 GradingService 实例。
func NewGradingService(submissionRepo repository.SubmissionRepository, publisher TaskPublisher, store ObjectStore) GradingService {
	return &gradingService{
		submissionRepo: submissionRepo,
		publisher:      publisher,
		store:          store,
	}
}

func (s *gradingService) SubmitWriting(ctx context.Context, userID uint, questionText, writingText string) (*model.Submission, error) {
	if strings.TrimSpace(questionText) == "" || strings.TrimSpace(writingText) == "" {
		return nil, ErrEmptySubmission
	}
	return s.enqueue(ctx, &model.Submission{
		UserID:       userID,
		Kind:         model.SubmissionWriting,
		QuestionText: questionText,
		AnswerText:   writingText,
	})
}

// SubmitWritingFile 先把文件存入 MinIO，正文在批改阶段由 Tika 提取。
func (s *gradingService) SubmitWritingFile(ctx context.Context, userID uint, questionText string, file SubmissionFile) (*model.Submission, error) {
	if strings.TrimSpace(questionText) == "" {
		return nil, ErrEmptySubmission
	}
	ext := strings.ToLower(filepath.Ext(file.Name))
	if _, ok := supportedSubmissionExts[ext]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
	if file.Size > MaxSubmissionFileSize {
		return nil, ErrSubmissionFileTooBig
	}

	objectKey := fmt.Sprintf("writing/%d/%s%s", userID, uuid.NewString(), ext)
	if err := s.store.PutObject(ctx, objectKey, file.Body, file.Size, file.ContentType); err != nil {
		return nil, err
	}
	log.Infof("[GradingService] 写作文件已上传, userID: %d, object: %s", userID, objectKey)

	return s.enqueue(ctx, &model.Submission{
		UserID:       userID,
		Kind:         model.SubmissionWriting,
		QuestionText: questionText,
		ObjectKey:    objectKey,
		FileName:     file.Name,
	})
}

func (s *gradingService) SubmitSpeaking(ctx context.Context, userID uint, questionText, transcript string) (*model.Submission, error) {
	if strings.TrimSpace(questionText) == "" || strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptySubmission
	}
	return s.enqueue(ctx, &model.Submission{
		UserID:       userID,
		Kind:         model.SubmissionSpeaking,
		QuestionText: questionText,
		AnswerText:   transcript,
	})
}

// enqueue 落库后投递批改任务；投递失败时把记录标记为 FAILED。
func (s *gradingService) enqueue(ctx context.Context, submission *model.Submission) (*model.Submission, error) {
	submission.Status = model.SubmissionPending
	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	task := tasks.GradingTask{
		SubmissionID: submission.ID,
		Kind:         string(submission.Kind),
		UserID:       submission.UserID,
	}
	if err := s.publisher.Publish(ctx, task); err != nil {
		log.Errorf("[GradingService] 投递批改任务失败, submission: %d, error: %v", submission.ID, err)
		if markErr := s.submissionRepo.MarkFailed(context.Background(), submission.ID, err.Error()); markErr != nil {
			log.Errorf("[GradingService] 标记批改失败状态失败, submission: %d, error: %v", submission.ID, markErr)
		}
		return nil, fmt.Errorf("failed to enqueue grading task: %w", err)
	}
	log.Infof("[GradingService] 批改任务已投递, submission: %d, kind: %s", submission.ID, submission.Kind)
	return submission, nil
}

// GetSubmission 返回用户自己的批改记录。
func (s *gradingService) GetSubmission(ctx context.Context, userID, submissionID uint) (*model.Submission, error) {
	submission, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.UserID != userID {
		return nil, ErrSubmissionForbidden
	}
	return submission, nil
}

func (s *gradingService) ListSubmissions(ctx context.Context, userID uint, limit int) ([]model.Submission, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.submissionRepo.FindByUserID(ctx, userID, limit)
}
