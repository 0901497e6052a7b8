// Package pipeline 定义了异步批改任务的处理流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/repository"
	"tutor-smart-go/pkg/log"
	"tutor-smart-go/pkg/tasks"

	"gorm.io/gorm"
)

// Grader 是批改所需的补全能力，service.AssistantService 满足该接口。
type Grader interface {
	GradeWriting(ctx context.Context, submissionText, questionText string) (string, error)
	GradeSpeaking(ctx context.Context, questionText, answerText string) (string, error)
}

// ObjectReader 读取上传的作业文件，*storage.Bucket 满足该接口。
type ObjectReader interface {
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor 从文件中提取纯文本，*tika.Client 满足该接口。
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// Processor 封装了批改任务的所有依赖和逻辑。
type Processor struct {
	grader         Grader
	objects        ObjectReader
	extractor      TextExtractor
	submissionRepo repository.SubmissionRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(grader Grader, objects ObjectReader, extractor TextExtractor, submissionRepo repository.SubmissionRepository) *Processor {
	return &Processor{
		grader:         grader,
		objects:        objects,
		extractor:      extractor,
		submissionRepo: submissionRepo,
	}
}

// Process 批改一份作业。返回错误时任务会被重新投递。
func (p *Processor) Process(ctx context.Context, task tasks.GradingTask) error {
	log.Infof("[Processor] 开始批改, submission: %d, kind: %s, userID: %d", task.SubmissionID, task.Kind, task.UserID)

	submission, err := p.submissionRepo.FindByID(ctx, task.SubmissionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Processor] 批改记录不存在，丢弃任务, submission: %d", task.SubmissionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取批改记录失败: %w", err)
	}
	if submission.Status == model.SubmissionGraded {
		log.Infof("[Processor] 已批改，跳过重复任务, submission: %d", submission.ID)
		return nil
	}

	if err := p.submissionRepo.UpdateStatus(ctx, submission.ID, model.SubmissionGrading); err != nil {
		return fmt.Errorf("更新批改状态失败: %w", err)
	}

	// 1. 上传的文件先提取正文并回填，重试时无需再次提取
	if submission.ObjectKey != "" && strings.TrimSpace(submission.AnswerText) == "" {
		text, err := p.extract(ctx, submission)
		if err != nil {
			return err
		}
		submission.AnswerText = text
	}

	// 2. 调用补全服务批改
	var feedback string
	switch submission.Kind {
	case model.SubmissionWriting:
		feedback, err = p.grader.GradeWriting(ctx, submission.AnswerText, submission.QuestionText)
	case model.SubmissionSpeaking:
		feedback, err = p.grader.GradeSpeaking(ctx, submission.QuestionText, submission.AnswerText)
	default:
		log.Errorf("[Processor] 未知的作业类型, submission: %d, kind: %s", submission.ID, submission.Kind)
		return p.submissionRepo.MarkFailed(ctx, submission.ID, "unknown submission kind: "+string(submission.Kind))
	}
	if err != nil {
		return fmt.Errorf("批改失败: %w", err)
	}

	// 3. 保存结果
	if err := p.submissionRepo.MarkGraded(ctx, submission.ID, feedback); err != nil {
		return fmt.Errorf("保存批改结果失败: %w", err)
	}
	log.Infof("[Processor] 批改完成, submission: %d, 反馈长度: %d", submission.ID, len(feedback))
	return nil
}

func (p *Processor) extract(ctx context.Context, submission *model.Submission) (string, error) {
	object, err := p.objects.GetObject(ctx, submission.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	defer object.Close()

	text, err := p.extractor.ExtractText(ctx, object, submission.FileName)
	if err != nil {
		return "", fmt.Errorf("提取文件正文失败: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("文件 '%s' 没有可批改的正文", submission.FileName)
	}
	if err := p.submissionRepo.SaveAnswerText(ctx, submission.ID, text); err != nil {
		return "", fmt.Errorf("保存文件正文失败: %w", err)
	}
	log.Infof("[Processor] 文件正文提取完成, submission: %d, 长度: %d", submission.ID, len(text))
	return text, nil
}

// OnGiveUp 在任务多次失败后把记录标记为 FAILED。
func (p *Processor) OnGiveUp(ctx context.Context, task tasks.GradingTask, cause error) {
	if err := p.submissionRepo.MarkFailed(ctx, task.SubmissionID, cause.Error()); err != nil {
		log.Errorf("[Processor] 标记批改失败状态失败, submission: %d, error: %v", task.SubmissionID, err)
	}
}
