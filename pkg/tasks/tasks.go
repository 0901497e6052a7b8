// Package tasks 定义了通过 Kafka 投递的异步任务结构。
package tasks

import "fmt"

// GradingTask 是一次写作或口语批改任务，详细内容从 submissions 表读取。
type GradingTask struct {
	SubmissionID uint   `json:"submission_id"`
	Kind         string `json:"kind"`
	UserID       uint   `json:"user_id"`
}

// Key 是任务的唯一标识，用作 Kafka 消息键与重试计数键。
func (t GradingTask) Key() string {
	return fmt.Sprintf("submission:%d", t.SubmissionID)
}
