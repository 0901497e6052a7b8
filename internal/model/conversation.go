package model

import "time"

// ChatMessage 代表存储在 Redis 中的单条对话消息。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Category 记录助手回答时使用的问题类别，仅 assistant 消息携带。
	Category string `json:"category,omitempty"`
}
