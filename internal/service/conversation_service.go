package service

import (
	"context"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/repository"
)

// ConversationService 定义了对话历史的业务操作。
type ConversationService interface {
	GetConversationHistory(ctx context.Context, userID uint) ([]model.ChatMessage, error)
	ResetConversation(ctx context.Context, userID uint) error
}

type conversationService struct {
	repo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

// GetConversationHistory 获取用户当前会话的完整消息历史。
func (s *conversationService) GetConversationHistory(ctx context.Context, userID uint) ([]model.ChatMessage, error) {
	conversationID, err := s.repo.GetOrCreateConversationID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetConversationHistory(ctx, conversationID)
}

// ResetConversation 结束当前会话，之后的提问不再带入旧的历史。
func (s *conversationService) ResetConversation(ctx context.Context, userID uint) error {
	return s.repo.ResetConversation(ctx, userID)
}
