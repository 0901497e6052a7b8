package handler

import (
	"tutor-smart-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与对话相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// GetConversations 返回当前用户的对话历史。
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	history, err := h.service.GetConversationHistory(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		respondServiceError(c, "GetConversations", err)
		return
	}
	respondOK(c, "success", history)
}

// ResetConversation 开启新的会话。
func (h *ConversationHandler) ResetConversation(c *gin.Context) {
	if err := h.service.ResetConversation(c.Request.Context(), mustUser(c).ID); err != nil {
		respondServiceError(c, "ResetConversation", err)
		return
	}
	respondOK(c, "Conversation reset", nil)
}
