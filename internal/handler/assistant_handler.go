package handler

import (
	"context"
	"net/http"
	"time"
	"tutor-smart-go/internal/service"

	"github.com/gin-gonic/gin"
)

// AssistantHandler 提供同步的问答与批改接口。
type AssistantHandler struct {
	assistant service.AssistantService
	timeout   time.Duration
}

// NewAssistantHandler 创建 AssistantHandler。timeout 是单次请求的整体超时，0 表示不限制。
func NewAssistantHandler(assistant service.AssistantService, timeout time.Duration) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, timeout: timeout}
}

// AskRequest 是问答接口的入参。
type AskRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// WritingGradeRequest 是写作批改接口的入参。
type WritingGradeRequest struct {
	QuestionText   string `json:"questionText" binding:"required"`
	SubmissionText string `json:"submissionText" binding:"required"`
}

// SpeakingGradeRequest 是口语批改接口的入参，AnswerText 为回答的转写文本。
type SpeakingGradeRequest struct {
	QuestionText string `json:"questionText" binding:"required"`
	AnswerText   string `json:"answerText" binding:"required"`
}

func (h *AssistantHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// Answer 只带助手人设回答，不检索平台数据。
func (h *AssistantHandler) Answer(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：prompt 不能为空")
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	text, err := h.assistant.Answer(ctx, req.Prompt, mustUser(c).ID)
	if err != nil {
		respondServiceError(c, "Answer", err)
		return
	}
	respondOK(c, "success", gin.H{"answer": text})
}

// Ask 对提问分类并检索对应的平台数据后回答。
func (h *AssistantHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：prompt 不能为空")
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	answer, err := h.assistant.AnswerWithContext(ctx, req.Prompt, mustUser(c).ID)
	if err != nil {
		respondServiceError(c, "AnswerWithContext", err)
		return
	}
	respondOK(c, "success", answer)
}

// GradeWriting 同步批改一篇写作。
func (h *AssistantHandler) GradeWriting(c *gin.Context) {
	var req WritingGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：questionText 与 submissionText 不能为空")
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	feedback, err := h.assistant.GradeWriting(ctx, req.SubmissionText, req.QuestionText)
	if err != nil {
		respondServiceError(c, "GradeWriting", err)
		return
	}
	respondOK(c, "success", gin.H{"feedback": feedback})
}

// GradeSpeaking 同步批改一段口语转写。
func (h *AssistantHandler) GradeSpeaking(c *gin.Context) {
	var req SpeakingGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：questionText 与 answerText 不能为空")
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	feedback, err := h.assistant.GradeSpeaking(ctx, req.QuestionText, req.AnswerText)
	if err != nil {
		respondServiceError(c, "GradeSpeaking", err)
		return
	}
	respondOK(c, "success", gin.H{"feedback": feedback})
}
