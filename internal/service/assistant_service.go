// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"tutor-smart-go/internal/classifier"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/repository"
	"tutor-smart-go/pkg/llm"
	"tutor-smart-go/pkg/log"

	"github.com/gorilla/websocket"
)

// GroundedAnswer 是一次落地问答的结果。
type GroundedAnswer struct {
	Text     string              `json:"answer"`
	Category classifier.Category `json:"category"`
	Language string              `json:"language"`
	Fallback bool                `json:"fallback"`
}

// AssistantService 定义了助手问答与批改操作的接口。
type AssistantService interface {
	Answer(ctx context.Context, prompt string, userID uint) (string, error)
	AnswerWithContext(ctx context.Context, prompt string, userID uint) (*GroundedAnswer, error)
	GradeWriting(ctx context.Context, submissionText, questionText string) (string, error)
	GradeSpeaking(ctx context.Context, questionText, answerText string) (string, error)
	StreamAnswer(ctx context.Context, prompt string, user *model.User, ws llm.MessageWriter, shouldStop func() bool) error
}

type assistantService struct {
	classifier       *classifier.Classifier
	assembler        *ContextAssembler
	composer         *PromptComposer
	llmClient        llm.Client
	conversationRepo repository.ConversationRepository
	gen              *llm.GenerationParams
}

// NewAssistantService 创建一个新的 AssistantService 实例。gen 为空时使用客户端默认参数。
func NewAssistantService(
	cls *classifier.Classifier,
	assembler *ContextAssembler,
	composer *PromptComposer,
	llmClient llm.Client,
	conversationRepo repository.ConversationRepository,
	gen *llm.GenerationParams,
) AssistantService {
	return &assistantService{
		classifier:       cls,
		assembler:        assembler,
		composer:         composer,
		llmClient:        llmClient,
		conversationRepo: conversationRepo,
		gen:              gen,
	}
}

// Answer 只带助手人设回答，不做分类与检索。
func (s *assistantService) Answer(ctx context.Context, prompt string, userID uint) (string, error) {
	log.Infof("[Assistant] 普通问答, userID: %d", userID)
	return s.llmClient.Complete(ctx, s.composer.Plain(prompt), s.gen)
}

// AnswerWithContext 依次执行分类、上下文检索、模板填充与补全。任一步失败即中止。
func (s *assistantService) AnswerWithContext(ctx context.Context, prompt string, userID uint) (*GroundedAnswer, error) {
	messages, res, err := s.groundedMessages(ctx, prompt, userID)
	if err != nil {
		return nil, err
	}
	text, err := s.llmClient.Complete(ctx, messages, s.gen)
	if err != nil {
		return nil, err
	}
	return &GroundedAnswer{
		Text:     text,
		Category: res.Category,
		Language: res.Language.String(),
		Fallback: res.Fallback,
	}, nil
}

// GradeWriting 对写作作答发起一次批改补全。
func (s *assistantService) GradeWriting(ctx context.Context, submissionText, questionText string) (string, error) {
	return s.llmClient.Complete(ctx, s.composer.Writing(questionText, submissionText), s.gen)
}

// GradeSpeaking 对口语转写发起一次批改补全。
func (s *assistantService) GradeSpeaking(ctx context.Context, questionText, answerText string) (string, error) {
	return s.llmClient.Complete(ctx, s.composer.Speaking(questionText, answerText), s.gen)
}

// groundedMessages 完成分类与上下文检索，返回可直接发送的消息列表。
func (s *assistantService) groundedMessages(ctx context.Context, prompt string, userID uint) ([]llm.Message, *classifier.Result, error) {
	res, err := s.classifier.ClassifyDetailed(ctx, prompt)
	if err != nil {
		return nil, nil, err
	}
	payload, err := s.assembler.GetContext(ctx, res.Category, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	log.Infow("[Assistant] 上下文已就绪",
		"userID", userID,
		"category", res.Category.String(),
		"language", res.Language.String(),
		"fallback", res.Fallback,
	)
	return s.composer.QA(payload, prompt), res, nil
}

// StreamAnswer 执行落地问答流程，并通过 websocket 流式下发回答，完成后写入会话历史。
func (s *assistantService) StreamAnswer(ctx context.Context, prompt string, user *model.User, ws llm.MessageWriter, shouldStop func() bool) error {
	messages, res, err := s.groundedMessages(ctx, prompt, user.ID)
	if err != nil {
		return err
	}

	history, err := s.loadHistory(ctx, user.ID)
	if err != nil {
		log.Errorf("Failed to load conversation history: %v", err)
		history = nil
	}
	messages = withHistory(messages, history)

	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: ws, writer: answerBuilder, shouldStop: shouldStop}
	if err := s.llmClient.StreamChatMessages(ctx, messages, s.gen, interceptor); err != nil {
		return err
	}

	sendCompletion(ws, res.Category.Normalize())
	fullAnswer := answerBuilder.String()
	if len(fullAnswer) > 0 {
		// 请求被取消时已生成的回答仍需保存
		err = s.addMessageToConversation(context.Background(), user.ID, prompt, fullAnswer, res.Category.Normalize())
		if err != nil {
			log.Errorf("Failed to save conversation history: %v", err)
		}
	}
	return nil
}

// withHistory 把历史消息插入 system 与本轮提问之间。
func withHistory(messages []llm.Message, history []model.ChatMessage) []llm.Message {
	if len(history) == 0 || len(messages) < 2 {
		return messages
	}
	out := make([]llm.Message, 0, len(messages)+len(history))
	out = append(out, messages[:len(messages)-1]...)
	for _, m := range history {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(out, messages[len(messages)-1])
}

func (s *assistantService) loadHistory(ctx context.Context, userID uint) ([]model.ChatMessage, error) {
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.conversationRepo.GetConversationHistory(ctx, convID)
}

func (s *assistantService) addMessageToConversation(ctx context.Context, userID uint, question, answer string, category classifier.Category) error {
	conversationID, err := s.conversationRepo.GetOrCreateConversationID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get or create conversation ID: %w", err)
	}
	history, err := s.conversationRepo.GetConversationHistory(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to get conversation history: %w", err)
	}
	now := time.Now()
	history = append(history,
		model.ChatMessage{Role: llm.RoleUser, Content: question, Timestamp: now},
		model.ChatMessage{Role: llm.RoleAssistant, Content: answer, Timestamp: now, Category: category.String()},
	)
	return s.conversationRepo.UpdateConversationHistory(ctx, conversationID, history)
}

// wsWriterInterceptor 捕获写入的分块，并把每个分块包装成 {"chunk":"..."} 下发。
type wsWriterInterceptor struct {
	conn       llm.MessageWriter
	writer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		return nil
	}
	w.writer.Write(data)
	b, _ := json.Marshal(map[string]string{"chunk": string(data)})
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(ws llm.MessageWriter, category classifier.Category) {
	now := time.Now()
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"category":  category.String(),
		"message":   "响应已完成",
		"timestamp": now.UnixMilli(),
		"date":      now.Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
