// Package llm provides a client for interacting with OpenAI-compatible chat completion services.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"tutor-smart-go/internal/config"

	"github.com/gorilla/websocket"
	"github.com/sashabaranov/go-openai"
)

// 角色常量
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ErrUpstreamUnavailable 表示补全服务无法访问或返回了错误。
var ErrUpstreamUnavailable = errors.New("completion service unavailable")

// MessageWriter defines an interface for writing WebSocket messages.
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Client defines the interface for an LLM client.
type Client interface {
	// Complete 提交按顺序排列的角色消息，返回完整的输出文本。
	Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
	// StreamChatMessages 以流式方式调用聊天接口，并将分块写入 writer。
	StreamChatMessages(ctx context.Context, messages []Message, gen *GenerationParams, writer MessageWriter) error
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

type openAIClient struct {
	cfg    config.LLMConfig
	client *openai.Client
}

// NewClient 创建一个补全客户端。该客户端无状态，可在多个请求间并发共享。
func NewClient(cfg config.LLMConfig) Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openAIClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (c *openAIClient) Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(messages, gen))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", ErrUpstreamUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) StreamChatMessages(ctx context.Context, messages []Message, gen *GenerationParams, writer MessageWriter) error {
	req := c.buildRequest(messages, gen)
	req.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read from stream: %w", ErrUpstreamUnavailable, err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := writer.WriteMessage(websocket.TextMessage, []byte(chunk.Choices[0].Delta.Content)); err != nil {
			return fmt.Errorf("failed to write message to websocket: %w", err)
		}
	}
}

// buildRequest 组装请求体；传入的生成参数优先，否则使用配置中的非零值。
func (c *openAIClient) buildRequest(messages []Message, gen *GenerationParams) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	if gen == nil {
		gen = ParamsFromConfig(c.cfg.Generation)
	}
	if gen != nil {
		if gen.Temperature != nil {
			req.Temperature = float32(*gen.Temperature)
		}
		if gen.TopP != nil {
			req.TopP = float32(*gen.TopP)
		}
		if gen.MaxTokens != nil {
			req.MaxTokens = *gen.MaxTokens
		}
	}
	return req
}

// ParamsFromConfig 将配置中的非零生成参数转换为 GenerationParams，全部为零时返回 nil。
func ParamsFromConfig(cfg config.LLMGenerationConfig) *GenerationParams {
	var gp GenerationParams
	if cfg.Temperature != 0 {
		t := cfg.Temperature
		gp.Temperature = &t
	}
	if cfg.TopP != 0 {
		p := cfg.TopP
		gp.TopP = &p
	}
	if cfg.MaxTokens != 0 {
		m := cfg.MaxTokens
		gp.MaxTokens = &m
	}
	if gp.Temperature == nil && gp.TopP == nil && gp.MaxTokens == nil {
		return nil
	}
	return &gp
}
