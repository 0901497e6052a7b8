package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"tutor-smart-go/pkg/llm"
	"tutor-smart-go/pkg/log"
)

// ErrClassificationFailed 表示兜底分类调用失败，错误链中保留上游错误。
var ErrClassificationFailed = errors.New("prompt classification failed")

// Completer 是兜底分类所需的补全能力，llm.Client 满足该接口。
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error)
}

// Classifier 先按关键词规则分类，规则全部未命中时才请求补全服务。
type Classifier struct {
	completer Completer
}

// NewClassifier 创建分类器。completer 通常是进程内共享的 llm.Client。
func NewClassifier(completer Completer) *Classifier {
	return &Classifier{completer: completer}
}

// Result 记录一次分类的语言与类别，以及是否走了兜底分类。
type Result struct {
	Language LanguageProfile
	Category Category
	Fallback bool
}

// Classify 返回 prompt 的类别。
func (c *Classifier) Classify(ctx context.Context, prompt string) (Category, error) {
	res, err := c.ClassifyDetailed(ctx, prompt)
	if err != nil {
		return "", err
	}
	return res.Category, nil
}

// ClassifyDetailed 与 Classify 相同，但同时返回检测到的语言。
// 兜底分类返回的标签原样透传，不做集合校验；调用方需要时自行 Normalize。
func (c *Classifier) ClassifyDetailed(ctx context.Context, prompt string) (*Result, error) {
	normalized := strings.ToLower(strings.TrimSpace(prompt))
	profile := DetectLanguage(normalized)

	if normalized == "" {
		return &Result{Language: profile, Category: CategoryOthers}, nil
	}

	if category, ok := matchRules(normalized, profile); ok {
		log.Debugf("[Classifier] 规则命中, category: %s, language: %s", category, profile)
		return &Result{Language: profile, Category: category}, nil
	}

	label, err := c.completer.Complete(ctx, fallbackMessages(prompt), fallbackParams())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}
	log.Infow("[Classifier] 规则未命中，使用兜底分类", "label", label, "language", profile.String())
	return &Result{Language: profile, Category: Category(label), Fallback: true}, nil
}

func fallbackMessages(prompt string) []llm.Message {
	labels := make([]string, 0, len(fallbackLabels))
	for _, l := range fallbackLabels {
		labels = append(labels, string(l))
	}
	instruction := fmt.Sprintf(
		"You classify questions sent to the assistant of an English tutoring platform. "+
			"Decide which data the question is about and answer with exactly one label from this list: %s. "+
			"Use User for questions about the asker's own account or profile, Class for questions about "+
			"classes, courses, schedules or classmates, and Others for everything else. "+
			"Reply with the label only, without punctuation or explanation.",
		strings.Join(labels, ", "),
	)
	return []llm.Message{
		{Role: llm.RoleSystem, Content: instruction},
		{Role: llm.RoleUser, Content: prompt},
	}
}

func fallbackParams() *llm.GenerationParams {
	temperature := 0.0
	maxTokens := 10
	return &llm.GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens}
}
