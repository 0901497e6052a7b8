package service

import (
	"context"
	"encoding/json"
	"fmt"
	"tutor-smart-go/internal/classifier"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/repository"
	"tutor-smart-go/pkg/log"
)

// DefaultNoContextText 是没有可用上下文时写入提示词的固定文本。
const DefaultNoContextText = "No context found, answer with basic English-learning knowledge."

// ContextProvider 为某一类问题检索用于落地回答的数据，并序列化为文本。
type ContextProvider interface {
	Fetch(ctx context.Context, userID uint) (string, error)
}

// NoContextProvider 总是返回固定的“无上下文”文本，用于尚未接入数据源的类别。
type NoContextProvider struct {
	Text string
}

func (p NoContextProvider) Fetch(context.Context, uint) (string, error) {
	return p.Text, nil
}

// userProfileProvider 读取提问者本人的资料。
type userProfileProvider struct {
	userRepo repository.UserRepository
}

// NewUserProfileProvider 创建读取用户资料的 ContextProvider。
func NewUserProfileProvider(userRepo repository.UserRepository) ContextProvider {
	return &userProfileProvider{userRepo: userRepo}
}

func (p *userProfileProvider) Fetch(ctx context.Context, userID uint) (string, error) {
	user, err := p.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user profile: %w", err)
	}
	return serializeContext(user.Profile())
}

// classRosterProvider 读取提问者所在的班级及花名册。
type classRosterProvider struct {
	classRepo repository.ClassRepository
}

// NewClassRosterProvider 创建读取班级花名册的 ContextProvider。
func NewClassRosterProvider(classRepo repository.ClassRepository) ContextProvider {
	return &classRosterProvider{classRepo: classRepo}
}

func (p *classRosterProvider) Fetch(ctx context.Context, userID uint) (string, error) {
	classes, err := p.classRepo.FindByMember(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load class roster: %w", err)
	}
	rosters := make([]model.RosterEntry, 0, len(classes))
	for i := range classes {
		rosters = append(rosters, classes[i].Roster())
	}
	return serializeContext(rosters)
}

func serializeContext(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize context: %w", err)
	}
	return string(b), nil
}

// ContextAssembler 根据问题类别选择 ContextProvider。
type ContextAssembler struct {
	providers map[classifier.Category]ContextProvider
}

// NewContextAssembler 创建上下文装配器。每个类别都显式映射到一个 provider；
// 接入新的数据源时只需修改这里对应的一行。
func NewContextAssembler(userRepo repository.UserRepository, classRepo repository.ClassRepository, noContextText string) *ContextAssembler {
	if noContextText == "" {
		noContextText = DefaultNoContextText
	}
	none := NoContextProvider{Text: noContextText}
	return &ContextAssembler{
		providers: map[classifier.Category]ContextProvider{
			classifier.CategoryUser:       NewUserProfileProvider(userRepo),
			classifier.CategoryClass:      NewClassRosterProvider(classRepo),
			classifier.CategoryAssignment: none,
			classifier.CategorySubmission: none,
			classifier.CategoryQuestion:   none,
			classifier.CategoryFeedback:   none,
			classifier.CategoryProgress:   none,
			classifier.CategoryOthers:     none,
		},
	}
}

// GetContext 返回用于落地回答的上下文文本。不在封闭集合内的标签按 Others 处理。
func (a *ContextAssembler) GetContext(ctx context.Context, category classifier.Category, userID uint) (string, error) {
	resolved := category
	if !category.IsKnown() {
		resolved = category.Normalize()
		log.Warnw("[ContextAssembler] 未识别的类别标签，已规范化", "label", string(category), "resolved", resolved.String())
	}
	return a.providers[resolved].Fetch(ctx, userID)
}
