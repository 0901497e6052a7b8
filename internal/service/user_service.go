package service

import (
	"context"
	"errors"
	"fmt"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/repository"
	"tutor-smart-go/pkg/hash"
	"tutor-smart-go/pkg/log"
	"tutor-smart-go/pkg/token"

	"gorm.io/gorm"
)

var (
	ErrUsernameTaken      = errors.New("用户名已存在")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// RegisterRequest 是注册接口的入参。
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=100"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Level       string `json:"level"`
}

// UpdateProfileRequest 是修改个人资料的入参，空字段保持不变。
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
	Level       *string `json:"level"`
}

// UserListResponse 定义了用户列表 API 的响应结构。
type UserListResponse struct {
	Content       []model.UserProfile `json:"content"`
	TotalElements int64               `json:"totalElements"`
	TotalPages    int                 `json:"totalPages"`
	Size          int                 `json:"size"`
	Number        int                 `json:"number"`
}

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*model.User, error)
	Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error)
	GetProfile(ctx context.Context, userID uint) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*model.User, error)
	Logout(ctx context.Context, tokenString string) error
	RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken, newRefreshToken string, err error)
	// Authenticate 校验 access token 并返回对应用户，供中间件与 websocket 握手使用。
	Authenticate(ctx context.Context, tokenString string) (*model.User, error)

	SetRole(ctx context.Context, userID uint, role string) error
	ListUsers(ctx context.Context, page, size int) (*UserListResponse, error)
	// EnsureAdmin 在管理员账号不存在时创建它，已存在则不做任何修改。
	EnsureAdmin(ctx context.Context, username, password string) error
}

type userService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtManager: jwtManager,
	}
}

// Register 创建学生账号，新用户默认角色为 STUDENT。
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	_, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:    req.Username,
		Password:    hashedPassword,
		Role:        model.RoleStudent,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Level:       req.Level,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		log.Errorf("[UserService] 创建用户失败, username: %s, error: %v", req.Username, err)
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return user, nil
}

// Login 校验密码并签发 access token 与 refresh token。
func (s *userService) Login(ctx context.Context, username, password string) (string, string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}
	if !hash.CheckPasswordHash(password, user.Password) {
		return "", "", ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

func (s *userService) issueTokens(user *model.User) (string, string, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (s *userService) GetProfile(ctx context.Context, userID uint) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Level != nil {
		user.Level = *req.Level
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout 将 token 加入 Redis 黑名单，过期时间为 token 的剩余有效期。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString, token.KindAccess)
	if err != nil {
		return err
	}
	return s.tokenRepo.Revoke(ctx, tokenString, s.jwtManager.Remaining(claims))
}

// RefreshToken 验证 refresh token 并签发新的 access token 和 refresh token。
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (string, string, error) {
	claims, err := s.jwtManager.VerifyToken(refreshTokenString, token.KindRefresh)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", "", err
	}
	return s.issueTokens(user)
}

func (s *userService) Authenticate(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.jwtManager.VerifyToken(tokenString, token.KindAccess)
	if err != nil {
		return nil, err
	}
	revoked, err := s.tokenRepo.IsRevoked(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return s.userRepo.FindByID(ctx, claims.UserID)
}

// SetRole 修改用户角色，仅管理员可调用。
func (s *userService) SetRole(ctx context.Context, userID uint, role string) error {
	switch role {
	case model.RoleStudent, model.RoleTeacher, model.RoleAdmin:
	default:
		return ErrInvalidRole
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.Role = role
	return s.userRepo.Update(ctx, user)
}

// ListUsers 分页列出用户，page 从 1 开始。
func (s *userService) ListUsers(ctx context.Context, page, size int) (*UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	users, total, err := s.userRepo.FindWithPagination(ctx, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	content := make([]model.UserProfile, 0, len(users))
	for i := range users {
		content = append(content, users[i].Profile())
	}
	totalPages := 0
	if total > 0 {
		totalPages = (int(total) + size - 1) / size
	}
	return &UserListResponse{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
	}, nil
}

func (s *userService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}
	_, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.userRepo.Create(ctx, &model.User{Username: username, Password: hashedPassword, Role: model.RoleAdmin}); err != nil {
		return fmt.Errorf("创建管理员失败: %w", err)
	}
	log.Infof("[UserService] 已创建管理员账号: %s", username)
	return nil
}
