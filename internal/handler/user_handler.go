package handler

import (
	"net/http"
	"strconv"
	"tutor-smart-go/internal/middleware"
	"tutor-smart-go/internal/service"
	"tutor-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理所有与用户相关的 API 请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Register 处理用户注册请求。
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Register: Invalid request payload, error: %v", err)
		respondError(c, http.StatusBadRequest, "无效的请求负载：用户名不少于3位，密码不少于6位")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, "Register", err)
		return
	}

	log.Infof("User '%s' registered successfully", user.Username)
	respondOK(c, "User registered successfully", user.Profile())
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：用户名和密码不能为空")
		return
	}

	accessToken, refreshToken, err := h.userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(c, "Login", err)
		return
	}

	log.Infof("User '%s' logged in successfully", req.Username)
	respondOK(c, "Login successful", gin.H{"token": accessToken, "refreshToken": refreshToken})
}

// GetProfile 返回当前用户的资料。
func (h *UserHandler) GetProfile(c *gin.Context) {
	respondOK(c, "success", mustUser(c).Profile())
}

// UpdateProfile 修改当前用户的显示名、邮箱或英语水平。
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载")
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), mustUser(c).ID, req)
	if err != nil {
		respondServiceError(c, "UpdateProfile", err)
		return
	}
	respondOK(c, "Profile updated", user.Profile())
}

// Logout 将当前 token 加入黑名单。
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.userService.Logout(c.Request.Context(), c.GetString(middleware.ContextTokenKey)); err != nil {
		respondServiceError(c, "Logout", err)
		return
	}
	respondOK(c, "Logout successful", nil)
}

// ListUsers 供管理员分页查看用户。
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	list, err := h.userService.ListUsers(c.Request.Context(), page, size)
	if err != nil {
		respondServiceError(c, "ListUsers", err)
		return
	}
	respondOK(c, "success", list)
}

// SetRoleRequest 是管理员修改角色的入参。
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetRole 供管理员修改用户角色。
func (h *UserHandler) SetRole(c *gin.Context) {
	userID, err := parseID(c, "id")
	if err != nil {
		return
	}
	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：role 不能为空")
		return
	}
	if err := h.userService.SetRole(c.Request.Context(), userID, req.Role); err != nil {
		respondServiceError(c, "SetRole", err)
		return
	}
	respondOK(c, "Role updated", nil)
}

// parseID 解析路径参数，失败时已写入 400 响应。
func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的 "+name)
		return 0, err
	}
	return uint(id), nil
}
