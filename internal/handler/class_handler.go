package handler

import (
	"net/http"
	"tutor-smart-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ClassHandler 提供班级与花名册接口。
type ClassHandler struct {
	classService service.ClassService
}

// NewClassHandler 创建 ClassHandler。
func NewClassHandler(classService service.ClassService) *ClassHandler {
	return &ClassHandler{classService: classService}
}

// CreateClass 供老师或管理员创建班级。
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：name 不能为空")
		return
	}
	class, err := h.classService.CreateClass(c.Request.Context(), req, mustUser(c))
	if err != nil {
		respondServiceError(c, "CreateClass", err)
		return
	}
	respondOK(c, "Class created", class.Roster())
}

// ListMyClasses 返回当前用户参与的班级。
func (h *ClassHandler) ListMyClasses(c *gin.Context) {
	rosters, err := h.classService.ListMyClasses(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		respondServiceError(c, "ListMyClasses", err)
		return
	}
	respondOK(c, "success", rosters)
}

// GetClass 返回班级花名册。
func (h *ClassHandler) GetClass(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}
	class, err := h.classService.GetClass(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, "GetClass", err)
		return
	}
	respondOK(c, "success", class.Roster())
}

// MembersRequest 是增加班级成员的入参。
type MembersRequest struct {
	UserIDs []uint `json:"userIds" binding:"required,min=1"`
}

// AddMembers 把学生加入班级。
func (h *ClassHandler) AddMembers(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}
	var req MembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：userIds 不能为空")
		return
	}
	if err := h.classService.AddMembers(c.Request.Context(), id, req.UserIDs, mustUser(c)); err != nil {
		respondServiceError(c, "AddMembers", err)
		return
	}
	respondOK(c, "Members added", nil)
}

// RemoveMember 把学生移出班级。
func (h *ClassHandler) RemoveMember(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}
	userID, err := parseID(c, "userId")
	if err != nil {
		return
	}
	if err := h.classService.RemoveMember(c.Request.Context(), id, userID, mustUser(c)); err != nil {
		respondServiceError(c, "RemoveMember", err)
		return
	}
	respondOK(c, "Member removed", nil)
}
