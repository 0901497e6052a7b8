// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"context"
	"errors"
	"net/http"
	"tutor-smart-go/internal/classifier"
	"tutor-smart-go/internal/middleware"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/service"
	"tutor-smart-go/pkg/llm"
	"tutor-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": message, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
}

// respondServiceError 把业务错误映射为 HTTP 状态码。
func respondServiceError(c *gin.Context, op string, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s 失败: %v", op, err)
	} else {
		log.Warnf("%s 失败: %v", op, err)
	}
	respondError(c, status, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "记录不存在"
	case errors.Is(err, llm.ErrUpstreamUnavailable), errors.Is(err, classifier.ErrClassificationFailed):
		return http.StatusBadGateway, "AI服务暂时不可用，请稍后重试"
	case errors.Is(err, service.ErrSubmissionForbidden), errors.Is(err, service.ErrNotClassTeacher):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "无效的凭证"
	case errors.Is(err, service.ErrEmptySubmission),
		errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, service.ErrSubmissionFileTooBig),
		errors.Is(err, service.ErrInvalidRole):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "请求超时"
	default:
		return http.StatusInternalServerError, "服务器内部错误"
	}
}

// mustUser 返回当前登录用户，路由均挂在 AuthMiddleware 之后。
func mustUser(c *gin.Context) *model.User {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		panic("handler: route registered without AuthMiddleware")
	}
	return user
}
