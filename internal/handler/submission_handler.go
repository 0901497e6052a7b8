package handler

import (
	"net/http"
	"strconv"
	"strings"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/service"

	"github.com/gin-gonic/gin"
)

// SubmissionHandler 提供异步批改任务的提交与查询接口。
type SubmissionHandler struct {
	grading service.GradingService
}

// NewSubmissionHandler 创建 SubmissionHandler。
func NewSubmissionHandler(grading service.GradingService) *SubmissionHandler {
	return &SubmissionHandler{grading: grading}
}

// SubmitWriting 接收 JSON 正文或 multipart 文件（字段 file + questionText）。
func (h *SubmissionHandler) SubmitWriting(c *gin.Context) {
	user := mustUser(c)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.submitWritingFile(c, user)
		return
	}

	var req WritingGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：questionText 与 submissionText 不能为空")
		return
	}
	sub, err := h.grading.SubmitWriting(c.Request.Context(), user.ID, req.QuestionText, req.SubmissionText)
	if err != nil {
		respondServiceError(c, "SubmitWriting", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": http.StatusAccepted, "message": "Submission accepted", "data": sub.ToDTO()})
}

func (h *SubmissionHandler) submitWritingFile(c *gin.Context, user *model.User) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "缺少上传文件")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "无法读取上传文件")
		return
	}
	defer file.Close()

	sub, err := h.grading.SubmitWritingFile(c.Request.Context(), user.ID, c.PostForm("questionText"), service.SubmissionFile{
		Name:        fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		respondServiceError(c, "SubmitWritingFile", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": http.StatusAccepted, "message": "Submission accepted", "data": sub.ToDTO()})
}

// SubmitSpeaking 接收口语题目与回答转写。
func (h *SubmissionHandler) SubmitSpeaking(c *gin.Context) {
	var req SpeakingGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：questionText 与 answerText 不能为空")
		return
	}
	sub, err := h.grading.SubmitSpeaking(c.Request.Context(), mustUser(c).ID, req.QuestionText, req.AnswerText)
	if err != nil {
		respondServiceError(c, "SubmitSpeaking", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": http.StatusAccepted, "message": "Submission accepted", "data": sub.ToDTO()})
}

// GetSubmission 查询一条批改记录。
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}
	sub, err := h.grading.GetSubmission(c.Request.Context(), mustUser(c).ID, id)
	if err != nil {
		respondServiceError(c, "GetSubmission", err)
		return
	}
	respondOK(c, "success", sub.ToDTO())
}

// ListSubmissions 返回当前用户最近的批改记录。
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	subs, err := h.grading.ListSubmissions(c.Request.Context(), mustUser(c).ID, limit)
	if err != nil {
		respondServiceError(c, "ListSubmissions", err)
		return
	}
	dtos := make([]model.SubmissionDTO, 0, len(subs))
	for i := range subs {
		dtos = append(dtos, subs[i].ToDTO())
	}
	respondOK(c, "success", dtos)
}
