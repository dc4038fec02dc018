package controller

import (
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/service"
	"dsa_hub_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
	// DefaultQuestionCount 请求未指定题数时使用
	DefaultQuestionCount int
}

func NewContentController(contentService *service.ContentService, defaultQuestionCount int) *ContentController {
	return &ContentController{
		ContentService:       contentService,
		DefaultQuestionCount: defaultQuestionCount,
	}
}

// UploadPDF godoc
// @Summary 上传 PDF
// @Description 保存文件后在后台提取文本，通过状态接口查询进度
// @Tags 内容
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "PDF 文件"
// @Param   title formData string false "标题，默认使用文件名"
// @Success 202 {object} util.Response{data=model.Content}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Failure 413 {object} util.Response "文件过大"
// @Router /api/content/upload/pdf [post]
func (c *ContentController) UploadPDF(ctx *gin.Context) {
	c.upload(ctx, model.ContentPDF, "PDF uploaded successfully. Processing started.")
}

// UploadImage godoc
// @Summary 上传图片
// @Description 后台 OCR 识别文字
// @Tags 内容
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "图片"
// @Param   title formData string false "标题"
// @Success 202 {object} util.Response{data=model.Content}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/content/upload/image [post]
func (c *ContentController) UploadImage(ctx *gin.Context) {
	c.upload(ctx, model.ContentImage, "Image uploaded successfully. Processing started.")
}

// UploadVideo godoc
// @Summary 上传视频
// @Description 后台抽取音轨并转写
// @Tags 内容
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "视频"
// @Param   title formData string false "标题"
// @Success 202 {object} util.Response{data=model.Content}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/content/upload/video [post]
func (c *ContentController) UploadVideo(ctx *gin.Context) {
	c.upload(ctx, model.ContentVideo, "Video uploaded successfully. Processing started.")
}

func (c *ContentController) upload(ctx *gin.Context, contentType model.ContentType, message string) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "No file uploaded")
		return
	}

	content, err := c.ContentService.Upload(userID, contentType, file, service.UploadInput{
		Title:       ctx.PostForm("title"),
		Description: ctx.PostForm("description"),
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Accepted(ctx, message, content)
}

// swagger:model YouTubeRequest
type YouTubeRequest struct {
	URL   string `json:"url" binding:"required,youtube_url"`
	Title string `json:"title" binding:"required,min=1,max=200"`
}

// UploadYouTube godoc
// @Summary 提交 YouTube 链接
// @Description 后台下载音频并转写
// @Tags 内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body YouTubeRequest true "链接与标题"
// @Success 202 {object} util.Response{data=model.Content}
// @Failure 400 {object} util.Response "链接无效"
// @Router /api/content/upload/youtube [post]
func (c *ContentController) UploadYouTube(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req YouTubeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}

	content, err := c.ContentService.SubmitYouTube(userID, req.URL, req.Title)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Accepted(ctx, "YouTube URL submitted successfully. Processing started.", content)
}

// swagger:model GenerateQuizRequest
type GenerateQuizRequest struct {
	ContentID     string `json:"contentId" binding:"required"`
	QuestionCount int    `json:"questionCount" binding:"omitempty,min=5,max=20"`
	Difficulty    string `json:"difficulty" binding:"difficulty"`
}

// GenerateQuiz godoc
// @Summary 生成测验
// @Description 调用本地 LLM 为已处理完成的内容生成选择题，旧测验被停用
// @Tags 内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateQuizRequest true "内容与题数"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response "内容尚未处理完成"
// @Failure 404 {object} util.Response "内容不存在"
// @Failure 503 {object} util.Response "LLM 不可用"
// @Router /api/content/generate-quiz [post]
func (c *ContentController) GenerateQuiz(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req GenerateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}
	contentID, err := service.ParseContentID(req.ContentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if req.QuestionCount == 0 {
		req.QuestionCount = c.DefaultQuestionCount
	}
	if req.Difficulty == "" {
		req.Difficulty = "mixed"
	}

	quiz, err := c.ContentService.GenerateQuiz(ctx.Request.Context(), userID, contentID, req.QuestionCount, req.Difficulty)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, util.Response{
		Success: true,
		Message: "Quiz generated successfully",
		Data:    quiz,
	})
}

// swagger:model PrerequisiteRequest
type PrerequisiteRequest struct {
	ContentID string `json:"contentId" binding:"required"`
}

// GeneratePrerequisites godoc
// @Summary 生成前置知识
// @Description 已生成过时直接返回已有结果
// @Tags 内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body PrerequisiteRequest true "内容 id"
// @Success 200 {object} util.Response{data=service.PrerequisiteResult}
// @Failure 400 {object} util.Response "内容尚未处理完成"
// @Failure 503 {object} util.Response "LLM 不可用"
// @Router /api/content/generate-prerequisites [post]
func (c *ContentController) GeneratePrerequisites(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req PrerequisiteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "contentId is required")
		return
	}
	contentID, err := service.ParseContentID(req.ContentID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	result, generated, err := c.ContentService.GeneratePrerequisites(ctx.Request.Context(), userID, contentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	message := "Prerequisites and learning resources saved successfully"
	if !generated {
		message = "Prerequisites already generated"
	}
	util.SuccessMessage(ctx, message, result)
}

func pageParams(ctx *gin.Context) (int, int) {
	page := util.ParseIntDefault(ctx.Query("page"), 1)
	limit := util.ParseIntDefault(ctx.Query("limit"), 0)
	return service.NormalizePage(page, limit)
}

// List godoc
// @Summary 内容列表
// @Tags 内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量，最大 100"
// @Param   type query string false "pdf | image | video | youtube"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/content/content [get]
func (c *ContentController) List(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	page, limit := pageParams(ctx)
	contents, total, err := c.ContentService.List(userID, model.ContentType(ctx.Query("type")), page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: contents, Total: total, Page: page, Limit: limit})
}

func contentIDParam(ctx *gin.Context) (uint, bool) {
	id, err := service.ParseContentID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "Invalid content id")
		return 0, false
	}
	return id, true
}

// Get godoc
// @Summary 内容详情
// @Tags 内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "内容 id"
// @Success 200 {object} util.Response{data=model.Content}
// @Failure 404 {object} util.Response "内容不存在"
// @Router /api/content/content/{id} [get]
func (c *ContentController) Get(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	contentID, ok := contentIDParam(ctx)
	if !ok {
		return
	}
	content, err := c.ContentService.Get(userID, contentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

// Status godoc
// @Summary 处理状态
// @Description 处理中时附带后台进度
// @Tags 内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "内容 id"
// @Success 200 {object} util.Response{data=service.ContentStatus}
// @Failure 404 {object} util.Response "内容不存在"
// @Router /api/content/content/{id}/status [get]
func (c *ContentController) Status(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	contentID, ok := contentIDParam(ctx)
	if !ok {
		return
	}
	status, err := c.ContentService.Status(ctx.Request.Context(), userID, contentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// Delete godoc
// @Summary 删除内容
// @Description 同时停用其测验并删除测验记录
// @Tags 内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "内容 id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "内容不存在"
// @Router /api/content/content/{id} [delete]
func (c *ContentController) Delete(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	contentID, ok := contentIDParam(ctx)
	if !ok {
		return
	}
	if err := c.ContentService.Delete(ctx.Request.Context(), userID, contentID); err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Content deleted successfully", nil)
}

// GetQuiz godoc
// @Summary 测验详情
// @Tags 内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测验 id"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/content/quiz/{id} [get]
func (c *ContentController) GetQuiz(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	quiz, err := c.ContentService.GetQuiz(userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// ListQuizzes godoc
// @Summary 测验列表
// @Description 只包含有效测验
// @Tags 内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/content/quizzes [get]
func (c *ContentController) ListQuizzes(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	page, limit := pageParams(ctx)
	quizzes, total, err := c.ContentService.ListQuizzes(userID, page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: quizzes, Total: total, Page: page, Limit: limit})
}

// OllamaHealth godoc
// @Summary LLM 健康检查
// @Tags 系统
// @Produce  json
// @Success 200 {object} util.Response{data=service.AIHealth}
// @Failure 503 {object} util.Response{data=service.AIHealth}
// @Router /api/content/health/ollama [get]
func (c *ContentController) OllamaHealth(ctx *gin.Context) {
	health := c.ContentService.Health(ctx.Request.Context())
	if !health.Healthy {
		ctx.JSON(http.StatusServiceUnavailable, util.Response{
			Success: false,
			Message: util.ErrAIUnavailable.Error(),
			Data:    health,
		})
		return
	}
	util.Success(ctx, health)
}
