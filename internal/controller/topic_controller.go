package controller

import (
	"dsa_hub_backend/internal/quizflow"
	"dsa_hub_backend/internal/service"
	"dsa_hub_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

type TopicController struct {
	TopicService *service.TopicService
}

func NewTopicController(topicService *service.TopicService) *TopicController {
	return &TopicController{TopicService: topicService}
}

// Initialize godoc
// @Summary 初始化学习路径
// @Description 按内置目录为当前用户创建主题进度，只能调用一次
// @Tags 主题
// @Produce  json
// @Security ApiKeyAuth
// @Success 201 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "已经初始化"
// @Router /api/topic/initialize [post]
func (c *TopicController) Initialize(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	count, err := c.TopicService.Initialize(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"count": count})
}

// List godoc
// @Summary 主题列表
// @Description 状态已按前置关系解析（locked/ready/in-progress/mastered）
// @Tags 主题
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]progress.Topic}
// @Router /api/topic [get]
func (c *TopicController) List(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	topics, err := c.TopicService.List(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// Stats godoc
// @Summary 主题统计
// @Tags 主题
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=progress.Stats}
// @Router /api/topic/stats [get]
func (c *TopicController) Stats(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	stats, err := c.TopicService.Stats(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// swagger:model ProgressRequest
type ProgressRequest struct {
	Score *int `json:"score" binding:"required,min=0,max=100"`
	// NewStatus 仅为兼容旧客户端，状态始终由分数推导
	NewStatus string `json:"newStatus" binding:"omitempty,oneof=not-started in-progress completed mastered"`
}

// UpdateProgress godoc
// @Summary 更新主题进度
// @Description 按分数更新掌握度，80 分及以上视为掌握
// @Tags 主题
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   topicId path string true "主题 id"
// @Param   body body ProgressRequest true "成绩"
// @Success 200 {object} util.Response{data=progress.Topic}
// @Failure 404 {object} util.Response "主题不存在"
// @Router /api/topic/{topicId}/progress [put]
func (c *TopicController) UpdateProgress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req ProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}
	topic, err := c.TopicService.RecordScore(userID, ctx.Param("topicId"), *req.Score)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Topic progress updated", topic)
}

// Reset godoc
// @Summary 重置主题进度
// @Tags 主题
// @Produce  json
// @Security ApiKeyAuth
// @Param   topicId path string true "主题 id"
// @Success 200 {object} util.Response{data=progress.Topic}
// @Failure 404 {object} util.Response "主题不存在"
// @Router /api/topic/{topicId}/reset [put]
func (c *TopicController) Reset(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	topic, err := c.TopicService.Reset(userID, ctx.Param("topicId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Topic progress reset", topic)
}

// swagger:model CreateAttemptRequest
type CreateAttemptRequest struct {
	AttemptID         string              `json:"attemptId" binding:"max=100"`
	TopicID           string              `json:"topicId" binding:"required_without=ContentID"`
	ContentID         string              `json:"contentId" binding:"required_without=TopicID"`
	Questions         []quizflow.Question `json:"questions" binding:"required,min=1"`
	UserAnswers       []*int              `json:"userAnswers" binding:"required"`
	TimeStarted       time.Time           `json:"timeStarted" binding:"required"`
	TimeCompleted     time.Time           `json:"timeCompleted"`
	IsRetake          bool                `json:"isRetake"`
	OriginalAttemptID string              `json:"originalAttemptId"`
}

// CreateAttempt godoc
// @Summary 保存测验记录
// @Description 客户端完成的测验，分数与正确数由服务端重新计算
// @Tags 主题
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CreateAttemptRequest true "测验记录"
// @Success 201 {object} util.Response{data=quizflow.Attempt}
// @Failure 400 {object} util.Response "答案与题目不匹配"
// @Failure 409 {object} util.Response "attemptId 已存在"
// @Router /api/topic/createAttempt [post]
func (c *TopicController) CreateAttempt(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CreateAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}

	attempt, err := c.TopicService.CreateAttempt(ctx.Request.Context(), userID, service.AttemptInput{
		AttemptID:         req.AttemptID,
		TopicID:           req.TopicID,
		ContentID:         req.ContentID,
		Questions:         req.Questions,
		UserAnswers:       req.UserAnswers,
		TimeStarted:       req.TimeStarted,
		TimeCompleted:     req.TimeCompleted,
		IsRetake:          req.IsRetake,
		OriginalAttemptID: req.OriginalAttemptID,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// GetUserAttempts godoc
// @Summary 按主题分组的测验记录
// @Tags 主题
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/topic/getUserAttempts [get]
func (c *TopicController) GetUserAttempts(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	grouped, err := c.TopicService.AttemptsBySubject(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, grouped)
}
