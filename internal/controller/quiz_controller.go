package controller

import (
	"dsa_hub_backend/internal/quizflow"
	"dsa_hub_backend/internal/service"
	"dsa_hub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// MoveResponse 前进/后退的结果，Moved 为 false 表示已在边界
type MoveResponse struct {
	State *quizflow.State `json:"state"`
	Moved bool            `json:"moved"`
}

// FinishResponse 测验结束时附带归档记录
type FinishResponse struct {
	State   *quizflow.State   `json:"state"`
	Attempt *quizflow.Attempt `json:"attempt,omitempty"`
}

// StartTopic godoc
// @Summary 开始主题测验
// @Description 从题库随机抽题，未解锁的主题不能开始；已有进行中的测验时返回 409
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   topicId path string true "主题 id"
// @Success 201 {object} util.Response{data=quizflow.State}
// @Failure 403 {object} util.Response "主题未解锁"
// @Failure 404 {object} util.Response "主题没有题库"
// @Failure 409 {object} util.Response "已有进行中的测验"
// @Router /api/quiz/start/topic/{topicId} [post]
func (c *QuizController) StartTopic(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	state, err := c.QuizService.StartTopic(userID, ctx.Param("topicId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, state)
}

// StartContent godoc
// @Summary 开始内容测验
// @Description 使用该内容最近生成的测验
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   contentId path int true "内容 id"
// @Success 201 {object} util.Response{data=quizflow.State}
// @Failure 404 {object} util.Response "尚未生成测验"
// @Failure 409 {object} util.Response "已有进行中的测验"
// @Router /api/quiz/start/content/{contentId} [post]
func (c *QuizController) StartContent(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	contentID, err := service.ParseContentID(ctx.Param("contentId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	state, err := c.QuizService.StartContent(userID, contentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, state)
}

// swagger:model RetakeRequest
type RetakeRequest struct {
	Kind      quizflow.SubjectKind `json:"kind" binding:"omitempty,oneof=topic content"`
	SubjectID string               `json:"subjectId" binding:"required_without=AttemptID"`
	AttemptID string               `json:"attemptId"`
}

// Retake godoc
// @Summary 重做测验
// @Description 指定 attemptId 时重做该次测验，否则重做该主题/内容最近一次测验
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body RetakeRequest true "重做对象"
// @Success 201 {object} util.Response{data=quizflow.State}
// @Failure 404 {object} util.Response "记录不存在"
// @Failure 409 {object} util.Response "已有进行中的测验"
// @Router /api/quiz/retake [post]
func (c *QuizController) Retake(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req RetakeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}
	if req.Kind == "" {
		req.Kind = quizflow.SubjectTopic
	}

	state, err := c.QuizService.Retake(ctx.Request.Context(), userID, service.RetakeInput{
		Subject:   quizflow.Subject{Kind: req.Kind, ID: req.SubjectID},
		AttemptID: req.AttemptID,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, state)
}

// Current godoc
// @Summary 当前测验
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=quizflow.State}
// @Failure 404 {object} util.Response "没有进行中的测验"
// @Router /api/quiz/current [get]
func (c *QuizController) Current(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	state, err := c.QuizService.Current(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// swagger:model AnswerRequest
type AnswerRequest struct {
	Option *int `json:"option" binding:"required,min=0,max=3"`
}

// Answer godoc
// @Summary 作答当前题
// @Description 可以修改已选答案
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body AnswerRequest true "选项下标 0-3"
// @Success 200 {object} util.Response{data=quizflow.State}
// @Failure 409 {object} util.Response "测验已结束"
// @Router /api/quiz/current/answer [post]
func (c *QuizController) Answer(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}
	state, err := c.QuizService.Answer(userID, *req.Option)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// Next godoc
// @Summary 下一题
// @Description 最后一题时提交并归档
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=FinishResponse}
// @Router /api/quiz/current/next [post]
func (c *QuizController) Next(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	state, attempt, err := c.QuizService.Next(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, FinishResponse{State: state, Attempt: attempt})
}

// Advance godoc
// @Summary 前进一题
// @Description 不会提交测验，已在最后一题时 moved 为 false
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=MoveResponse}
// @Router /api/quiz/current/advance [post]
func (c *QuizController) Advance(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	state, moved, err := c.QuizService.Advance(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, MoveResponse{State: state, Moved: moved})
}

// Previous godoc
// @Summary 上一题
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=MoveResponse}
// @Router /api/quiz/current/previous [post]
func (c *QuizController) Previous(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	state, moved, err := c.QuizService.Previous(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, MoveResponse{State: state, Moved: moved})
}

// swagger:model NavigateRequest
type NavigateRequest struct {
	Index *int `json:"index" binding:"required"`
}

// Navigate godoc
// @Summary 跳转到指定题
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body NavigateRequest true "题目下标"
// @Success 200 {object} util.Response{data=quizflow.State}
// @Failure 400 {object} util.Response "下标越界"
// @Router /api/quiz/current/navigate [post]
func (c *QuizController) Navigate(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req NavigateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}
	state, err := c.QuizService.NavigateTo(userID, *req.Index)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// Finish godoc
// @Summary 提交测验
// @Description 未作答的题按错误计分
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=FinishResponse}
// @Failure 409 {object} util.Response "测验已结束"
// @Router /api/quiz/current/finish [post]
func (c *QuizController) Finish(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	state, attempt, err := c.QuizService.Finish(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, FinishResponse{State: state, Attempt: attempt})
}

// Close godoc
// @Summary 关闭当前测验
// @Description 未提交的测验直接丢弃
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/quiz/current [delete]
func (c *QuizController) Close(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	c.QuizService.Close(userID)
	util.SuccessMessage(ctx, "Quiz closed", nil)
}

func subjectParam(ctx *gin.Context) quizflow.Subject {
	kind := quizflow.SubjectKind(ctx.DefaultQuery("kind", string(quizflow.SubjectTopic)))
	return quizflow.Subject{Kind: kind, ID: ctx.Param("subjectId")}
}

// ListAttempts godoc
// @Summary 测验记录
// @Description 最新的在前
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   subjectId path string true "主题 id 或内容 id"
// @Param   kind query string false "topic | content，默认 topic"
// @Success 200 {object} util.Response{data=[]quizflow.Attempt}
// @Router /api/quiz/attempts/{subjectId} [get]
func (c *QuizController) ListAttempts(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	attempts, err := c.QuizService.ListAttempts(ctx.Request.Context(), userID, subjectParam(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// LatestAttempt godoc
// @Summary 最近一次测验记录
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   subjectId path string true "主题 id 或内容 id"
// @Param   kind query string false "topic | content"
// @Success 200 {object} util.Response{data=quizflow.Attempt}
// @Failure 404 {object} util.Response "没有记录"
// @Router /api/quiz/attempts/{subjectId}/latest [get]
func (c *QuizController) LatestAttempt(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	attempt, err := c.QuizService.LatestAttempt(ctx.Request.Context(), userID, subjectParam(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// GetAttempt godoc
// @Summary 测验记录详情
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   attemptId path string true "记录 id"
// @Success 200 {object} util.Response{data=quizflow.Attempt}
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/quiz/attempt/{attemptId} [get]
func (c *QuizController) GetAttempt(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	attempt, err := c.QuizService.FindAttempt(ctx.Request.Context(), userID, ctx.Param("attemptId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}
