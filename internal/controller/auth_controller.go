package controller

import (
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/service"
	"dsa_hub_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	UserService *service.UserService
	CookieName  string
	CookieTTL   int  // 秒
	IsRelease   bool // 是否为生产环境
}

func NewAuthController(authService *service.AuthService, userService *service.UserService, cookieName string, cookieTTL int, isRelease bool) *AuthController {
	return &AuthController{
		AuthService: authService,
		UserService: userService,
		CookieName:  cookieName,
		CookieTTL:   cookieTTL,
		IsRelease:   isRelease,
	}
}

func (c *AuthController) setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(c.CookieName, token, maxAge, "/", "", c.IsRelease, true)
}

// swagger:model SignupRequest
type SignupRequest struct {
	Username  string `json:"username" binding:"required,alphanum,min=3,max=30"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"firstName" binding:"max=50"`
	LastName  string `json:"lastName" binding:"max=50"`
}

// AuthResponse 登录与注册的返回
type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Signup godoc
// @Summary 注册新用户
// @Description 注册成功后签发 JWT 并写入 cookie
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body SignupRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=AuthResponse} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱或用户名已被占用"
// @Router /api/auth/signup [post]
func (c *AuthController) Signup(ctx *gin.Context) {
	var req SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}

	user, token, err := c.AuthService.Signup(service.SignupInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	c.setTokenCookie(ctx, token, c.CookieTTL)
	util.Created(ctx, AuthResponse{User: user, Token: token})
}

// swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary 用户登录
// @Description 验证用户身份并返回JWT令牌
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "用户登录凭据"
// @Success 200 {object} util.Response{data=AuthResponse} "登录成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}

	user, token, err := c.AuthService.Login(req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	c.setTokenCookie(ctx, token, c.CookieTTL)
	util.SuccessMessage(ctx, "Login successful", AuthResponse{User: user, Token: token})
}

// Logout godoc
// @Summary 退出登录
// @Description 清除 token cookie
// @Tags 认证
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	c.setTokenCookie(ctx, "", -1)
	util.SuccessMessage(ctx, "Logged out successfully", nil)
}

// CheckAuth godoc
// @Summary 检查登录状态
// @Tags 认证
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User}
// @Failure 401 {object} util.Response "未登录"
// @Router /api/auth/check-auth [get]
func (c *AuthController) CheckAuth(ctx *gin.Context) {
	c.GetProfile(ctx)
}

// GetProfile godoc
// @Summary 获取个人资料
// @Description 包含学习统计
// @Tags 用户
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/auth/profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	user, err := c.UserService.GetUser(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// swagger:model UpdateProfileRequest
type UpdateProfileRequest struct {
	FirstName      string  `json:"firstName" binding:"max=50"`
	LastName       string  `json:"lastName" binding:"max=50"`
	Bio            string  `json:"bio" binding:"max=500"`
	Contact        string  `json:"contact" binding:"max=50"`
	Country        string  `json:"country" binding:"max=50"`
	ProfilePicture *string `json:"profilePicture" binding:"omitempty,max=500"`
}

// UpdateProfile godoc
// @Summary 更新个人资料
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body UpdateProfileRequest true "资料"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/auth/profile/update [put]
func (c *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}

	user, err := c.UserService.UpdateProfile(userID, service.ProfileInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Bio:            req.Bio,
		Contact:        req.Contact,
		Country:        req.Country,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Profile updated successfully", user)
}

// UpdateStreak godoc
// @Summary 记录今日学习
// @Description 连续天数由服务端按日期计算
// @Tags 用户
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/auth/profile/streak [put]
func (c *AuthController) UpdateStreak(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	user, err := c.UserService.RecordActivity(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Streak updated successfully", user)
}

// swagger:model ChangePasswordRequest
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// ChangePassword godoc
// @Summary 修改密码
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ChangePasswordRequest true "新旧密码"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "当前密码错误"
// @Router /api/auth/change-password [put]
func (c *AuthController) ChangePassword(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, bindingMessage(err))
		return
	}
	if err := c.AuthService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Password changed successfully", nil)
}

// swagger:model SessionRequest
type SessionRequest struct {
	DurationMs int64 `json:"durationMs" binding:"required,gt=0"`
}

// RecordSession godoc
// @Summary 上报学习时长
// @Tags 学习统计
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SessionRequest true "本次会话时长（毫秒）"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "时长无效"
// @Router /api/auth/analytics/session [post]
func (c *AuthController) RecordSession(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req SessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "Invalid duration")
		return
	}
	if err := c.UserService.RecordSession(userID, req.DurationMs); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "Session time recorded.", nil)
}

// TotalTime godoc
// @Summary 累计学习时长
// @Tags 学习统计
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/auth/analytics/total-time [get]
func (c *AuthController) TotalTime(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	totalMs, totalHours, err := c.UserService.TotalTime(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"totalMs": totalMs, "totalHours": totalHours})
}
