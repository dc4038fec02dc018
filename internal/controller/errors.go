package controller

import (
	"dsa_hub_backend/internal/quizflow"
	"dsa_hub_backend/internal/service"
	"dsa_hub_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// errorStatus 业务错误到 HTTP 状态码，未列出的按 500 处理
var errorStatus = []struct {
	err  error
	code int
}{
	{util.ErrUserNotFound, http.StatusNotFound},
	{util.ErrEmailRegistered, http.StatusConflict},
	{util.ErrUsernameTaken, http.StatusConflict},
	{util.ErrInvalidCredentials, http.StatusUnauthorized},
	{util.ErrWrongPassword, http.StatusBadRequest},

	{util.ErrTopicNotFound, http.StatusNotFound},
	{util.ErrTopicLocked, http.StatusForbidden},
	{util.ErrTopicsInitialized, http.StatusConflict},
	{util.ErrAttemptNotFound, http.StatusNotFound},
	{util.ErrAttemptExists, http.StatusConflict},
	{util.ErrNoQuizData, http.StatusNotFound},

	{util.ErrContentNotFound, http.StatusNotFound},
	{util.ErrQuizNotFound, http.StatusNotFound},
	{util.ErrNoQuizForContent, http.StatusNotFound},
	{util.ErrContentNotReady, http.StatusBadRequest},
	{util.ErrNoExtractedText, http.StatusBadRequest},
	{util.ErrUnsupportedFile, http.StatusBadRequest},
	{util.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{util.ErrInvalidYouTubeURL, http.StatusBadRequest},
	{util.ErrTextTooShort, http.StatusBadRequest},
	{util.ErrAIInvalidOutput, http.StatusBadGateway},

	{quizflow.ErrQuizActive, http.StatusConflict},
	{quizflow.ErrNoActiveQuiz, http.StatusNotFound},
	{quizflow.ErrAttemptCompleted, http.StatusConflict},
	{quizflow.ErrIndexOutOfRange, http.StatusBadRequest},
	{quizflow.ErrInvalidOption, http.StatusBadRequest},
	{quizflow.ErrAnswerMismatch, http.StatusBadRequest},
	{quizflow.ErrNoQuestions, http.StatusBadRequest},
	{quizflow.ErrInvalidQuestion, http.StatusBadRequest},
	{quizflow.ErrInvalidSubject, http.StatusBadRequest},
}

func respondError(ctx *gin.Context, err error) {
	var unavailable *service.ErrProviderUnavailable
	var rateLimited *service.ErrRateLimit
	var invalid *service.ErrInvalidResponse
	var truncated *service.ErrMaxTokensExceeded
	switch {
	case errors.As(err, &unavailable), errors.As(err, &rateLimited):
		util.Error(ctx, http.StatusServiceUnavailable, util.ErrAIUnavailable.Error())
		return
	case errors.As(err, &invalid), errors.As(err, &truncated):
		util.Error(ctx, http.StatusBadGateway, util.ErrAIInvalidOutput.Error())
		return
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			util.Error(ctx, e.code, e.err.Error())
			return
		}
	}
	util.LogInternalError(ctx, err)
}

// currentUserID 认证中间件之后调用
func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}
