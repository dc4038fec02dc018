package controller

import (
	"dsa_hub_backend/internal/quizflow"
	"dsa_hub_backend/internal/service"
	"dsa_hub_backend/internal/util"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"wrapped not found", fmt.Errorf("%w: heaps", util.ErrTopicNotFound), http.StatusNotFound, util.ErrTopicNotFound.Error()},
		{"no question bank", fmt.Errorf("%w: deque", util.ErrNoQuizData), http.StatusNotFound, util.ErrNoQuizData.Error()},
		{"duplicate attempt", fmt.Errorf("%w: arrays-1", util.ErrAttemptExists), http.StatusConflict, util.ErrAttemptExists.Error()},
		{"locked", util.ErrTopicLocked, http.StatusForbidden, util.ErrTopicLocked.Error()},
		{"quiz active", quizflow.ErrQuizActive, http.StatusConflict, quizflow.ErrQuizActive.Error()},
		{"out of range", fmt.Errorf("index 9: %w", quizflow.ErrIndexOutOfRange), http.StatusBadRequest, quizflow.ErrIndexOutOfRange.Error()},
		{"too large", util.ErrFileTooLarge, http.StatusRequestEntityTooLarge, util.ErrFileTooLarge.Error()},
		{"provider down", &service.ErrProviderUnavailable{Err: errors.New("connection refused")}, http.StatusServiceUnavailable, util.ErrAIUnavailable.Error()},
		{"bad llm output", &service.ErrInvalidResponse{Err: errors.New("not json")}, http.StatusBadGateway, util.ErrAIInvalidOutput.Error()},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(ctx, tt.err)

			assert.Equal(t, tt.code, w.Code)
			var resp util.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Message)
			}
		})
	}
}

func TestBindingMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	type request struct {
		URL        string `json:"url" binding:"required,youtube_url"`
		Difficulty string `json:"difficulty" binding:"difficulty"`
		Count      int    `json:"questionCount" binding:"omitempty,min=5,max=20"`
	}

	tests := []struct {
		body    string
		message string
	}{
		{`{}`, "url is required"},
		{`{"url":"https://vimeo.com/1"}`, util.ErrInvalidYouTubeURL.Error()},
		{`{"url":"https://youtu.be/dQw4w9WgXcQ","difficulty":"brutal"}`, "difficulty must be one of easy, medium, hard, mixed"},
		{`{"url":"https://youtu.be/dQw4w9WgXcQ","questionCount":2}`, "questionCount must be at least 5"},
		{`{"url":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req request
			err := json.Unmarshal([]byte(tt.body), &req)
			if err == nil {
				err = binding.Validator.ValidateStruct(&req)
			}
			require.Error(t, err)
			assert.Equal(t, tt.message, bindingMessage(err))
		})
	}
}
