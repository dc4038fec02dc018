package app

import (
	"dsa_hub_backend/internal/progress"
	"dsa_hub_backend/internal/quizflow"
	"dsa_hub_backend/internal/service"
	"dsa_hub_backend/internal/util"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	app := newTestApp(t, "")
	c := &client{t: t, app: app}

	code, env := c.do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","components":{"database":"up","redis":"disabled"}}`, string(env.Data))

	code, env = c.do(http.MethodGet, "/api/content/health/ollama", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, util.ErrAIUnavailable.Error(), env.Message)
	health := decode[service.AIHealth](t, env)
	assert.False(t, health.Healthy)
	assert.NotEmpty(t, health.Error)
}

func TestAuthRoutes(t *testing.T) {
	app := newTestApp(t, "")
	anon := &client{t: t, app: app}

	code, env := anon.do(http.MethodGet, "/api/auth/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, env = anon.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "ada", "email": "not-an-email", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please provide a valid email", env.Message)

	c := signup(t, app, "ada")

	code, env = anon.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "ada2", "email": "ADA@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, util.ErrEmailRegistered.Error(), env.Message)

	code, _ = anon.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	// 登录后 cookie 也可以认证
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": "ada@example.com", "password": "secret123"}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/check-auth", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	code, env = c.do(http.MethodPut, "/api/auth/profile/update", map[string]any{"firstName": "Ada", "bio": "counts things"})
	require.Equal(t, http.StatusOK, code)
	profile := decode[struct {
		FirstName string `json:"firstName"`
		Bio       string `json:"bio"`
	}](t, env)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.Equal(t, "counts things", profile.Bio)

	code, env = c.do(http.MethodPut, "/api/auth/profile/streak", nil)
	require.Equal(t, http.StatusOK, code)
	streak := decode[struct {
		Stats struct {
			Streak int `json:"streak"`
		} `json:"stats"`
	}](t, env)
	assert.Equal(t, 1, streak.Stats.Streak)

	code, _ = c.do(http.MethodPost, "/api/auth/analytics/session", map[string]int64{"durationMs": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = c.do(http.MethodPost, "/api/auth/analytics/session", map[string]int64{"durationMs": 5400000})
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodGet, "/api/auth/analytics/total-time", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"totalMs":5400000,"totalHours":"1.50"}`, string(env.Data))

	code, env = c.do(http.MethodPut, "/api/auth/change-password", map[string]string{"currentPassword": "nope", "newPassword": "another1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, util.ErrWrongPassword.Error(), env.Message)
	code, _ = c.do(http.MethodPut, "/api/auth/change-password", map[string]string{"currentPassword": "secret123", "newPassword": "another1"})
	require.Equal(t, http.StatusOK, code)
	code, _ = anon.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "another1"})
	assert.Equal(t, http.StatusOK, code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+c.token)
	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func topicStatus(t *testing.T, c *client, id string) progress.Status {
	t.Helper()
	code, env := c.do(http.MethodGet, "/api/topic", nil)
	require.Equal(t, http.StatusOK, code)
	for _, topic := range decode[[]progress.Topic](t, env) {
		if topic.ID == id {
			return topic.Status
		}
	}
	t.Fatalf("topic %s not listed", id)
	return ""
}

func TestTopicQuizFlow(t *testing.T) {
	app := newTestApp(t, "")
	c := signup(t, app, "grace")

	code, _ := c.do(http.MethodPost, "/api/topic/initialize", nil)
	require.Equal(t, http.StatusCreated, code)
	code, env := c.do(http.MethodPost, "/api/topic/initialize", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, util.ErrTopicsInitialized.Error(), env.Message)

	assert.Equal(t, progress.StatusReady, topicStatus(t, c, "arrays"))
	assert.Equal(t, progress.StatusLocked, topicStatus(t, c, "matrices"))

	code, _ = c.do(http.MethodPost, "/api/quiz/start/topic/matrices", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = c.do(http.MethodPost, "/api/quiz/start/topic/arrays", nil)
	require.Equal(t, http.StatusCreated, code)
	state := decode[quizflow.State](t, env)
	require.Len(t, state.Questions, 5)
	assert.Equal(t, 300, state.TimeLimit)

	code, _ = c.do(http.MethodPost, "/api/quiz/start/topic/strings", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = c.do(http.MethodPost, "/api/quiz/current/navigate", map[string]int{"index": 5})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = c.do(http.MethodPost, "/api/quiz/current/answer", map[string]int{"option": 4})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = c.do(http.MethodPost, "/api/quiz/current/previous", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[moveResult](t, env).Moved)

	// 先用 advance 走到最后一题，再倒序作答
	for i := 0; i < 4; i++ {
		code, env = c.do(http.MethodPost, "/api/quiz/current/advance", nil)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, decode[moveResult](t, env).Moved)
	}
	code, env = c.do(http.MethodPost, "/api/quiz/current/advance", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[moveResult](t, env).Moved, "advance never submits")

	for i := 4; i >= 0; i-- {
		code, _ = c.do(http.MethodPost, "/api/quiz/current/navigate", map[string]int{"index": i})
		require.Equal(t, http.StatusOK, code)
		code, _ = c.do(http.MethodPost, "/api/quiz/current/answer", map[string]int{"option": state.Questions[i].CorrectAnswer})
		require.Equal(t, http.StatusOK, code)
	}

	code, env = c.do(http.MethodPost, "/api/quiz/current/finish", nil)
	require.Equal(t, http.StatusOK, code)
	finished := decode[struct {
		State   quizflow.State   `json:"state"`
		Attempt quizflow.Attempt `json:"attempt"`
	}](t, env)
	assert.True(t, finished.State.IsCompleted)
	assert.Equal(t, 100, finished.Attempt.Score)
	assert.Equal(t, "arrays-", finished.Attempt.ID[:len("arrays-")])

	// 完成后保留结果直到关闭或开始新测验
	code, env = c.do(http.MethodGet, "/api/quiz/current", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[quizflow.State](t, env).IsCompleted)
	code, _ = c.do(http.MethodPost, "/api/quiz/current/finish", nil)
	assert.Equal(t, http.StatusConflict, code)

	assert.Equal(t, progress.StatusMastered, topicStatus(t, c, "arrays"))
	assert.Equal(t, progress.StatusReady, topicStatus(t, c, "matrices"))

	code, env = c.do(http.MethodGet, "/api/quiz/attempts/arrays", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]quizflow.Attempt](t, env), 1)

	code, env = c.do(http.MethodGet, "/api/quiz/attempts/arrays/latest", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, finished.Attempt.ID, decode[quizflow.Attempt](t, env).ID)

	code, _ = c.do(http.MethodGet, "/api/quiz/attempt/"+finished.Attempt.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/api/quiz/attempt/arrays-1", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = c.do(http.MethodPost, "/api/quiz/retake", map[string]string{"attemptId": finished.Attempt.ID})
	require.Equal(t, http.StatusCreated, code)
	retake := decode[quizflow.State](t, env)
	assert.True(t, retake.IsRetake)
	assert.Equal(t, finished.Attempt.ID, retake.OriginalAttemptID)

	code, _ = c.do(http.MethodDelete, "/api/quiz/current", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/api/quiz/current", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = c.do(http.MethodGet, "/api/topic/stats", nil)
	require.Equal(t, http.StatusOK, code)
	stats := decode[progress.Stats](t, env)
	assert.Equal(t, 1, stats.MasteredTopics)

	code, _ = c.do(http.MethodPut, "/api/topic/arrays/reset", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, progress.StatusLocked, topicStatus(t, c, "matrices"))
}

// moveResult 只关心 moved 字段
type moveResult struct {
	Moved bool `json:"moved"`
}

func TestTopicProgressAndClientAttempts(t *testing.T) {
	app := newTestApp(t, "")
	c := signup(t, app, "linus")
	code, _ := c.do(http.MethodPost, "/api/topic/initialize", nil)
	require.Equal(t, http.StatusCreated, code)

	code, _ = c.do(http.MethodPut, "/api/topic/arrays/progress", map[string]any{"score": 101})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = c.do(http.MethodPut, "/api/topic/nope/progress", map[string]any{"score": 50})
	assert.Equal(t, http.StatusNotFound, code)

	code, env := c.do(http.MethodPut, "/api/topic/arrays/progress", map[string]any{"score": 60, "newStatus": "completed"})
	require.Equal(t, http.StatusOK, code)
	topic := decode[progress.Topic](t, env)
	assert.Equal(t, progress.StatusInProgress, topic.Status, "status follows the score")
	assert.Equal(t, 60, topic.BestScore)

	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	questions := make([]quizflow.Question, 2)
	for i := range questions {
		questions[i] = quizflow.Question{
			ID:            strconv.Itoa(i),
			Question:      fmt.Sprintf("q%d", i),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 1,
		}
	}
	code, env = c.do(http.MethodPost, "/api/topic/createAttempt", map[string]any{
		"topicId":       "arrays",
		"questions":     questions,
		"userAnswers":   []any{1, nil},
		"timeStarted":   started,
		"timeCompleted": started.Add(time.Minute),
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	attempt := decode[quizflow.Attempt](t, env)
	assert.Equal(t, 50, attempt.Score)
	assert.Equal(t, 1, attempt.CorrectAnswers)
	assert.Equal(t, quizflow.AttemptID(quizflow.TopicSubject("arrays"), started.Add(time.Minute)), attempt.ID)

	code, env = c.do(http.MethodPost, "/api/topic/createAttempt", map[string]any{
		"attemptId":     attempt.ID,
		"topicId":       "arrays",
		"questions":     questions,
		"userAnswers":   []any{1, nil},
		"timeStarted":   started,
		"timeCompleted": started.Add(time.Minute),
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, util.ErrAttemptExists.Error(), env.Message)

	code, _ = c.do(http.MethodPost, "/api/topic/createAttempt", map[string]any{
		"topicId":     "arrays",
		"questions":   questions,
		"userAnswers": []any{1},
		"timeStarted": started,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = c.do(http.MethodGet, "/api/topic/getUserAttempts", nil)
	require.Equal(t, http.StatusOK, code)
	grouped := decode[map[string][]quizflow.Attempt](t, env)
	assert.Len(t, grouped["arrays"], 1)

	// deque 已解锁但没有题库
	for _, id := range []string{"arrays", "linked-lists", "queues"} {
		code, env = c.do(http.MethodPut, "/api/topic/"+id+"/progress", map[string]any{"score": 100})
		require.Equal(t, http.StatusOK, code, env.Message)
	}
	code, env = c.do(http.MethodPost, "/api/quiz/start/topic/deque", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, util.ErrNoQuizData.Error(), env.Message)
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

func TestContentQuizFlow(t *testing.T) {
	ollama := fakeOllama(t)
	app := newTestApp(t, ollama.URL+"/v1")
	c := signup(t, app, "barbara")

	code, env := c.upload("/api/content/upload/pdf", "heaps.txt", "text/plain", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, util.ErrUnsupportedFile.Error(), env.Message)

	code, env = c.upload("/api/content/upload/pdf", "heaps.pdf", "application/pdf", pdfBytes)
	require.Equal(t, http.StatusAccepted, code, env.Message)
	content := decode[struct {
		ID     uint   `json:"id"`
		Title  string `json:"title"`
		Status string `json:"status"`
	}](t, env)
	assert.Equal(t, "Heaps", content.Title)
	id := strconv.FormatUint(uint64(content.ID), 10)

	require.Eventually(t, func() bool {
		code, env := c.do(http.MethodGet, "/api/content/content/"+id+"/status", nil)
		if code != http.StatusOK {
			return false
		}
		return decode[service.ContentStatus](t, env).Status == "completed"
	}, 5*time.Second, 20*time.Millisecond)

	code, _ = c.do(http.MethodPost, "/api/quiz/start/content/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code, "no quiz generated yet")

	code, env = c.do(http.MethodPost, "/api/content/generate-quiz", map[string]any{"contentId": id, "difficulty": "impossible"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "difficulty")

	code, env = c.do(http.MethodPost, "/api/content/generate-quiz", map[string]any{"contentId": id, "questionCount": 5})
	require.Equal(t, http.StatusCreated, code, env.Message)
	quiz := decode[struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		EstimatedTime int    `json:"estimatedTime"`
		Language      string `json:"language"`
	}](t, env)
	assert.Equal(t, "Quiz: Heaps", quiz.Title)
	assert.Equal(t, 10, quiz.EstimatedTime)
	assert.Equal(t, "english", quiz.Language)

	code, env = c.do(http.MethodGet, "/api/content/quizzes", nil)
	require.Equal(t, http.StatusOK, code)
	page := decode[struct {
		Total int64 `json:"total"`
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
	}](t, env)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)

	code, _ = c.do(http.MethodGet, "/api/content/quiz/"+quiz.ID, nil)
	assert.Equal(t, http.StatusOK, code)

	// 其他用户看不到
	other := signup(t, app, "edsger")
	code, _ = other.do(http.MethodGet, "/api/content/content/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = other.do(http.MethodGet, "/api/content/quiz/"+quiz.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = c.do(http.MethodPost, "/api/quiz/start/content/"+id, nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	state := decode[quizflow.State](t, env)
	assert.Equal(t, quizflow.ContentSubject(id), state.Subject)
	assert.Equal(t, quiz.ID, state.QuizID)

	code, _ = c.do(http.MethodPost, "/api/quiz/current/finish", nil)
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodGet, "/api/quiz/attempts/"+id+"?kind=content", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]quizflow.Attempt](t, env), 1)

	code, _ = c.do(http.MethodDelete, "/api/content/content/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/api/content/content/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, env = c.do(http.MethodGet, "/api/quiz/attempts/"+id+"?kind=content", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]quizflow.Attempt](t, env))
	code, env = c.do(http.MethodGet, "/api/content/content", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(0), decode[struct {
		Total int64 `json:"total"`
	}](t, env).Total)
}

func TestYouTubeValidation(t *testing.T) {
	app := newTestApp(t, "")
	c := signup(t, app, "alan")

	code, env := c.do(http.MethodPost, "/api/content/upload/youtube", map[string]string{"url": "https://example.com/watch?v=x", "title": "Graphs"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, util.ErrInvalidYouTubeURL.Error(), env.Message)

	code, _ = c.do(http.MethodPost, "/api/content/upload/youtube", map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ"})
	assert.Equal(t, http.StatusBadRequest, code, "title is required")

	code, env = c.do(http.MethodPost, "/api/content/upload/youtube", map[string]string{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "title": "Graphs"})
	require.Equal(t, http.StatusAccepted, code, env.Message)
}
