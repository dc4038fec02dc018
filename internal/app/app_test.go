package app

import (
	"bytes"
	"context"
	"dsa_hub_backend/internal/catalog"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/service"
	"dsa_hub_backend/pkg/database"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const extractedText = `A binary heap is a complete binary tree stored in an array. In a min-heap every parent is
smaller than its children, so the minimum sits at the root. Insertion appends at the end and sifts up.`

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, src service.ExtractionSource) (*service.Extraction, error) {
	return &service.Extraction{Text: extractedText, Language: "english"}, nil
}

// fakeOllama 返回固定的 5 道题
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	var questions []map[string]any
	for i := 0; i < 5; i++ {
		questions = append(questions, map[string]any{
			"question":      fmt.Sprintf("Heap question %d?", i+1),
			"options":       []string{"a", "b", "c", "d"},
			"correctAnswer": i % 4,
			"explanation":   "see the notes",
		})
	}
	quiz, err := json.Marshal(map[string]any{"questions": questions})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"data":   []map[string]any{{"id": "llama3.1:8b", "object": "model"}},
			})
		case "/v1/chat/completions":
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-test",
				"object":  "chat.completion",
				"created": 1700000000,
				"model":   "llama3.1:8b",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": string(quiz)},
					"finish_reason": "stop",
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, aiURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", Mode: gin.TestMode},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour, CookieName: "token"},
		AI: config.AIConfig{
			BaseURL:        aiURL,
			APIKey:         "ollama",
			Model:          "llama3.1:8b",
			TimeoutSeconds: 5,
			MaxAttempts:    1,
		},
		Storage: config.StorageConfig{Type: "memory"},
		Upload: config.UploadConfig{
			MaxFileSize: 1 << 20,
			TempDir:     t.TempDir(),
			PDFTypes:    []string{"application/pdf"},
			ImageTypes:  []string{"image/png"},
			VideoTypes:  []string{"video/mp4"},
		},
		Quiz: config.QuizConfig{
			SecondsPerQuestion:   60,
			DefaultQuestionCount: 10,
			MaxQuestionCount:     20,
			MinTextLength:        100,
			MinutesPerQuestion:   2,
		},
		Pipeline: config.PipelineConfig{Workers: 1, TimeoutMinutes: 1, ProgressTTLHours: 1},
	}
}

func newTestApp(t *testing.T, aiURL string) *App {
	t.Helper()
	if aiURL == "" {
		aiURL = "http://127.0.0.1:1/v1"
	}
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	cat, err := catalog.Load()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, cat))

	stub := stubExtractor{}
	app, err := New(testConfig(t, aiURL), Deps{
		DB:      db,
		Catalog: cat,
		Extractors: map[model.ContentType]service.Extractor{
			model.ContentPDF:     stub,
			model.ContentImage:   stub,
			model.ContentVideo:   stub,
			model.ContentYouTube: stub,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close(context.Background()) })
	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t     *testing.T
	app   *App
	token string
}

func (c *client) send(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.app.Router.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (c *client) do(method, path string, body any) (int, envelope) {
	c.t.Helper()
	reader := bytes.NewReader(nil)
	if body != nil {
		reader = jsonBody(c.t, body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w, env := c.send(req)
	return w.Code, env
}

func (c *client) upload(path, name, contentType string, data []byte) (int, envelope) {
	c.t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(c.t, err)
	_, err = part.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.WriteField("title", "Heaps"))
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, env := c.send(req)
	return w.Code, env
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// signup 注册并返回已登录的客户端
func signup(t *testing.T, app *App, username string) *client {
	t.Helper()
	c := &client{t: t, app: app}
	code, env := c.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	resp := decode[struct {
		Token string `json:"token"`
	}](t, env)
	require.NotEmpty(t, resp.Token)
	c.token = resp.Token
	return c
}
