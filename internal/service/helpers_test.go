package service

import (
	"bytes"
	"context"
	"dsa_hub_backend/internal/catalog"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/quizflow"
	"dsa_hub_backend/internal/repository"
	"dsa_hub_backend/pkg/database"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

// stubExtractor 返回固定结果，记录调用次数
type stubExtractor struct {
	mu    sync.Mutex
	text  string
	lang  string
	err   error
	calls int
	last  ExtractionSource
}

func (e *stubExtractor) Extract(ctx context.Context, src ExtractionSource) (*Extraction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.last = src
	if e.err != nil {
		return nil, e.err
	}
	return &Extraction{Text: e.text, Language: e.lang, Duration: 12.5}, nil
}

// steppingClock 每次读取前进一秒
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type stubDetector string

func (d stubDetector) DetectLanguage(ctx context.Context, text string) string { return string(d) }

type testEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	catalog    *catalog.Catalog
	storage    *MemoryStorageProvider
	extractors map[model.ContentType]*stubExtractor

	contentRepo *repository.ContentRepository
	quizRepo    *repository.QuizRepository
	attemptRepo *repository.AttemptRepository

	users    *UserService
	auth     *AuthService
	topics   *TopicService
	quizzes  *QuizService
	pipeline *PipelineService
	contents *ContentService

	user *model.User
}

// newTestEnv aiURL 为空时 LLM 指向一个不可达的地址
func newTestEnv(t *testing.T, aiURL string) *testEnv {
	t.Helper()
	if aiURL == "" {
		aiURL = "http://127.0.0.1:1/v1"
	}
	cfg := testConfig(aiURL)
	cfg.JWT = config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour, CookieName: "token"}
	cfg.Storage = config.StorageConfig{Type: "memory"}
	cfg.Upload = config.UploadConfig{
		MaxFileSize:  1 << 20,
		TempDir:      t.TempDir(),
		ImageTypes:   []string{"image/jpeg", "image/png", "image/tiff"},
		PDFTypes:     []string{"application/pdf"},
		VideoTypes:   []string{"video/mp4", "video/webm"},
		KeepOriginal: true,
	}
	cfg.Pipeline = config.PipelineConfig{Workers: 2, TimeoutMinutes: 1}

	db := newTestDB(t)
	cat, err := catalog.Load()
	require.NoError(t, err)
	require.NoError(t, database.SeedTopics(db, cat))

	env := &testEnv{
		db:      db,
		cfg:     cfg,
		catalog: cat,
		storage: NewMemoryStorageProvider(),
		extractors: map[model.ContentType]*stubExtractor{
			model.ContentPDF:     {text: longText},
			model.ContentImage:   {text: "OCR text from the whiteboard", lang: "english"},
			model.ContentVideo:   {text: longText, lang: "english"},
			model.ContentYouTube: {text: longText, lang: "english"},
		},
	}

	userRepo := repository.NewUserRepository(db)
	env.contentRepo = repository.NewContentRepository(db)
	env.quizRepo = repository.NewQuizRepository(db)
	env.attemptRepo = repository.NewAttemptRepository(db)

	env.users = NewUserService(userRepo)
	env.auth = NewAuthService(userRepo, cfg)
	env.topics = NewTopicService(repository.NewTopicRepository(db), repository.NewUserTopicRepository(db), env.attemptRepo, env.users)
	env.quizzes = NewQuizService(cat, env.topics, env.users, env.quizRepo, env.contentRepo, env.attemptRepo, cfg)
	// 测验 id 带毫秒时间戳，测试中连续开始的测验需要不同的时间
	clock := &steppingClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	env.quizzes.Manager = quizflow.NewManager(env.attemptRepo, quizflow.ManagerConfig{
		PerQuestion: cfg.QuizTimePerQuestion(),
		Now:         clock.Now,
		OnComplete:  env.quizzes.onComplete,
	})
	t.Cleanup(env.quizzes.Shutdown)

	extractors := make(map[model.ContentType]Extractor, len(env.extractors))
	for k, v := range env.extractors {
		extractors[k] = v
	}
	storage := &StorageService{Provider: env.storage}
	progress := NewProgressStore(nil, time.Hour)
	env.pipeline = NewPipelineService(env.contentRepo, storage, progress, stubDetector("english"), extractors, cfg)
	t.Cleanup(func() { env.pipeline.Shutdown(context.Background()) })
	env.contents = NewContentService(env.contentRepo, env.quizRepo, storage, progress, env.pipeline, NewAIService(cfg), cfg)

	env.user = env.newUser(t, "ada")
	return env
}

func (e *testEnv) newUser(t *testing.T, name string) *model.User {
	t.Helper()
	user := &model.User{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, repository.NewUserRepository(e.db).Create(user))
	return user
}

// readyContent 直接写入一条处理完成的内容
func (e *testEnv) readyContent(t *testing.T, userID uint, title string) *model.Content {
	t.Helper()
	content := &model.Content{
		UserID:        userID,
		Type:          model.ContentPDF,
		Title:         title,
		Status:        model.ContentCompleted,
		ExtractedText: longText,
		Language:      "english",
	}
	require.NoError(t, e.contentRepo.Create(content))
	return content
}

func sampleQuestions(n int) []quizflow.Question {
	qs := make([]quizflow.Question, n)
	for i := range qs {
		qs[i] = quizflow.Question{
			ID:            strconv.Itoa(i + 1),
			Question:      "question " + strconv.Itoa(i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
			Explanation:   "because",
		}
	}
	return qs
}

func fileHeader(t *testing.T, name, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func intPtr(v int) *int { return &v }
