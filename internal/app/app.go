package app

import (
	"context"
	"dsa_hub_backend/internal/catalog"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/controller"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/repository"
	"dsa_hub_backend/internal/service"
	"dsa_hub_backend/internal/util"
	"dsa_hub_backend/pkg/configwatcher"
	"dsa_hub_backend/pkg/database"
	"dsa_hub_backend/pkg/logger"
	"dsa_hub_backend/pkg/monitoring"
	"dsa_hub_backend/pkg/security"
	"dsa_hub_backend/pkg/tracing"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Catalog         *catalog.Catalog
	services        *services
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

// Deps 外部资源，测试中可替换
type Deps struct {
	DB      *gorm.DB
	Redis   *redis.Client // 为空时不记录处理进度
	Catalog *catalog.Catalog
	// Extractors 为空时使用 tesseract/whisper/yt-dlp
	Extractors map[model.ContentType]service.Extractor
}

type repositories struct {
	user      *repository.UserRepository
	topic     *repository.TopicRepository
	userTopic *repository.UserTopicRepository
	content   *repository.ContentRepository
	quiz      *repository.QuizRepository
	attempt   *repository.AttemptRepository
}

type services struct {
	auth     *service.AuthService
	user     *service.UserService
	storage  *service.StorageService
	ai       *service.AIService
	pipeline *service.PipelineService
	content  *service.ContentService
	topic    *service.TopicService
	quiz     *service.QuizService
}

type controllers struct {
	auth    *controller.AuthController
	topic   *controller.TopicController
	quiz    *controller.QuizController
	content *controller.ContentController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:      repository.NewUserRepository(db),
		topic:     repository.NewTopicRepository(db),
		userTopic: repository.NewUserTopicRepository(db),
		content:   repository.NewContentRepository(db),
		quiz:      repository.NewQuizRepository(db),
		attempt:   repository.NewAttemptRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, deps Deps) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.ai = service.NewAIService(cfg)

	extractors := deps.Extractors
	if extractors == nil {
		extractors = service.NewExtractors(cfg)
	}
	progress := service.NewProgressStore(deps.Redis, time.Duration(cfg.Pipeline.ProgressTTLHours)*time.Hour)
	s.pipeline = service.NewPipelineService(repos.content, s.storage, progress, s.ai, extractors, cfg)
	s.content = service.NewContentService(repos.content, repos.quiz, s.storage, progress, s.pipeline, s.ai, cfg)

	s.topic = service.NewTopicService(repos.topic, repos.userTopic, repos.attempt, s.user)
	s.quiz = service.NewQuizService(deps.Catalog, s.topic, s.user, repos.quiz, repos.content, repos.attempt, cfg)

	return s
}

func (a *App) initControllers(s *services, cfg *config.Config, deps Deps) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth, s.user, cfg.JWT.CookieName, int(cfg.JWT.ExpireTime.Seconds()), cfg.Server.Mode == gin.ReleaseMode),
		topic:   controller.NewTopicController(s.topic),
		quiz:    controller.NewQuizController(s.quiz),
		content: controller.NewContentController(s.content, cfg.Quiz.DefaultQuestionCount),
		health:  controller.NewHealthController(deps.DB, deps.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 在已有的数据库连接上组装服务与路由，不做迁移
func New(cfg *config.Config, deps Deps) (*App, error) {
	if err := controller.RegisterValidators(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:  cfg,
		DB:      deps.DB,
		Redis:   deps.Redis,
		Catalog: deps.Catalog,
		ctx:     ctx,
		cancel:  cancel,
	}

	repos := app.initRepositories(deps.DB)
	app.services = app.initServices(repos, cfg, deps)
	controllers := app.initControllers(app.services, cfg, deps)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetMode(newCfg.Server.Mode)
	})
	return app, nil
}

// NewApp 连接数据库与 Redis 后组装应用
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")
	gin.SetMode(cfg.Server.Mode)

	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("load topic catalog: %w", err)
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	// 生产环境只在显式要求时迁移
	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db, cat); err != nil {
			return nil, err
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, processing progress disabled", zap.Error(err))
		rdb = nil
	}

	if err := os.MkdirAll(cfg.Upload.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload temp dir: %w", err)
	}

	// 视频处理依赖 ffmpeg，缺失时只告警
	if version, err := util.GetFFmpegVersion(); err != nil {
		logger.Log.Warn("FFmpeg unavailable, video uploads will fail", zap.Error(err))
	} else {
		logger.Log.Info("FFmpeg detected", zap.String("version", version))
	}

	// 监控初始化
	monitoring.Init()

	app, err := New(cfg, Deps{DB: db, Redis: rdb, Catalog: cat})
	if err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		app.tracer = tp
	}

	if cfg.Storage.Type == "local" {
		router := app.Router
		router.Static("/uploads", cfg.Storage.LocalPath)
	}
	return app, nil
}

func (a *App) watchConfig() {
	if a.Config.ConfigFile == "" {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(a.ctx, a.Config.ConfigFile, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

// Close 停止后台任务：计时器、处理队列和追踪导出
func (a *App) Close(ctx context.Context) {
	a.cancel()
	a.services.quiz.Shutdown()
	if err := a.services.pipeline.Shutdown(ctx); err != nil {
		logger.Log.Warn("Pipeline did not drain before shutdown", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	a.watchConfig()

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		a.Close(context.Background())
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(ctx)

	logger.Log.Info("Server exiting")
	return nil
}
