package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	AI        AIConfig
	Upload    UploadConfig
	Quiz      QuizConfig
	Pipeline  PipelineConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志，由命令行设置
	ForceMigrate bool   `mapstructure:"-"`
	ConfigFile   string `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// AIConfig 指向 Ollama 的 OpenAI 兼容接口
type AIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Temperature    float32
	// MaxAttempts 大于 1 时对 LLM 调用做指数退避重试，默认关闭
	MaxAttempts   int `mapstructure:"max_attempts"`
	InitialWaitMS int `mapstructure:"initial_wait_ms"`
	MaxWaitMS     int `mapstructure:"max_wait_ms"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type LogConfig struct {
	File       string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool   `mapstructure:"parse_time"`
	SSLMode   string `mapstructure:"sslmode"`
	LogLevel  string `mapstructure:"log_level"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
	CookieName string        `mapstructure:"cookie_name"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type UploadConfig struct {
	MaxFileSize  int64    `mapstructure:"max_file_size"`
	TempDir      string   `mapstructure:"temp_dir"`
	ImageTypes   []string `mapstructure:"image_types"`
	PDFTypes     []string `mapstructure:"pdf_types"`
	VideoTypes   []string `mapstructure:"video_types"`
	KeepOriginal bool     `mapstructure:"keep_original"`
}

type QuizConfig struct {
	SecondsPerQuestion   int `mapstructure:"seconds_per_question"`
	DefaultQuestionCount int `mapstructure:"default_question_count"`
	MaxQuestionCount     int `mapstructure:"max_question_count"`
	MinTextLength        int `mapstructure:"min_text_length"`
	MinutesPerQuestion   int `mapstructure:"minutes_per_question"`
}

// PipelineConfig 外部命令与并发度
type PipelineConfig struct {
	Workers          int    `mapstructure:"workers"`
	TimeoutMinutes   int    `mapstructure:"timeout_minutes"`
	TesseractPath    string `mapstructure:"tesseract_path"`
	TesseractLang    string `mapstructure:"tesseract_lang"`
	WhisperPath      string `mapstructure:"whisper_path"`
	WhisperModel     string `mapstructure:"whisper_model"`
	WhisperLanguage  string `mapstructure:"whisper_language"`
	YTDLPPath        string `mapstructure:"ytdlp_path"`
	MinPDFChars      int    `mapstructure:"min_pdf_chars"`
	MinOCRChars      int    `mapstructure:"min_ocr_chars"`
	ProgressTTLHours int    `mapstructure:"progress_ttl_hours"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("jwt.expire_hours", 24*7)
	v.SetDefault("jwt.cookie_name", "token")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")

	v.SetDefault("ai.base_url", "http://localhost:11434/v1")
	v.SetDefault("ai.model", "llama3.1:8b")
	v.SetDefault("ai.timeout_seconds", 300)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.max_attempts", 1)
	v.SetDefault("ai.initial_wait_ms", 1000)
	v.SetDefault("ai.max_wait_ms", 30000)

	v.SetDefault("upload.max_file_size", 314572800)
	v.SetDefault("upload.temp_dir", "uploads/tmp")
	v.SetDefault("upload.image_types", []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/webp", "image/tiff"})
	v.SetDefault("upload.pdf_types", []string{"application/pdf"})
	v.SetDefault("upload.video_types", []string{"video/mp4", "video/avi", "video/x-msvideo", "video/quicktime", "video/x-matroska", "video/webm"})
	v.SetDefault("upload.keep_original", true)

	v.SetDefault("quiz.seconds_per_question", 60)
	v.SetDefault("quiz.default_question_count", 10)
	v.SetDefault("quiz.max_question_count", 20)
	v.SetDefault("quiz.min_text_length", 100)
	v.SetDefault("quiz.minutes_per_question", 2)

	v.SetDefault("pipeline.workers", 2)
	v.SetDefault("pipeline.timeout_minutes", 30)
	v.SetDefault("pipeline.tesseract_path", "tesseract")
	v.SetDefault("pipeline.tesseract_lang", "eng")
	v.SetDefault("pipeline.whisper_path", "whisper")
	v.SetDefault("pipeline.whisper_model", "base")
	v.SetDefault("pipeline.ytdlp_path", "yt-dlp")
	v.SetDefault("pipeline.min_pdf_chars", 50)
	v.SetDefault("pipeline.min_ocr_chars", 20)
	v.SetDefault("pipeline.progress_ttl_hours", 24)

	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window_minutes", 15)
}

// LoadConfig 从目录读取 config.yaml，环境变量优先
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DSA_HUB")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "PORT")

	// AI
	v.BindEnv("ai.base_url", "OLLAMA_BASE_URL")
	v.BindEnv("ai.api_key", "AI_API_KEY")
	v.BindEnv("ai.model", "OLLAMA_MODEL")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Pipeline
	v.BindEnv("pipeline.whisper_model", "WHISPER_MODEL")
	v.BindEnv("pipeline.whisper_language", "WHISPER_LANGUAGE")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Quiz.MaxQuestionCount < c.Quiz.DefaultQuestionCount {
		return fmt.Errorf("quiz.max_question_count (%d) is below quiz.default_question_count (%d)", c.Quiz.MaxQuestionCount, c.Quiz.DefaultQuestionCount)
	}
	return nil
}

func (c *Config) QuizTimePerQuestion() time.Duration {
	return time.Duration(c.Quiz.SecondsPerQuestion) * time.Second
}
