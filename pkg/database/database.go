package database

import (
	"dsa_hub_backend/internal/catalog"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/model"
	zlog "dsa_hub_backend/pkg/logger"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DSN 按驱动拼接连接串
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(DSN(cfg))
	default:
		dialector = mysql.Open(DSN(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, err
	}

	zlog.Log.Info("Database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

// Migrate 建表并同步内置主题目录
func Migrate(db *gorm.DB, cat *catalog.Catalog) error {
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	zlog.Log.Info("Database migration completed")

	if err := SeedTopics(db, cat); err != nil {
		return err
	}
	return nil
}

// SeedTopics 以目录为准覆盖 topics 表
func SeedTopics(db *gorm.DB, cat *catalog.Catalog) error {
	topics := cat.Topics()
	rows := make([]model.Topic, len(topics))
	for i, t := range topics {
		rows[i] = model.Topic{
			ID:             t.ID,
			Name:           t.Name,
			Prerequisites:  datatypes.JSONSlice[string](t.Prerequisites),
			TotalQuestions: t.TotalQuestions,
			Position:       i,
		}
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "prerequisites", "total_questions", "position", "updated_at"}),
	}).CreateInBatches(rows, 100).Error
	if err != nil {
		return fmt.Errorf("seed topics: %w", err)
	}

	zlog.Log.Info("Topic catalog synced", zap.Int("topics", len(rows)))
	return nil
}
