package database

import (
	"dsa_hub_backend/internal/catalog"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/model"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "mysql", User: "u", Password: "p", Host: "db", Port: 3306, DBName: "dsa", Charset: "utf8mb4", ParseTime: true}
	assert.Equal(t, "u:p@tcp(db:3306)/dsa?charset=utf8mb4&parseTime=true&loc=Local", DSN(cfg))

	cfg.Driver = "postgres"
	cfg.Port = 5432
	cfg.SSLMode = "disable"
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=dsa sslmode=disable TimeZone=UTC", DSN(cfg))
}

func TestMigrateSeedsCatalog(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	cat, err := catalog.Load()
	require.NoError(t, err)

	require.NoError(t, Migrate(db, cat))
	// 重复执行是幂等的
	require.NoError(t, Migrate(db, cat))

	var count int64
	require.NoError(t, db.Model(&model.Topic{}).Count(&count).Error)
	assert.Equal(t, int64(len(cat.Topics())), count)

	var matrices model.Topic
	require.NoError(t, db.First(&matrices, "id = ?", "matrices").Error)
	assert.Equal(t, []string{"arrays"}, []string(matrices.Prerequisites))
}
