package repository

import (
	"dsa_hub_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("username = ?", username).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

// UpdateProfile 只更新资料字段
func (r *UserRepository) UpdateProfile(userID uint, fields map[string]interface{}) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Updates(fields).Error
}

func (r *UserRepository) UpdatePassword(userID uint, hashed string) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Update("password", hashed).Error
}

func (r *UserRepository) UpdateLastLogin(userID uint, at time.Time) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Update("last_login", at).Error
}

// UpdateStats 整体写回学习统计
func (r *UserRepository) UpdateStats(userID uint, stats model.UserStats) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).
		Select("stats_total_quizzes", "stats_total_score", "stats_average_score",
			"stats_streak", "stats_last_activity", "stats_total_time_spent", "stats_mastered_topics").
		Updates(&model.User{Stats: stats}).Error
}

// AddTimeSpent 累加学习时长（毫秒）
func (r *UserRepository) AddTimeSpent(userID uint, ms int64) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("stats_total_time_spent", gorm.Expr("stats_total_time_spent + ?", ms)).
		Error
}
