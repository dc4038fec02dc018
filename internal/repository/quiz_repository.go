package repository

import (
	"dsa_hub_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) FindByID(id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Where("id = ?", id).First(&quiz).Error
	return &quiz, err
}

// FindActiveByContent 返回内容最新生成的有效测验
func (r *QuizRepository) FindActiveByContent(contentID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Where("content_id = ? AND is_active = ?", contentID, true).
		Order("created_at DESC").
		First(&quiz).Error
	return &quiz, err
}

// FindByUser 分页返回用户的有效测验
func (r *QuizRepository) FindByUser(userID uint, page, limit int) ([]model.Quiz, int64, error) {
	var quizzes []model.Quiz
	var total int64

	query := r.DB.Model(&model.Quiz{}).Where("user_id = ? AND is_active = ?", userID, true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&quizzes).Error
	return quizzes, total, err
}

// ReplaceForContent 停用旧测验后写入新测验
func (r *QuizRepository) ReplaceForContent(quiz *model.Quiz) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if quiz.ContentID != nil {
			if err := tx.Model(&model.Quiz{}).
				Where("content_id = ? AND is_active = ?", *quiz.ContentID, true).
				Update("is_active", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(quiz).Error
	})
}
