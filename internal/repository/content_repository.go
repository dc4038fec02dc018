package repository

import (
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/quizflow"
	"strconv"

	"gorm.io/gorm"
)

type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) Create(content *model.Content) error {
	return r.DB.Create(content).Error
}

func (r *ContentRepository) FindByID(id uint) (*model.Content, error) {
	var content model.Content
	err := r.DB.First(&content, id).Error
	return &content, err
}

// FindByUser 分页列表，不返回大字段
func (r *ContentRepository) FindByUser(userID uint, contentType model.ContentType, page, limit int) ([]model.Content, int64, error) {
	var (
		contents []model.Content
		total    int64
	)
	query := r.DB.Model(&model.Content{}).Where("user_id = ?", userID)
	if contentType != "" {
		query = query.Where("type = ?", contentType)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Omit("extracted_text").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&contents).Error
	return contents, total, err
}

func (r *ContentRepository) Update(content *model.Content) error {
	return r.DB.Save(content).Error
}

// UpdateFields 局部更新，后台处理只写自己负责的字段
func (r *ContentRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.DB.Model(&model.Content{}).Where("id = ?", id).Updates(fields).Error
}

// DeleteCascade 删除内容，同时停用其测验并清除相关测验记录
func (r *ContentRepository) DeleteCascade(userID, contentID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Quiz{}).
			Where("content_id = ?", contentID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND subject_kind = ? AND subject_id = ?",
			userID, quizflow.SubjectContent, strconv.FormatUint(uint64(contentID), 10)).
			Delete(&model.QuizAttempt{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Content{}, contentID).Error
	})
}
