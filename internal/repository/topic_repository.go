package repository

import (
	"dsa_hub_backend/internal/model"

	"gorm.io/gorm"
)

// TopicRepository 只读的主题目录
type TopicRepository struct {
	DB *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{DB: db}
}

func (r *TopicRepository) FindAll() ([]model.Topic, error) {
	var topics []model.Topic
	err := r.DB.Order("position ASC").Find(&topics).Error
	return topics, err
}

func (r *TopicRepository) FindByID(id string) (*model.Topic, error) {
	var topic model.Topic
	err := r.DB.Where("id = ?", id).First(&topic).Error
	return &topic, err
}

func (r *TopicRepository) Count() (int64, error) {
	var n int64
	err := r.DB.Model(&model.Topic{}).Count(&n).Error
	return n, err
}
