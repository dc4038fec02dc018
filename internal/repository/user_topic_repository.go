package repository

import (
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/progress"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserTopicRepository struct {
	DB *gorm.DB
}

func NewUserTopicRepository(db *gorm.DB) *UserTopicRepository {
	return &UserTopicRepository{DB: db}
}

func (r *UserTopicRepository) FindByUser(userID uint) ([]model.UserTopic, error) {
	var topics []model.UserTopic
	err := r.DB.Where("user_id = ?", userID).Order("position ASC").Find(&topics).Error
	return topics, err
}

func (r *UserTopicRepository) FindByUserAndTopic(userID uint, topicID string) (*model.UserTopic, error) {
	var topic model.UserTopic
	err := r.DB.Where("user_id = ? AND topic_id = ?", userID, topicID).First(&topic).Error
	return &topic, err
}

// InitializeForUser 为目录中缺失的主题补建进度行，已有进度保持不变
func (r *UserTopicRepository) InitializeForUser(userID uint, catalog []model.Topic) (int, error) {
	rows := make([]model.UserTopic, 0, len(catalog))
	for _, t := range catalog {
		rows = append(rows, model.UserTopic{
			UserID:         userID,
			TopicID:        t.ID,
			Name:           t.Name,
			Prerequisites:  t.Prerequisites,
			Position:       t.Position,
			Status:         progress.StatusNotStarted,
			TotalQuestions: t.TotalQuestions,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "topic_id"}},
		DoNothing: true,
	}).CreateInBatches(rows, 100)
	return int(res.RowsAffected), res.Error
}

func (r *UserTopicRepository) Save(topic *model.UserTopic) error {
	return r.DB.Save(topic).Error
}
