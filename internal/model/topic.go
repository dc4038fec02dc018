package model

import (
	"dsa_hub_backend/internal/progress"
	"time"

	"gorm.io/datatypes"
)

// Topic 标准学习路径中的主题，启动时从内置目录同步
type Topic struct {
	ID             string                      `gorm:"primaryKey;size:64" json:"id"`
	Name           string                      `gorm:"size:100;not null" json:"name"`
	Prerequisites  datatypes.JSONSlice[string] `json:"prerequisites"`
	TotalQuestions int                         `gorm:"default:5" json:"totalQuestions"`
	Position       int                         `gorm:"index" json:"position"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
}

func (Topic) TableName() string {
	return "topics"
}

// UserTopic 用户在某个主题上的进度
type UserTopic struct {
	BaseModel
	UserID         uint                        `gorm:"uniqueIndex:idx_user_topic;not null" json:"userId"`
	TopicID        string                      `gorm:"uniqueIndex:idx_user_topic;size:64;not null" json:"topicId"`
	Name           string                      `gorm:"size:100;not null" json:"name"`
	Prerequisites  datatypes.JSONSlice[string] `json:"prerequisites"`
	Position       int                         `json:"position"`
	Status         progress.Status             `gorm:"size:20;default:'not-started'" json:"status"`
	Score          int                         `gorm:"default:0" json:"score"`
	BestScore      int                         `gorm:"default:0" json:"bestScore"`
	Attempts       int                         `gorm:"default:0" json:"attempts"`
	TotalQuestions int                         `gorm:"default:5" json:"totalQuestions"`
	LastAttempt    *time.Time                  `json:"lastAttempt,omitempty"`
}

func (UserTopic) TableName() string {
	return "user_topics"
}

func (t *UserTopic) Progress() progress.Topic {
	return progress.Topic{
		ID:             t.TopicID,
		Name:           t.Name,
		Prerequisites:  []string(t.Prerequisites),
		Status:         t.Status,
		Score:          t.Score,
		BestScore:      t.BestScore,
		Attempts:       t.Attempts,
		TotalQuestions: t.TotalQuestions,
		LastAttempt:    t.LastAttempt,
	}
}

// ApplyProgress 写回进度字段
func (t *UserTopic) ApplyProgress(p progress.Topic) {
	t.Status = p.Status
	t.Score = p.Score
	t.BestScore = p.BestScore
	t.Attempts = p.Attempts
	t.LastAttempt = p.LastAttempt
}
