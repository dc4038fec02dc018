package model

import (
	"dsa_hub_backend/internal/quizflow"

	"gorm.io/datatypes"
)

// Quiz 由自定义内容生成的测验，生成后不再修改
// swagger:model Quiz
type Quiz struct {
	UUIDBase
	UserID        uint                                 `gorm:"index;not null" json:"userId"`
	ContentID     *uint                                `gorm:"index" json:"contentId,omitempty"`
	Title         string                               `gorm:"size:255;not null" json:"title"`
	Questions     datatypes.JSONSlice[quizflow.Question] `json:"questions"`
	EstimatedTime int                                  `gorm:"default:0" json:"estimatedTime"` // 分钟
	Language      string                               `gorm:"size:20" json:"language"`
	Difficulty    string                               `gorm:"size:20" json:"difficulty"`
	SourceType    ContentType                          `gorm:"size:20" json:"sourceType"`
	IsActive      bool                                 `gorm:"default:true;index" json:"isActive"`
}

func (Quiz) TableName() string {
	return "quizzes"
}
