package model

import (
	"time"

	"gorm.io/datatypes"
)

// UserStats 学习统计，嵌入 users 表
type UserStats struct {
	TotalQuizzes   int                         `gorm:"default:0" json:"totalQuizzes"`
	TotalScore     int                         `gorm:"default:0" json:"totalScore"`
	AverageScore   float64                     `gorm:"default:0" json:"averageScore"`
	Streak         int                         `gorm:"default:0" json:"streak"`
	LastActivity   *time.Time                  `json:"lastActivity,omitempty"`
	TotalTimeSpent int64                       `gorm:"default:0" json:"totalTimeSpent"` // 毫秒
	MasteredTopics datatypes.JSONSlice[string] `json:"masteredTopics"`
}

// swagger:model User
type User struct {
	BaseModel
	Username  string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	FirstName string     `gorm:"size:50" json:"firstName"`
	LastName  string     `gorm:"size:50" json:"lastName"`
	Bio       string     `gorm:"size:500" json:"bio"`
	Contact   string     `gorm:"size:50" json:"contact"`
	Country   string     `gorm:"size:50" json:"country"`
	Avatar    string     `gorm:"size:500" json:"profilePicture"`
	Stats     UserStats  `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// RecordScore 累计一次测验成绩
func (s *UserStats) RecordScore(score int) {
	s.TotalQuizzes++
	s.TotalScore += score
	s.AverageScore = float64(s.TotalScore) / float64(s.TotalQuizzes)
}

func (s *UserStats) MarkMastered(topicID string) {
	for _, id := range s.MasteredTopics {
		if id == topicID {
			return
		}
	}
	s.MasteredTopics = append(s.MasteredTopics, topicID)
}
