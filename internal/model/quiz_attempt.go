package model

import (
	"dsa_hub_backend/internal/quizflow"
	"time"

	"gorm.io/datatypes"
)

// QuizAttempt 归档的测验记录
type QuizAttempt struct {
	BaseModel
	UserID            uint                                 `gorm:"uniqueIndex:idx_user_attempt;index:idx_user_subject,priority:1;not null"`
	AttemptID         string                               `gorm:"uniqueIndex:idx_user_attempt;size:100;not null"`
	SubjectKind       quizflow.SubjectKind                 `gorm:"index:idx_user_subject,priority:2;size:20;not null"`
	SubjectID         string                               `gorm:"index:idx_user_subject,priority:3;size:64;not null"`
	QuizID            string                               `gorm:"size:36"`
	Questions         datatypes.JSONSlice[quizflow.Question]
	UserAnswers       datatypes.JSONSlice[*int]
	Score             int
	CorrectAnswers    int
	TotalQuestions    int
	TimeStarted       time.Time
	TimeCompleted     time.Time `gorm:"index"`
	TimeTaken         int
	IsRetake          bool
	OriginalAttemptID string `gorm:"size:100"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func NewQuizAttempt(userID uint, a quizflow.Attempt) *QuizAttempt {
	return &QuizAttempt{
		UserID:            userID,
		AttemptID:         a.ID,
		SubjectKind:       a.Subject.Kind,
		SubjectID:         a.Subject.ID,
		QuizID:            a.QuizID,
		Questions:         datatypes.JSONSlice[quizflow.Question](a.Questions),
		UserAnswers:       datatypes.JSONSlice[*int](a.UserAnswers),
		Score:             a.Score,
		CorrectAnswers:    a.CorrectAnswers,
		TotalQuestions:    a.TotalQuestions,
		TimeStarted:       a.TimeStarted,
		TimeCompleted:     a.TimeCompleted,
		TimeTaken:         a.TimeTaken,
		IsRetake:          a.IsRetake,
		OriginalAttemptID: a.OriginalAttemptID,
	}
}

func (m *QuizAttempt) Attempt() quizflow.Attempt {
	return quizflow.Attempt{
		ID:                m.AttemptID,
		Subject:           quizflow.Subject{Kind: m.SubjectKind, ID: m.SubjectID},
		QuizID:            m.QuizID,
		Questions:         []quizflow.Question(m.Questions),
		UserAnswers:       []*int(m.UserAnswers),
		Score:             m.Score,
		CorrectAnswers:    m.CorrectAnswers,
		TotalQuestions:    m.TotalQuestions,
		TimeStarted:       m.TimeStarted,
		TimeCompleted:     m.TimeCompleted,
		TimeTaken:         m.TimeTaken,
		IsRetake:          m.IsRetake,
		OriginalAttemptID: m.OriginalAttemptID,
		Seq:               int64(m.ID),
	}
}
