package repository

import (
	"context"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/progress"
	"dsa_hub_backend/internal/quizflow"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

func sampleQuestions(n int) []quizflow.Question {
	qs := make([]quizflow.Question, n)
	for i := range qs {
		qs[i] = quizflow.Question{
			ID:            strconv.Itoa(i + 1),
			Question:      "question " + strconv.Itoa(i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
		}
	}
	return qs
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	user := &model.User{Username: "ada", Email: "ada@example.com", Password: "hash"}
	require.NoError(t, repo.Create(user))
	require.NotZero(t, user.ID)

	dup := &model.User{Username: "ada", Email: "other@example.com", Password: "hash"}
	assert.Error(t, repo.Create(dup), "username is unique")

	got, err := repo.FindByEmail("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Username)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	stats := model.UserStats{TotalQuizzes: 2, TotalScore: 150, AverageScore: 75, Streak: 3, LastActivity: &now,
		MasteredTopics: datatypes.JSONSlice[string]{"arrays"}}
	require.NoError(t, repo.UpdateStats(user.ID, stats))
	require.NoError(t, repo.AddTimeSpent(user.ID, 90))
	require.NoError(t, repo.AddTimeSpent(user.ID, 30))

	got, err = repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stats.TotalQuizzes)
	assert.Equal(t, 75.0, got.Stats.AverageScore)
	assert.Equal(t, int64(120), got.Stats.TotalTimeSpent)
	assert.Equal(t, []string{"arrays"}, []string(got.Stats.MasteredTopics))
}

func TestUserTopicInitializeKeepsProgress(t *testing.T) {
	repo := NewUserTopicRepository(newTestDB(t))
	catalog := []model.Topic{
		{ID: "arrays", Name: "Arrays", TotalQuestions: 5, Position: 0},
		{ID: "matrices", Name: "Matrices", Prerequisites: datatypes.JSONSlice[string]{"arrays"}, TotalQuestions: 5, Position: 1},
	}

	n, err := repo.InitializeForUser(7, catalog)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	arrays, err := repo.FindByUserAndTopic(7, "arrays")
	require.NoError(t, err)
	arrays.Status = progress.StatusMastered
	arrays.BestScore = 90
	require.NoError(t, repo.Save(arrays))

	n, err = repo.InitializeForUser(7, catalog)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	topics, err := repo.FindByUser(7)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "arrays", topics[0].TopicID)
	assert.Equal(t, progress.StatusMastered, topics[0].Status)
	assert.Equal(t, []string{"arrays"}, topics[1].Progress().Prerequisites)
}

func TestAttemptRepositoryArchive(t *testing.T) {
	ctx := context.Background()
	repo := NewAttemptRepository(newTestDB(t))
	subject := quizflow.TopicSubject("arrays")
	done := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	one := 1
	first := quizflow.Attempt{ID: "arrays-1", Subject: subject, Questions: sampleQuestions(2),
		UserAnswers: []*int{&one, nil}, Score: 50, CorrectAnswers: 1, TotalQuestions: 2, TimeCompleted: done}
	second := first
	second.ID = "arrays-2"
	second.Score = 100

	require.NoError(t, repo.Record(ctx, 1, &first))
	require.NoError(t, repo.Record(ctx, 1, &second))
	assert.Greater(t, second.Seq, first.Seq)

	// 不同用户可以有相同的 attempt id
	other := first
	require.NoError(t, repo.Record(ctx, 2, &other))
	assert.Error(t, repo.Record(ctx, 1, &first), "duplicate attempt for the same user")

	list, err := repo.ListFor(ctx, 1, subject)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "arrays-1", list[0].ID)
	require.NotNil(t, list[0].UserAnswers[0])
	assert.Equal(t, 1, *list[0].UserAnswers[0])
	assert.Nil(t, list[0].UserAnswers[1])

	latest, ok, err := quizflow.LatestFor(ctx, repo, 1, subject)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "arrays-2", latest.ID, "equal completion times fall back to insertion order")

	found, ok, err := repo.Find(ctx, 2, "arrays-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 50, found.Score)

	_, ok, err = repo.Find(ctx, 1, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := repo.DeleteFor(ctx, 1, subject)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	list, err = repo.ListFor(ctx, 1, subject)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestContentDeleteCascade(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	contents := NewContentRepository(db)
	quizzes := NewQuizRepository(db)
	attempts := NewAttemptRepository(db)

	content := &model.Content{UserID: 1, Type: model.ContentPDF, Title: "Heaps", Status: model.ContentCompleted}
	require.NoError(t, contents.Create(content))

	quiz := &model.Quiz{UserID: 1, ContentID: &content.ID, Title: "Quiz: Heaps", Questions: sampleQuestions(3), IsActive: true}
	require.NoError(t, quizzes.ReplaceForContent(quiz))
	newer := &model.Quiz{UserID: 1, ContentID: &content.ID, Title: "Quiz: Heaps", Questions: sampleQuestions(4), IsActive: true}
	require.NoError(t, quizzes.ReplaceForContent(newer))

	active, err := quizzes.FindActiveByContent(content.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, active.ID)
	assert.Len(t, active.Questions, 4)

	subject := quizflow.ContentSubject(strconv.FormatUint(uint64(content.ID), 10))
	a := quizflow.Attempt{ID: "c-1", Subject: subject, Questions: sampleQuestions(1), UserAnswers: []*int{nil}, TotalQuestions: 1, TimeCompleted: time.Now()}
	require.NoError(t, attempts.Record(ctx, 1, &a))

	page, total, err := contents.FindByUser(1, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, page, 1)

	require.NoError(t, contents.DeleteCascade(1, content.ID))

	_, err = contents.FindByID(content.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = quizzes.FindActiveByContent(content.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	list, err := attempts.ListFor(ctx, 1, subject)
	require.NoError(t, err)
	assert.Empty(t, list)
}
