package service

import (
	"context"
	"dsa_hub_backend/internal/progress"
	"dsa_hub_backend/internal/quizflow"
	"dsa_hub_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusOf(topics []progress.Topic, id string) progress.Status {
	for _, t := range topics {
		if t.ID == id {
			return t.Status
		}
	}
	return ""
}

func TestTopicInitializeOnce(t *testing.T) {
	env := newTestEnv(t, "")

	n, err := env.topics.Initialize(env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, len(env.catalog.Topics()), n)

	_, err = env.topics.Initialize(env.user.ID)
	assert.ErrorIs(t, err, util.ErrTopicsInitialized)

	topics, err := env.topics.List(env.user.ID)
	require.NoError(t, err)
	require.Len(t, topics, n)
	assert.Equal(t, "arrays", topics[0].ID, "listed in learning path order")
	assert.Equal(t, progress.StatusReady, statusOf(topics, "arrays"))
	assert.Equal(t, progress.StatusLocked, statusOf(topics, "matrices"))
}

func TestRecordScoreUnlocksDependents(t *testing.T) {
	env := newTestEnv(t, "")
	_, err := env.topics.Initialize(env.user.ID)
	require.NoError(t, err)

	topic, err := env.topics.RecordScore(env.user.ID, "arrays", 60)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusInProgress, topic.Status)

	topic, err = env.topics.RecordScore(env.user.ID, "arrays", 80)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusMastered, topic.Status)
	assert.Equal(t, 80, topic.BestScore)
	assert.Equal(t, 2, topic.Attempts)

	topics, err := env.topics.List(env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusReady, statusOf(topics, "matrices"))

	user, err := env.users.GetUser(env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, user.Stats.TotalQuizzes)
	assert.Equal(t, 140, user.Stats.TotalScore)
	assert.Equal(t, []string{"arrays"}, []string(user.Stats.MasteredTopics))
	assert.Equal(t, 1, user.Stats.Streak)

	stats, err := env.topics.Stats(env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MasteredTopics)

	_, err = env.topics.RecordScore(env.user.ID, "nope", 90)
	assert.ErrorIs(t, err, util.ErrTopicNotFound)
}

func TestTopicReset(t *testing.T) {
	env := newTestEnv(t, "")
	_, err := env.topics.Initialize(env.user.ID)
	require.NoError(t, err)
	_, err = env.topics.RecordScore(env.user.ID, "arrays", 100)
	require.NoError(t, err)

	topic, err := env.topics.Reset(env.user.ID, "arrays")
	require.NoError(t, err)
	assert.Equal(t, progress.StatusNotStarted, topic.Status)
	assert.Zero(t, topic.BestScore)
	assert.Zero(t, topic.Attempts)

	topics, err := env.topics.List(env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusReady, statusOf(topics, "arrays"))
	assert.Equal(t, progress.StatusLocked, statusOf(topics, "matrices"))
}

func TestCreateAttemptRegrades(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	qs := sampleQuestions(4)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	a, err := env.topics.CreateAttempt(ctx, env.user.ID, AttemptInput{
		TopicID:       "arrays",
		Questions:     qs,
		UserAnswers:   []*int{intPtr(0), intPtr(1), intPtr(0), nil},
		TimeStarted:   at.Add(-time.Minute),
		TimeCompleted: at,
	})
	require.NoError(t, err)
	assert.Equal(t, "arrays-1717243200000", a.ID)
	assert.Equal(t, 2, a.CorrectAnswers)
	assert.Equal(t, 50, a.Score)

	_, err = env.topics.CreateAttempt(ctx, env.user.ID, AttemptInput{
		AttemptID:   a.ID,
		TopicID:     "arrays",
		Questions:   qs,
		UserAnswers: make([]*int, 4),
	})
	assert.ErrorIs(t, err, util.ErrAttemptExists)

	_, err = env.topics.CreateAttempt(ctx, env.user.ID, AttemptInput{
		TopicID:     "arrays",
		Questions:   qs,
		UserAnswers: []*int{intPtr(0)},
	})
	assert.ErrorIs(t, err, quizflow.ErrAnswerMismatch)

	_, err = env.topics.CreateAttempt(ctx, env.user.ID, AttemptInput{
		ContentID:     "7",
		Questions:     qs,
		UserAnswers:   make([]*int, 4),
		TimeCompleted: at,
	})
	require.NoError(t, err)

	grouped, err := env.topics.AttemptsBySubject(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Len(t, grouped["arrays"], 1)
	require.Len(t, grouped["7"], 1)
	assert.Equal(t, 0, grouped["7"][0].Score)
}
