package service

import (
	"context"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/progress"
	"dsa_hub_backend/internal/quizflow"
	"dsa_hub_backend/internal/repository"
	"dsa_hub_backend/internal/util"
	"dsa_hub_backend/pkg/logger"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TopicService 标准学习路径上的用户进度
type TopicService struct {
	TopicRepo     *repository.TopicRepository
	UserTopicRepo *repository.UserTopicRepository
	AttemptRepo   *repository.AttemptRepository
	UserService   *UserService

	now func() time.Time
}

func NewTopicService(topicRepo *repository.TopicRepository, userTopicRepo *repository.UserTopicRepository,
	attemptRepo *repository.AttemptRepository, userService *UserService) *TopicService {
	return &TopicService{
		TopicRepo:     topicRepo,
		UserTopicRepo: userTopicRepo,
		AttemptRepo:   attemptRepo,
		UserService:   userService,
		now:           time.Now,
	}
}

// Initialize 首次为用户创建全部主题进度
func (s *TopicService) Initialize(userID uint) (int, error) {
	existing, err := s.UserTopicRepo.FindByUser(userID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, util.ErrTopicsInitialized
	}
	return s.ensure(userID)
}

func (s *TopicService) ensure(userID uint) (int, error) {
	catalog, err := s.TopicRepo.FindAll()
	if err != nil {
		return 0, err
	}
	return s.UserTopicRepo.InitializeForUser(userID, catalog)
}

// List 返回带展示状态（ready/locked）的主题
func (s *TopicService) List(userID uint) ([]progress.Topic, error) {
	rows, err := s.UserTopicRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	return resolveRows(rows), nil
}

func resolveRows(rows []model.UserTopic) []progress.Topic {
	topics := make([]progress.Topic, len(rows))
	for i := range rows {
		topics[i] = rows[i].Progress()
	}
	resolved := progress.ResolveAll(topics)
	for i := range topics {
		topics[i].Status = resolved[topics[i].ID]
	}
	return topics
}

func (s *TopicService) Stats(userID uint) (progress.Stats, error) {
	rows, err := s.UserTopicRepo.FindByUser(userID)
	if err != nil {
		return progress.Stats{}, err
	}
	topics := make([]progress.Topic, len(rows))
	for i := range rows {
		topics[i] = rows[i].Progress()
	}
	return progress.Summarize(topics), nil
}

// Resolve 单个主题的展示状态，用户尚无进度时先补建
func (s *TopicService) Resolve(userID uint, topicID string) (progress.Topic, error) {
	rows, err := s.UserTopicRepo.FindByUser(userID)
	if err != nil {
		return progress.Topic{}, err
	}
	if len(rows) == 0 {
		if _, err := s.ensure(userID); err != nil {
			return progress.Topic{}, err
		}
		if rows, err = s.UserTopicRepo.FindByUser(userID); err != nil {
			return progress.Topic{}, err
		}
	}
	for _, t := range resolveRows(rows) {
		if t.ID == topicID {
			return t, nil
		}
	}
	return progress.Topic{}, fmt.Errorf("%w: %s", util.ErrTopicNotFound, topicID)
}

// RecordScore 按一次测验成绩更新主题掌握度和用户统计
func (s *TopicService) RecordScore(userID uint, topicID string, score int) (*progress.Topic, error) {
	row, err := s.UserTopicRepo.FindByUserAndTopic(userID, topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", util.ErrTopicNotFound, topicID)
		}
		return nil, err
	}

	t := row.Progress()
	progress.ApplyScore(&t, score, s.now())
	row.ApplyProgress(t)
	if err := s.UserTopicRepo.Save(row); err != nil {
		return nil, err
	}

	mastered := ""
	if t.Status == progress.StatusMastered {
		mastered = topicID
	}
	if _, err := s.UserService.RecordQuizResult(userID, score, mastered); err != nil {
		logger.Log.Warn("Failed to update user stats", zap.Uint("userID", userID), zap.Error(err))
	}
	return &t, nil
}

func (s *TopicService) Reset(userID uint, topicID string) (*progress.Topic, error) {
	row, err := s.UserTopicRepo.FindByUserAndTopic(userID, topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", util.ErrTopicNotFound, topicID)
		}
		return nil, err
	}
	t := row.Progress()
	progress.Reset(&t)
	row.ApplyProgress(t)
	if err := s.UserTopicRepo.Save(row); err != nil {
		return nil, err
	}
	return &t, nil
}

// AttemptInput 客户端自行完成的测验，分数由服务端重新计算
type AttemptInput struct {
	AttemptID         string
	TopicID           string
	ContentID         string
	Questions         []quizflow.Question
	UserAnswers       []*int
	TimeStarted       time.Time
	TimeCompleted     time.Time
	IsRetake          bool
	OriginalAttemptID string
}

func (s *TopicService) CreateAttempt(ctx context.Context, userID uint, in AttemptInput) (*quizflow.Attempt, error) {
	subject := quizflow.TopicSubject(in.TopicID)
	if in.TopicID == "" {
		subject = quizflow.ContentSubject(in.ContentID)
	}
	completed := in.TimeCompleted
	if completed.IsZero() {
		completed = s.now()
	}
	attemptID := in.AttemptID
	if attemptID == "" {
		attemptID = quizflow.AttemptID(subject, completed)
	}

	a := &quizflow.Attempt{
		ID:                attemptID,
		Subject:           subject,
		Questions:         in.Questions,
		UserAnswers:       in.UserAnswers,
		TimeStarted:       in.TimeStarted,
		TimeCompleted:     completed,
		IsRetake:          in.IsRetake,
		OriginalAttemptID: in.OriginalAttemptID,
	}
	if err := a.Regrade(); err != nil {
		return nil, err
	}
	// attemptId 按用户唯一
	if _, found, err := s.AttemptRepo.Find(ctx, userID, attemptID); err != nil {
		return nil, err
	} else if found {
		return nil, fmt.Errorf("%w: %s", util.ErrAttemptExists, attemptID)
	}
	if err := s.AttemptRepo.Record(ctx, userID, a); err != nil {
		return nil, err
	}
	return a, nil
}

// AttemptsBySubject 按主题/内容 id 分组，组内最新的在前
func (s *TopicService) AttemptsBySubject(ctx context.Context, userID uint) (map[string][]quizflow.Attempt, error) {
	all, err := s.AttemptRepo.ListByUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]quizflow.Attempt)
	for _, a := range all {
		grouped[a.Subject.ID] = append(grouped[a.Subject.ID], a)
	}
	for id, list := range grouped {
		grouped[id] = quizflow.SortRecent(list)
	}
	return grouped, nil
}
