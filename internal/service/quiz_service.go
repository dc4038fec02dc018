package service

import (
	"context"
	"dsa_hub_backend/internal/catalog"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/progress"
	"dsa_hub_backend/internal/quizflow"
	"dsa_hub_backend/internal/repository"
	"dsa_hub_backend/internal/util"
	"dsa_hub_backend/pkg/logger"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuizService 组装题目并驱动 quizflow.Manager，完成后回写主题进度和用户统计
type QuizService struct {
	Manager     *quizflow.Manager
	Catalog     *catalog.Catalog
	Topics      *TopicService
	Users       *UserService
	QuizRepo    *repository.QuizRepository
	ContentRepo *repository.ContentRepository
	AttemptRepo *repository.AttemptRepository
}

func NewQuizService(cat *catalog.Catalog, topics *TopicService, users *UserService,
	quizRepo *repository.QuizRepository, contentRepo *repository.ContentRepository,
	attemptRepo *repository.AttemptRepository, cfg *config.Config) *QuizService {
	s := &QuizService{
		Catalog:     cat,
		Topics:      topics,
		Users:       users,
		QuizRepo:    quizRepo,
		ContentRepo: contentRepo,
		AttemptRepo: attemptRepo,
	}
	s.Manager = quizflow.NewManager(attemptRepo, quizflow.ManagerConfig{
		PerQuestion: cfg.QuizTimePerQuestion(),
		OnComplete:  s.onComplete,
	})
	return s
}

// onComplete 在会话锁内执行，只做持久化
func (s *QuizService) onComplete(ctx context.Context, userID uint, attempt quizflow.Attempt, reason quizflow.CompletionReason) {
	switch attempt.Subject.Kind {
	case quizflow.SubjectTopic:
		if _, err := s.Topics.RecordScore(userID, attempt.Subject.ID, attempt.Score); err != nil {
			logger.Log.Error("Failed to record topic score",
				zap.Uint("userID", userID),
				zap.String("topicID", attempt.Subject.ID),
				zap.String("reason", string(reason)),
				zap.Error(err))
		}
	case quizflow.SubjectContent:
		if _, err := s.Users.RecordQuizResult(userID, attempt.Score, ""); err != nil {
			logger.Log.Error("Failed to record quiz result",
				zap.Uint("userID", userID),
				zap.String("contentID", attempt.Subject.ID),
				zap.Error(err))
		}
	}
}

// StartTopic 从题库抽题开始主题测验，未解锁的主题不允许开始
func (s *QuizService) StartTopic(userID uint, topicID string) (*quizflow.State, error) {
	questions, err := s.topicQuestions(userID, topicID)
	if err != nil {
		return nil, err
	}
	return s.Manager.Start(userID, quizflow.TopicSubject(topicID), questions, quizflow.StartOptions{})
}

func (s *QuizService) topicQuestions(userID uint, topicID string) ([]quizflow.Question, error) {
	topic, err := s.Catalog.Topic(topicID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", util.ErrTopicNotFound, topicID)
	}
	resolved, err := s.Topics.Resolve(userID, topicID)
	if err != nil {
		return nil, err
	}
	if resolved.Status == progress.StatusLocked {
		return nil, util.ErrTopicLocked
	}
	questions, err := s.Catalog.Draw(topicID, topic.TotalQuestions, nil)
	if errors.Is(err, catalog.ErrNoQuestionBank) {
		return nil, fmt.Errorf("%w: %s", util.ErrNoQuizData, topicID)
	}
	return questions, err
}

// StartContent 使用内容最新生成的测验
func (s *QuizService) StartContent(userID, contentID uint) (*quizflow.State, error) {
	quiz, err := s.contentQuiz(userID, contentID)
	if err != nil {
		return nil, err
	}
	subject := quizflow.ContentSubject(strconv.FormatUint(uint64(contentID), 10))
	return s.Manager.Start(userID, subject, quiz.Questions, quizflow.StartOptions{QuizID: quiz.ID})
}

func (s *QuizService) contentQuiz(userID, contentID uint) (*model.Quiz, error) {
	content, err := s.ContentRepo.FindByID(contentID)
	if err != nil || content.UserID != userID {
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrContentNotFound
		}
		return nil, err
	}
	quiz, err := s.QuizRepo.FindActiveByContent(contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNoQuizForContent
		}
		return nil, err
	}
	return quiz, nil
}

// RetakeInput AttemptID 为空时取该对象最近一次测验
type RetakeInput struct {
	Subject   quizflow.Subject
	AttemptID string
}

// Retake 用原测验的题目重新开始；没有历史记录时退回到新抽题或最新生成的测验
func (s *QuizService) Retake(ctx context.Context, userID uint, in RetakeInput) (*quizflow.State, error) {
	var source *quizflow.Attempt
	if in.AttemptID != "" {
		a, ok, err := s.AttemptRepo.Find(ctx, userID, in.AttemptID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrAttemptNotFound
		}
		source = a
	} else {
		if err := in.Subject.Validate(); err != nil {
			return nil, err
		}
		a, ok, err := quizflow.LatestFor(ctx, s.AttemptRepo, userID, in.Subject)
		if err != nil {
			return nil, err
		}
		if ok {
			source = &a
		}
	}

	if source != nil {
		if source.Subject.Kind == quizflow.SubjectTopic {
			resolved, err := s.Topics.Resolve(userID, source.Subject.ID)
			if err != nil {
				return nil, err
			}
			if resolved.Status == progress.StatusLocked {
				return nil, util.ErrTopicLocked
			}
		}
		return s.Manager.Start(userID, source.Subject, source.Questions, quizflow.StartOptions{
			QuizID:            source.QuizID,
			IsRetake:          true,
			OriginalAttemptID: source.ID,
		})
	}

	switch in.Subject.Kind {
	case quizflow.SubjectTopic:
		return s.StartTopic(userID, in.Subject.ID)
	default:
		contentID, err := ParseContentID(in.Subject.ID)
		if err != nil {
			return nil, err
		}
		return s.StartContent(userID, contentID)
	}
}

func (s *QuizService) Current(userID uint) (*quizflow.State, error) {
	return s.Manager.Current(userID)
}

func (s *QuizService) Answer(userID uint, option int) (*quizflow.State, error) {
	return s.Manager.Answer(userID, option)
}

func (s *QuizService) Advance(userID uint) (*quizflow.State, bool, error) {
	return s.Manager.Advance(userID)
}

func (s *QuizService) Previous(userID uint) (*quizflow.State, bool, error) {
	return s.Manager.Previous(userID)
}

func (s *QuizService) NavigateTo(userID uint, index int) (*quizflow.State, error) {
	return s.Manager.NavigateTo(userID, index)
}

func (s *QuizService) Next(ctx context.Context, userID uint) (*quizflow.State, *quizflow.Attempt, error) {
	return s.Manager.Next(ctx, userID)
}

func (s *QuizService) Finish(ctx context.Context, userID uint) (*quizflow.State, *quizflow.Attempt, error) {
	return s.Manager.Finish(ctx, userID)
}

func (s *QuizService) Close(userID uint) {
	s.Manager.Close(userID)
}

// ListAttempts 最新的在前
func (s *QuizService) ListAttempts(ctx context.Context, userID uint, subject quizflow.Subject) ([]quizflow.Attempt, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	attempts, err := s.AttemptRepo.ListFor(ctx, userID, subject)
	if err != nil {
		return nil, err
	}
	return quizflow.SortRecent(attempts), nil
}

func (s *QuizService) LatestAttempt(ctx context.Context, userID uint, subject quizflow.Subject) (*quizflow.Attempt, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	a, ok, err := quizflow.LatestFor(ctx, s.AttemptRepo, userID, subject)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	return &a, nil
}

func (s *QuizService) FindAttempt(ctx context.Context, userID uint, attemptID string) (*quizflow.Attempt, error) {
	a, ok, err := s.AttemptRepo.Find(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	return a, nil
}

func (s *QuizService) Shutdown() {
	s.Manager.Shutdown()
}
