package service

import (
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/progress"
	"dsa_hub_backend/internal/repository"
	"dsa_hub_backend/internal/util"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// UserService 用户资料与学习统计
type UserService struct {
	UserRepo *repository.UserRepository

	// 统计为读改写，串行执行
	statsMu sync.Mutex
	now     func() time.Time
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		UserRepo: userRepo,
		now:      time.Now,
	}
}

func (s *UserService) GetUser(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

type ProfileInput struct {
	FirstName      string
	LastName       string
	Bio            string
	Contact        string
	Country        string
	ProfilePicture *string
}

func (s *UserService) UpdateProfile(userID uint, in ProfileInput) (*model.User, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"bio":        in.Bio,
		"contact":    in.Contact,
		"country":    in.Country,
	}
	// 省略或 null 不改头像，空字符串清空
	if in.ProfilePicture != nil {
		fields["avatar"] = *in.ProfilePicture
	}
	if err := s.UserRepo.UpdateProfile(userID, fields); err != nil {
		return nil, err
	}
	return s.GetUser(userID)
}

// RecordActivity 记录一次学习活动并更新连续天数
func (s *UserService) RecordActivity(userID uint) (*model.User, error) {
	return s.updateStats(userID, func(st *model.UserStats, now time.Time) {
		applyStreak(st, now)
	})
}

// RecordQuizResult 测验完成后累计成绩；masteredTopic 非空时记入已掌握主题
func (s *UserService) RecordQuizResult(userID uint, score int, masteredTopic string) (*model.User, error) {
	return s.updateStats(userID, func(st *model.UserStats, now time.Time) {
		st.RecordScore(score)
		if masteredTopic != "" {
			st.MarkMastered(masteredTopic)
		}
		applyStreak(st, now)
	})
}

func applyStreak(st *model.UserStats, now time.Time) {
	next := progress.RecordActivity(progress.Streak{Current: st.Streak, LastActivity: st.LastActivity}, now)
	st.Streak = next.Current
	st.LastActivity = next.LastActivity
}

func (s *UserService) updateStats(userID uint, fn func(st *model.UserStats, now time.Time)) (*model.User, error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	fn(&user.Stats, s.now())
	if err := s.UserRepo.UpdateStats(userID, user.Stats); err != nil {
		return nil, err
	}
	return user, nil
}

// RecordSession 累加一次学习会话时长
func (s *UserService) RecordSession(userID uint, durationMs int64) error {
	if durationMs <= 0 {
		return fmt.Errorf("invalid duration: %d", durationMs)
	}
	return s.UserRepo.AddTimeSpent(userID, durationMs)
}

// TotalTime 累计学习时长，小时保留两位小数
func (s *UserService) TotalTime(userID uint) (int64, string, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return 0, "", err
	}
	ms := user.Stats.TotalTimeSpent
	return ms, fmt.Sprintf("%.2f", float64(ms)/float64(time.Hour/time.Millisecond)), nil
}
