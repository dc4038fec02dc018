package quizflow

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"
)

// Attempt 已完成测验的不可变快照
type Attempt struct {
	ID                string     `json:"id"`
	Subject           Subject    `json:"subject"`
	QuizID            string     `json:"quizId,omitempty"`
	Questions         []Question `json:"questions"`
	UserAnswers       []*int     `json:"userAnswers"`
	Score             int        `json:"score"`
	CorrectAnswers    int        `json:"correctAnswers"`
	TotalQuestions    int        `json:"totalQuestions"`
	TimeStarted       time.Time  `json:"timeStarted"`
	TimeCompleted     time.Time  `json:"timeCompleted"`
	TimeTaken         int        `json:"timeTaken"`
	IsRetake          bool       `json:"isRetake"`
	OriginalAttemptID string     `json:"originalAttemptId,omitempty"`

	// Seq 归档时分配的写入序号，用于同一时间戳的排序
	Seq int64 `json:"-"`
}

// Regrade 按题目和答案重新计算正确数与得分，用于客户端提交的记录
func (a *Attempt) Regrade() error {
	if err := a.Subject.Validate(); err != nil {
		return err
	}
	if len(a.Questions) == 0 {
		return ErrNoQuestions
	}
	if len(a.UserAnswers) != len(a.Questions) {
		return fmt.Errorf("%w: %d answers for %d questions", ErrAnswerMismatch, len(a.UserAnswers), len(a.Questions))
	}
	correct := 0
	for i, q := range a.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		if ans := a.UserAnswers[i]; ans != nil && (*ans < 0 || *ans >= len(q.Options)) {
			return fmt.Errorf("answer %d: %w", i, ErrInvalidOption)
		}
		if q.IsCorrect(a.UserAnswers[i]) {
			correct++
		}
	}
	a.CorrectAnswers = correct
	a.TotalQuestions = len(a.Questions)
	a.Score = Score(correct, len(a.Questions))
	return nil
}

// Archive 按用户、按主题或内容保存已完成的测验，只追加
type Archive interface {
	Record(ctx context.Context, userID uint, attempt *Attempt) error
	// ListFor 按写入顺序返回
	ListFor(ctx context.Context, userID uint, subject Subject) ([]Attempt, error)
	// Find 找不到时返回 false 而不是错误
	Find(ctx context.Context, userID uint, attemptID string) (*Attempt, bool, error)
}

// SortRecent 按完成时间倒序排列，时间相同时后写入的排在前面
func SortRecent(attempts []Attempt) []Attempt {
	out := slices.Clone(attempts)
	slices.SortStableFunc(out, func(a, b Attempt) int {
		if c := b.TimeCompleted.Compare(a.TimeCompleted); c != 0 {
			return c
		}
		return cmp.Compare(b.Seq, a.Seq)
	})
	return out
}

func Latest(attempts []Attempt) (Attempt, bool) {
	if len(attempts) == 0 {
		return Attempt{}, false
	}
	return SortRecent(attempts)[0], true
}

// LatestFor 取某个对象最近一次测验
func LatestFor(ctx context.Context, archive Archive, userID uint, subject Subject) (Attempt, bool, error) {
	attempts, err := archive.ListFor(ctx, userID, subject)
	if err != nil {
		return Attempt{}, false, err
	}
	a, ok := Latest(attempts)
	return a, ok, nil
}
