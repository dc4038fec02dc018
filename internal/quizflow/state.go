package quizflow

import (
	"fmt"
	"math"
	"time"
)

// DefaultTimePerQuestion 每道题的时间预算
const DefaultTimePerQuestion = 60 * time.Second

type StartOptions struct {
	Now               time.Time
	PerQuestion       time.Duration
	QuizID            string
	IsRetake          bool
	OriginalAttemptID string
}

// State 进行中的一次测验
//
// UserAnswers 与 Questions 等长，nil 表示未作答；CurrentQuestionIndex 始终落在 [0, len(Questions))。
type State struct {
	ID                   string     `json:"id"`
	Subject              Subject    `json:"subject"`
	QuizID               string     `json:"quizId,omitempty"`
	Questions            []Question `json:"questions"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	UserAnswers          []*int     `json:"userAnswers"`
	Score                int        `json:"score"`
	IsCompleted          bool       `json:"isCompleted"`
	TimeStarted          time.Time  `json:"timeStarted"`
	TimeCompleted        *time.Time `json:"timeCompleted,omitempty"`
	TimeLimit            int        `json:"timeLimit"`
	TimeRemaining        int        `json:"timeRemaining"`
	IsRetake             bool       `json:"isRetake"`
	OriginalAttemptID    string     `json:"originalAttemptId,omitempty"`
}

func NewState(subject Subject, questions []Question, opts StartOptions) (*State, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	perQuestion := opts.PerQuestion
	if perQuestion <= 0 {
		perQuestion = DefaultTimePerQuestion
	}
	limit := int(time.Duration(len(questions)) * perQuestion / time.Second)

	return &State{
		ID:                AttemptID(subject, now),
		Subject:           subject,
		QuizID:            opts.QuizID,
		Questions:         cloneQuestions(questions),
		UserAnswers:       make([]*int, len(questions)),
		TimeStarted:       now,
		TimeLimit:         limit,
		TimeRemaining:     limit,
		IsRetake:          opts.IsRetake,
		OriginalAttemptID: opts.OriginalAttemptID,
	}, nil
}

// AttemptID 主题/内容 id 加毫秒时间戳
func AttemptID(subject Subject, at time.Time) string {
	return fmt.Sprintf("%s-%d", subject.ID, at.UnixMilli())
}

// Answer 在当前题目记录答案，可重复作答，不移动指针
func (s *State) Answer(option int) error {
	if s.IsCompleted {
		return ErrAttemptCompleted
	}
	q := s.Questions[s.CurrentQuestionIndex]
	if option < 0 || option >= len(q.Options) {
		return ErrInvalidOption
	}
	v := option
	s.UserAnswers[s.CurrentQuestionIndex] = &v
	return nil
}

// Advance 前进一题；已在最后一题时返回 false 且不改变状态
func (s *State) Advance() bool {
	if s.IsCompleted || s.CurrentQuestionIndex >= len(s.Questions)-1 {
		return false
	}
	s.CurrentQuestionIndex++
	return true
}

func (s *State) Previous() bool {
	if s.IsCompleted || s.CurrentQuestionIndex == 0 {
		return false
	}
	s.CurrentQuestionIndex--
	return true
}

func (s *State) NavigateTo(index int) error {
	if s.IsCompleted {
		return ErrAttemptCompleted
	}
	if index < 0 || index >= len(s.Questions) {
		return ErrIndexOutOfRange
	}
	s.CurrentQuestionIndex = index
	return nil
}

// Tick 倒计时减一秒，归零后返回 true
func (s *State) Tick() bool {
	if s.IsCompleted {
		return false
	}
	if s.TimeRemaining > 0 {
		s.TimeRemaining--
	}
	return s.TimeRemaining == 0
}

func (s *State) AnsweredCount() int {
	n := 0
	for _, a := range s.UserAnswers {
		if a != nil {
			n++
		}
	}
	return n
}

// Grade 计算成绩但不修改状态
func (s *State) Grade(now time.Time) Attempt {
	correct := 0
	for i, q := range s.Questions {
		if q.IsCorrect(s.UserAnswers[i]) {
			correct++
		}
	}

	taken := int(math.Round(now.Sub(s.TimeStarted).Seconds()))
	if taken < 0 {
		taken = 0
	}

	return Attempt{
		ID:                s.ID,
		Subject:           s.Subject,
		QuizID:            s.QuizID,
		Questions:         cloneQuestions(s.Questions),
		UserAnswers:       cloneAnswers(s.UserAnswers),
		Score:             Score(correct, len(s.Questions)),
		CorrectAnswers:    correct,
		TotalQuestions:    len(s.Questions),
		TimeStarted:       s.TimeStarted,
		TimeCompleted:     now,
		TimeTaken:         taken,
		IsRetake:          s.IsRetake,
		OriginalAttemptID: s.OriginalAttemptID,
	}
}

func (s *State) markCompleted(a Attempt) {
	completedAt := a.TimeCompleted
	s.IsCompleted = true
	s.Score = a.Score
	s.TimeCompleted = &completedAt
}

func (s *State) Clone() *State {
	c := *s
	c.Questions = cloneQuestions(s.Questions)
	c.UserAnswers = cloneAnswers(s.UserAnswers)
	if s.TimeCompleted != nil {
		t := *s.TimeCompleted
		c.TimeCompleted = &t
	}
	return &c
}

// Score 百分制得分，四舍五入
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
