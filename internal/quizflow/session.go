package quizflow

import (
	"context"
	"dsa_hub_backend/pkg/logger"
	"dsa_hub_backend/pkg/monitoring"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type CompletionReason string

const (
	ReasonFinished CompletionReason = "finished"
	ReasonTimeout  CompletionReason = "timeout"
)

// CompletionHook 在测验归档后调用，运行时持有该用户的会话锁，不能回调 Manager
type CompletionHook func(ctx context.Context, userID uint, attempt Attempt, reason CompletionReason)

type ManagerConfig struct {
	TickInterval time.Duration
	PerQuestion  time.Duration
	Now          func() time.Time
	OnComplete   CompletionHook
}

// Manager 每个用户同一时间最多一个进行中的测验
type Manager struct {
	archive Archive
	cfg     ManagerConfig

	mu       sync.Mutex
	sessions map[uint]*session
}

type session struct {
	mu     sync.Mutex
	userID uint
	state  *State
	stop   chan struct{}
}

func NewManager(archive Archive, cfg ManagerConfig) *Manager {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.PerQuestion <= 0 {
		cfg.PerQuestion = DefaultTimePerQuestion
	}
	return &Manager{
		archive:  archive,
		cfg:      cfg,
		sessions: make(map[uint]*session),
	}
}

func (m *Manager) now() time.Time {
	if m.cfg.Now != nil {
		return m.cfg.Now()
	}
	return time.Now()
}

// Start 开始新测验；已有未完成的测验时返回 ErrQuizActive，已完成未关闭的会被替换
func (m *Manager) Start(userID uint, subject Subject, questions []Question, opts StartOptions) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		s.mu.Lock()
		active := s.state != nil && !s.state.IsCompleted
		if !active {
			s.stopTimer()
			s.state = nil
		}
		s.mu.Unlock()
		if active {
			return nil, ErrQuizActive
		}
		delete(m.sessions, userID)
	}

	opts.Now = m.now()
	if opts.PerQuestion <= 0 {
		opts.PerQuestion = m.cfg.PerQuestion
	}
	st, err := NewState(subject, questions, opts)
	if err != nil {
		return nil, err
	}

	s := &session{userID: userID, state: st, stop: make(chan struct{})}
	m.sessions[userID] = s
	go m.runTimer(s, s.stop)
	monitoring.ActiveQuizSessions.Inc()

	logger.Log.Info("Quiz started",
		zap.Uint("userID", userID),
		zap.String("attemptID", st.ID),
		zap.String("subject", subject.String()),
		zap.Int("questions", len(st.Questions)),
		zap.Bool("retake", st.IsRetake))

	return st.Clone(), nil
}

func (m *Manager) lookup(userID uint) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNoActiveQuiz
	}
	return s, nil
}

// with 在会话锁内操作状态并返回快照
func (m *Manager) with(userID uint, fn func(st *State) error) (*State, error) {
	s, err := m.lookup(userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, ErrNoActiveQuiz
	}
	if err := fn(s.state); err != nil {
		return nil, err
	}
	return s.state.Clone(), nil
}

func (m *Manager) Current(userID uint) (*State, error) {
	return m.with(userID, func(*State) error { return nil })
}

func (m *Manager) Answer(userID uint, option int) (*State, error) {
	return m.with(userID, func(st *State) error { return st.Answer(option) })
}

func (m *Manager) Advance(userID uint) (*State, bool, error) {
	var moved bool
	st, err := m.with(userID, func(st *State) error {
		moved = st.Advance()
		return nil
	})
	return st, moved, err
}

func (m *Manager) Previous(userID uint) (*State, bool, error) {
	var moved bool
	st, err := m.with(userID, func(st *State) error {
		moved = st.Previous()
		return nil
	})
	return st, moved, err
}

func (m *Manager) NavigateTo(userID uint, index int) (*State, error) {
	return m.with(userID, func(st *State) error { return st.NavigateTo(index) })
}

// Next 前进一题，已在最后一题则结束测验
func (m *Manager) Next(ctx context.Context, userID uint) (*State, *Attempt, error) {
	s, err := m.lookup(userID)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, nil, ErrNoActiveQuiz
	}
	if s.state.Advance() {
		return s.state.Clone(), nil, nil
	}
	attempt, err := m.finishLocked(ctx, s, ReasonFinished)
	if err != nil {
		return nil, nil, err
	}
	return s.state.Clone(), attempt, nil
}

func (m *Manager) Finish(ctx context.Context, userID uint) (*State, *Attempt, error) {
	s, err := m.lookup(userID)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, nil, ErrNoActiveQuiz
	}
	attempt, err := m.finishLocked(ctx, s, ReasonFinished)
	if err != nil {
		return nil, nil, err
	}
	return s.state.Clone(), attempt, nil
}

// finishLocked 归档成功后才把状态标记为完成，归档失败时状态保持不变
func (m *Manager) finishLocked(ctx context.Context, s *session, reason CompletionReason) (*Attempt, error) {
	if s.state.IsCompleted {
		return nil, ErrAttemptCompleted
	}
	attempt := s.state.Grade(m.now())
	if err := m.archive.Record(ctx, s.userID, &attempt); err != nil {
		return nil, fmt.Errorf("archive attempt %s: %w", attempt.ID, err)
	}
	s.state.markCompleted(attempt)
	s.stopTimer()

	monitoring.ActiveQuizSessions.Dec()
	monitoring.QuizCompletions.WithLabelValues(string(attempt.Subject.Kind), string(reason)).Inc()
	logger.Log.Info("Quiz completed",
		zap.Uint("userID", s.userID),
		zap.String("attemptID", attempt.ID),
		zap.String("reason", string(reason)),
		zap.Int("score", attempt.Score),
		zap.Int("correct", attempt.CorrectAnswers),
		zap.Int("total", attempt.TotalQuestions))

	if m.cfg.OnComplete != nil {
		m.cfg.OnComplete(ctx, s.userID, attempt, reason)
	}
	return &attempt, nil
}

// Close 丢弃当前测验，无论是否完成
func (m *Manager) Close(userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return
	}
	s.mu.Lock()
	if s.state != nil && !s.state.IsCompleted {
		monitoring.ActiveQuizSessions.Dec()
		logger.Log.Info("Quiz abandoned", zap.Uint("userID", userID), zap.String("attemptID", s.state.ID))
	}
	s.stopTimer()
	s.state = nil
	s.mu.Unlock()
	delete(m.sessions, userID)
}

// Shutdown 停止所有计时器，未完成的测验不归档
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.mu.Lock()
		s.stopTimer()
		s.mu.Unlock()
		delete(m.sessions, id)
	}
}

func (s *session) stopTimer() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func (m *Manager) runTimer(s *session, stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if m.tick(s) {
				return
			}
		}
	}
}

// tick 返回 true 表示计时器应当退出
func (m *Manager) tick(s *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil || s.state.IsCompleted {
		return true
	}
	if !s.state.Tick() {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := m.finishLocked(ctx, s, ReasonTimeout); err != nil {
		// 下一次 tick 重试归档
		logger.Log.Error("Failed to complete timed-out quiz",
			zap.Uint("userID", s.userID),
			zap.String("attemptID", s.state.ID),
			zap.Error(err))
		return false
	}
	return true
}
