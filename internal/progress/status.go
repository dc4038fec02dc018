package progress

import "time"

type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusMastered   Status = "mastered"
	StatusReady      Status = "ready"
	StatusLocked     Status = "locked"
	// StatusCompleted 旧数据中的写法，等同于 mastered
	StatusCompleted Status = "completed"
)

// MasteryThreshold 掌握所需的最低分数
const MasteryThreshold = 80

func (s Status) Normalize() Status {
	if s == StatusCompleted {
		return StatusMastered
	}
	if s == "" {
		return StatusNotStarted
	}
	return s
}

type Topic struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Prerequisites  []string   `json:"prerequisites"`
	Status         Status     `json:"status"`
	Score          int        `json:"score"`
	BestScore      int        `json:"bestScore"`
	Attempts       int        `json:"attempts"`
	TotalQuestions int        `json:"totalQuestions"`
	LastAttempt    *time.Time `json:"lastAttempt,omitempty"`
}

// Resolve 根据自身存储状态与前置主题的存储状态计算展示状态
func Resolve(t Topic, stored map[string]Status) Status {
	switch t.Status.Normalize() {
	case StatusMastered:
		return StatusMastered
	case StatusInProgress:
		return StatusInProgress
	}
	for _, id := range t.Prerequisites {
		if stored[id].Normalize() != StatusMastered {
			return StatusLocked
		}
	}
	return StatusReady
}

// ResolveAll 为整组主题计算展示状态
func ResolveAll(topics []Topic) map[string]Status {
	stored := make(map[string]Status, len(topics))
	for _, t := range topics {
		stored[t.ID] = t.Status
	}
	out := make(map[string]Status, len(topics))
	for _, t := range topics {
		out[t.ID] = Resolve(t, stored)
	}
	return out
}

// ApplyScore 一次测验完成后更新主题进度
func ApplyScore(t *Topic, score int, now time.Time) {
	t.Attempts++
	t.Score = score
	if score > t.BestScore {
		t.BestScore = score
	}
	if score >= MasteryThreshold {
		t.Status = StatusMastered
	} else {
		t.Status = StatusInProgress
	}
	at := now
	t.LastAttempt = &at
}

// Reset 恢复为未开始
func Reset(t *Topic) {
	t.Status = StatusNotStarted
	t.Score = 0
	t.BestScore = 0
	t.Attempts = 0
	t.LastAttempt = nil
}

type Stats struct {
	TotalTopics      int     `json:"totalTopics"`
	MasteredTopics   int     `json:"masteredTopics"`
	InProgressTopics int     `json:"inProgressTopics"`
	NotStartedTopics int     `json:"notStartedTopics"`
	TotalAttempts    int     `json:"totalAttempts"`
	AverageBestScore float64 `json:"averageBestScore"`
}

func Summarize(topics []Topic) Stats {
	st := Stats{TotalTopics: len(topics)}
	sum := 0
	for _, t := range topics {
		switch t.Status.Normalize() {
		case StatusMastered:
			st.MasteredTopics++
		case StatusInProgress:
			st.InProgressTopics++
		default:
			st.NotStartedTopics++
		}
		st.TotalAttempts += t.Attempts
		sum += t.BestScore
	}
	if len(topics) > 0 {
		st.AverageBestScore = float64(sum) / float64(len(topics))
	}
	return st
}
