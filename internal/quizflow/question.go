package quizflow

import (
	"fmt"
	"strings"
)

// OptionCount 每道题固定 4 个选项
const OptionCount = 4

// Question 单选题
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correctAnswer"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
	Difficulty    string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Topic         string   `json:"topic,omitempty" yaml:"topic,omitempty"`
}

func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidQuestion)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("%w: expected %d options, got %d", ErrInvalidQuestion, OptionCount, len(q.Options))
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return fmt.Errorf("%w: correct answer %d out of range", ErrInvalidQuestion, q.CorrectAnswer)
	}
	return nil
}

// IsCorrect 未作答视为错误
func (q Question) IsCorrect(answer *int) bool {
	return answer != nil && *answer == q.CorrectAnswer
}

func cloneQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

func cloneAnswers(answers []*int) []*int {
	out := make([]*int, len(answers))
	for i, a := range answers {
		if a != nil {
			v := *a
			out[i] = &v
		}
	}
	return out
}

// SubjectKind 测验对象类型
type SubjectKind string

const (
	SubjectTopic   SubjectKind = "topic"
	SubjectContent SubjectKind = "content"
)

// Subject 一次测验只针对一个主题或一个自定义内容
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

func TopicSubject(id string) Subject {
	return Subject{Kind: SubjectTopic, ID: id}
}

func ContentSubject(id string) Subject {
	return Subject{Kind: SubjectContent, ID: id}
}

func (s Subject) Validate() error {
	if s.Kind != SubjectTopic && s.Kind != SubjectContent {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSubject, s.Kind)
	}
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSubject)
	}
	return nil
}

func (s Subject) String() string {
	return string(s.Kind) + ":" + s.ID
}
