package quizflow

import "errors"

var (
	ErrNoQuestions      = errors.New("quiz has no questions")
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrInvalidSubject   = errors.New("quiz must target exactly one topic or content item")
	ErrAttemptCompleted = errors.New("quiz attempt already completed")
	ErrInvalidOption    = errors.New("answer option out of range")
	ErrIndexOutOfRange  = errors.New("question index out of range")
	ErrQuizActive       = errors.New("a quiz is already in progress")
	ErrNoActiveQuiz     = errors.New("no active quiz")
	ErrAnswerMismatch   = errors.New("answers do not match questions")
)
