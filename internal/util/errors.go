package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("current password is incorrect")

	ErrTopicNotFound     = errors.New("topic not found")
	ErrTopicLocked       = errors.New("topic is locked, master its prerequisites first")
	ErrTopicsInitialized = errors.New("Topics already initialized for this user")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrAttemptExists     = errors.New("attempt already recorded")
	ErrNoQuizData        = errors.New("Quiz data not available for this topic")

	ErrContentNotFound   = errors.New("content not found")
	ErrContentNotReady   = errors.New("Content is still processing or failed to process")
	ErrNoExtractedText   = errors.New("No text content available for this content")
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrNoQuizForContent  = errors.New("No quiz found for this content. Please generate a quiz first.")
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrFileTooLarge      = errors.New("file too large")
	ErrInvalidYouTubeURL = errors.New("invalid YouTube URL")

	ErrTextTooShort     = errors.New("text is too short to generate a quiz")
	ErrAIUnavailable    = errors.New("AI service unavailable")
	ErrAIInvalidOutput  = errors.New("AI returned an invalid response")
	ErrExtractionFailed = errors.New("text extraction failed")
)
