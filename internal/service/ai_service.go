package service

import (
	"context"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/quizflow"
	"dsa_hub_backend/internal/util"
	"dsa_hub_backend/pkg/logger"
	"dsa_hub_backend/pkg/monitoring"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// maxPromptChars 送入模型的原文上限
const maxPromptChars = 12000

var validDifficulties = map[string]bool{"easy": true, "medium": true, "hard": true, "mixed": true}

// AIService 通过 Ollama 的 OpenAI 兼容接口生成测验与前置知识
type AIService struct {
	client *openai.Client
	cfg    config.AIConfig
	quiz   config.QuizConfig
	retry  RetryPolicy
}

func NewAIService(cfg *config.Config) *AIService {
	clientCfg := openai.DefaultConfig(cfg.AI.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.AI.BaseURL, "/")

	return &AIService{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg.AI,
		quiz:   cfg.Quiz,
		retry:  NewRetryPolicy(cfg.AI),
	}
}

// GeneratedQuiz 模型产出的测验，尚未持久化
type GeneratedQuiz struct {
	Questions  []quizflow.Question
	Difficulty string
}

type PrerequisiteResult struct {
	Prerequisites []string                 `json:"prerequisites"`
	Resources     []model.LearningResource `json:"resources"`
}

// AIHealth Ollama 健康状态
type AIHealth struct {
	Healthy   bool     `json:"healthy"`
	Model     string   `json:"model"`
	Available []string `json:"availableModels,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// NormalizeQuestionCount 0 取默认值，超过上限截断
func (s *AIService) NormalizeQuestionCount(n int) int {
	if n <= 0 {
		n = s.quiz.DefaultQuestionCount
	}
	return min(n, s.quiz.MaxQuestionCount)
}

// GenerateQuiz 根据文本生成选择题，不合格的题目被丢弃，全部不合格时返回错误
func (s *AIService) GenerateQuiz(ctx context.Context, text string, count int, difficulty string) (*GeneratedQuiz, error) {
	if len([]rune(strings.TrimSpace(text))) < s.quiz.MinTextLength {
		return nil, util.ErrTextTooShort
	}
	if difficulty == "" {
		difficulty = "mixed"
	}
	if !validDifficulties[difficulty] {
		return nil, fmt.Errorf("unsupported difficulty %q", difficulty)
	}
	count = s.NormalizeQuestionCount(count)

	var raw struct {
		Questions []rawQuestion `json:"questions"`
	}
	prompt := buildQuizPrompt(util.Truncate(text, maxPromptChars), count, difficulty)
	if err := s.completeJSON(ctx, "generate_quiz", prompt, s.cfg.Temperature, quizSchema, &raw); err != nil {
		return nil, err
	}

	questions := make([]quizflow.Question, 0, len(raw.Questions))
	for _, rq := range raw.Questions {
		q, ok := rq.toQuestion()
		if !ok {
			continue
		}
		questions = append(questions, q)
		if len(questions) == count {
			break
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no valid questions found in response", util.ErrAIInvalidOutput)
	}

	logger.Log.Info("Quiz generated",
		zap.Int("requested", count),
		zap.Int("received", len(raw.Questions)),
		zap.Int("kept", len(questions)))
	return &GeneratedQuiz{Questions: questions, Difficulty: difficulty}, nil
}

// GeneratePrerequisites 提取学习前需要掌握的知识点与推荐资源
func (s *AIService) GeneratePrerequisites(ctx context.Context, text string) (*PrerequisiteResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, util.ErrTextTooShort
	}
	var out PrerequisiteResult
	prompt := buildPrerequisitePrompt(util.Truncate(text, maxPromptChars))
	if err := s.completeJSON(ctx, "generate_prerequisites", prompt, s.cfg.Temperature, prerequisiteSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DetectLanguage 失败时返回 "unknown"
func (s *AIService) DetectLanguage(ctx context.Context, text string) string {
	prompt := fmt.Sprintf(`Detect the language of the following text and respond with only the language name in English (e.g., "English", "Spanish", "French", etc.):

Text: "%s"

Language:`, util.Truncate(text, 500))

	out, err := s.complete(ctx, "detect_language", prompt, 0.1, false)
	if err != nil {
		logger.Log.Warn("Language detection failed", zap.Error(err))
		return "unknown"
	}
	lang := strings.ToLower(strings.Trim(strings.TrimSpace(out), `."'`))
	if lang == "" {
		return "unknown"
	}
	return lang
}

// CheckHealth 列出模型并确认配置的模型已拉取
func (s *AIService) CheckHealth(ctx context.Context) AIHealth {
	health := AIHealth{Model: s.cfg.Model}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	models, err := s.client.ListModels(ctx)
	if err != nil {
		health.Error = err.Error()
		return health
	}

	family, _, _ := strings.Cut(s.cfg.Model, ":")
	for _, m := range models.Models {
		health.Available = append(health.Available, m.ID)
		if strings.Contains(m.ID, family) {
			health.Healthy = true
		}
	}
	if !health.Healthy {
		health.Error = fmt.Sprintf("model %s not found", s.cfg.Model)
	}
	return health
}

func (s *AIService) completeJSON(ctx context.Context, op, prompt string, temperature float32, schema *llmSchema, out interface{}) error {
	return s.retry.Do(ctx, op, func() error {
		content, err := s.complete(ctx, op, prompt, temperature, true)
		if err != nil {
			return err
		}
		raw := json.RawMessage(extractJSON(content))
		if err := validateResponse(schema, raw); err != nil {
			monitoring.AIRequests.WithLabelValues(op, "invalid").Inc()
			return err
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return &ErrInvalidResponse{Content: raw, Err: err}
		}
		return nil
	})
}

func (s *AIService) complete(ctx context.Context, op, prompt string, temperature float32, jsonMode bool) (string, error) {
	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		monitoring.AIRequests.WithLabelValues(op, "error").Inc()
		return "", mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		monitoring.AIRequests.WithLabelValues(op, "invalid").Inc()
		return "", &ErrInvalidResponse{Err: fmt.Errorf("no choices in response")}
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		monitoring.AIRequests.WithLabelValues(op, "truncated").Inc()
		return "", &ErrMaxTokensExceeded{Content: json.RawMessage(choice.Message.Content)}
	}

	monitoring.AIRequests.WithLabelValues(op, "ok").Inc()
	logger.Log.Debug("LLM call completed",
		zap.String("operation", op),
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))
	return choice.Message.Content, nil
}

// extractJSON 去掉代码块标记，截取第一个 { 到最后一个 }
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}

type rawQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
	Topic         string   `json:"topic"`
}

func (rq rawQuestion) toQuestion() (quizflow.Question, bool) {
	if rq.CorrectAnswer == nil {
		return quizflow.Question{}, false
	}
	q := quizflow.Question{
		ID:            uuid.New().String(),
		Question:      strings.TrimSpace(rq.Question),
		Options:       make([]string, len(rq.Options)),
		CorrectAnswer: *rq.CorrectAnswer,
		Explanation:   strings.TrimSpace(rq.Explanation),
		Difficulty:    strings.ToLower(strings.TrimSpace(rq.Difficulty)),
		Topic:         strings.TrimSpace(rq.Topic),
	}
	for i, opt := range rq.Options {
		q.Options[i] = strings.TrimSpace(opt)
		if q.Options[i] == "" {
			return quizflow.Question{}, false
		}
	}
	if q.Explanation == "" {
		q.Explanation = "No explanation provided"
	}
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	if err := q.Validate(); err != nil {
		return quizflow.Question{}, false
	}
	return q, true
}

func buildQuizPrompt(text string, count int, difficulty string) string {
	difficultyInstruction := fmt.Sprintf("Make all questions %s difficulty", difficulty)
	if difficulty == "mixed" {
		difficultyInstruction = "Mix easy, medium, and hard questions"
	}
	return fmt.Sprintf(`Based on the following content, create %d multiple-choice quiz questions.

Content:
"""
%s
"""

Requirements:
1. Create exactly %d questions
2. Each question should have 4 options
3. Include the correct answer index (0-3)
4. Provide a brief explanation for each correct answer
5. Make questions practical and test understanding, not just memorization
6. %s

Respond with a JSON object in this exact format:
{
  "questions": [
    {
      "question": "What is the time complexity of binary search?",
      "options": ["O(1)", "O(log n)", "O(n)", "O(n^2)"],
      "correctAnswer": 1,
      "explanation": "Binary search halves the search space on every comparison.",
      "difficulty": "medium",
      "topic": "Search Algorithms"
    }
  ]
}

Do not include any text before or after the JSON.`, count, text, count, difficultyInstruction)
}

func buildPrerequisitePrompt(text string) string {
	return fmt.Sprintf(`Analyze the following content and extract:

1. A list of prerequisite topics or concepts a learner should know before studying this content.
2. A list of 3-5 recommended resources to learn those prerequisites.

Content:
"""
%s
"""

Respond with a JSON object in this exact format:
{
  "prerequisites": ["Recursion", "Time Complexity"],
  "resources": [
    {"title": "Big-O Notation Explained", "url": "https://www.freecodecamp.org/news/big-o-notation-explained-with-examples/", "topic": "Time Complexity"}
  ]
}

Only include prerequisites that are essential to understand the content. Keep the response strictly as JSON.`, text)
}

// llmSchema 模型输出的 JSON Schema
type llmSchema struct {
	Name       string
	Definition map[string]any
}

var quizSchema = &llmSchema{
	Name: "quiz",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"question", "options", "correctAnswer"},
					"properties": map[string]any{
						"question":      map[string]any{"type": "string"},
						"options":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"correctAnswer": map[string]any{"type": "integer"},
						"explanation":   map[string]any{"type": "string"},
						"difficulty":    map[string]any{"type": "string"},
						"topic":         map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

var prerequisiteSchema = &llmSchema{
	Name: "prerequisites",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"prerequisites"},
		"properties": map[string]any{
			"prerequisites": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"resources": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"title"},
					"properties": map[string]any{
						"title": map[string]any{"type": "string"},
						"url":   map[string]any{"type": "string"},
						"topic": map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

var schemaCache sync.Map // name -> *jsonschema.Schema

func validateResponse(schema *llmSchema, raw json.RawMessage) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := compiledSchema(schema)
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("compile schema %q: %w", schema.Name, err)}
	}
	if err := compiled.Validate(parsed); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}

func compiledSchema(schema *llmSchema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// 编译器需要 json.Unmarshal 得到的值（数字为 float64）
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, err
	}
	var def any
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
