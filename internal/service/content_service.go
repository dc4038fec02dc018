package service

import (
	"context"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/repository"
	"dsa_hub_backend/internal/util"
	"dsa_hub_backend/pkg/logger"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ContentService struct {
	ContentRepo *repository.ContentRepository
	QuizRepo    *repository.QuizRepository
	Storage     *StorageService
	Progress    *ProgressStore
	Pipeline    *PipelineService
	AI          *AIService
	Cfg         *config.Config
}

func NewContentService(contentRepo *repository.ContentRepository, quizRepo *repository.QuizRepository, storage *StorageService,
	progress *ProgressStore, pipeline *PipelineService, ai *AIService, cfg *config.Config) *ContentService {
	return &ContentService{
		ContentRepo: contentRepo,
		QuizRepo:    quizRepo,
		Storage:     storage,
		Progress:    progress,
		Pipeline:    pipeline,
		AI:          ai,
		Cfg:         cfg,
	}
}

type UploadInput struct {
	Title       string
	Description string
}

// uploadRule 每种文件的声明类型、扩展名与内容嗅探白名单
type uploadRule struct {
	declared   []string
	extensions []string
	sniffed    []string
}

func (s *ContentService) uploadRule(contentType model.ContentType) (uploadRule, bool) {
	switch contentType {
	case model.ContentPDF:
		return uploadRule{
			declared:   s.Cfg.Upload.PDFTypes,
			extensions: []string{".pdf"},
			sniffed:    []string{util.MimePDF},
		}, true
	case model.ContentImage:
		// tiff 无法被嗅探识别
		return uploadRule{
			declared:   s.Cfg.Upload.ImageTypes,
			extensions: util.AllowedImageExtensions,
			sniffed:    []string{util.MimeImage, util.MimeOctetStream},
		}, true
	case model.ContentVideo:
		return uploadRule{
			declared:   s.Cfg.Upload.VideoTypes,
			extensions: util.AllowedVideoExtensions,
			sniffed:    []string{util.MimeVideo, util.MimeOctetStream, "application/ogg"},
		}, true
	}
	return uploadRule{}, false
}

// Upload 校验并暂存上传文件，创建内容记录后交给后台处理
func (s *ContentService) Upload(userID uint, contentType model.ContentType, file *multipart.FileHeader, in UploadInput) (*model.Content, error) {
	rule, ok := s.uploadRule(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", util.ErrUnsupportedFile, contentType)
	}
	if s.Cfg.Upload.MaxFileSize > 0 && file.Size > s.Cfg.Upload.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", util.ErrFileTooLarge, file.Size, s.Cfg.Upload.MaxFileSize)
	}

	declared := file.Header.Get("Content-Type")
	if !util.MimeAllowed(declared, rule.declared) {
		return nil, fmt.Errorf("%w: %s", util.ErrUnsupportedFile, declared)
	}
	if !util.HasExtension(file.Filename, rule.extensions) {
		return nil, fmt.Errorf("%w: %s", util.ErrUnsupportedFile, filepath.Ext(file.Filename))
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// 深度验证 MIME 类型
	if sniffed, err := util.ValidateMimeType(src, rule.sniffed); err != nil {
		return nil, fmt.Errorf("%w: content looks like %s", util.ErrUnsupportedFile, sniffed)
	}
	// 重置读取指针
	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}

	localPath, err := s.saveTemp(src, file.Filename)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = file.Filename
	}
	content := &model.Content{
		UserID:       userID,
		Type:         contentType,
		Title:        title,
		Description:  in.Description,
		Status:       model.ContentProcessing,
		OriginalName: file.Filename,
		FileSize:     file.Size,
		MimeType:     declared,
	}
	if err := s.ContentRepo.Create(content); err != nil {
		os.Remove(localPath)
		return nil, err
	}

	s.Pipeline.Submit(ProcessingJob{
		ContentID:    content.ID,
		UserID:       userID,
		Type:         contentType,
		LocalPath:    localPath,
		MimeType:     declared,
		OriginalName: file.Filename,
	})

	logger.Log.Info("Content uploaded",
		zap.Uint("userID", userID),
		zap.Uint("contentID", content.ID),
		zap.String("type", string(contentType)),
		zap.Int64("size", file.Size))
	return content, nil
}

func (s *ContentService) saveTemp(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.Cfg.Upload.TempDir, 0755); err != nil {
		return "", err
	}
	localPath := filepath.Join(s.Cfg.Upload.TempDir, uuid.New().String()+strings.ToLower(filepath.Ext(filename)))
	dst, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(localPath)
		return "", err
	}
	// 写入完成后立即关闭，后台任务会重新打开
	if err := dst.Close(); err != nil {
		os.Remove(localPath)
		return "", err
	}
	return localPath, nil
}

// SubmitYouTube 只保存链接，下载与转写在后台完成
func (s *ContentService) SubmitYouTube(userID uint, rawURL, title string) (*model.Content, error) {
	if _, ok := util.YouTubeVideoID(rawURL); !ok {
		return nil, util.ErrInvalidYouTubeURL
	}
	content := &model.Content{
		UserID:    userID,
		Type:      model.ContentYouTube,
		Title:     strings.TrimSpace(title),
		Status:    model.ContentProcessing,
		SourceURL: strings.TrimSpace(rawURL),
	}
	if err := s.ContentRepo.Create(content); err != nil {
		return nil, err
	}

	s.Pipeline.Submit(ProcessingJob{
		ContentID: content.ID,
		UserID:    userID,
		Type:      model.ContentYouTube,
		SourceURL: content.SourceURL,
	})

	logger.Log.Info("YouTube content submitted", zap.Uint("userID", userID), zap.Uint("contentID", content.ID))
	return content, nil
}

// Get 只能读取自己的内容
func (s *ContentService) Get(userID, contentID uint) (*model.Content, error) {
	content, err := s.ContentRepo.FindByID(contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrContentNotFound
		}
		return nil, err
	}
	if content.UserID != userID {
		return nil, util.ErrContentNotFound
	}
	return content, nil
}

func (s *ContentService) List(userID uint, contentType model.ContentType, page, limit int) ([]model.Content, int64, error) {
	page, limit = NormalizePage(page, limit)
	return s.ContentRepo.FindByUser(userID, contentType, page, limit)
}

func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, min(limit, 100)
}

// ContentStatus 数据库状态，处理中时附带后台进度
type ContentStatus struct {
	ID            uint                      `json:"id"`
	Type          model.ContentType         `json:"type"`
	Title         string                    `json:"title"`
	Status        model.ContentStatus       `json:"status"`
	QuizGenerated bool                      `json:"quizGenerated"`
	UploadDate    time.Time                 `json:"uploadDate"`
	Language      string                    `json:"language,omitempty"`
	Error         string                    `json:"error,omitempty"`
	Progress      *model.ProcessingProgress `json:"progress,omitempty"`
}

func (s *ContentService) Status(ctx context.Context, userID, contentID uint) (*ContentStatus, error) {
	content, err := s.Get(userID, contentID)
	if err != nil {
		return nil, err
	}
	st := &ContentStatus{
		ID:            content.ID,
		Type:          content.Type,
		Title:         content.Title,
		Status:        content.Status,
		QuizGenerated: content.QuizGenerated,
		UploadDate:    content.CreatedAt,
		Language:      content.Language,
		Error:         content.ErrorMessage,
	}
	if !content.IsTerminal() {
		p, ok, err := s.Progress.Get(ctx, contentID)
		if err != nil {
			logger.Log.Debug("Failed to read progress", zap.Uint("contentID", contentID), zap.Error(err))
		} else if ok {
			st.Progress = p
		}
	}
	return st, nil
}

// Delete 删除内容及其测验与测验记录，原件尽力删除
func (s *ContentService) Delete(ctx context.Context, userID, contentID uint) error {
	content, err := s.Get(userID, contentID)
	if err != nil {
		return err
	}
	if err := s.ContentRepo.DeleteCascade(userID, contentID); err != nil {
		return err
	}
	if content.ObjectKey != "" {
		if err := s.Storage.Delete(ctx, content.ObjectKey); err != nil {
			logger.Log.Warn("Failed to delete stored original",
				zap.Uint("contentID", contentID),
				zap.String("key", content.ObjectKey),
				zap.Error(err))
		}
	}
	if err := s.Progress.Delete(ctx, contentID); err != nil {
		logger.Log.Debug("Failed to delete progress", zap.Uint("contentID", contentID), zap.Error(err))
	}
	logger.Log.Info("Content deleted", zap.Uint("userID", userID), zap.Uint("contentID", contentID))
	return nil
}

// readyText 内容必须处理完成且有文本
func (s *ContentService) readyText(userID, contentID uint) (*model.Content, error) {
	content, err := s.Get(userID, contentID)
	if err != nil {
		return nil, err
	}
	if content.Status != model.ContentCompleted {
		return nil, util.ErrContentNotReady
	}
	if strings.TrimSpace(content.ExtractedText) == "" {
		return nil, util.ErrNoExtractedText
	}
	return content, nil
}

// GenerateQuiz 为内容生成新测验，之前的测验被停用
func (s *ContentService) GenerateQuiz(ctx context.Context, userID, contentID uint, count int, difficulty string) (*model.Quiz, error) {
	content, err := s.readyText(userID, contentID)
	if err != nil {
		return nil, err
	}

	generated, err := s.AI.GenerateQuiz(ctx, content.ExtractedText, count, difficulty)
	if err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		UserID:        userID,
		ContentID:     &content.ID,
		Title:         "Quiz: " + content.Title,
		Questions:     generated.Questions,
		EstimatedTime: len(generated.Questions) * s.Cfg.Quiz.MinutesPerQuestion,
		Language:      content.Language,
		Difficulty:    generated.Difficulty,
		SourceType:    content.Type,
		IsActive:      true,
	}
	if quiz.Language == "" {
		quiz.Language = "unknown"
	}
	if err := s.QuizRepo.ReplaceForContent(quiz); err != nil {
		return nil, err
	}
	if err := s.ContentRepo.UpdateFields(content.ID, map[string]interface{}{
		"quiz_generated": true,
		"quiz_id":        quiz.ID,
	}); err != nil {
		return nil, err
	}

	logger.Log.Info("Quiz saved",
		zap.Uint("userID", userID),
		zap.Uint("contentID", content.ID),
		zap.String("quizID", quiz.ID),
		zap.Int("questions", len(quiz.Questions)))
	return quiz, nil
}

// GeneratePrerequisites 已生成过时直接返回，generated 为 false
func (s *ContentService) GeneratePrerequisites(ctx context.Context, userID, contentID uint) (*PrerequisiteResult, bool, error) {
	content, err := s.readyText(userID, contentID)
	if err != nil {
		return nil, false, err
	}
	if len(content.Prerequisites) > 0 || len(content.Resources) > 0 {
		return &PrerequisiteResult{Prerequisites: content.Prerequisites, Resources: content.Resources}, false, nil
	}

	result, err := s.AI.GeneratePrerequisites(ctx, content.ExtractedText)
	if err != nil {
		return nil, false, err
	}
	if result.Prerequisites == nil {
		result.Prerequisites = []string{}
	}
	if result.Resources == nil {
		result.Resources = []model.LearningResource{}
	}
	content.Prerequisites = result.Prerequisites
	content.Resources = result.Resources
	if err := s.ContentRepo.Update(content); err != nil {
		return nil, false, err
	}
	return result, true, nil
}

func (s *ContentService) ListQuizzes(userID uint, page, limit int) ([]model.Quiz, int64, error) {
	page, limit = NormalizePage(page, limit)
	return s.QuizRepo.FindByUser(userID, page, limit)
}

func (s *ContentService) GetQuiz(userID uint, quizID string) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if quiz.UserID != userID {
		return nil, util.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *ContentService) Health(ctx context.Context) AIHealth {
	return s.AI.CheckHealth(ctx)
}

// ParseContentID 内容 id 在测验记录中以字符串保存
func ParseContentID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, util.ErrContentNotFound
	}
	return uint(id), nil
}
