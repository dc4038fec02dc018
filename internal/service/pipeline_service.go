package service

import (
	"context"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/repository"
	"dsa_hub_backend/pkg/logger"
	"dsa_hub_backend/pkg/monitoring"
	"dsa_hub_backend/pkg/tracing"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ProcessingJob 一条待处理的内容
type ProcessingJob struct {
	ContentID    uint
	UserID       uint
	Type         model.ContentType
	LocalPath    string // 上传文件的临时路径，处理结束后删除
	SourceURL    string
	MimeType     string
	OriginalName string
}

// LanguageDetector 转写结果未带语言时使用
type LanguageDetector interface {
	DetectLanguage(ctx context.Context, text string) string
}

// PipelineService 后台按顺序执行 提取 → 语言识别 → 保存原件，并发数受限
type PipelineService struct {
	ContentRepo *repository.ContentRepository
	Storage     *StorageService
	Progress    *ProgressStore
	Detector    LanguageDetector
	Extractors  map[model.ContentType]Extractor
	Cfg         *config.Config

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewPipelineService(contentRepo *repository.ContentRepository, storage *StorageService, progress *ProgressStore,
	detector LanguageDetector, extractors map[model.ContentType]Extractor, cfg *config.Config) *PipelineService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PipelineService{
		ContentRepo: contentRepo,
		Storage:     storage,
		Progress:    progress,
		Detector:    detector,
		Extractors:  extractors,
		Cfg:         cfg,
		sem:         semaphore.NewWeighted(int64(max(cfg.Pipeline.Workers, 1))),
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,
	}
}

// Submit 异步处理，立即返回
func (p *PipelineService) Submit(job ProcessingJob) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.fail(context.Background(), job, p.now(), errors.New("server is shutting down"))
			p.cleanup(job)
			return
		}
		defer p.sem.Release(1)

		ctx := p.ctx
		if p.Cfg.Pipeline.TimeoutMinutes > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(p.Cfg.Pipeline.TimeoutMinutes)*time.Minute)
			defer cancel()
		}
		_ = p.Process(ctx, job)
	}()
}

// Process 同步处理一条内容，结果写回数据库
func (p *PipelineService) Process(ctx context.Context, job ProcessingJob) error {
	start := p.now()
	defer p.cleanup(job)

	log := logger.Log.With(zap.Uint("content_id", job.ContentID), zap.String("type", string(job.Type)))
	log.Info("Content processing started")

	extractor, ok := p.Extractors[job.Type]
	if !ok {
		err := fmt.Errorf("unsupported content type: %s", job.Type)
		p.fail(ctx, job, start, err)
		return err
	}

	p.report(ctx, job.ContentID, "extract", 10, "")
	var extraction *Extraction
	err := p.stage(ctx, "extract", job.ContentID, func(ctx context.Context) error {
		var err error
		extraction, err = extractor.Extract(ctx, ExtractionSource{Path: job.LocalPath, URL: job.SourceURL, MimeType: job.MimeType})
		return err
	})
	if err != nil {
		p.fail(ctx, job, start, err)
		return err
	}

	if extraction.Language == "" && p.Detector != nil {
		p.report(ctx, job.ContentID, "language", 70, "")
		_ = p.stage(ctx, "language", job.ContentID, func(ctx context.Context) error {
			extraction.Language = p.Detector.DetectLanguage(ctx, extraction.Text)
			return nil
		})
	}

	fields := map[string]interface{}{
		"status":          model.ContentCompleted,
		"extracted_text":  extraction.Text,
		"language":        extraction.Language,
		"duration":        extraction.Duration,
		"error_message":   "",
		"processing_time": p.now().Sub(start).Milliseconds(),
	}

	if job.LocalPath != "" && p.Cfg.Upload.KeepOriginal && p.Storage != nil {
		p.report(ctx, job.ContentID, "store", 90, "")
		key := ObjectKey(job.UserID, job.OriginalName)
		var url string
		err := p.stage(ctx, "store", job.ContentID, func(ctx context.Context) error {
			var err error
			url, err = p.Storage.UploadFile(ctx, key, job.LocalPath, job.MimeType)
			return err
		})
		// 原件保存失败不影响文本结果
		if err != nil {
			log.Warn("Failed to store original file", zap.Error(err))
		} else {
			fields["object_key"] = key
			fields["file_url"] = url
		}
	}

	if err := p.ContentRepo.UpdateFields(job.ContentID, fields); err != nil {
		log.Error("Failed to save extraction result", zap.Error(err))
		return err
	}
	p.report(ctx, job.ContentID, string(model.ContentCompleted), 100, "")

	log.Info("Content processing completed",
		zap.Int("chars", len(extraction.Text)),
		zap.String("language", extraction.Language),
		zap.Duration("elapsed", p.now().Sub(start)))
	return nil
}

func (p *PipelineService) stage(ctx context.Context, name string, contentID uint, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := tracing.StartStage(ctx, name, contentID)
	err := fn(ctx)
	tracing.EndStage(span, err)
	monitoring.ObserveStage(name, start, err)
	return err
}

func (p *PipelineService) fail(ctx context.Context, job ProcessingJob, start time.Time, cause error) {
	logger.Log.Warn("Content processing failed",
		zap.Uint("content_id", job.ContentID),
		zap.String("type", string(job.Type)),
		zap.Error(cause))

	// 任务上下文可能已取消，状态仍需落库
	err := p.ContentRepo.UpdateFields(job.ContentID, map[string]interface{}{
		"status":          model.ContentFailed,
		"error_message":   cause.Error(),
		"processing_time": p.now().Sub(start).Milliseconds(),
	})
	if err != nil {
		logger.Log.Error("Failed to mark content as failed", zap.Uint("content_id", job.ContentID), zap.Error(err))
	}
	p.report(context.WithoutCancel(ctx), job.ContentID, string(model.ContentFailed), 100, cause.Error())
}

func (p *PipelineService) report(ctx context.Context, contentID uint, stage string, percent int, msg string) {
	status := model.ContentProcessing
	switch stage {
	case string(model.ContentCompleted):
		status = model.ContentCompleted
	case string(model.ContentFailed):
		status = model.ContentFailed
	}
	err := p.Progress.Set(ctx, model.ProcessingProgress{
		ContentID: contentID,
		Status:    status,
		Stage:     stage,
		Percent:   percent,
		Message:   msg,
	})
	if err != nil {
		logger.Log.Debug("Failed to write progress", zap.Uint("content_id", contentID), zap.Error(err))
	}
}

func (p *PipelineService) cleanup(job ProcessingJob) {
	if job.LocalPath == "" {
		return
	}
	if err := os.Remove(job.LocalPath); err != nil && !os.IsNotExist(err) {
		logger.Log.Warn("Failed to remove temp file", zap.String("path", job.LocalPath), zap.Error(err))
	}
}

// Shutdown 取消全部任务并等待协程退出
func (p *PipelineService) Shutdown(ctx context.Context) error {
	p.cancel()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait 等待所有已提交的任务，测试使用
func (p *PipelineService) Wait() {
	p.wg.Wait()
}
