package service

import (
	"bytes"
	"context"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/util"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ExtractionSource 一次提取的输入，本地文件或远程链接二选一
type ExtractionSource struct {
	Path     string
	URL      string
	MimeType string
}

type Extraction struct {
	Text     string
	Language string
	Duration float64
}

// Extractor 从某类内容中提取纯文本
type Extractor interface {
	Extract(ctx context.Context, src ExtractionSource) (*Extraction, error)
}

// CommandRunner 执行外部命令，返回标准输出
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, util.Truncate(strings.TrimSpace(stderr.String()), 500))
	}
	return stdout.Bytes(), nil
}

// NewExtractors 按配置装配四类提取器
func NewExtractors(cfg *config.Config) map[model.ContentType]Extractor {
	whisper := &WhisperTranscriber{
		Path:     cfg.Pipeline.WhisperPath,
		Model:    cfg.Pipeline.WhisperModel,
		Language: cfg.Pipeline.WhisperLanguage,
		Run:      execCommand,
	}
	return map[model.ContentType]Extractor{
		model.ContentPDF: &PDFExtractor{MinChars: cfg.Pipeline.MinPDFChars},
		model.ContentImage: &OCRExtractor{
			Path:     cfg.Pipeline.TesseractPath,
			Lang:     cfg.Pipeline.TesseractLang,
			MinChars: cfg.Pipeline.MinOCRChars,
			Run:      execCommand,
		},
		model.ContentVideo: &VideoExtractor{Transcriber: whisper},
		model.ContentYouTube: &YouTubeExtractor{
			Path:        cfg.Pipeline.YTDLPPath,
			TempDir:     cfg.Upload.TempDir,
			Transcriber: whisper,
			Run:         execCommand,
		},
	}
}

func requireText(text string, minChars int, what string) (string, error) {
	text = normalizeText(text)
	if utf8.RuneCountInString(text) < minChars {
		return "", fmt.Errorf("%w: %s", util.ErrExtractionFailed, what)
	}
	return text, nil
}

// normalizeText 合并多余空白，保留段落
func normalizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// PDFExtractor 读取 PDF 文本层
type PDFExtractor struct {
	MinChars int
}

func (e *PDFExtractor) Extract(ctx context.Context, src ExtractionSource) (*Extraction, error) {
	f, r, err := pdf.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	text, err := requireText(buf.String(), e.MinChars, "PDF appears to be empty or contains insufficient text")
	if err != nil {
		return nil, err
	}
	return &Extraction{Text: text}, nil
}

// OCRExtractor 调用 tesseract 识别图片文字
type OCRExtractor struct {
	Path     string
	Lang     string
	MinChars int
	Run      CommandRunner
}

func (e *OCRExtractor) Extract(ctx context.Context, src ExtractionSource) (*Extraction, error) {
	args := []string{src.Path, "stdout"}
	if e.Lang != "" {
		args = append(args, "-l", e.Lang)
	}
	out, err := e.Run(ctx, e.Path, args...)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	text, err := requireText(string(out), e.MinChars, "image appears to contain no readable text")
	if err != nil {
		return nil, err
	}
	return &Extraction{Text: text}, nil
}

// Transcriber 音频转写
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Extraction, error)
}

// WhisperTranscriber 调用 openai-whisper 命令行
type WhisperTranscriber struct {
	Path     string
	Model    string
	Language string
	Run      CommandRunner
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (*Extraction, error) {
	outDir, err := os.MkdirTemp(filepath.Dir(audioPath), "whisper-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(outDir)

	args := []string{audioPath, "--model", w.Model, "--output_format", "txt", "--output_dir", outDir, "--verbose", "False"}
	if w.Language != "" {
		args = append(args, "--language", w.Language)
	}
	if _, err := w.Run(ctx, w.Path, args...); err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".txt"))
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	text, err := requireText(string(data), 1, "no speech detected")
	if err != nil {
		return nil, err
	}
	return &Extraction{Text: text, Language: w.Language}, nil
}

// VideoExtractor 抽取音轨后转写
type VideoExtractor struct {
	Transcriber Transcriber
}

func (e *VideoExtractor) Extract(ctx context.Context, src ExtractionSource) (*Extraction, error) {
	info, err := util.GetMediaInfo(src.Path)
	if err != nil {
		return nil, err
	}
	if !info.HasAudio {
		return nil, fmt.Errorf("%w: video has no audio track", util.ErrExtractionFailed)
	}

	wav := strings.TrimSuffix(src.Path, filepath.Ext(src.Path)) + ".wav"
	defer os.Remove(wav)
	if err := util.ExtractAudio(src.Path, wav); err != nil {
		return nil, err
	}

	out, err := e.Transcriber.Transcribe(ctx, wav)
	if err != nil {
		return nil, err
	}
	out.Duration = info.Duration
	return out, nil
}

// YouTubeExtractor 用 yt-dlp 下载音频后转写
type YouTubeExtractor struct {
	Path        string
	TempDir     string
	Transcriber Transcriber
	Run         CommandRunner
}

func (e *YouTubeExtractor) Extract(ctx context.Context, src ExtractionSource) (*Extraction, error) {
	videoID, ok := util.YouTubeVideoID(src.URL)
	if !ok {
		return nil, util.ErrInvalidYouTubeURL
	}

	if err := os.MkdirAll(e.TempDir, 0755); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(e.TempDir, "yt-"+videoID+"-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	_, err = e.Run(ctx, e.Path,
		"--no-playlist",
		"-x", "--audio-format", "wav",
		"--postprocessor-args", "ffmpeg:-ac 1 -ar 16000",
		"-o", filepath.Join(dir, "audio.%(ext)s"),
		"https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}

	wav := filepath.Join(dir, "audio.wav")
	out, err := e.Transcriber.Transcribe(ctx, wav)
	if err != nil {
		return nil, err
	}
	if info, err := util.GetMediaInfo(wav); err == nil {
		out.Duration = info.Duration
	}
	return out, nil
}
