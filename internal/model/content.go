package model

import (
	"gorm.io/datatypes"
)

type ContentType string

const (
	ContentPDF     ContentType = "pdf"
	ContentImage   ContentType = "image"
	ContentVideo   ContentType = "video"
	ContentYouTube ContentType = "youtube"
)

type ContentStatus string

const (
	ContentUploading  ContentStatus = "uploading"
	ContentProcessing ContentStatus = "processing"
	ContentReady      ContentStatus = "ready"
	ContentCompleted  ContentStatus = "completed"
	ContentFailed     ContentStatus = "failed"
)

// LearningResource LLM 推荐的前置知识学习资源
type LearningResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Topic string `json:"topic"`
}

// Content 用户上传的自定义学习内容
// swagger:model Content
type Content struct {
	BaseModel
	UserID         uint                                  `gorm:"index;not null" json:"userId"`
	Type           ContentType                           `gorm:"size:20;not null" json:"type"`
	Title          string                                `gorm:"size:255;not null" json:"title"`
	Description    string                                `gorm:"type:text" json:"description"`
	Status         ContentStatus                         `gorm:"size:20;index;default:'processing'" json:"status"`
	SourceURL      string                                `gorm:"size:500" json:"sourceUrl,omitempty"`
	OriginalName   string                                `gorm:"size:255" json:"originalName,omitempty"`
	FileURL        string                                `gorm:"size:500" json:"fileUrl,omitempty"`
	ObjectKey      string                                `gorm:"size:500" json:"-"`
	FileSize       int64                                 `gorm:"default:0" json:"fileSize"`
	MimeType       string                                `gorm:"size:100" json:"mimeType,omitempty"`
	Duration       float64                               `gorm:"default:0" json:"duration,omitempty"` // 音视频时长（秒）
	ExtractedText  string                                `json:"extractedText,omitempty"`
	Language       string                                `gorm:"size:20" json:"language,omitempty"`
	ProcessingTime int64                                 `gorm:"default:0" json:"processingTime"` // 毫秒
	ErrorMessage   string                                `gorm:"type:text" json:"error,omitempty"`
	QuizGenerated  bool                                  `gorm:"default:false" json:"quizGenerated"`
	QuizID         string                                `gorm:"size:36" json:"quizId,omitempty"`
	Prerequisites  datatypes.JSONSlice[string]           `json:"prerequisites"`
	Resources      datatypes.JSONSlice[LearningResource] `json:"resources"`
}

func (Content) TableName() string {
	return "contents"
}

// IsTerminal 处理已结束（成功或失败）
func (c *Content) IsTerminal() bool {
	return c.Status == ContentCompleted || c.Status == ContentFailed
}

// ProcessingProgress 处理进度，保存在 Redis
type ProcessingProgress struct {
	ContentID uint          `json:"contentId"`
	Status    ContentStatus `json:"status"`
	Stage     string        `json:"stage"`
	Percent   int           `json:"percent"`
	Message   string        `json:"message,omitempty"`
	UpdatedAt int64         `json:"updatedAt"`
}
