package rag

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// KnowledgeDocument 租户上传的知识源文件
// 入库后除标签外不可修改, 仅由租户显式删除(软删除)。
type KnowledgeDocument struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenantId" gorm:"type:uuid;not null;index"`

	FileName string   `json:"fileName" gorm:"size:500;not null"`
	FileType string   `json:"fileType" gorm:"size:100"` // MIME 类型
	Tags     []string `json:"tags" gorm:"type:jsonb;serializer:json"`

	// pending, processing, indexed, failed
	Status       string `json:"status" gorm:"size:50;not null;default:pending"`
	ErrorMessage string `json:"errorMessage,omitempty" gorm:"type:text"`
	ChunkCount   int    `json:"chunkCount" gorm:"default:0"`

	UploadedAt time.Time  `json:"uploadedAt" gorm:"not null;autoCreateTime"`
	UpdatedAt  time.Time  `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

// KnowledgeChunk 文档切分出的文本片段及其向量
// 片段属于且仅属于一个文档, 租户归属随文档继承;
// 向量在源文本变化前只写一次(Embedding 为空表示尚未计算)。
type KnowledgeChunk struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	DocumentID string `json:"documentId" gorm:"type:uuid;not null;index"`
	TenantID   string `json:"tenantId" gorm:"type:uuid;not null;index"`

	ChunkIndex int    `json:"chunkIndex" gorm:"not null"` // 文档内序号, 从 0 开始
	Content    string `json:"content" gorm:"type:text;not null"`
	TokenCount int    `json:"tokenCount" gorm:"default:0"`

	Metadata map[string]any `json:"metadata" gorm:"type:jsonb;serializer:json"`

	Embedding      *pgvector.Vector `json:"-" gorm:"type:vector(3072)"`
	EmbeddingModel string           `json:"embeddingModel" gorm:"size:100"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`

	// 预加载文档信息用于结果归属展示
	Document *KnowledgeDocument `json:"-" gorm:"foreignKey:DocumentID"`
}

// QueryLog 查询日志, 仅追加, 只用于分析, 不参与检索路径
type QueryLog struct {
	ID             string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID       string `json:"tenantId" gorm:"type:uuid;not null;index"`
	Query          string `json:"query" gorm:"type:text;not null"`
	ResultCount    int    `json:"resultCount" gorm:"not null"`
	ResponseTimeMs int64  `json:"responseTimeMs" gorm:"not null"`

	AgentType      string `json:"agentType,omitempty" gorm:"size:50"`
	ConversationID string `json:"conversationId,omitempty" gorm:"size:100"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime;index"`
}

// SimilarityResult 单条检索结果, 派生值, 不持久化
// 附带冗余的文档归属信息, 便于直接展示与引用。
type SimilarityResult struct {
	ChunkID    string  `json:"chunkId"`
	DocumentID string  `json:"documentId"`
	ChunkIndex int     `json:"chunkIndex"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"` // [-1,1], 已保留 4 位小数

	FileName   string         `json:"fileName"`
	FileType   string         `json:"fileType"`
	UploadDate time.Time      `json:"uploadDate"`
	Tags       []string       `json:"tags,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// SearchResponse 检索响应
type SearchResponse struct {
	Results        []*SimilarityResult `json:"results"`
	Count          int                 `json:"count"`
	ResponseTimeMs int64               `json:"responseTimeMs"`
}
