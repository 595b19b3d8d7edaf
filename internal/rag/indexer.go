package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"backend/internal/infra/queue"
	"backend/internal/metrics"
)

// DocumentService 知识文档管理与索引服务
// 上传后的处理(分块 + 向量化)走任务队列异步执行。
type DocumentService struct {
	db          *gorm.DB
	chunks      ChunkStore
	embedder    EmbeddingProvider
	chunker     *Chunker
	queueClient queue.Client
}

// NewDocumentService 创建文档服务
func NewDocumentService(db *gorm.DB, chunks ChunkStore, embedder EmbeddingProvider, chunker *Chunker, queueClient queue.Client) *DocumentService {
	return &DocumentService{
		db:          db,
		chunks:      chunks,
		embedder:    embedder,
		chunker:     chunker,
		queueClient: queueClient,
	}
}

// UploadDocumentRequest 上传文档请求
type UploadDocumentRequest struct {
	TenantID string
	FileName string
	FileType string
	Content  string
	Tags     []string
}

// UploadDocument 创建文档记录并入队处理
func (s *DocumentService) UploadDocument(ctx context.Context, req *UploadDocumentRequest) (*KnowledgeDocument, error) {
	if strings.TrimSpace(req.TenantID) == "" {
		return nil, ErrMissingTenant
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: 文档内容不能为空", ErrInvalidInput)
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, fmt.Errorf("%w: 文件名不能为空", ErrInvalidInput)
	}

	doc := &KnowledgeDocument{
		ID:       uuid.New().String(),
		TenantID: req.TenantID,
		FileName: req.FileName,
		FileType: req.FileType,
		Tags:     req.Tags,
		Status:   "pending",
	}

	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, fmt.Errorf("创建文档记录失败: %w", err)
	}

	// 原始内容暂存在 metadata 表外, 由处理任务读取后分块;
	// 这里直接随任务负载传递, 避免为纯文本再建一张大字段表。
	if err := s.queueClient.EnqueueProcessDocument(doc.ID, req.Content); err != nil {
		_ = s.updateStatus(ctx, doc.ID, "failed", fmt.Sprintf("任务入队失败: %v", err))
		return nil, fmt.Errorf("任务入队失败: %w", err)
	}

	return doc, nil
}

// ProcessDocument 处理文档: 分块 → 批量向量化 → 写入分块
// 任一批次向量化失败则整体失败, 不保留半成品分块。
func (s *DocumentService) ProcessDocument(ctx context.Context, documentID, content string) error {
	var doc KnowledgeDocument
	if err := s.db.WithContext(ctx).Where("id = ?", documentID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 文档 %s", ErrNotFound, documentID)
		}
		return fmt.Errorf("查询文档失败: %w", err)
	}

	if err := s.updateStatus(ctx, documentID, "processing", ""); err != nil {
		return err
	}

	// 1. 分块
	chunkResults, err := s.chunker.ChunkDocument(content)
	if err != nil {
		_ = s.updateStatus(ctx, documentID, "failed", err.Error())
		return fmt.Errorf("文档分块失败: %w", err)
	}

	// 2. 批量向量化
	texts := make([]string, len(chunkResults))
	for i, chunk := range chunkResults {
		texts[i] = chunk.Content
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		_ = s.updateStatus(ctx, documentID, "failed", err.Error())
		metrics.DocumentsProcessedTotal.WithLabelValues(doc.TenantID, "failed").Inc()
		return fmt.Errorf("向量化失败: %w", err)
	}

	// 3. 写入分块
	chunks := make([]*KnowledgeChunk, len(chunkResults))
	for i, result := range chunkResults {
		vec := pgvector.NewVector(embeddings[i])
		chunks[i] = &KnowledgeChunk{
			ID:             uuid.New().String(),
			DocumentID:     doc.ID,
			TenantID:       doc.TenantID,
			ChunkIndex:     result.ChunkIndex,
			Content:        result.Content,
			TokenCount:     result.TokenCount,
			Embedding:      &vec,
			EmbeddingModel: s.embedder.GetModel(),
			Metadata: map[string]any{
				"file_name": doc.FileName,
			},
		}
	}

	if err := s.chunks.AddChunks(ctx, chunks); err != nil {
		_ = s.updateStatus(ctx, documentID, "failed", err.Error())
		metrics.DocumentsProcessedTotal.WithLabelValues(doc.TenantID, "failed").Inc()
		return err
	}

	// 4. 更新文档状态与统计
	updates := map[string]any{
		"status":      "indexed",
		"chunk_count": len(chunks),
		"updated_at":  time.Now(),
	}
	if err := s.db.WithContext(ctx).
		Model(&KnowledgeDocument{}).
		Where("id = ?", documentID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("更新文档状态失败: %w", err)
	}

	metrics.DocumentsProcessedTotal.WithLabelValues(doc.TenantID, "indexed").Inc()
	return nil
}

// UpdateTags 更新文档标签(文档入库后唯一可变的字段)
func (s *DocumentService) UpdateTags(ctx context.Context, documentID, tenantID string, tags []string) error {
	var doc KnowledgeDocument
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND deleted_at IS NULL", documentID, tenantID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 文档 %s", ErrNotFound, documentID)
		}
		return fmt.Errorf("查询文档失败: %w", err)
	}

	doc.Tags = tags
	doc.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&doc).Error; err != nil {
		return fmt.Errorf("更新标签失败: %w", err)
	}
	return nil
}

// DeleteDocument 软删除文档并清理其分块
func (s *DocumentService) DeleteDocument(ctx context.Context, documentID, tenantID string) error {
	var doc KnowledgeDocument
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND deleted_at IS NULL", documentID, tenantID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 文档 %s", ErrNotFound, documentID)
		}
		return fmt.Errorf("查询文档失败: %w", err)
	}

	if err := s.chunks.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("删除分块失败: %w", err)
	}

	return s.db.WithContext(ctx).
		Model(&KnowledgeDocument{}).
		Where("id = ?", documentID).
		Update("deleted_at", time.Now()).
		Error
}

// ListDocuments 列出租户文档
func (s *DocumentService) ListDocuments(ctx context.Context, tenantID string) ([]*KnowledgeDocument, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrMissingTenant
	}

	var docs []*KnowledgeDocument
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Order("uploaded_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("查询文档列表失败: %w", err)
	}

	return docs, nil
}

// updateStatus 更新文档状态
func (s *DocumentService) updateStatus(ctx context.Context, documentID, status, errorMsg string) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMsg != "" {
		updates["error_message"] = errorMsg
	}

	return s.db.WithContext(ctx).
		Model(&KnowledgeDocument{}).
		Where("id = ?", documentID).
		Updates(updates).Error
}
