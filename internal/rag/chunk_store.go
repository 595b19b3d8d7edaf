package rag

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ChunkStore 分块存取接口
// 读路径由检索服务使用, 写路径由文档处理使用。租户过滤在
// 数据访问层强制执行, 是认证边界之外的第二道隔离防线。
type ChunkStore interface {
	// GetChunksByTenant 返回租户全部分块(可选限定文档集合), 带文档归属信息
	GetChunksByTenant(ctx context.Context, tenantID string, documentIDs []string) ([]*KnowledgeChunk, error)
	// GetChunk 按 ID 查询单个分块
	GetChunk(ctx context.Context, chunkID string) (*KnowledgeChunk, error)
	// AddChunks 批量写入分块
	AddChunks(ctx context.Context, chunks []*KnowledgeChunk) error
	// DeleteByDocument 删除指定文档的全部分块(软删除随文档)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// QueryLogStore 查询日志存取接口, 只追加
type QueryLogStore interface {
	Append(ctx context.Context, entry *QueryLog) error
}

// GormChunkStore 基于 gorm 的分块存储实现
type GormChunkStore struct {
	db *gorm.DB
}

// NewGormChunkStore 创建分块存储
func NewGormChunkStore(db *gorm.DB) *GormChunkStore {
	return &GormChunkStore{db: db}
}

// GetChunksByTenant 查询租户下全部分块
// documentIDs 非空时限定在给定文档集合内。
func (s *GormChunkStore) GetChunksByTenant(ctx context.Context, tenantID string, documentIDs []string) ([]*KnowledgeChunk, error) {
	query := s.db.WithContext(ctx).
		Preload("Document").
		Where("tenant_id = ?", tenantID)

	if len(documentIDs) > 0 {
		query = query.Where("document_id IN ?", documentIDs)
	}

	var chunks []*KnowledgeChunk
	if err := query.Order("document_id, chunk_index").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("查询分块失败: %w", err)
	}

	return chunks, nil
}

// GetChunk 按 ID 查询单个分块
func (s *GormChunkStore) GetChunk(ctx context.Context, chunkID string) (*KnowledgeChunk, error) {
	var chunk KnowledgeChunk
	err := s.db.WithContext(ctx).
		Preload("Document").
		Where("id = ?", chunkID).
		First(&chunk).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 分块 %s", ErrNotFound, chunkID)
		}
		return nil, fmt.Errorf("查询分块失败: %w", err)
	}

	return &chunk, nil
}

// AddChunks 事务内批量写入分块
func (s *GormChunkStore) AddChunks(ctx context.Context, chunks []*KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, chunk := range chunks {
			if err := tx.Create(chunk).Error; err != nil {
				return fmt.Errorf("写入分块失败: %w", err)
			}
		}
		return nil
	})
}

// DeleteByDocument 删除指定文档的全部分块
func (s *GormChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	return s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&KnowledgeChunk{}).
		Error
}

// GormQueryLogStore 基于 gorm 的查询日志存储
type GormQueryLogStore struct {
	db *gorm.DB
}

// NewGormQueryLogStore 创建查询日志存储
func NewGormQueryLogStore(db *gorm.DB) *GormQueryLogStore {
	return &GormQueryLogStore{db: db}
}

// Append 追加一条查询日志
func (s *GormQueryLogStore) Append(ctx context.Context, entry *QueryLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}
