package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"backend/internal/logger"
	"backend/internal/metrics"
)

// 检索默认值
// DefaultSimilarityThreshold 是服务内部的宽松默认值; 对外搜索接口
// 另有更严格的默认阈值(见 config.RetrievalConfig), 两者独立配置。
const (
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.1
)

// SearchOptions 检索选项, 零值字段取默认值
type SearchOptions struct {
	TopK int // 默认 5

	// SimilarityThreshold 最低余弦相似度。0 视为未设置, 取默认 0.1;
	// 余弦相似度定义域为 [-1,1], 显式传负值(如 -1)表示放行全部候选。
	SimilarityThreshold float64

	DocumentIDs []string // 非空时限定在给定文档集合内

	// 仅写入查询日志, 不影响检索
	AgentType      string
	ConversationID string
}

// normalize 填充默认值
func (o *SearchOptions) normalize() {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
}

// SearchService 租户内知识检索服务
type SearchService struct {
	chunks   ChunkStore
	queryLog QueryLogStore
	embedder EmbeddingProvider
}

// NewSearchService 创建检索服务
func NewSearchService(chunks ChunkStore, queryLog QueryLogStore, embedder EmbeddingProvider) *SearchService {
	return &SearchService{
		chunks:   chunks,
		queryLog: queryLog,
		embedder: embedder,
	}
}

// Search 语义检索
// 流程: 校验 → 查询向量化 → 租户内全量扫描打分 → 阈值过滤 →
// 排序截断 → 追加查询日志(尽力而为)。
// 租户过滤是强制的, 不存在跨租户检索模式。
func (s *SearchService) Search(ctx context.Context, query, tenantID string, opts *SearchOptions) (*SearchResponse, error) {
	start := time.Now()

	// 调用方错误在任何 I/O 之前拒绝
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: 查询不能为空", ErrInvalidInput)
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrMissingTenant
	}

	if opts == nil {
		opts = &SearchOptions{}
	}
	opts.normalize()

	// 1. 查询向量化
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(tenantID, "failed").Inc()
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}

	// 2. 租户内候选分块
	chunks, err := s.chunks.GetChunksByTenant(ctx, tenantID, opts.DocumentIDs)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(tenantID, "failed").Inc()
		return nil, err
	}

	// 3. 打分 + 阈值过滤
	results, err := s.rankChunks(queryVector, chunks, opts.SimilarityThreshold, "")
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(tenantID, "failed").Inc()
		return nil, err
	}

	// 4. 截断 TopK
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}

	elapsed := time.Since(start)
	resp := &SearchResponse{
		Results:        results,
		Count:          len(results),
		ResponseTimeMs: elapsed.Milliseconds(),
	}

	metrics.SearchesTotal.WithLabelValues(tenantID, "success").Inc()
	metrics.SearchDuration.WithLabelValues(tenantID).Observe(elapsed.Seconds())
	metrics.SearchResults.WithLabelValues(tenantID).Observe(float64(len(results)))

	// 5. 查询日志尽力写入, 失败只记诊断日志, 绝不影响返回值
	s.appendQueryLog(ctx, &QueryLog{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		Query:          query,
		ResultCount:    len(results),
		ResponseTimeMs: resp.ResponseTimeMs,
		AgentType:      opts.AgentType,
		ConversationID: opts.ConversationID,
	})

	return resp, nil
}

// FindSimilar 查找与指定分块最相似的其他分块
// 以该分块自身向量为查询, 在同租户内排除自身后排序。
// tenantID 非空时校验分块归属, 归属不符按不存在处理, 避免泄露
// 其他租户分块 ID 的存在性。
func (s *SearchService) FindSimilar(ctx context.Context, tenantID, chunkID string, topK int) (*SearchResponse, error) {
	start := time.Now()

	if strings.TrimSpace(chunkID) == "" {
		return nil, fmt.Errorf("%w: 分块 ID 不能为空", ErrInvalidInput)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	source, err := s.chunks.GetChunk(ctx, chunkID)
	if err != nil {
		return nil, err
	}
	if tenantID != "" && source.TenantID != tenantID {
		return nil, fmt.Errorf("%w: 分块 %s", ErrNotFound, chunkID)
	}
	if source.Embedding == nil {
		return nil, fmt.Errorf("%w: 分块 %s 尚未向量化", ErrNotFound, chunkID)
	}

	chunks, err := s.chunks.GetChunksByTenant(ctx, source.TenantID, nil)
	if err != nil {
		return nil, err
	}

	results, err := s.rankChunks(source.Embedding.Slice(), chunks, DefaultSimilarityThreshold, chunkID)
	if err != nil {
		return nil, err
	}

	if len(results) > topK {
		results = results[:topK]
	}

	return &SearchResponse{
		Results:        results,
		Count:          len(results),
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// rankChunks 对候选分块打分、过滤并排序
// 未向量化的分块直接跳过(不是相似度 0); 相似度相同时按分块
// 序号升序, 保证结果确定性。excludeID 用于 FindSimilar 排除自身。
func (s *SearchService) rankChunks(queryVector []float32, chunks []*KnowledgeChunk, threshold float64, excludeID string) ([]*SimilarityResult, error) {
	results := make([]*SimilarityResult, 0, len(chunks))

	for _, chunk := range chunks {
		if chunk.Embedding == nil || chunk.ID == excludeID {
			continue
		}

		score, err := CosineSimilarity(queryVector, chunk.Embedding.Slice())
		if err != nil {
			return nil, err
		}

		score = RoundSimilarity(score)
		if score < threshold {
			continue
		}

		result := &SimilarityResult{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.ChunkIndex,
			Content:    chunk.Content,
			Similarity: score,
			Metadata:   chunk.Metadata,
		}
		if chunk.Document != nil {
			result.FileName = chunk.Document.FileName
			result.FileType = chunk.Document.FileType
			result.UploadDate = chunk.Document.UploadedAt
			result.Tags = chunk.Document.Tags
		}

		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	return results, nil
}

// appendQueryLog 尽力写入查询日志
func (s *SearchService) appendQueryLog(ctx context.Context, entry *QueryLog) {
	if s.queryLog == nil {
		return
	}
	if err := s.queryLog.Append(ctx, entry); err != nil {
		logger.WithContext(ctx).Warn("查询日志写入失败",
			zap.String("tenant_id", entry.TenantID),
			zap.Error(err),
		)
	}
}
