package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"backend/internal/metrics"
)

// OpenAIEmbeddingProvider OpenAI 向量化服务提供者
type OpenAIEmbeddingProvider struct {
	client    *openai.Client
	model     string
	dimension int
	batchSize int
	retry     RetryPolicy
}

// NewOpenAIEmbeddingProvider 创建 OpenAI 向量化提供者
// baseURL 为空时使用官方端点。维度必须与模型实际输出一致,
// 这里不做猜测, 由配置显式给出并在每次响应时校验。
func NewOpenAIEmbeddingProvider(apiKey, baseURL string, cfg EmbeddingModelConfig) *OpenAIEmbeddingProvider {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	if cfg.Model == "" {
		cfg.Model = string(openai.LargeEmbedding3) // text-embedding-3-large
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 3072
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100 // 上游单次请求的文本数上限
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return &OpenAIEmbeddingProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		retry: RetryPolicy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Second,
			Retryable:   IsRetryableError,
		},
	}
}

// Embed 将文本转换为向量
func (p *OpenAIEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: 文本不能为空", ErrInvalidInput)
	}

	vectors, err := p.callEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量向量化
// 按 batchSize 分批顺序请求; 任一批次重试耗尽即整体失败并丢弃
// 已成功批次的结果 —— 半成品索引比干净重跑更糟。
func (p *OpenAIEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: 文本列表不能为空", ErrInvalidInput)
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: 第 %d 条文本为空", ErrInvalidInput, i)
		}
	}

	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += p.batchSize {
		end := i + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batchIndex := i / p.batchSize
		embeddings, err := p.callEmbeddings(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("批次 %d 向量化失败: %w", batchIndex, err)
		}

		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

// callEmbeddings 单次上游调用, 带重试与维度校验
func (p *OpenAIEmbeddingProvider) callEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	var resp openai.EmbeddingResponse

	err := p.retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		metrics.EmbeddingRequestsTotal.WithLabelValues(p.model).Inc()
		resp, callErr = p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(p.model),
		})
		if callErr != nil {
			metrics.EmbeddingRequestErrors.WithLabelValues(p.model).Inc()
		}
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: 返回向量数量不匹配, 期望 %d 实际 %d",
			ErrEmbeddingFailure, len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		// 维度校验不可省略: 长度不一致的向量一旦入库,
		// 会在无任何报错的情况下污染全部相似度计算。
		if len(data.Embedding) != p.dimension {
			return nil, fmt.Errorf("%w: 期望 %d 维, 实际 %d 维",
				ErrDimensionMismatch, p.dimension, len(data.Embedding))
		}
		embeddings[i] = data.Embedding
	}

	return embeddings, nil
}

// GetModel 获取当前使用的模型
func (p *OpenAIEmbeddingProvider) GetModel() string {
	return p.model
}

// GetDimension 获取向量维度
func (p *OpenAIEmbeddingProvider) GetDimension() int {
	return p.dimension
}
