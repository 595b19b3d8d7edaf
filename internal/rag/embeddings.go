package rag

import "context"

// EmbeddingProvider 抽象不同向量模型/服务的统一接口。
type EmbeddingProvider interface {
	// Embed 单条文本向量化, 返回长度等于 GetDimension() 的向量
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch 批量向量化, 内部按 BatchSize 分批顺序调用上游
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	GetModel() string
	GetDimension() int
}

// EmbeddingModelConfig 描述一个嵌入模型的关键配置。
// Dimension 是硬约束: 所有参与比较的向量长度必须一致。
type EmbeddingModelConfig struct {
	Model      string
	Dimension  int
	BatchSize  int
	MaxRetries int
}
