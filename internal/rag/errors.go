package rag

import "errors"

// 检索核心的错误类别。调用方通过 errors.Is 判断类别,
// 具体上下文由 fmt.Errorf("...: %w", Err...) 包装补充。
var (
	// ErrInvalidInput 查询或文本为空、非法
	ErrInvalidInput = errors.New("输入无效")

	// ErrMissingTenant 未提供租户标识。检索不存在跨租户模式,
	// 缺失租户直接拒绝, 不做任何 I/O。
	ErrMissingTenant = errors.New("缺少租户标识")

	// ErrEmbeddingFailure 上游向量化服务重试耗尽或返回不可用结果
	ErrEmbeddingFailure = errors.New("向量化失败")

	// ErrDimensionMismatch 向量维度与配置不一致。这是契约违反,
	// 必须显式失败, 否则会悄悄破坏所有相似度计算。
	ErrDimensionMismatch = errors.New("向量维度不匹配")

	// ErrNotFound 引用的文档/分块不存在或缺少向量
	ErrNotFound = errors.New("记录不存在")
)
