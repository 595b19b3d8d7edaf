package rag

import (
	"fmt"
	"math"
)

// CosineSimilarity 计算余弦相似度 dot(a,b) / (‖a‖·‖b‖), 取值 [-1, 1]
// 两个向量长度不一致属于契约违反, 返回 ErrDimensionMismatch 而不是降级为 0。
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: 向量为空", ErrInvalidInput)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// RoundSimilarity 相似度统一保留 4 位小数后再对外呈现
func RoundSimilarity(score float64) float64 {
	return math.Round(score*10000) / 10000
}
