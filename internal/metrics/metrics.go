package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 检索指标
var (
	// SearchesTotal 检索请求总数
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontdesk_searches_total",
			Help: "知识检索请求总数",
		},
		[]string{"tenant_id", "status"},
	)

	// SearchDuration 检索耗时(秒)
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frontdesk_search_duration_seconds",
			Help:    "知识检索耗时分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant_id"},
	)

	// SearchResults 单次检索返回结果数
	SearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frontdesk_search_results",
			Help:    "单次检索返回结果数分布",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
		[]string{"tenant_id"},
	)
)

// Embedding 指标
var (
	// EmbeddingRequestsTotal 上游向量化调用次数(含重试)
	EmbeddingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontdesk_embedding_requests_total",
			Help: "上游 Embedding API 调用次数",
		},
		[]string{"model"},
	)

	// EmbeddingRequestErrors 上游向量化调用失败次数
	EmbeddingRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontdesk_embedding_request_errors_total",
			Help: "上游 Embedding API 调用失败次数",
		},
		[]string{"model"},
	)

	// EmbeddingCacheHits 向量缓存命中次数
	EmbeddingCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontdesk_embedding_cache_hits_total",
			Help: "Embedding 缓存命中次数",
		},
		[]string{"layer"}, // local, redis
	)
)

// 文档处理指标
var (
	// DocumentsProcessedTotal 文档处理总数
	DocumentsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontdesk_documents_processed_total",
			Help: "知识文档处理总数",
		},
		[]string{"tenant_id", "status"},
	)
)
