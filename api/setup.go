package api

import (
	"os"

	analyticsHandlers "backend/api/handlers/analyticsapi"
	knowledgeHandlers "backend/api/handlers/knowledge"
	promptHandlers "backend/api/handlers/promptapi"
	"backend/internal/analytics"
	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/infra/queue"
	"backend/internal/logger"
	"backend/internal/rag"
	"backend/internal/tenant"
	"backend/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRouter 设置并返回 Gin 路由和 Worker 服务器
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *worker.Server) {
	router := gin.New()

	// 初始化队列客户端
	queueClient := queue.NewClient(cfg.Redis)

	// 初始化 Redis(向量缓存), 不可用时退回仅本地缓存
	redisClient, err := infra.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis 不可用，向量缓存将仅使用本地缓存", zap.Error(err))
		redisClient = nil
	}

	// 初始化向量化组件
	apiKey := cfg.OpenAI.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	embeddingProvider := rag.NewOpenAIEmbeddingProvider(apiKey, cfg.OpenAI.BaseURL, rag.EmbeddingModelConfig{
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimension:  cfg.OpenAI.Dimension,
		BatchSize:  cfg.OpenAI.BatchSize,
		MaxRetries: cfg.OpenAI.MaxRetries,
	})
	embeddingCache := rag.NewEmbeddingCache(redisClient, "emb:", 0)
	cachedProvider := rag.NewCachedEmbeddingProvider(embeddingProvider, embeddingCache)

	// 初始化存储与服务
	chunkStore := rag.NewGormChunkStore(db)
	queryLogStore := rag.NewGormQueryLogStore(db)
	searchService := rag.NewSearchService(chunkStore, queryLogStore, cachedProvider)

	chunker := rag.NewChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	documentService := rag.NewDocumentService(db, chunkStore, cachedProvider, chunker, queueClient)

	analyticsService := analytics.NewService(db)

	// 租户解析器
	agentResolver := tenant.NewGormResolver(db)

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(CORS())

	// 公开端点（不需要认证）
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck())

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 初始化 Handlers
	searchHandler := knowledgeHandlers.NewSearchHandler(searchService, cfg.Retrieval.APIThreshold)
	documentHandler := knowledgeHandlers.NewDocumentHandler(documentService)
	promptHandler := promptHandlers.NewPromptHandler(searchService, cfg.Retrieval.APIThreshold, cfg.Prompt.MaxTokens)
	analyticsHandler := analyticsHandlers.NewAnalyticsHandler(analyticsService)

	// 业务 API, 统一走坐席认证
	apiGroup := router.Group("/api")
	apiGroup.Use(AgentAuth(agentResolver))
	{
		// 检索 API
		apiGroup.POST("/search", searchHandler.Search)
		apiGroup.GET("/chunks/:id/similar", searchHandler.FindSimilar)

		// 知识文档管理 API
		documents := apiGroup.Group("/documents")
		{
			documents.POST("", documentHandler.Upload)
			documents.GET("", documentHandler.List)
			documents.PATCH("/:id/tags", documentHandler.UpdateTags)
			documents.DELETE("/:id", documentHandler.Delete)
		}

		// Prompt 组装 API
		prompts := apiGroup.Group("/prompts")
		{
			prompts.POST("/build", promptHandler.Build)
			prompts.POST("/build-with-attribution", promptHandler.BuildWithAttribution)
			prompts.POST("/check-limit", promptHandler.CheckLimit)
		}

		// 查询分析 API
		analyticsGroup := apiGroup.Group("/analytics")
		{
			analyticsGroup.GET("/queries", analyticsHandler.Queries)
			analyticsGroup.GET("/statistics", analyticsHandler.Statistics)
		}
	}

	// 初始化 Worker 服务器
	workerServer := worker.NewServer(cfg.Redis, documentService, logger.Get())

	return router, workerServer
}

// HealthCheck 健康检查
func HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "FrontDesk",
		})
	}
}

// ReadinessCheck 就绪检查
// 数据库不可用时未就绪; Redis 缓存不可用只降级, 不阻塞就绪。
func ReadinessCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := infra.HealthCheck(); err != nil {
			c.JSON(503, gin.H{
				"status": "not_ready",
				"reason": "database unavailable",
			})
			return
		}

		cache := "connected"
		if err := infra.HealthCheckRedis(); err != nil {
			cache = "unavailable"
		}

		c.JSON(200, gin.H{
			"status":   "ready",
			"database": "connected",
			"cache":    cache,
		})
	}
}
