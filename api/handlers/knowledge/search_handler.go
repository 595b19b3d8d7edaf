package knowledge

import (
	"errors"
	"net/http"
	"strconv"

	response "backend/api/handlers/common"
	"backend/internal/rag"
	"backend/internal/tenant"

	"github.com/gin-gonic/gin"
)

// SearchHandler 检索处理器
type SearchHandler struct {
	searchService *rag.SearchService
	apiThreshold  float64
}

// NewSearchHandler 创建检索处理器
// apiThreshold 是对外接口的默认相似度阈值, 比检索服务内部默认值更严格。
func NewSearchHandler(searchService *rag.SearchService, apiThreshold float64) *SearchHandler {
	if apiThreshold <= 0 {
		apiThreshold = 0.5
	}
	return &SearchHandler{
		searchService: searchService,
		apiThreshold:  apiThreshold,
	}
}

// SearchRequest 检索请求
// 租户 ID 来自认证中间件, 请求体不接受。
type SearchRequest struct {
	Query               string   `json:"query" binding:"required,min=1"`
	TopK                int      `json:"top_k"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	DocumentIDs         []string `json:"document_ids"`
	ConversationID      string   `json:"conversation_id"`
}

// Search 语义检索
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	tc := tenant.MustTenantContext(c.Request.Context())

	threshold := req.SimilarityThreshold
	if threshold <= 0 {
		threshold = h.apiThreshold
	}

	topK := req.TopK
	if topK > 20 {
		topK = 20
	}

	opts := &rag.SearchOptions{
		TopK:                topK,
		SimilarityThreshold: threshold,
		DocumentIDs:         req.DocumentIDs,
		AgentType:           tc.AgentType,
		ConversationID:      req.ConversationID,
	}

	result, err := h.searchService.Search(c.Request.Context(), req.Query, tc.TenantID, opts)
	if err != nil {
		writeSearchError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// FindSimilar 查找相似分块
func (h *SearchHandler) FindSimilar(c *gin.Context) {
	chunkID := c.Param("id")
	if chunkID == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "缺少分块 ID"})
		return
	}

	topK := 0
	if raw := c.Query("top_k"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			topK = parsed
		}
	}

	tc := tenant.MustTenantContext(c.Request.Context())

	result, err := h.searchService.FindSimilar(c.Request.Context(), tc.TenantID, chunkID, topK)
	if err != nil {
		writeSearchError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// writeSearchError 把服务错误映射为 HTTP 状态码
func writeSearchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rag.ErrInvalidInput), errors.Is(err, rag.ErrMissingTenant):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: err.Error()})
	case errors.Is(err, rag.ErrNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
	case errors.Is(err, rag.ErrEmbeddingFailure), errors.Is(err, rag.ErrDimensionMismatch):
		c.JSON(http.StatusBadGateway, response.ErrorResponse{Success: false, Message: "向量化服务不可用"})
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "检索失败"})
	}
}
