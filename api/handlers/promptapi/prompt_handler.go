package promptapi

import (
	"errors"
	"net/http"

	response "backend/api/handlers/common"
	"backend/internal/prompt"
	"backend/internal/rag"
	"backend/internal/tenant"

	"github.com/gin-gonic/gin"
)

// PromptHandler Prompt 组装处理器
// 先在租户知识库内检索, 再把结果组装成完整 Prompt 返回。
type PromptHandler struct {
	searchService *rag.SearchService
	apiThreshold  float64
	maxTokens     int
}

// NewPromptHandler 创建 Prompt 处理器
func NewPromptHandler(searchService *rag.SearchService, apiThreshold float64, maxTokens int) *PromptHandler {
	if apiThreshold <= 0 {
		apiThreshold = 0.5
	}
	if maxTokens <= 0 {
		maxTokens = prompt.DefaultMaxTokens
	}
	return &PromptHandler{
		searchService: searchService,
		apiThreshold:  apiThreshold,
		maxTokens:     maxTokens,
	}
}

// BuildRequest Prompt 组装请求
type BuildRequest struct {
	Query               string                    `json:"query" binding:"required,min=1"`
	TopK                int                       `json:"top_k"`
	SimilarityThreshold float64                   `json:"similarity_threshold"`
	History             []prompt.ConversationTurn `json:"history"`
	CustomInstructions  string                    `json:"custom_instructions"`
	ConversationID      string                    `json:"conversation_id"`
}

// Build 组装 Prompt
func (h *PromptHandler) Build(c *gin.Context) {
	doc, _, ok := h.assemble(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, doc)
}

// BuildWithAttribution 组装 Prompt 并附带来源归属
func (h *PromptHandler) BuildWithAttribution(c *gin.Context) {
	_, attributed, ok := h.assemble(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, attributed)
}

// assemble 检索 + 组装的公共路径
func (h *PromptHandler) assemble(c *gin.Context, withAttribution bool) (*prompt.PromptDocument, *prompt.AttributedPrompt, bool) {
	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return nil, nil, false
	}

	tc := tenant.MustTenantContext(c.Request.Context())

	threshold := req.SimilarityThreshold
	if threshold <= 0 {
		threshold = h.apiThreshold
	}

	searchResp, err := h.searchService.Search(c.Request.Context(), req.Query, tc.TenantID, &rag.SearchOptions{
		TopK:                req.TopK,
		SimilarityThreshold: threshold,
		AgentType:           tc.AgentType,
		ConversationID:      req.ConversationID,
	})
	if err != nil {
		writePromptError(c, err)
		return nil, nil, false
	}

	agentName := ""
	customInstructions := req.CustomInstructions
	if value, exists := c.Get("agent"); exists {
		if agent, ok := value.(*tenant.Agent); ok {
			agentName = agent.Name
			if customInstructions == "" {
				customInstructions = agent.CustomInstructions
			}
		}
	}

	opts := &prompt.BuildOptions{
		SearchResults:      searchResp.Results,
		AgentType:          tc.AgentType,
		AgentName:          agentName,
		CustomInstructions: customInstructions,
		History:            req.History,
		Query:              req.Query,
	}

	if withAttribution {
		return nil, prompt.BuildPromptWithAttribution(opts), true
	}
	return prompt.BuildPrompt(opts), nil, true
}

// CheckLimitRequest 预算检查请求
type CheckLimitRequest struct {
	Text      string `json:"text" binding:"required"`
	MaxTokens int    `json:"max_tokens"`
}

// CheckLimit Token 预算检查, 只报告不截断
func (h *PromptHandler) CheckLimit(c *gin.Context) {
	var req CheckLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = h.maxTokens
	}

	c.JSON(http.StatusOK, prompt.CheckBudget(req.Text, maxTokens))
}

// writePromptError 把服务错误映射为 HTTP 状态码
func writePromptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rag.ErrInvalidInput), errors.Is(err, rag.ErrMissingTenant):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: err.Error()})
	case errors.Is(err, rag.ErrEmbeddingFailure), errors.Is(err, rag.ErrDimensionMismatch):
		c.JSON(http.StatusBadGateway, response.ErrorResponse{Success: false, Message: "向量化服务不可用"})
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "Prompt 组装失败"})
	}
}
