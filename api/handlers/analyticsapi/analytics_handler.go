package analyticsapi

import (
	"net/http"
	"strconv"
	"time"

	response "backend/api/handlers/common"
	"backend/internal/analytics"
	"backend/internal/tenant"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 查询分析处理器
type AnalyticsHandler struct {
	service *analytics.Service
}

// NewAnalyticsHandler 创建分析处理器
func NewAnalyticsHandler(service *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Queries 查询明细, 最近的在前
func (h *AnalyticsHandler) Queries(c *gin.Context) {
	tc := tenant.MustTenantContext(c.Request.Context())
	filter := parseFilter(c)

	logs, err := h.service.QueryAnalytics(c.Request.Context(), tc.TenantID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "查询失败"})
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: logs})
}

// Statistics 聚合统计
func (h *AnalyticsHandler) Statistics(c *gin.Context) {
	tc := tenant.MustTenantContext(c.Request.Context())
	filter := parseFilter(c)

	stats, err := h.service.QueryStatistics(c.Request.Context(), tc.TenantID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "统计失败"})
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: stats})
}

// parseFilter 解析查询参数里的过滤条件
func parseFilter(c *gin.Context) *analytics.QueryFilter {
	filter := &analytics.QueryFilter{
		AgentType: c.Query("agent_type"),
	}

	if raw := c.Query("start_date"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.StartDate = &t
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			// 含当天
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.EndDate = &end
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Limit = parsed
		}
	}

	return filter
}
