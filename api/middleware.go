package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	response "backend/api/handlers/common"
	"backend/internal/logger"
	"backend/internal/tenant"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger 请求日志中间件
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// CORS 跨域中间件
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
			"Content-Type", "Content-Length", "Accept-Encoding", "Authorization",
			"Accept", "Origin", "Cache-Control", "X-Requested-With", "X-Agent-ID",
		}, ", "))
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// AgentAuth 坐席认证中间件
// 从 X-Agent-ID 头解析租户归属并写入请求上下文。
// 租户 ID 只能来自这里的解析结果, 绝不接受请求体里的租户字段。
func AgentAuth(resolver tenant.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID := strings.TrimSpace(c.GetHeader("X-Agent-ID"))
		if agentID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Success: false, Message: "缺少 X-Agent-ID 请求头",
			})
			return
		}

		agent, err := resolver.Resolve(c.Request.Context(), agentID)
		if err != nil {
			if errors.Is(err, tenant.ErrAgentNotRegistered) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
					Success: false, Message: "Agent 未注册",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorResponse{
				Success: false, Message: "Agent 解析失败",
			})
			return
		}

		tc := tenant.TenantContext{
			TenantID:  agent.TenantID,
			AgentID:   agent.ID,
			AgentType: agent.Type,
		}
		c.Request = c.Request.WithContext(tenant.WithTenantContext(c.Request.Context(), tc))
		c.Set("agent", agent)

		c.Next()
	}
}
