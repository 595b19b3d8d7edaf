package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"backend/internal/rag"
)

// DefaultQueryLimit 查询明细默认条数上限
const DefaultQueryLimit = 100

// QueryFilter 查询日志过滤条件
type QueryFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AgentType string
	Limit     int
}

// Statistics 查询日志聚合统计
type Statistics struct {
	TotalQueries      int64   `json:"totalQueries"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
	MaxResponseTimeMs int64   `json:"maxResponseTimeMs"`
	MinResponseTimeMs int64   `json:"minResponseTimeMs"`
	AvgResultCount    float64 `json:"avgResultCount"`
	ZeroResultQueries int64   `json:"zeroResultQueries"`
}

// Service 查询分析服务, 对查询日志做只读聚合
type Service struct {
	db *gorm.DB
}

// NewService 创建分析服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// QueryAnalytics 返回租户的查询明细, 最近的在前
func (s *Service) QueryAnalytics(ctx context.Context, tenantID string, filter *QueryFilter) ([]*rag.QueryLog, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, rag.ErrMissingTenant
	}
	if filter == nil {
		filter = &QueryFilter{}
	}

	limit := filter.Limit
	if limit <= 0 || limit > DefaultQueryLimit {
		limit = DefaultQueryLimit
	}

	query := s.applyFilter(ctx, tenantID, filter)

	var logs []*rag.QueryLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("查询日志明细失败: %w", err)
	}

	return logs, nil
}

// QueryStatistics 返回租户查询的聚合统计
func (s *Service) QueryStatistics(ctx context.Context, tenantID string, filter *QueryFilter) (*Statistics, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, rag.ErrMissingTenant
	}
	if filter == nil {
		filter = &QueryFilter{}
	}

	var row struct {
		TotalQueries      int64
		AvgResponseTimeMs float64
		MaxResponseTimeMs int64
		MinResponseTimeMs int64
		AvgResultCount    float64
	}

	err := s.applyFilter(ctx, tenantID, filter).
		Select(`COUNT(*) AS total_queries,
			COALESCE(AVG(response_time_ms), 0) AS avg_response_time_ms,
			COALESCE(MAX(response_time_ms), 0) AS max_response_time_ms,
			COALESCE(MIN(response_time_ms), 0) AS min_response_time_ms,
			COALESCE(AVG(result_count), 0) AS avg_result_count`).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("查询统计失败: %w", err)
	}

	var zeroCount int64
	err = s.applyFilter(ctx, tenantID, filter).
		Where("result_count = 0").
		Count(&zeroCount).Error
	if err != nil {
		return nil, fmt.Errorf("统计零结果查询失败: %w", err)
	}

	return &Statistics{
		TotalQueries:      row.TotalQueries,
		AvgResponseTimeMs: row.AvgResponseTimeMs,
		MaxResponseTimeMs: row.MaxResponseTimeMs,
		MinResponseTimeMs: row.MinResponseTimeMs,
		AvgResultCount:    row.AvgResultCount,
		ZeroResultQueries: zeroCount,
	}, nil
}

// applyFilter 构建带租户与可选过滤条件的基础查询
func (s *Service) applyFilter(ctx context.Context, tenantID string, filter *QueryFilter) *gorm.DB {
	query := s.db.WithContext(ctx).
		Model(&rag.QueryLog{}).
		Where("tenant_id = ?", tenantID)

	if filter.StartDate != nil {
		query = query.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("created_at <= ?", *filter.EndDate)
	}
	if filter.AgentType != "" {
		query = query.Where("agent_type = ?", filter.AgentType)
	}

	return query
}
