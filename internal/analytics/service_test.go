package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"backend/internal/rag"
)

var testDBSeq int

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:analytics_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&rag.QueryLog{}))

	return db
}

func seedQueryLogs(t *testing.T, db *gorm.DB) {
	t.Helper()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	logs := []*rag.QueryLog{
		{ID: "q1", TenantID: "tenant-a", Query: "营业时间", ResultCount: 3, ResponseTimeMs: 100, AgentType: "voice", CreatedAt: base},
		{ID: "q2", TenantID: "tenant-a", Query: "退货政策", ResultCount: 0, ResponseTimeMs: 300, AgentType: "chat", CreatedAt: base.Add(time.Hour)},
		{ID: "q3", TenantID: "tenant-a", Query: "地址在哪", ResultCount: 5, ResponseTimeMs: 200, AgentType: "voice", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "q4", TenantID: "tenant-b", Query: "别家的查询", ResultCount: 1, ResponseTimeMs: 999, AgentType: "voice", CreatedAt: base},
	}
	for _, log := range logs {
		require.NoError(t, db.Create(log).Error)
	}
}

func TestQueryAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("缺少租户拒绝", func(t *testing.T) {
		svc := NewService(newTestDB(t))
		_, err := svc.QueryAnalytics(ctx, "", nil)
		require.ErrorIs(t, err, rag.ErrMissingTenant)
	})

	t.Run("只返回本租户且最近在前", func(t *testing.T) {
		db := newTestDB(t)
		seedQueryLogs(t, db)
		svc := NewService(db)

		logs, err := svc.QueryAnalytics(ctx, "tenant-a", nil)
		require.NoError(t, err)
		require.Len(t, logs, 3)
		require.Equal(t, "q3", logs[0].ID)
		require.Equal(t, "q1", logs[2].ID)
	})

	t.Run("按坐席类型过滤", func(t *testing.T) {
		db := newTestDB(t)
		seedQueryLogs(t, db)
		svc := NewService(db)

		logs, err := svc.QueryAnalytics(ctx, "tenant-a", &QueryFilter{AgentType: "chat"})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		require.Equal(t, "q2", logs[0].ID)
	})

	t.Run("日期范围过滤", func(t *testing.T) {
		db := newTestDB(t)
		seedQueryLogs(t, db)
		svc := NewService(db)

		start := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
		end := time.Date(2026, 8, 1, 11, 30, 0, 0, time.UTC)
		logs, err := svc.QueryAnalytics(ctx, "tenant-a", &QueryFilter{StartDate: &start, EndDate: &end})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		require.Equal(t, "q2", logs[0].ID)
	})

	t.Run("限制条数", func(t *testing.T) {
		db := newTestDB(t)
		seedQueryLogs(t, db)
		svc := NewService(db)

		logs, err := svc.QueryAnalytics(ctx, "tenant-a", &QueryFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, logs, 2)
	})
}

func TestQueryStatistics(t *testing.T) {
	ctx := context.Background()

	t.Run("聚合统计", func(t *testing.T) {
		db := newTestDB(t)
		seedQueryLogs(t, db)
		svc := NewService(db)

		stats, err := svc.QueryStatistics(ctx, "tenant-a", nil)
		require.NoError(t, err)

		require.Equal(t, int64(3), stats.TotalQueries)
		require.InDelta(t, 200.0, stats.AvgResponseTimeMs, 1e-9)
		require.Equal(t, int64(300), stats.MaxResponseTimeMs)
		require.Equal(t, int64(100), stats.MinResponseTimeMs)
		require.InDelta(t, 8.0/3.0, stats.AvgResultCount, 1e-9)
		require.Equal(t, int64(1), stats.ZeroResultQueries)
	})

	t.Run("无数据时归零", func(t *testing.T) {
		svc := NewService(newTestDB(t))

		stats, err := svc.QueryStatistics(ctx, "tenant-empty", nil)
		require.NoError(t, err)
		require.Equal(t, int64(0), stats.TotalQueries)
		require.Equal(t, 0.0, stats.AvgResponseTimeMs)
		require.Equal(t, int64(0), stats.ZeroResultQueries)
	})
}
