package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormLogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormLogger.LogLevel, slow time.Duration) (gormLogger.Interface, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return newGormLogger(zap.New(core), level, slow), logs
}

func TestGormZapLoggerTrace(t *testing.T) {
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT 1", 1 }

	t.Run("执行错误按Error级别输出", func(t *testing.T) {
		log, logs := newObservedGormLogger(gormLogger.Warn, time.Second)

		log.Trace(ctx, time.Now(), fc, errors.New("connection refused"))

		entries := logs.All()
		require.Len(t, entries, 1)
		require.Equal(t, zap.ErrorLevel, entries[0].Level)
		require.Equal(t, "SQL 执行失败", entries[0].Message)
	})

	t.Run("记录不存在不算错误", func(t *testing.T) {
		log, logs := newObservedGormLogger(gormLogger.Warn, time.Second)

		log.Trace(ctx, time.Now(), fc, gormLogger.ErrRecordNotFound)

		require.Empty(t, logs.All())
	})

	t.Run("慢查询按Warn级别输出", func(t *testing.T) {
		log, logs := newObservedGormLogger(gormLogger.Warn, 200*time.Millisecond)

		log.Trace(ctx, time.Now().Add(-time.Second), fc, nil)

		entries := logs.All()
		require.Len(t, entries, 1)
		require.Equal(t, zap.WarnLevel, entries[0].Level)
		require.Equal(t, "SQL 慢查询", entries[0].Message)
	})

	t.Run("常规SQL只在Info级别可见", func(t *testing.T) {
		warnLog, warnLogs := newObservedGormLogger(gormLogger.Warn, time.Second)
		warnLog.Trace(ctx, time.Now(), fc, nil)
		require.Empty(t, warnLogs.All())

		infoLog, infoLogs := newObservedGormLogger(gormLogger.Info, time.Second)
		infoLog.Trace(ctx, time.Now(), fc, nil)
		require.Len(t, infoLogs.All(), 1)
	})

	t.Run("Silent级别不输出", func(t *testing.T) {
		log, logs := newObservedGormLogger(gormLogger.Silent, time.Millisecond)

		log.Trace(ctx, time.Now().Add(-time.Second), fc, errors.New("boom"))

		require.Empty(t, logs.All())
	})
}

func TestGormZapLoggerLogMode(t *testing.T) {
	log, logs := newObservedGormLogger(gormLogger.Warn, time.Second)

	silenced := log.LogMode(gormLogger.Silent)
	silenced.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, errors.New("boom"))
	require.Empty(t, logs.All())

	// 原实例级别不受影响
	log.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, errors.New("boom"))
	require.Len(t, logs.All(), 1)
}
