package infra

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormLogger "gorm.io/gorm/logger"
)

// gormZapLogger 将 GORM 日志桥接到 zap
// 错误与慢查询始终按各自级别输出, 常规 SQL 只在 Info 级别可见,
// 记录不存在默认不按错误处理。
type gormZapLogger struct {
	zap           *zap.Logger
	level         gormLogger.LogLevel
	slowThreshold time.Duration
	skipNotFound  bool
}

func newGormLogger(zapLogger *zap.Logger, level gormLogger.LogLevel, slowThreshold time.Duration) gormLogger.Interface {
	return &gormZapLogger{
		zap:           zapLogger,
		level:         level,
		slowThreshold: slowThreshold,
		skipNotFound:  true,
	}
}

// LogMode 返回指定级别的副本
func (l *gormZapLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormZapLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Info {
		l.zap.Sugar().Infof(msg, args...)
	}
}

func (l *gormZapLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.zap.Sugar().Warnf(msg, args...)
	}
}

func (l *gormZapLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Error {
		l.zap.Sugar().Errorf(msg, args...)
	}
}

// Trace 输出 SQL 执行日志
func (l *gormZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= gormLogger.Error &&
		!(l.skipNotFound && errors.Is(err, gormLogger.ErrRecordNotFound)):
		sql, rows := fc()
		l.zap.Error("SQL 执行失败",
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormLogger.Warn:
		sql, rows := fc()
		l.zap.Warn("SQL 慢查询",
			zap.Duration("threshold", l.slowThreshold),
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	case l.level >= gormLogger.Info:
		sql, rows := fc()
		l.zap.Debug("SQL",
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	}
}
