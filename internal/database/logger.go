package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultSlowQuery = 200 * time.Millisecond
	maxLoggedSQL     = 2048
)

// GormLogger routes GORM output through slog so queries carry the request
// attributes the context handler adds.
type GormLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

// NewGormLogger logs failed queries and queries slower than slow. A zero slow
// uses 200ms.
func NewGormLogger(l *slog.Logger, slow time.Duration) *GormLogger {
	if slow <= 0 {
		slow = defaultSlowQuery
	}
	return &GormLogger{log: l, level: logger.Warn, slow: slow}
}

// LogMode returns a copy logging at level.
func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		l.log.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		l.log.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		l.log.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace is called by GORM after every statement.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var msg string
	level := slog.LevelInfo
	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		msg, level = "query failed", slog.LevelError
	case elapsed > l.slow && l.level >= logger.Warn:
		msg, level = "slow query", slog.LevelWarn
	case l.level >= logger.Info:
		msg = "query"
	default:
		return
	}

	sql, rows := fc()
	if len(sql) > maxLoggedSQL {
		sql = sql[:maxLoggedSQL] + "..."
	}
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if level == slog.LevelError {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.log.LogAttrs(ctx, level, msg, attrs...)
}
