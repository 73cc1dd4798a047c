package backend

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// DefaultSlowQuery is the duration above which a query is logged as slow.
const DefaultSlowQuery = 500 * time.Millisecond

// QueryLogger is a bun.QueryHook that reports every statement to zap.
// Failed statements log at Error, slow ones at Warn and the rest at Debug.
type QueryLogger struct {
	logger  *zap.Logger
	backend string
	slow    time.Duration
}

// NewQueryLogger creates a hook tagging entries with the backend name.
func NewQueryLogger(logger *zap.Logger, backend string, slow time.Duration) *QueryLogger {
	return &QueryLogger{logger: logger, backend: backend, slow: slow}
}

func (h *QueryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)
	fields := []zap.Field{
		zap.String("backend", h.backend),
		zap.String("operation", event.Operation()),
		zap.String("query", event.Query),
		zap.Duration("duration", elapsed),
	}

	switch {
	// A missing row is an answer, not a failure
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows):
		h.logger.Error("Query failed", append(fields, zap.Error(event.Err))...)
	case h.slow > 0 && elapsed >= h.slow:
		h.logger.Warn("Slow query", fields...)
	default:
		h.logger.Debug("Query executed", fields...)
	}
}
