package backend_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/c2tools/sanctions/internal/database/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueryLogger_Levels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	hook := backend.NewQueryLogger(zap.New(core), "embedded", time.Second)

	tests := []struct {
		name  string
		event *bun.QueryEvent
		level zapcore.Level
		msg   string
	}{
		{
			name:  "fast",
			event: &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()},
			level: zapcore.DebugLevel,
			msg:   "Query executed",
		},
		{
			name:  "slow",
			event: &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now().Add(-2 * time.Second)},
			level: zapcore.WarnLevel,
			msg:   "Slow query",
		},
		{
			name:  "no rows",
			event: &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now(), Err: sql.ErrNoRows},
			level: zapcore.DebugLevel,
			msg:   "Query executed",
		},
		{
			name:  "failed",
			event: &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now(), Err: sql.ErrConnDone},
			level: zapcore.ErrorLevel,
			msg:   "Query failed",
		},
	}

	for _, tt := range tests {
		hook.AfterQuery(t.Context(), tt.event)

		entries := logs.TakeAll()
		require.Len(t, entries, 1, tt.name)
		assert.Equal(t, tt.level, entries[0].Level, tt.name)
		assert.Equal(t, tt.msg, entries[0].Message, tt.name)
		assert.Equal(t, "embedded", entries[0].ContextMap()["backend"], tt.name)
	}
}
