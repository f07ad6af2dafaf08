package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT * FROM accounting_sync_records", 2 }
	ctx := WithSyncScope(context.Background(), SyncScope{SystemID: "omie"})

	t.Run("errors are logged with scope", func(t *testing.T) {
		l, logs := observedLogger()
		NewGormLogger(l, gormlogger.Warn).Trace(ctx, time.Now(), sql, errors.New("deadlock"))

		entries := logs.All()
		assert.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "omie", entries[0].ContextMap()["system_id"])
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		l, logs := observedLogger()
		NewGormLogger(l, gormlogger.Warn).Trace(ctx, time.Now(), sql, gormlogger.ErrRecordNotFound)
		assert.Empty(t, logs.All())
	})

	t.Run("slow queries warn", func(t *testing.T) {
		l, logs := observedLogger()
		gl := NewGormLogger(l, gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		gl.Trace(ctx, time.Now().Add(-time.Second), sql, nil)

		entries := logs.All()
		assert.Len(t, entries, 1)
		assert.Equal(t, "Slow SQL", entries[0].Message)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		l, logs := observedLogger()
		NewGormLogger(l, gormlogger.Info).LogMode(gormlogger.Silent).Trace(ctx, time.Now(), sql, errors.New("x"))
		assert.Empty(t, logs.All())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("other"))
}
