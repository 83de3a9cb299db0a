package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/meterbook/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestBuildRejectsUnknownLevel(t *testing.T) {
	if _, err := Build(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := Build(Config{Level: "debug", Format: "json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWithContextAddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-1" {
		t.Fatalf("expected request_id req-1, got %v", got)
	}

	WithContext(context.Background(), base).Info("plain")
	if _, ok := logs.All()[1].ContextMap()["request_id"]; ok {
		t.Fatalf("did not expect request_id outside a request")
	}
}

func TestGormLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: time.Millisecond})

	sql := func() (string, int64) { return "SELECT value FROM kv_entries", 1 }

	gl.Trace(context.Background(), time.Now(), sql, gormlogger.ErrRecordNotFound)
	if logs.Len() != 0 {
		t.Fatalf("record not found must stay silent")
	}

	gl.Trace(context.Background(), time.Now(), sql, errors.New("disk full"))
	if logs.Len() != 1 || logs.All()[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected one error entry, got %v", logs.All())
	}
	if op := logs.All()[0].ContextMap()["operation"]; op != "SELECT" {
		t.Fatalf("expected SELECT operation, got %v", op)
	}

	gl.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	if logs.Len() != 2 || logs.All()[1].Level != zapcore.WarnLevel {
		t.Fatalf("expected slow query warning")
	}

	gl.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), sql, errors.New("ignored"))
	if logs.Len() != 2 {
		t.Fatalf("silent mode must not log")
	}
}
