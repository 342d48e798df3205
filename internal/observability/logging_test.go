package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pitabwire/tabula/internal/config"
	"github.com/pitabwire/tabula/model"
)

func newTestLogger(buf *bytes.Buffer) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "msg",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(buf), zapcore.DebugLevel)
	return zap.New(core)
}

func TestNewLogger_levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		logger, err := NewLogger(config.ObservabilityConfig{LogLevel: tt.level})
		if err != nil {
			t.Fatalf("NewLogger(%q) error = %v", tt.level, err)
		}
		if !logger.Core().Enabled(tt.want) {
			t.Errorf("NewLogger(%q) should enable %v", tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
			t.Errorf("NewLogger(%q) should not enable %v", tt.level, tt.want-1)
		}
	}
}

func TestWithLogger_and_LoggerFrom(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithLogger(context.Background(), logger)
	if got := LoggerFrom(ctx, nil); got != logger {
		t.Error("LoggerFrom should return the stored logger")
	}

	fallback := zap.NewNop()
	if got := LoggerFrom(context.Background(), fallback); got != fallback {
		t.Error("LoggerFrom should return the fallback when none is stored")
	}
}

func TestRequestLogger_enrichesWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	rctx := &model.RequestContext{
		TenantID:      "school-1",
		SubjectID:     "user-42",
		CorrelationID: "corr-abc",
		TraceID:       "trace-xyz",
	}
	ctx := model.WithRequestContext(context.Background(), rctx)
	RequestLogger(ctx, logger).Info("test message")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}

	checks := map[string]string{
		"tenant_id":      "school-1",
		"subject_id":     "user-42",
		"correlation_id": "corr-abc",
		"trace_id":       "trace-xyz",
		"msg":            "test message",
	}
	for key, want := range checks {
		if got, _ := entry[key].(string); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestRequestLogger_omitsEmptyOptionalFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := model.WithRequestContext(context.Background(), &model.RequestContext{SubjectID: "user-1"})
	RequestLogger(ctx, logger).Info("msg")

	var entry map[string]any
	json.Unmarshal(buf.Bytes(), &entry)
	if _, ok := entry["trace_id"]; ok {
		t.Error("trace_id should be omitted when empty")
	}
	if _, ok := entry["tenant_id"]; ok {
		t.Error("tenant_id should be omitted when empty")
	}
}

func TestRequestLogger_noRequestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	RequestLogger(context.Background(), logger).Info("bare")

	var entry map[string]any
	json.Unmarshal(buf.Bytes(), &entry)
	if _, ok := entry["subject_id"]; ok {
		t.Error("subject_id should be absent without a request context")
	}
}
