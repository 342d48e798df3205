package bulk

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pitabwire/tabula/internal/observability"
)

func TestMetricsObserver(t *testing.T) {
	m := observability.InitMetrics(prometheus.NewRegistry())
	obs := NewMetricsObserver(m)

	obs.OnBulkDispatched(context.Background(), Event{TableID: "students.list", ActionID: "delete", Success: true, Duration: time.Millisecond})
	obs.OnBulkDispatched(context.Background(), Event{TableID: "students.list", ActionID: "delete", Duration: time.Millisecond})

	for _, status := range []string{"success", "failure"} {
		v := testutil.ToFloat64(m.BulkDispatchTotal.WithLabelValues("students.list", "delete", status))
		if v != 1 {
			t.Errorf("%s dispatches = %v, want 1", status, v)
		}
	}
}

func TestLogObserver(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	obs := NewLogObserver(zap.New(core))

	obs.OnBulkDispatched(context.Background(), Event{TableID: "students.list", ActionID: "notify", Count: 2, Success: true})
	obs.OnBulkDispatched(context.Background(), Event{TableID: "students.list", ActionID: "delete", Error: "row store down"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].Message != "bulk dispatch completed" {
		t.Errorf("first entry = %v %q", entries[0].Level, entries[0].Message)
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["error"] != "row store down" {
		t.Errorf("second entry = %v %v", entries[1].Level, entries[1].ContextMap())
	}
}
