package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func serveReady(t *testing.T, checks ReadinessChecks) (int, ReadinessResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	HandleReady(checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/ready", nil))

	var resp ReadinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return rec.Code, resp
}

func TestHandleHealth_returnsOK(t *testing.T) {
	origVersion, origCommit := Version, Commit
	Version = "1.2.3"
	Commit = "abc1234"
	t.Cleanup(func() {
		Version = origVersion
		Commit = origCommit
	})

	rec := httptest.NewRecorder()
	HandleHealth().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "1.2.3" || resp.Commit != "abc1234" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleReady_catalogOnly(t *testing.T) {
	code, resp := serveReady(t, ReadinessChecks{CatalogLoaded: func() bool { return true }})

	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.Status != "ready" {
		t.Errorf("status = %q, want ready", resp.Status)
	}
	if len(resp.Checks) != 1 || resp.Checks["catalog"].Status != "ok" {
		t.Errorf("checks = %+v, want only catalog ok", resp.Checks)
	}
}

func TestHandleReady_catalogNotLoaded(t *testing.T) {
	code, resp := serveReady(t, ReadinessChecks{CatalogLoaded: func() bool { return false }})

	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if resp.Status != "not_ready" {
		t.Errorf("status = %q, want not_ready", resp.Status)
	}
	if resp.Checks["catalog"].Error == "" {
		t.Error("catalog check should carry an error message")
	}
}

func TestHandleReady_nilCatalogFunc(t *testing.T) {
	code, _ := serveReady(t, ReadinessChecks{})
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
}

func TestHandleReady_optionalChecks(t *testing.T) {
	tests := []struct {
		name        string
		rows        HealthChecker
		idempotency HealthChecker
		wantCode    int
		failing     string
	}{
		{"all healthy", stubChecker{}, stubChecker{}, http.StatusOK, ""},
		{"row store down", stubChecker{err: errors.New("connection refused")}, stubChecker{}, http.StatusServiceUnavailable, "row_store"},
		{"idempotency store down", stubChecker{}, stubChecker{err: errors.New("redis timeout")}, http.StatusServiceUnavailable, "idempotency_store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := serveReady(t, ReadinessChecks{
				CatalogLoaded:    func() bool { return true },
				RowStore:         tt.rows,
				IdempotencyStore: tt.idempotency,
			})

			if code != tt.wantCode {
				t.Errorf("status = %d, want %d", code, tt.wantCode)
			}
			if len(resp.Checks) != 3 {
				t.Errorf("checks = %d, want 3", len(resp.Checks))
			}
			if tt.failing != "" && resp.Checks[tt.failing].Status != "error" {
				t.Errorf("%s = %+v, want error", tt.failing, resp.Checks[tt.failing])
			}
		})
	}
}
