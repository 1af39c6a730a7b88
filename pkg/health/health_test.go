package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(ctx context.Context) error { return nil }

func failing(ctx context.Context) error { return errors.New("connection refused") }

func serve(t *testing.T, checker *Checker, path string) (int, Response) {
	t.Helper()
	e := echo.New()
	checker.Register(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestChecker_ReadinessBeforeStartup(t *testing.T) {
	checker := NewChecker("test")
	checker.AddCheck("database", ok, true)

	code, body := serve(t, checker, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusUnhealthy, body.Checks["startup"].Status)
}

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name     string
		redis    PingFunc
		database PingFunc
		code     int
		status   Status
	}{
		{name: "all healthy", redis: ok, database: ok, code: http.StatusOK, status: StatusHealthy},
		{name: "optional dependency down", redis: failing, database: ok, code: http.StatusOK, status: StatusDegraded},
		{name: "critical dependency down", redis: ok, database: failing, code: http.StatusServiceUnavailable, status: StatusUnhealthy},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			checker := NewChecker("test")
			checker.AddCheck("database", test.database, true)
			checker.AddCheck("redis", test.redis, false)
			checker.SetReady(true)

			code, body := serve(t, checker, "/health/ready")
			assert.Equal(t, test.code, code)
			assert.Equal(t, test.status, body.Status)
			assert.Len(t, body.Checks, 2)
		})
	}
}

func TestChecker_Liveness(t *testing.T) {
	checker := NewChecker("1.2.3")
	checker.AddCheck("database", failing, true)

	code, body := serve(t, checker, "/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.2.3", body.Version)
}
