package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezaarrazi-sqe/langfuse/internal/config"
	"github.com/rezaarrazi-sqe/langfuse/internal/metrics"
	"github.com/rezaarrazi-sqe/langfuse/internal/service"
	"github.com/rezaarrazi-sqe/langfuse/policy"
	"github.com/rezaarrazi-sqe/langfuse/tests/helpers"
)

func newTestService(t *testing.T) *service.Service {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	return service.New(service.Deps{
		Store:  helpers.NewTestSQLiteStore(t),
		Policy: engine,
		Config: &config.Config{
			Observations: config.ObservationsConfig{TruncateChars: 1000, CompactChars: 200},
		},
		Logger: zerolog.Nop(),
	})
}

func TestExternalServerLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	e := NewExternalServer(newTestService(t), zerolog.New(&buf), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/p1/observations/missing", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"uri":"/v1/projects/p1/observations/missing"`)
	assert.Contains(t, buf.String(), `"status":404`)
}

func TestExternalServerWithNewRelic(t *testing.T) {
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName("langfuse-test"),
		newrelic.ConfigEnabled(false),
	)
	require.NoError(t, err)
	defer app.Shutdown(0)

	e := NewExternalServer(newTestService(t), zerolog.Nop(), app)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInternalServerExposesMetrics(t *testing.T) {
	metrics.ObservationLookups.WithLabelValues("legacy", "hit").Add(0)
	e := NewInternalServer(zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "langfuse_observation_lookups_total"))
}
