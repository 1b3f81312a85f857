package v1

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rezaarrazi-sqe/langfuse/internal/config"
	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
	"github.com/rezaarrazi-sqe/langfuse/internal/repository"
	"github.com/rezaarrazi-sqe/langfuse/internal/service"
	"github.com/rezaarrazi-sqe/langfuse/internal/webhookurl"
	"github.com/rezaarrazi-sqe/langfuse/policy"
	"github.com/rezaarrazi-sqe/langfuse/tests/helpers"
)

type stubTrigger struct {
	status int
	req    *domain.RemoteExperimentTrigger
}

func (s *stubTrigger) Trigger(_ context.Context, _ string, req *domain.RemoteExperimentTrigger) (int, error) {
	s.req = req
	return s.status, nil
}

type stubUploader struct {
	keys []string
}

func (s *stubUploader) Put(_ context.Context, key string, _ []byte, _ string) error {
	s.keys = append(s.keys, key)
	return nil
}

type handlerOption func(*service.Deps)

func newTestHandler(t *testing.T, opts ...handlerOption) (*Handler, repository.Store, *echo.Echo) {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{
		Observations: config.ObservationsConfig{TruncateChars: 1000, CompactChars: 20},
	}
	db := helpers.NewTestSQLiteStore(t)
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	deps := service.Deps{
		Store:     db,
		Trigger:   &stubTrigger{status: http.StatusAccepted},
		Policy:    policyEngine,
		Config:    cfg,
		Endpoints: []webhookurl.Endpoint{{Path: "/run", Label: "Run"}},
		Logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	e := echo.New()
	e.Validator = NewValidator()
	h := NewHandler(service.New(deps))
	h.RegisterRoutes(e)
	return h, db, e
}

// serve runs a request through the router so route patterns are exercised.
func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func seedObservation(t *testing.T, db repository.Store) {
	t.Helper()
	err := db.CreateObservation(context.Background(), &domain.Observation{
		ID:        "o1",
		ProjectID: "p1",
		TraceID:   "t1",
		Type:      domain.ObservationTypeGeneration,
		StartTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Input:     strings.Repeat("a", 50),
	})
	if err != nil {
		t.Fatalf("CreateObservation failed: %v", err)
	}
}

func TestHealth(t *testing.T) {
	_, _, e := newTestHandler(t)

	rec := serve(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
