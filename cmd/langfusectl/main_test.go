package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/projects/p1/datasets/d1/runs/r1/export.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="qa-run_1.csv"`)
		w.Write([]byte("Dataset Item ID,Trace ID\ni1,t1"))
	})
	mux.HandleFunc("POST /v1/remote-experiment/url/compose", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req["host"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"webhookurl: host is required"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"url": "http://" + req["host"] + ":" + req["port"] + "/run"})
	})
	mux.HandleFunc("GET /v1/projects/p1/observations/o1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "o1", "verbosity": r.URL.Query().Get("verbosity")})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExportCommandWritesFile(t *testing.T) {
	srv := newTestServer(t)
	dir := t.TempDir()
	var out bytes.Buffer

	err := runCommand(context.Background(), NewClient(srv.URL, time.Second), "export",
		[]string{"-project", "p1", "-dataset", "d1", "-run", "r1", "-out", dir}, &out)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "qa-run_1.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Dataset Item ID,Trace ID\ni1,t1", string(data))
	assert.Contains(t, out.String(), "qa-run_1.csv")
}

func TestComposeCommand(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL, time.Second)

	var out bytes.Buffer
	err := runCommand(context.Background(), client, "compose", []string{"-host", "localhost", "-port", "3000"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/run\n", out.String())

	err = runCommand(context.Background(), client, "compose", []string{"-mode", "split"}, &out)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "webhookurl: host is required", apiErr.Message)
}

func TestObservationCommandPassesQuery(t *testing.T) {
	srv := newTestServer(t)
	var out bytes.Buffer

	err := runCommand(context.Background(), NewClient(srv.URL, time.Second), "observation",
		[]string{"-project", "p1", "-id", "o1", "-verbosity", "compact"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"verbosity": "compact"`)
}

func TestUnknownCommand(t *testing.T) {
	err := runCommand(context.Background(), NewClient("http://localhost", time.Second), "frobnicate", nil, &bytes.Buffer{})
	assert.EqualError(t, err, `unknown command "frobnicate"`)
}

func TestFileNameFromDisposition(t *testing.T) {
	assert.Equal(t, "a.csv", fileNameFromDisposition(`attachment; filename="a.csv"`))
	assert.Equal(t, "passwd", fileNameFromDisposition(`attachment; filename="../../etc/passwd"`))
	assert.Equal(t, "export.csv", fileNameFromDisposition(""))
}
