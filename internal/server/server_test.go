package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/meterbook/internal/api"
	"github.com/jgoulah/meterbook/internal/config"
	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/internal/database"
	"github.com/jgoulah/meterbook/internal/logging"
)

func newTestServer(t *testing.T, addr string) (*Server, *bytes.Buffer) {
	t.Helper()

	db, err := database.New(t.TempDir() + "/meter.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var logs bytes.Buffer
	logger := logging.NewWithWriter(&logs, "info")
	cfg := &config.Config{Server: config.ServerConfig{Addr: addr}}

	h := api.NewHandler(db, consumption.DefaultOptions, logger, "test")
	return New(cfg, h, logger), &logs
}

func TestRequestIDAssigned(t *testing.T) {
	s, logs := newTestServer(t, "")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(requestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Contains(t, logs.String(), id)
	assert.Contains(t, logs.String(), `"path":"/api/status"`)
}

func TestRequestIDPropagated(t *testing.T) {
	s, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, "")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/readings", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
