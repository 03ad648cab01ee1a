package shard

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/exelixi/internal/transport"
	"github.com/dreamware/exelixi/internal/uow"
	_ "github.com/dreamware/exelixi/internal/uow/ga"
)

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandlerShardConfigLifecycle(t *testing.T) {
	w := newTestWorker(t)
	h := NewHandler(w, nil)

	rec := postJSON(t, h, "/shard/config", transport.ConfigRequest{
		Credentials: transport.Credentials{Prefix: "run-1", ShardID: "shard/000"},
		UoWName:     "ga-target-sum",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bokay", rec.Body.String())

	rec = postJSON(t, h, "/shard/config", transport.ConfigRequest{
		Credentials: transport.Credentials{Prefix: "run-1", ShardID: "shard/000"},
		UoWName:     "ga-target-sum",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerAuthMismatch403(t *testing.T) {
	w := newTestWorker(t)
	require.NoError(t, w.Configure("run-1", "shard/000", "ga-target-sum", uow.Params{}))
	h := NewHandler(w, nil)

	rec := postJSON(t, h, "/uow/hist", transport.Credentials{Prefix: "wrong", ShardID: "shard/000"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerStopIgnoresWrongPrefix(t *testing.T) {
	w := newTestWorker(t)
	require.NoError(t, w.Configure("run-1", "shard/000", "ga-target-sum", uow.Params{}))
	stopCh := make(chan struct{}, 1)
	h := NewHandler(w, stopCh)

	rec := postJSON(t, h, "/shard/stop", transport.Credentials{Prefix: "wrong", ShardID: "shard/000"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Goodbye", rec.Body.String())
	assert.Equal(t, StateReady, w.State(), "wrong-prefix stop must not transition state")

	select {
	case <-stopCh:
		t.Fatal("stop signal must not fire on credential mismatch")
	default:
	}
}

func TestHandlerStopAcceptsMatchingPrefix(t *testing.T) {
	w := newTestWorker(t)
	require.NoError(t, w.Configure("run-1", "shard/000", "ga-target-sum", uow.Params{}))
	stopCh := make(chan struct{}, 1)
	h := NewHandler(w, stopCh)

	rec := postJSON(t, h, "/shard/stop", transport.Credentials{Prefix: "run-1", ShardID: "shard/000"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StateStopping, w.State())

	select {
	case <-stopCh:
	case <-time.After(time.Second):
		t.Fatal("expected stop signal")
	}
}

func TestHandlerUowReifyEnqueues(t *testing.T) {
	w := newTestWorker(t)
	require.NoError(t, w.Configure("run-1", "shard/000", "ga-target-sum", uow.Params{}))
	require.NoError(t, w.InitRing(map[string]string{"shard/000": w.Endpoint()}))
	h := NewHandler(w, nil)

	rec := postJSON(t, h, "/uow/reify", transport.ReifyRequest{
		Credentials: transport.Credentials{Prefix: "run-1", ShardID: "shard/000"},
		Key:         "somekey",
		Gen:         0,
		Features:    json.RawMessage(`[1,2,3,4,5]`),
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bokay", rec.Body.String())
	assert.Equal(t, 1, w.Queue().Len()) // no consumer runs before uow/populate, so the task stays queued
}

func TestHandlerGetRootDiagnosticDump(t *testing.T) {
	w := newTestWorker(t)
	h := NewHandler(w, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "state=UNCONFIGURED")
}

func TestHandlerUnknownPath404(t *testing.T) {
	w := newTestWorker(t)
	h := NewHandler(w, nil)

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
