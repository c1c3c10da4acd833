package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteotest/quadkeys/pkg/config"
)

func newTestServer(t *testing.T) (*Server, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	return New(zerolog.New(&logs), prometheus.NewRegistry()), &logs
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func tile(key string, z, x, y uint, id uint64) tileResponse {
	return tileResponse{QuadKey: key, Z: z, X: x, Y: y, ID: &id}
}

func TestFromTile(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/v1/quadkey/3/3/5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, tile("213", 3, 3, 5, 64+39), decode[tileResponse](t, rec))

	rec = get(t, s, "/v1/quadkey/0/0/0")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tile("", 0, 0, 0, 1), decode[tileResponse](t, rec))
}

func TestFromTileErrors(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{
		"/v1/quadkey/3/8/0",
		"/v1/quadkey/33/0/0",
		"/v1/quadkey/3/x/0",
		"/v1/quadkey/3/-1/0",
	} {
		rec := get(t, s, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, decode[errorResponse](t, rec).Error, "invalid tile coordinate", path)
	}
}

func TestToTile(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/v1/tile/032")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tile("032", 3, 2, 3, 64+14), decode[tileResponse](t, rec))

	rec = get(t, s, "/v1/tile/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tile("", 0, 0, 0, 1), decode[tileResponse](t, rec))

	rec = get(t, s, "/v1/tile/0129")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "malformed quad key")
}

func TestParent(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/v1/tile/032/parent")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tile("03", 2, 1, 1, 16+3), decode[tileResponse](t, rec))

	rec = get(t, s, "/v1/tile/2/parent")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tile("", 0, 0, 0, 1), decode[tileResponse](t, rec))
}

func TestParentOfRoot(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/tile//parent", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("quadkey", "")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	s.handleParent(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChildren(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/v1/tile/2/children")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, childrenResponse{Children: []tileResponse{
		tile("20", 2, 0, 2, 16+8),
		tile("21", 2, 1, 2, 16+9),
		tile("22", 2, 0, 3, 16+10),
		tile("23", 2, 1, 3, 16+11),
	}}, decode[childrenResponse](t, rec))

	rec = get(t, s, "/v1/tile/"+strings.Repeat("0", 32)+"/children")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeepestZoomHasNoID(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/v1/tile/"+strings.Repeat("3", 32))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[tileResponse](t, rec)
	assert.Equal(t, uint(32), resp.Z)
	assert.Equal(t, uint(1<<32-1), resp.X)
	assert.Nil(t, resp.ID)
	assert.NotContains(t, rec.Body.String(), `"id"`)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	get(t, s, "/v1/quadkey/3/3/5")
	get(t, s, "/v1/tile/213")
	get(t, s, "/v1/tile/9")

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.conversions.WithLabelValues("from_tile", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.conversions.WithLabelValues("to_tile", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.conversions.WithLabelValues("to_tile", "error")))

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `quadkey_conversions_total{op="from_tile",outcome="ok"} 1`)
	assert.Contains(t, body, `route="/v1/tile/{quadkey}"`)
}

func TestRequestLogging(t *testing.T) {
	s, logs := newTestServer(t)
	get(t, s, "/v1/tile/213")

	var entry map[string]any
	line, err := logs.ReadBytes('\n')
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(line, &entry))
	assert.Equal(t, "http request", entry["message"])
	assert.Equal(t, "/v1/tile/{quadkey}", entry["route"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, config.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, zerolog.New(io.Discard), http.NotFoundHandler())
	}()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
