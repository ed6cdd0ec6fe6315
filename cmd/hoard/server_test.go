package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oda/hoard/pile"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pile")
	log, _ := test.NewNullLogger()
	f, err := pile.Create(path, pile.WithLogger(log))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reg := prometheus.NewRegistry()
	s := NewServer(path, reg, log, pile.WithLogger(log), pile.WithMetrics(pile.NewMetrics(reg)))
	t.Cleanup(func() { s.Close() })
	return s, path
}

func get(t *testing.T, h http.Handler, url string, data interface{}) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	resp := Response{Data: data}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func appendCommitted(t *testing.T, path string, data string) pile.Root {
	t.Helper()
	log, _ := test.NewNullLogger()
	f, err := pile.Open(path, pile.WithLogger(log), pile.WithSyncOnCommit(false))
	require.NoError(t, err)
	defer f.Close()

	var root pile.Root
	require.NoError(t, f.Enter(func(h *pile.Hoard) error {
		o, err := h.WriteBlob([]byte(data))
		if err != nil {
			return err
		}
		root, err = h.Commit(o, uint64(len(data)))
		return err
	}))
	return root
}

func TestServerStatus(t *testing.T) {
	s, path := newTestServer(t)
	h := s.Handler()

	var status StatusResponse
	code, resp := get(t, h, "/api/status", &status)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, pile.HeaderSize, status.Size)
	assert.Equal(t, pile.Version, status.Version)
	assert.Nil(t, status.Tip)

	root := appendCommitted(t, path, "hello")

	status = StatusResponse{}
	code, _ = get(t, h, "/api/status", &status)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, status.Tip)
	assert.Equal(t, root.Mark, status.Tip.Mark)
	assert.Equal(t, uint64(5), status.Tip.Meta)
}

func TestServerRootsAndBlob(t *testing.T) {
	s, path := newTestServer(t)
	h := s.Handler()
	first := appendCommitted(t, path, "one")
	appendCommitted(t, path, "two")

	var roots []RootResponse
	code, _ := get(t, h, "/api/roots", &roots)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, roots, 2)
	assert.Equal(t, first.Mark, roots[1].Mark)

	roots = nil
	get(t, h, "/api/roots?limit=1", &roots)
	assert.Len(t, roots, 1)

	var b BlobResponse
	code, _ = get(t, h, "/api/blob", &b)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "two", string(b.Data))

	b = BlobResponse{}
	code, _ = get(t, h, "/api/blob?offset="+strconv.FormatUint(first.Value.Get(), 10), &b)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "one", string(b.Data))

	var frames []FrameResponse
	code, _ = get(t, h, "/api/frames", &frames)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, frames, 4)
}

func TestServerErrors(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	code, resp := get(t, h, "/api/blob", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)

	code, _ = get(t, h, "/api/blob?offset=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get(t, h, "/api/blob?offset=99", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get(t, h, "/api/roots?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	get(t, h, "/api/status", nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hoard_pile_snapshots_total 1")
}
