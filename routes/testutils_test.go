package routes_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/outlinemgr"
	"github.com/wkalt/outline/routes"
	"github.com/wkalt/outline/storage"
)

type testServer struct {
	url string
	mgr *outlinemgr.Manager
	key string
}

func newTestServer(t *testing.T, key string) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	mgr := outlinemgr.NewManager(
		divisionstore.NewMemStore(),
		outlinemgr.WithInvariantChecks(true),
		outlinemgr.WithSnapshotProvider(storage.NewMemStore()),
		outlinemgr.WithRegisterer(reg),
	)
	srv := httptest.NewServer(routes.MakeRoutes(mgr, reg, key))
	t.Cleanup(srv.Close)
	return &testServer{url: srv.URL, mgr: mgr, key: key}
}

// do sends a request and returns the status code and body. body is encoded
// as JSON unless it is a string.
func (s *testServer) do(t *testing.T, method string, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.url+path, r)
	require.NoError(t, err)
	if s.key != "" {
		req.Header.Set("Authorization", "Bearer "+s.key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// decodeAs decodes data into a T.
func decodeAs[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}
