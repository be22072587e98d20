package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"rendezvous-collectives/internal/api"
	"rendezvous-collectives/internal/cluster"
	"rendezvous-collectives/internal/metrics"
	"rendezvous-collectives/internal/store"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.New(t.TempDir(), "solo")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	membership := cluster.NewMembership([]cluster.Node{{ID: "solo", Address: "127.0.0.1:0"}}, 10)
	replicator := cluster.NewReplicator("solo", membership, s, 1, 1, 1)
	reg := metrics.NewRegistry(prometheus.NewRegistry())

	router := gin.New()
	api.NewHandler(s, replicator, membership, reg, "solo").Register(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSetThenGetRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/store/set", map[string]any{"key": "k", "value": []byte("hello")})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/store/get?key=k", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Value []byte `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "hello", string(out.Value))
}

func TestGetMissingKeyReturns404(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/store/get?key=missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// Collectives keys are of the form "prefix/<rank>" and routinely contain
// '/' (collectives/keylayout.go) — Get must round-trip one intact rather
// than 404ing on it, since the key travels in the query string, not a
// ":key" path segment that Gin's router would split on.
func TestSetThenGetRoundTripSlashBearingKey(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/store/set", map[string]any{"key": "s2/1", "value": []byte("x")})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/store/get?key="+url.QueryEscape("s2/1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Value []byte `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "x", string(out.Value))
}

func TestAddAccumulates(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/store/add", map[string]any{"key": "c", "delta": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/store/add", map[string]any{"key": "c", "delta": 4})

	var out struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, int64(7), out.Total)
}

func TestCheckReflectsPresence(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/store/check", map[string]any{"keys": []string{"a"}})
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.False(t, out.OK)

	doJSON(t, router, http.MethodPost, "/store/set", map[string]any{"key": "a", "value": []byte("x")})

	rec = doJSON(t, router, http.MethodPost, "/store/check", map[string]any{"keys": []string{"a"}})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.OK)
}

func TestMultiSetAndMultiGet(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/store/multiset", map[string]any{
		"keys":   []string{"p", "q"},
		"values": [][]byte{[]byte("1"), []byte("2")},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/store/multiget", map[string]any{"keys": []string{"p", "q"}})
	var out struct {
		Values [][]byte `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, [][]byte{[]byte("1"), []byte("2")}, out.Values)
}

func TestClusterJoinAndListNodes(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/cluster/join", map[string]any{"id": "n2", "address": "127.0.0.1:9999"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/cluster/nodes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "n2")
}
