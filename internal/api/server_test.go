package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annel0/tileworld/internal/auth"
	"github.com/annel0/tileworld/internal/sim"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/annel0/tileworld/internal/world/tile/implementations"
)

type fakeWorld struct {
	status sim.Status
	err    error
	set    map[vec.TilePos]tile.ID
}

func (f *fakeWorld) Status() sim.Status { return f.status }

func (f *fakeWorld) RequestSetTile(ctx context.Context, pos vec.TilePos, id tile.ID) error {
	if f.err != nil {
		return f.err
	}
	f.set[pos] = id
	return nil
}

func newTestServer(t *testing.T, withSigner bool) (*RestServer, *fakeWorld, *auth.Signer) {
	t.Helper()
	svc := &fakeWorld{
		status: sim.Status{
			WorldID: "w-1",
			Tick:    42,
			Chunks:  9,
			Entities: []sim.EntityStatus{
				{ID: 1, Type: "walker", Position: vec.Vec2Float{X: 1, Y: 2}},
				{ID: 2, Type: "grazer"},
				{ID: 3, Type: "grazer"},
			},
			Updated: time.Now(),
		},
		set: make(map[vec.TilePos]tile.ID),
	}

	var signer *auth.Signer
	if withSigner {
		var err error
		signer, err = auth.NewSigner("", time.Hour)
		require.NoError(t, err)
	}

	reg := prometheus.NewRegistry()
	rs := NewRestServer(Config{Service: svc, Signer: signer, Registerer: reg, Gatherer: reg})
	return rs, svc, signer
}

func do(rs *RestServer, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) GenericResponse {
	t.Helper()
	var resp GenericResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	rs, _, _ := newTestServer(t, false)
	w := do(rs, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestWorld(t *testing.T) {
	rs, _, _ := newTestServer(t, false)
	w := do(rs, http.MethodGet, "/api/world", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "w-1", data["world_id"])
	assert.EqualValues(t, 42, data["tick"])
	assert.EqualValues(t, 9, data["chunks"])
	assert.EqualValues(t, 3, data["entities"])
}

func TestEntities(t *testing.T) {
	rs, _, _ := newTestServer(t, false)

	w := do(rs, http.MethodGet, "/api/entities", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.EqualValues(t, 3, data["total"])

	w = do(rs, http.MethodGet, "/api/entities?type=grazer", "", nil)
	data = decode(t, w).Data.(map[string]interface{})
	assert.EqualValues(t, 2, data["total"])
}

func TestEntityByID(t *testing.T) {
	rs, _, _ := newTestServer(t, false)

	w := do(rs, http.MethodGet, "/api/entities/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "walker", data["type"])

	assert.Equal(t, http.StatusNotFound, do(rs, http.MethodGet, "/api/entities/99", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(rs, http.MethodGet, "/api/entities/abc", "", nil).Code)
}

func TestAdminRoutesDisabledWithoutSigner(t *testing.T) {
	rs, _, _ := newTestServer(t, false)
	w := do(rs, http.MethodPost, "/api/admin/tiles", "", []byte(`{"x":1,"y":1,"tile":200}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetTile_Auth(t *testing.T) {
	rs, svc, signer := newTestServer(t, true)
	body := []byte(`{"x":3,"y":-4,"tile":200}`)

	assert.Equal(t, http.StatusUnauthorized, do(rs, http.MethodPost, "/api/admin/tiles", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, do(rs, http.MethodPost, "/api/admin/tiles", "garbage", body).Code)

	viewer, err := signer.Issue("viewer", false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(rs, http.MethodPost, "/api/admin/tiles", viewer, body).Code)
	assert.Empty(t, svc.set)

	admin, err := signer.Issue("root", true)
	require.NoError(t, err)
	w := do(rs, http.MethodPost, "/api/admin/tiles", admin, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, tile.WallID, svc.set[vec.TilePos{X: 3, Y: -4}])
}

func TestSetTile_Errors(t *testing.T) {
	rs, svc, signer := newTestServer(t, true)
	admin, err := signer.Issue("root", true)
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad json", `{"x":`, nil, http.StatusBadRequest},
		{"unknown tile", `{"x":0,"y":0,"tile":65000}`, nil, http.StatusBadRequest},
		{"chunk not loaded", `{"x":0,"y":0,"tile":1}`, world.ErrChunkNotLoaded, http.StatusUnprocessableEntity},
		{"not running", `{"x":0,"y":0,"tile":1}`, sim.ErrNotRunning, http.StatusServiceUnavailable},
		{"timeout", `{"x":0,"y":0,"tile":1}`, context.DeadlineExceeded, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.err = tt.err
			w := do(rs, http.MethodPost, "/api/admin/tiles", admin, []byte(tt.body))
			assert.Equal(t, tt.want, w.Code)
			assert.False(t, decode(t, w).Success)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rs, _, _ := newTestServer(t, false)
	do(rs, http.MethodGet, "/api/world", "", nil)
	do(rs, http.MethodGet, "/api/entities/99", "", nil)

	w := do(rs, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "tileworld_api_http_request_duration_seconds")
	assert.True(t, strings.Contains(body, `tileworld_api_http_request_errors_total{method="GET",path="/api/entities/:id",status="404"} 1`))
}

func TestStartStop(t *testing.T) {
	reg := prometheus.NewRegistry()
	rs := NewRestServer(Config{Addr: "127.0.0.1:0", Service: &fakeWorld{}, Registerer: reg, Gatherer: reg})
	rs.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, rs.Stop(ctx))
}
