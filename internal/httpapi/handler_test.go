package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"topomap/engine-go/internal/backend"
	"topomap/engine-go/internal/model"
	"topomap/engine-go/internal/poller"
)

type fakeClient struct {
	getMapFn       func(ctx context.Context, mapID string) (model.NetworkMap, error)
	getDevicesFn   func(ctx context.Context, mapID string) ([]model.Device, error)
	getEdgesFn     func(ctx context.Context, mapID string) ([]model.Edge, error)
	createDeviceFn func(ctx context.Context, d model.Device) (model.Device, error)
	pingOneFn      func(ctx context.Context, deviceID string) (backend.PingResult, error)
}

func (f *fakeClient) GetMap(ctx context.Context, mapID string) (model.NetworkMap, error) {
	if f.getMapFn == nil {
		return model.NetworkMap{ID: mapID, Name: "Test Map"}, nil
	}
	return f.getMapFn(ctx, mapID)
}

func (f *fakeClient) GetDevices(ctx context.Context, mapID string) ([]model.Device, error) {
	if f.getDevicesFn == nil {
		return nil, nil
	}
	return f.getDevicesFn(ctx, mapID)
}

func (f *fakeClient) GetEdges(ctx context.Context, mapID string) ([]model.Edge, error) {
	if f.getEdgesFn == nil {
		return nil, nil
	}
	return f.getEdgesFn(ctx, mapID)
}

func (f *fakeClient) CreateDevice(ctx context.Context, d model.Device) (model.Device, error) {
	if f.createDeviceFn == nil {
		d.ID = "dev-new"
		return d, nil
	}
	return f.createDeviceFn(ctx, d)
}

func (f *fakeClient) UpdateDevice(ctx context.Context, id string, patch backend.DevicePatch) (model.Device, error) {
	d := model.Device{ID: id, MapID: "map-1", Name: "Device", Type: model.TypeRouter}
	if patch.Position != nil {
		d.Position = *patch.Position
	}
	return d, nil
}

func (f *fakeClient) DeleteDevice(ctx context.Context, id string) error { return nil }

func (f *fakeClient) CreateEdge(ctx context.Context, e model.Edge) (model.Edge, error) {
	e.ID = "edge-new"
	return e, nil
}

func (f *fakeClient) UpdateEdge(ctx context.Context, id string, ct model.ConnectionType) (model.Edge, error) {
	return model.Edge{ID: id, MapID: "map-1", SourceID: "d1", TargetID: "d2", ConnectionType: ct}, nil
}

func (f *fakeClient) DeleteEdge(ctx context.Context, id string) error { return nil }

func (f *fakeClient) PingAllDevices(ctx context.Context, mapID string) error { return nil }

func (f *fakeClient) PingOneDevice(ctx context.Context, deviceID string) (backend.PingResult, error) {
	if f.pingOneFn == nil {
		return backend.PingResult{Reachable: true}, nil
	}
	return f.pingOneFn(ctx, deviceID)
}

func newTestHandler(t *testing.T, client backend.Client) *Handler {
	t.Helper()
	log := zerolog.Nop()
	sessions := NewSessionManager(context.Background(), log, client, nil, poller.Options{Interval: time.Hour})
	t.Cleanup(sessions.Close)
	return NewHandler(log, sessions, nil, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var asAdmin = map[string]string{"X-Role": "admin"}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, &fakeClient{})
	rec := doJSON(t, h.Router(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMapViewProjection(t *testing.T) {
	latency := 150.0
	crit := 100.0
	client := &fakeClient{
		getDevicesFn: func(_ context.Context, _ string) ([]model.Device, error) {
			return []model.Device{
				{ID: "d1", MapID: "map-1", Name: "Router", Type: model.TypeRouter, Status: model.StatusOnline,
					LastAvgLatency: &latency, CritLatencyMs: &crit},
				{ID: "d2", MapID: "map-1", Name: "Switch", Type: model.TypeSwitch, Status: model.StatusOffline},
			}, nil
		},
		getEdgesFn: func(_ context.Context, _ string) ([]model.Edge, error) {
			return []model.Edge{{ID: "e1", MapID: "map-1", SourceID: "d1", TargetID: "d2", ConnectionType: model.ConnFiber}}, nil
		},
	}
	h := newTestHandler(t, client)

	rec := doJSON(t, h.Router(), http.MethodGet, "/api/v1/maps/map-1/view", "", asAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Map struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"map"`
		Nodes []struct {
			Device struct {
				ID string `json:"id"`
			} `json:"device"`
			Icon struct {
				Kind string `json:"kind"`
				Ref  string `json:"ref"`
			} `json:"icon"`
			Decoration struct {
				Ring  string `json:"ring"`
				Badge string `json:"badge"`
			} `json:"decoration"`
		} `json:"nodes"`
		Edges []struct {
			Style struct {
				Color    string `json:"color"`
				Animated bool   `json:"animated"`
				Label    string `json:"label"`
			} `json:"style"`
		} `json:"edges"`
		Capabilities struct {
			CanMutate bool `json:"can_mutate"`
			CanPing   bool `json:"can_ping"`
		} `json:"capabilities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Map.ID != "map-1" || resp.Map.Name != "Test Map" {
		t.Fatalf("map = %+v", resp.Map)
	}
	if len(resp.Nodes) != 2 {
		t.Fatalf("%d nodes", len(resp.Nodes))
	}
	if resp.Nodes[0].Icon.Kind != "glyph" || resp.Nodes[0].Icon.Ref != "router" {
		t.Fatalf("icon = %+v", resp.Nodes[0].Icon)
	}
	if resp.Nodes[0].Decoration.Ring != "critical" || resp.Nodes[0].Decoration.Badge != "latency" {
		t.Fatalf("decoration = %+v", resp.Nodes[0].Decoration)
	}
	if len(resp.Edges) != 1 {
		t.Fatalf("%d edges", len(resp.Edges))
	}
	// d2 is offline, so the fiber edge renders broken.
	if resp.Edges[0].Style.Color != "#dc2626" || resp.Edges[0].Style.Animated {
		t.Fatalf("edge style = %+v", resp.Edges[0].Style)
	}
	if resp.Edges[0].Style.Label != "fiber" {
		t.Fatalf("edge label = %q", resp.Edges[0].Style.Label)
	}
	if !resp.Capabilities.CanMutate || !resp.Capabilities.CanPing {
		t.Fatalf("capabilities = %+v", resp.Capabilities)
	}
}

func TestMapViewUnknownMap(t *testing.T) {
	client := &fakeClient{
		getMapFn: func(_ context.Context, mapID string) (model.NetworkMap, error) {
			return model.NetworkMap{}, backend.ErrNotFound
		},
	}
	h := newTestHandler(t, client)

	rec := doJSON(t, h.Router(), http.MethodGet, "/api/v1/maps/ghost/view", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateDeviceRequiresAdmin(t *testing.T) {
	h := newTestHandler(t, &fakeClient{})
	body := `{"name":"New Router","position":{"x":10,"y":20},"type":"router"}`

	rec := doJSON(t, h.Router(), http.MethodPost, "/api/v1/maps/map-1/devices", body, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("viewer create: status = %d", rec.Code)
	}

	rec = doJSON(t, h.Router(), http.MethodPost, "/api/v1/maps/map-1/devices", body, asAdmin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: status = %d: %s", rec.Code, rec.Body.String())
	}
	var created model.Device
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != "dev-new" {
		t.Fatalf("created.ID = %q", created.ID)
	}
}

func TestCreateDeviceRejectsUnknownFields(t *testing.T) {
	h := newTestHandler(t, &fakeClient{})
	rec := doJSON(t, h.Router(), http.MethodPost, "/api/v1/maps/map-1/devices", `{"name":"x","bogus":1}`, asAdmin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "validation_failed") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestPublicViewCannotMutateDespiteAdminRole(t *testing.T) {
	client := &fakeClient{
		getDevicesFn: func(_ context.Context, _ string) ([]model.Device, error) {
			return []model.Device{{ID: "d1", MapID: "map-1", Name: "A", Type: model.TypeRouter, Status: model.StatusOnline}}, nil
		},
	}
	h := newTestHandler(t, client)

	headers := map[string]string{"X-Role": "admin", "X-Public-View": "true"}
	rec := doJSON(t, h.Router(), http.MethodPatch, "/api/v1/maps/map-1/devices/d1/position", `{"position":{"x":1,"y":2}}`, headers)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPingEndpointGatedForPublicView(t *testing.T) {
	client := &fakeClient{
		getDevicesFn: func(_ context.Context, _ string) ([]model.Device, error) {
			return []model.Device{{ID: "d1", MapID: "map-1", Name: "A", Type: model.TypeRouter, IPAddress: "10.0.0.1", Status: model.StatusOnline}}, nil
		},
	}
	h := newTestHandler(t, client)

	rec := doJSON(t, h.Router(), http.MethodPost, "/api/v1/maps/map-1/devices/d1/ping", "", map[string]string{"X-Public-View": "true"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("public view ping: status = %d", rec.Code)
	}

	rec = doJSON(t, h.Router(), http.MethodPost, "/api/v1/maps/map-1/devices/d1/ping", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("viewer ping: status = %d: %s", rec.Code, rec.Body.String())
	}
	var res backend.PingResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Reachable {
		t.Fatal("res.Reachable = false")
	}
}

func TestRefreshFailureKeepsDataAndReports502(t *testing.T) {
	healthy := true
	client := &fakeClient{
		getDevicesFn: func(_ context.Context, _ string) ([]model.Device, error) {
			if !healthy {
				return nil, errors.New("upstream down")
			}
			return []model.Device{{ID: "d1", MapID: "map-1", Name: "A", Type: model.TypeRouter, Status: model.StatusOnline}}, nil
		},
	}
	h := newTestHandler(t, client)
	router := h.Router()

	if rec := doJSON(t, router, http.MethodPost, "/api/v1/maps/map-1/refresh", "", asAdmin); rec.Code != http.StatusOK {
		t.Fatalf("first refresh: %d", rec.Code)
	}

	healthy = false
	if rec := doJSON(t, router, http.MethodPost, "/api/v1/maps/map-1/refresh", "", asAdmin); rec.Code != http.StatusBadGateway {
		t.Fatalf("failed refresh: %d", rec.Code)
	}

	// The view still serves the prior data.
	rec := doJSON(t, router, http.MethodGet, "/api/v1/maps/map-1/view", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("view: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"d1"`) {
		t.Fatal("prior data lost after failed refresh")
	}
}

func TestMenuEndpoint(t *testing.T) {
	client := &fakeClient{
		getDevicesFn: func(_ context.Context, _ string) ([]model.Device, error) {
			return []model.Device{{ID: "d1", MapID: "map-1", Name: "A", Type: model.TypeRouter, IPAddress: "10.0.0.1", Status: model.StatusOnline}}, nil
		},
	}
	h := newTestHandler(t, client)
	router := h.Router()

	var resp struct {
		Items []struct {
			Label  string `json:"label"`
			Action string `json:"action"`
		} `json:"items"`
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/maps/map-1/menu?kind=node&id=d1", "", asAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 5 {
		t.Fatalf("admin items = %+v", resp.Items)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/maps/map-1/menu?kind=node&id=d1", "", map[string]string{"X-Public-View": "true"})
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Fatalf("public view items = %+v", resp.Items)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/maps/map-1/menu?kind=teapot", "", asAdmin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad kind: status = %d", rec.Code)
	}
}

func TestEdgeLifecycleOverHTTP(t *testing.T) {
	client := &fakeClient{
		getDevicesFn: func(_ context.Context, _ string) ([]model.Device, error) {
			return []model.Device{
				{ID: "d1", MapID: "map-1", Name: "A", Type: model.TypeRouter, Status: model.StatusOnline},
				{ID: "d2", MapID: "map-1", Name: "B", Type: model.TypeSwitch, Status: model.StatusOnline},
			}, nil
		},
	}
	h := newTestHandler(t, client)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/maps/map-1/edges", `{"source_id":"d1","target_id":"d2"}`, asAdmin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create edge: %d: %s", rec.Code, rec.Body.String())
	}
	var e model.Edge
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.ConnectionType != model.ConnCat5 {
		t.Fatalf("default connection type = %q", e.ConnectionType)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/v1/maps/map-1/edges/"+e.ID+"/type", `{"connection_type":"fiber"}`, asAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("set type: %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/maps/map-1/edges/"+e.ID, "", asAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete edge: %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/maps/map-1/edges", `{"source_id":"d1","target_id":"d1"}`, asAdmin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self edge: %d", rec.Code)
	}
}

func TestSuggestValidation(t *testing.T) {
	h := newTestHandler(t, &fakeClient{})
	rec := doJSON(t, h.Router(), http.MethodGet, "/api/v1/suggest?ip=not-an-ip", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
