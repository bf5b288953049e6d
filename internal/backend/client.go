// Package backend is the client side of the upstream device/edge store. The
// engine never persists anything itself; every durable change round-trips
// through this interface.
package backend

import (
	"context"
	"errors"

	"topomap/engine-go/internal/model"
)

// ErrNotFound is returned when the upstream store has no such entity.
var ErrNotFound = errors.New("backend: not found")

// DevicePatch carries the fields of a partial device update. Nil means
// "leave unchanged". Type, Variant and IconURL travel together so a
// retype/re-icon lands in one atomic call.
type DevicePatch struct {
	Name         *string           `json:"name,omitempty"`
	Position     *model.Position   `json:"position,omitempty"`
	Type         *model.DeviceType `json:"type,omitempty"`
	Variant      *int              `json:"variant,omitempty"`
	IconURL      *string           `json:"icon_url,omitempty"`
	IconSize     *int              `json:"icon_size,omitempty"`
	NameTextSize *int              `json:"name_text_size,omitempty"`
	IPAddress    *string           `json:"ip_address,omitempty"`
	CheckPort    *int              `json:"check_port,omitempty"`
	PingInterval *int              `json:"ping_interval,omitempty"`
	ShowLivePing *bool             `json:"show_live_ping,omitempty"`
}

// PingResult is the outcome of a single out-of-band reachability check.
// Reachable=false is an explicit "unreachable" answer, distinct from the
// call itself failing.
type PingResult struct {
	Reachable bool     `json:"reachable"`
	LatencyMs *float64 `json:"latency_ms,omitempty"`
	TTL       *int     `json:"ttl,omitempty"`
}

// Client is the §6 contract against the upstream store.
type Client interface {
	GetMap(ctx context.Context, mapID string) (model.NetworkMap, error)
	GetDevices(ctx context.Context, mapID string) ([]model.Device, error)
	GetEdges(ctx context.Context, mapID string) ([]model.Edge, error)

	CreateDevice(ctx context.Context, d model.Device) (model.Device, error)
	UpdateDevice(ctx context.Context, id string, patch DevicePatch) (model.Device, error)
	DeleteDevice(ctx context.Context, id string) error

	CreateEdge(ctx context.Context, e model.Edge) (model.Edge, error)
	UpdateEdge(ctx context.Context, id string, ct model.ConnectionType) (model.Edge, error)
	DeleteEdge(ctx context.Context, id string) error

	// PingAllDevices triggers server-side checks for the whole map. Results
	// are not returned inline; callers re-fetch to observe them.
	PingAllDevices(ctx context.Context, mapID string) error
	PingOneDevice(ctx context.Context, deviceID string) (PingResult, error)
}
