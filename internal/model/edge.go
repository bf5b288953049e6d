package model

import (
	"fmt"
	"strings"
)

// ConnectionType is the medium of a link. Unrecognized values fall back to
// cat5, which is also the default for newly drawn edges.
type ConnectionType string

const (
	ConnCat5  ConnectionType = "cat5"
	ConnFiber ConnectionType = "fiber"
	ConnWifi  ConnectionType = "wifi"
	ConnRadio ConnectionType = "radio"
)

// NormalizeConnectionType maps a raw value onto the closed set.
func NormalizeConnectionType(raw string) ConnectionType {
	switch ConnectionType(strings.ToLower(strings.TrimSpace(raw))) {
	case ConnFiber:
		return ConnFiber
	case ConnWifi:
		return ConnWifi
	case ConnRadio:
		return ConnRadio
	default:
		return ConnCat5
	}
}

// Edge is a link between two devices on the same map. Whether an edge renders
// as "broken" is derived from endpoint status at render time, never stored.
type Edge struct {
	ID             string         `json:"id"`
	MapID          string         `json:"map_id"`
	SourceID       string         `json:"source_id"`
	TargetID       string         `json:"target_id"`
	ConnectionType ConnectionType `json:"connection_type"`
}

// Validate checks the structural preconditions for creating an edge.
func (e *Edge) Validate() error {
	if e.SourceID == "" || e.TargetID == "" {
		return fmt.Errorf("edge requires source_id and target_id")
	}
	if e.SourceID == e.TargetID {
		return fmt.Errorf("edge cannot connect a device to itself")
	}
	if e.MapID == "" {
		return fmt.Errorf("edge map_id is required")
	}
	return nil
}

// Normalize forces the connection type onto the closed set.
func (e *Edge) Normalize() {
	e.ConnectionType = NormalizeConnectionType(string(e.ConnectionType))
}

// Clone returns a copy of the edge.
func (e *Edge) Clone() *Edge {
	out := *e
	return &out
}
