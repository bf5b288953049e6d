package model

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// DeviceStatus is the reachability state of a device as reported by the
// upstream store. It is a closed set: anything else normalizes to unknown.
type DeviceStatus string

const (
	StatusOnline   DeviceStatus = "online"
	StatusOffline  DeviceStatus = "offline"
	StatusWarning  DeviceStatus = "warning"
	StatusCritical DeviceStatus = "critical"
	StatusUnknown  DeviceStatus = "unknown"
)

// NormalizeStatus maps a raw status string onto the closed enum.
func NormalizeStatus(raw string) DeviceStatus {
	switch DeviceStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusOnline:
		return StatusOnline
	case StatusOffline:
		return StatusOffline
	case StatusWarning:
		return StatusWarning
	case StatusCritical:
		return StatusCritical
	default:
		return StatusUnknown
	}
}

// DeviceType categorizes a device for icon and styling purposes.
type DeviceType string

const (
	TypeRouter      DeviceType = "router"
	TypeSwitch      DeviceType = "switch"
	TypeServer      DeviceType = "server"
	TypeFirewall    DeviceType = "firewall"
	TypeAccessPoint DeviceType = "access_point"
	TypePrinter     DeviceType = "printer"
	TypeCamera      DeviceType = "camera"
	TypeStorage     DeviceType = "storage"
	TypeWorkstation DeviceType = "workstation"
	TypeIoT         DeviceType = "iot"
)

// KnownTypes lists every device type the icon catalog carries, in catalog order.
func KnownTypes() []DeviceType {
	return []DeviceType{
		TypeRouter, TypeSwitch, TypeServer, TypeFirewall, TypeAccessPoint,
		TypePrinter, TypeCamera, TypeStorage, TypeWorkstation, TypeIoT,
	}
}

// IsKnownType reports whether t is part of the curated catalog.
func IsKnownType(t DeviceType) bool {
	for _, k := range KnownTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// Position is a canvas coordinate. The zero value (origin) is a valid
// position; devices without a stored position land there.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Device is a node on a topology map.
type Device struct {
	ID       string     `json:"id"`
	MapID    string     `json:"map_id"`
	Name     string     `json:"name"`
	Position Position   `json:"position"`
	Type     DeviceType `json:"type"`
	Variant  int        `json:"variant"`

	// IconURL, when set, overrides the catalog icon entirely.
	IconURL      string `json:"icon_url,omitempty"`
	IconSize     int    `json:"icon_size,omitempty"`
	NameTextSize int    `json:"name_text_size,omitempty"`

	Status DeviceStatus `json:"status"`

	// IPAddress gates reachability actions; CheckPort switches the upstream
	// check from ICMP to a TCP port probe.
	IPAddress    string `json:"ip_address,omitempty"`
	CheckPort    *int   `json:"check_port,omitempty"`
	PingInterval *int   `json:"ping_interval,omitempty"` // seconds
	ShowLivePing bool   `json:"show_live_ping,omitempty"`

	LastSeen       *time.Time `json:"last_seen,omitempty"`
	LastAvgLatency *float64   `json:"last_avg_latency,omitempty"` // ms
	LastTTL        *int       `json:"last_ttl,omitempty"`
	LastPacketLoss *float64   `json:"last_packet_loss,omitempty"` // percent

	// Nil threshold means "not configured": no decoration is derived from it.
	WarnLatencyMs  *float64 `json:"warn_latency_ms,omitempty"`
	CritLatencyMs  *float64 `json:"crit_latency_ms,omitempty"`
	WarnLossPct    *float64 `json:"warn_loss_pct,omitempty"`
	CritLossPct    *float64 `json:"crit_loss_pct,omitempty"`
}

// Validate checks the fields a mutation must not submit malformed.
func (d *Device) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("device name is required")
	}
	if d.MapID == "" {
		return fmt.Errorf("device map_id is required")
	}
	if d.IPAddress != "" && net.ParseIP(d.IPAddress) == nil {
		return fmt.Errorf("invalid ip address: %s", d.IPAddress)
	}
	if d.CheckPort != nil && (*d.CheckPort <= 0 || *d.CheckPort > 65535) {
		return fmt.Errorf("check_port out of range: %d", *d.CheckPort)
	}
	if d.Variant < 0 {
		return fmt.Errorf("variant must not be negative")
	}
	return nil
}

// Normalize fills the invariants the renderer relies on: status is always a
// member of the closed enum and type falls back to server for unknown values.
func (d *Device) Normalize() {
	d.Status = NormalizeStatus(string(d.Status))
	if d.Type == "" || !IsKnownType(d.Type) {
		d.Type = TypeServer
	}
	if d.Variant < 0 {
		d.Variant = 0
	}
}

// Clone returns a deep copy, including pointer-typed optional fields.
func (d *Device) Clone() *Device {
	out := *d
	out.CheckPort = clonePtr(d.CheckPort)
	out.PingInterval = clonePtr(d.PingInterval)
	out.LastSeen = clonePtr(d.LastSeen)
	out.LastAvgLatency = clonePtr(d.LastAvgLatency)
	out.LastTTL = clonePtr(d.LastTTL)
	out.LastPacketLoss = clonePtr(d.LastPacketLoss)
	out.WarnLatencyMs = clonePtr(d.WarnLatencyMs)
	out.CritLatencyMs = clonePtr(d.CritLatencyMs)
	out.WarnLossPct = clonePtr(d.WarnLossPct)
	out.CritLossPct = clonePtr(d.CritLossPct)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
