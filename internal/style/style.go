// Package style derives visual styling from graph state. Everything here is
// a pure function of its arguments; the same inputs always yield the same
// style regardless of call order.
package style

import "topomap/engine-go/internal/model"

// EdgeStyle is the computed rendering for one edge.
type EdgeStyle struct {
	Color    string `json:"color"`
	Dash     []int  `json:"dash,omitempty"`
	Animated bool   `json:"animated"`
	Label    string `json:"label"`
}

const brokenColor = "#dc2626"

// connectionStyles keys base styling by connection type. cat5 doubles as the
// fallback for unrecognized types.
var connectionStyles = map[model.ConnectionType]EdgeStyle{
	model.ConnCat5:  {Color: "#8b5cf6", Animated: true, Label: "cat5"},
	model.ConnFiber: {Color: "#f97316", Animated: true, Label: "fiber"},
	model.ConnWifi:  {Color: "#0ea5e9", Dash: []int{6, 3}, Animated: true, Label: "wifi"},
	model.ConnRadio: {Color: "#84cc16", Dash: []int{2, 6}, Animated: true, Label: "radio"},
}

// ForEdge computes the style of an edge given its two endpoints. An edge with
// an offline endpoint renders as broken: fixed color, no animation, but the
// connection-type label is kept so the link medium stays readable.
func ForEdge(e *model.Edge, source, target *model.Device) EdgeStyle {
	base, ok := connectionStyles[model.NormalizeConnectionType(string(e.ConnectionType))]
	if !ok {
		base = connectionStyles[model.ConnCat5]
	}
	out := base
	out.Dash = append([]int(nil), base.Dash...)

	if isOffline(source) || isOffline(target) {
		out.Color = brokenColor
		out.Animated = false
		out.Dash = nil
	}
	return out
}

func isOffline(d *model.Device) bool {
	return d == nil || d.Status == model.StatusOffline
}

// Decoration is the health ring/badge drawn around a node. Empty Ring means
// no decoration.
type Decoration struct {
	Ring  string `json:"ring,omitempty"`  // "warning" or "critical"
	Badge string `json:"badge,omitempty"` // short reason, e.g. "latency"
}

// ForNode derives the decoration from the node's last measurements against
// its configured thresholds. Critical takes precedence over warning; a nil
// threshold is "not configured" and never trips.
func ForNode(d *model.Device) Decoration {
	if exceeds(d.LastAvgLatency, d.CritLatencyMs) {
		return Decoration{Ring: "critical", Badge: "latency"}
	}
	if exceeds(d.LastPacketLoss, d.CritLossPct) {
		return Decoration{Ring: "critical", Badge: "loss"}
	}
	if exceeds(d.LastAvgLatency, d.WarnLatencyMs) {
		return Decoration{Ring: "warning", Badge: "latency"}
	}
	if exceeds(d.LastPacketLoss, d.WarnLossPct) {
		return Decoration{Ring: "warning", Badge: "loss"}
	}
	return Decoration{}
}

func exceeds(value, threshold *float64) bool {
	if value == nil || threshold == nil {
		return false
	}
	return *value >= *threshold
}
