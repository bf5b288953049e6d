package icon

import "topomap/engine-go/internal/model"

// Entry is one renderable glyph in the curated catalog.
type Entry struct {
	Glyph string
	Label string
}

// FallbackGlyph is returned whenever resolution misses the catalog. It must
// always exist so resolution can never fail.
const FallbackGlyph = "circle"

// catalog maps (type, variant index) to a glyph. The table is static and
// never mutated at runtime; out-of-range variants resolve to the fallback.
var catalog = map[model.DeviceType][]Entry{
	model.TypeRouter: {
		{Glyph: "router", Label: "Router"},
		{Glyph: "router-wireless", Label: "Wireless Router"},
		{Glyph: "router-edge", Label: "Edge Router"},
	},
	model.TypeSwitch: {
		{Glyph: "switch", Label: "Switch"},
		{Glyph: "switch-managed", Label: "Managed Switch"},
		{Glyph: "switch-poe", Label: "PoE Switch"},
	},
	model.TypeServer: {
		{Glyph: "server", Label: "Server"},
		{Glyph: "server-rack", Label: "Rack Server"},
		{Glyph: "server-vm", Label: "Virtual Machine"},
	},
	model.TypeFirewall: {
		{Glyph: "firewall", Label: "Firewall"},
		{Glyph: "firewall-utm", Label: "UTM Appliance"},
	},
	model.TypeAccessPoint: {
		{Glyph: "access-point", Label: "Access Point"},
		{Glyph: "access-point-mesh", Label: "Mesh Node"},
	},
	model.TypePrinter: {
		{Glyph: "printer", Label: "Printer"},
	},
	model.TypeCamera: {
		{Glyph: "camera", Label: "Camera"},
		{Glyph: "camera-ptz", Label: "PTZ Camera"},
	},
	model.TypeStorage: {
		{Glyph: "storage", Label: "Storage"},
		{Glyph: "storage-nas", Label: "NAS"},
	},
	model.TypeWorkstation: {
		{Glyph: "workstation", Label: "Workstation"},
		{Glyph: "workstation-laptop", Label: "Laptop"},
	},
	model.TypeIoT: {
		{Glyph: "iot", Label: "IoT Device"},
	},
}

// Variants returns the catalog entries for a type, empty for unknown types.
func Variants(t model.DeviceType) []Entry {
	entries := catalog[t]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
