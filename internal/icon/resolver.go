// Package icon resolves a device's icon fields into a renderable spec.
//
// Three encodings exist in the wild: the curated (type, variant) catalog,
// custom image URLs, and free-form legacy strings from before the catalog
// was introduced. All three funnel through Resolve via the Source union.
package icon

import (
	"strings"

	"topomap/engine-go/internal/model"
)

// SourceKind discriminates the Source union.
type SourceKind int

const (
	SourceCatalog SourceKind = iota
	SourceCustomImage
	SourceLegacyString
)

// Source is the tagged union of the three icon encodings.
type Source struct {
	Kind    SourceKind
	Type    model.DeviceType // SourceCatalog
	Variant int              // SourceCatalog
	URL     string           // SourceCustomImage
	Legacy  string           // SourceLegacyString
}

// SourceFor picks the encoding a device carries. A custom image URL takes
// precedence over the catalog fields.
func SourceFor(d *model.Device) Source {
	if d.IconURL != "" {
		return Source{Kind: SourceCustomImage, URL: d.IconURL}
	}
	return Source{Kind: SourceCatalog, Type: d.Type, Variant: d.Variant}
}

// RenderSpec is what the render path consumes.
type RenderSpec struct {
	Kind  string `json:"kind"` // "glyph" or "image"
	Ref   string `json:"ref"`  // glyph name or image URL
	Label string `json:"label,omitempty"`
	Size  int    `json:"size,omitempty"`
}

const defaultIconSize = 48

// Resolve turns a source into a render spec. It never fails: catalog misses
// and unknown legacy strings come back as the generic fallback glyph.
func Resolve(src Source, iconSize int) RenderSpec {
	size := iconSize
	if size <= 0 {
		size = defaultIconSize
	}

	switch src.Kind {
	case SourceCustomImage:
		return RenderSpec{Kind: "image", Ref: src.URL, Size: size}
	case SourceLegacyString:
		t := DetectType(src.Legacy)
		return resolveCatalog(t, 0, size)
	default:
		return resolveCatalog(src.Type, src.Variant, size)
	}
}

// ResolveDevice is the convenience entry point for the render path.
func ResolveDevice(d *model.Device) RenderSpec {
	return Resolve(SourceFor(d), d.IconSize)
}

func resolveCatalog(t model.DeviceType, variant int, size int) RenderSpec {
	entries := catalog[t]
	if variant < 0 || variant >= len(entries) {
		return RenderSpec{Kind: "glyph", Ref: FallbackGlyph, Size: size}
	}
	e := entries[variant]
	return RenderSpec{Kind: "glyph", Ref: e.Glyph, Label: e.Label, Size: size}
}

// typeKeywords is checked in order; first substring hit wins. The multi-char
// phrases come before anything ambiguous so "laptop" is not eaten by "ap".
var typeKeywords = []struct {
	keyword string
	t       model.DeviceType
}{
	{"router", model.TypeRouter},
	{"gateway", model.TypeRouter},
	{"switch", model.TypeSwitch},
	{"firewall", model.TypeFirewall},
	{"laptop", model.TypeWorkstation},
	{"desktop", model.TypeWorkstation},
	{"workstation", model.TypeWorkstation},
	{"access point", model.TypeAccessPoint},
	{"access-point", model.TypeAccessPoint},
	{"accesspoint", model.TypeAccessPoint},
	{"wifi", model.TypeAccessPoint},
	{"wireless", model.TypeAccessPoint},
	{"print", model.TypePrinter},
	{"camera", model.TypeCamera},
	{"nas", model.TypeStorage},
	{"storage", model.TypeStorage},
	{"disk", model.TypeStorage},
	{"iot", model.TypeIoT},
	{"sensor", model.TypeIoT},
	{"server", model.TypeServer},
}

// shortTokens only count as a whole token, never as a substring.
var shortTokens = map[string]model.DeviceType{
	"ap":  model.TypeAccessPoint,
	"fw":  model.TypeFirewall,
	"pc":  model.TypeWorkstation,
	"cam": model.TypeCamera,
	"rtr": model.TypeRouter,
	"sw":  model.TypeSwitch,
}

// DetectType classifies a free-form icon or description string into a known
// device type. Pre-catalog data stored arbitrary strings here; substring
// matching recovers most of them. Unmatched values default to server.
func DetectType(raw string) model.DeviceType {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return model.TypeServer
	}
	for _, kw := range typeKeywords {
		if strings.Contains(v, kw.keyword) {
			return kw.t
		}
	}
	for _, tok := range strings.FieldsFunc(v, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.' || r == '/'
	}) {
		if t, ok := shortTokens[tok]; ok {
			return t
		}
	}
	return model.TypeServer
}
