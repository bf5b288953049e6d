package model

// NetworkMap is the owning container for a set of devices and edges. The
// engine only reads cosmetic fields; map lifecycle belongs to the upstream
// store.
type NetworkMap struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	BackgroundColor    string `json:"background_color,omitempty"`
	BackgroundImageURL string `json:"background_image_url,omitempty"`
	PublicViewEnabled  bool   `json:"public_view_enabled"`
}

// Capability is the caller's mutation capability, threaded explicitly through
// constructors instead of being read from ambient state.
type Capability struct {
	Admin      bool
	PublicView bool
}

// CanMutate reports whether structural edits are allowed. Public read-only
// views never mutate, regardless of role.
func (c Capability) CanMutate() bool {
	return c.Admin && !c.PublicView
}

// CanPing reports whether the caller may trigger a reachability check.
// Single pings write status upstream, so they are withheld from public views.
func (c Capability) CanPing() bool {
	return !c.PublicView
}
