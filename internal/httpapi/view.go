package httpapi

import (
	"net/http"

	"topomap/engine-go/internal/icon"
	"topomap/engine-go/internal/interaction"
	"topomap/engine-go/internal/model"
	"topomap/engine-go/internal/style"
)

// viewProjection is the ready-to-render state of one map: every node
// carries its resolved icon and health decoration, every edge its
// computed style, so the renderer applies no rules of its own.
type viewProjection struct {
	Map          viewMap    `json:"map"`
	Nodes        []viewNode `json:"nodes"`
	Edges        []viewEdge `json:"edges"`
	Capabilities viewCaps   `json:"capabilities"`
}

type viewMap struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	BackgroundColor    string `json:"background_color,omitempty"`
	BackgroundImageURL string `json:"background_image_url,omitempty"`
}

type viewCaps struct {
	CanMutate bool `json:"can_mutate"`
	CanPing   bool `json:"can_ping"`
}

type viewNode struct {
	Device     model.Device     `json:"device"`
	Icon       icon.RenderSpec  `json:"icon"`
	Decoration style.Decoration `json:"decoration"`
}

type viewEdge struct {
	Edge  model.Edge      `json:"edge"`
	Style style.EdgeStyle `json:"style"`
}

func (h *Handler) handleMapView(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	capability := capabilityFrom(r)

	nodes := sess.Store.AllNodes()
	edges := sess.Store.AllEdges()

	byID := make(map[string]*model.Device, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	outNodes := make([]viewNode, 0, len(nodes))
	for i := range nodes {
		d := &nodes[i]
		outNodes = append(outNodes, viewNode{
			Device:     *d,
			Icon:       icon.ResolveDevice(d),
			Decoration: style.ForNode(d),
		})
	}

	outEdges := make([]viewEdge, 0, len(edges))
	for i := range edges {
		e := &edges[i]
		outEdges = append(outEdges, viewEdge{
			Edge:  *e,
			Style: style.ForEdge(e, byID[e.SourceID], byID[e.TargetID]),
		})
	}

	h.writeJSON(w, http.StatusOK, viewProjection{
		Map: viewMap{
			ID:                 sess.Map.ID,
			Name:               sess.Map.Name,
			BackgroundColor:    sess.Map.BackgroundColor,
			BackgroundImageURL: sess.Map.BackgroundImageURL,
		},
		Nodes: outNodes,
		Edges: outEdges,
		Capabilities: viewCaps{
			CanMutate: capability.CanMutate(),
			CanPing:   capability.CanPing(),
		},
	})
}

type menuResponse struct {
	Items []interaction.MenuItem `json:"items"`
}

// handleMenu returns the context-menu entries for a right-click target,
// already filtered by the caller's capability and the target's state.
func (h *Handler) handleMenu(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	capability := capabilityFrom(r)

	kind := interaction.TargetKind(r.URL.Query().Get("kind"))
	switch kind {
	case interaction.TargetNode, interaction.TargetEdge, interaction.TargetCanvas:
	default:
		h.writeError(w, http.StatusBadRequest, "validation_failed", "kind must be node, edge or canvas", nil)
		return
	}

	layer := sess.Interactor(capability, interaction.Hooks{})
	items := layer.OpenMenu(interaction.Target{Kind: kind, ID: r.URL.Query().Get("id")})
	layer.Dismiss()

	if items == nil {
		items = []interaction.MenuItem{}
	}
	h.writeJSON(w, http.StatusOK, menuResponse{Items: items})
}
