package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"topomap/engine-go/internal/backend"
	"topomap/engine-go/internal/model"
	"topomap/engine-go/internal/mutation"
)

// writeMutationError maps mutation-layer failures onto the error envelope.
// Upstream rejections arrive here after the optimistic change was already
// rolled back, so a 502 leaves the caller's view consistent.
func (h *Handler) writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mutation.ErrReadOnly):
		h.writeError(w, http.StatusForbidden, "read_only", "caller may not modify this map", nil)
	case errors.Is(err, mutation.ErrInvalid):
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
	case errors.Is(err, backend.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "entity not found upstream", nil)
	default:
		h.writeError(w, http.StatusBadGateway, "upstream_error", "upstream store rejected the change", map[string]any{"error": err.Error()})
	}
}

type deviceCreate struct {
	Name     string         `json:"name"`
	Position model.Position `json:"position"`
	Type     string         `json:"type,omitempty"`
	Variant  int            `json:"variant,omitempty"`
	IPAddr   string         `json:"ip_address,omitempty"`
}

func (h *Handler) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceCreate
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	d := model.Device{
		MapID:     sess.MapID,
		Name:      req.Name,
		Position:  req.Position,
		Type:      model.DeviceType(req.Type),
		Variant:   req.Variant,
		IPAddress: req.IPAddr,
		Status:    model.StatusUnknown,
	}

	created, err := sess.Mutator(capabilityFrom(r)).CreateDevice(r.Context(), d)
	if err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

type devicePosition struct {
	Position model.Position `json:"position"`
}

func (h *Handler) handleMoveDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deviceID")
	var req devicePosition
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := sess.Mutator(capabilityFrom(r)).MoveDevice(r.Context(), id, req.Position); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deviceID")
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := sess.Mutator(capabilityFrom(r)).DeleteDevice(r.Context(), id); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleDuplicateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deviceID")
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	copied, err := sess.Mutator(capabilityFrom(r)).DuplicateDevice(r.Context(), id)
	if err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, copied)
}

type deviceAppearance struct {
	Type    string `json:"type"`
	Variant int    `json:"variant"`
	IconURL string `json:"icon_url,omitempty"`
}

func (h *Handler) handleSetAppearance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deviceID")
	var req deviceAppearance
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	err := sess.Mutator(capabilityFrom(r)).SetDeviceAppearance(r.Context(), id, model.DeviceType(req.Type), req.Variant, req.IconURL)
	if err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type edgeCreate struct {
	SourceID       string `json:"source_id"`
	TargetID       string `json:"target_id"`
	ConnectionType string `json:"connection_type,omitempty"`
}

func (h *Handler) handleConnectDevices(w http.ResponseWriter, r *http.Request) {
	var req edgeCreate
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	ct := model.NormalizeConnectionType(req.ConnectionType)
	created, err := sess.Mutator(capabilityFrom(r)).ConnectDevices(r.Context(), req.SourceID, req.TargetID, ct)
	if err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

type edgeType struct {
	ConnectionType string `json:"connection_type"`
}

func (h *Handler) handleSetEdgeType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "edgeID")
	var req edgeType
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	ct := model.NormalizeConnectionType(req.ConnectionType)
	if err := sess.Mutator(capabilityFrom(r)).SetEdgeType(r.Context(), id, ct); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "edgeID")
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := sess.Mutator(capabilityFrom(r)).DeleteEdge(r.Context(), id); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleRefresh forces an immediate full refresh outside the interval.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := sess.Poll.RefreshOnce(r.Context()); err != nil {
		h.writeError(w, http.StatusBadGateway, "upstream_error", "refresh failed; previous data retained", map[string]any{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handlePingDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deviceID")
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if !capabilityFrom(r).CanPing() {
		h.writeError(w, http.StatusForbidden, "read_only", "public views may not trigger checks", nil)
		return
	}

	res, err := sess.Poll.PingOne(r.Context(), id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "device not found", map[string]any{"id": id})
			return
		}
		h.writeError(w, http.StatusBadGateway, "upstream_error", "ping failed; status unchanged", map[string]any{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}
