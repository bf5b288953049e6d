package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"topomap/engine-go/internal/metrics"
	"topomap/engine-go/internal/model"
)

type Handler struct {
	log      zerolog.Logger
	sessions *SessionManager
	suggest  *SuggestService
	metrics  *metrics.Metrics
}

func NewHandler(log zerolog.Logger, sessions *SessionManager, suggest *SuggestService, m *metrics.Metrics) *Handler {
	return &Handler{log: log, sessions: sessions, suggest: suggest, metrics: m}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Get("/suggest", h.handleSuggest)

			r.Route("/maps/{mapID}", func(r chi.Router) {
				r.Get("/view", h.handleMapView)
				r.Get("/menu", h.handleMenu)
				r.Post("/refresh", h.handleRefresh)

				r.Route("/devices", func(r chi.Router) {
					r.Post("/", h.handleCreateDevice)
					r.Route("/{deviceID}", func(r chi.Router) {
						r.Delete("/", h.handleDeleteDevice)
						r.Patch("/position", h.handleMoveDevice)
						r.Post("/duplicate", h.handleDuplicateDevice)
						r.Put("/appearance", h.handleSetAppearance)
						r.Post("/ping", h.handlePingDevice)
					})
				})

				r.Route("/edges", func(r chi.Router) {
					r.Post("/", h.handleConnectDevices)
					r.Route("/{edgeID}", func(r chi.Router) {
						r.Delete("/", h.handleDeleteEdge)
						r.Put("/type", h.handleSetEdgeType)
					})
				})
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

// capabilityFrom derives the caller's capability from request headers. The
// engine trusts the fronting proxy to have authenticated the caller and to
// set X-Role; X-Public-View marks requests arriving through a shared
// read-only map link.
func capabilityFrom(r *http.Request) model.Capability {
	role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Role")))
	public := strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Public-View")), "true")
	return model.Capability{
		Admin:      role == "admin",
		PublicView: public,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		h.writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "upstream store not configured", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "open_maps": h.sessions.Len()})
}

// session resolves the map session for the request, writing the error
// response itself on failure.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	mapID := chi.URLParam(r, "mapID")
	sess, err := h.sessions.Get(r.Context(), mapID)
	if err != nil {
		if errors.Is(err, ErrMapNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "map not found", map[string]any{"id": mapID})
			return nil, false
		}
		h.log.Error().Err(err).Str("map_id", mapID).Msg("open map session failed")
		h.writeError(w, http.StatusBadGateway, "upstream_error", "failed to open map", nil)
		return nil, false
	}
	return sess, true
}
