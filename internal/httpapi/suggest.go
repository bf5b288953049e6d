package httpapi

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/rs/zerolog"

	"topomap/engine-go/internal/enrichment/names"
	"topomap/engine-go/internal/enrichment/snmp"
	"topomap/engine-go/internal/model"
)

// SuggestService probes an address to prefill the add-device form: SNMP
// for a type guess and sysName, reverse DNS for name candidates. Both
// probes are best effort; a dead probe just leaves its fields empty.
type SuggestService struct {
	log   zerolog.Logger
	snmp  *snmp.Client
	names *names.Resolver
}

func NewSuggestService(log zerolog.Logger, sc *snmp.Client, nr *names.Resolver) *SuggestService {
	return &SuggestService{log: log, snmp: sc, names: nr}
}

type suggestResponse struct {
	IP    string           `json:"ip"`
	Type  model.DeviceType `json:"type"`
	Names []string         `json:"names"`
}

func (s *SuggestService) Probe(ctx context.Context, addr string) suggestResponse {
	out := suggestResponse{IP: addr, Type: model.TypeServer, Names: []string{}}

	if s.snmp != nil {
		if sug, err := s.snmp.Suggest(ctx, addr); err == nil {
			out.Type = sug.Type
			if sug.Name != nil {
				out.Names = append(out.Names, *sug.Name)
			}
		} else {
			s.log.Debug().Err(err).Str("ip", addr).Msg("snmp probe failed")
		}
	}

	if s.names != nil {
		if candidates, err := s.names.LookupAddr(ctx, addr); err == nil {
			out.Names = append(out.Names, candidates...)
		} else {
			s.log.Debug().Err(err).Str("ip", addr).Msg("reverse dns probe failed")
		}
	}

	return out
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ip")
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "ip must be a valid address", map[string]any{"ip": raw})
		return
	}

	if h.suggest == nil {
		h.writeError(w, http.StatusServiceUnavailable, "probe_unavailable", "suggestion probes not configured", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, h.suggest.Probe(r.Context(), addr.String()))
}
