package httpapi

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"topomap/engine-go/internal/backend"
	"topomap/engine-go/internal/graph"
	"topomap/engine-go/internal/interaction"
	"topomap/engine-go/internal/metrics"
	"topomap/engine-go/internal/model"
	"topomap/engine-go/internal/mutation"
	"topomap/engine-go/internal/poller"
)

// ErrMapNotFound is returned when the upstream store has no such map.
var ErrMapNotFound = errors.New("httpapi: map not found")

// Session is the live server-side state for one open map: the in-memory
// graph plus the refresh loop keeping it current. Mutation and interaction
// surfaces are derived per request because capability is per caller.
type Session struct {
	MapID string
	Map   model.NetworkMap
	Store *graph.Store
	Poll  *poller.Poller

	log    zerolog.Logger
	client backend.Client
	m      *metrics.Metrics
}

// Mutator returns a mutation surface bound to the caller's capability.
func (s *Session) Mutator(capability model.Capability) *mutation.Controller {
	return mutation.NewController(s.log, s.Store, s.client, capability, s.m, s.MapID)
}

// Interactor returns an interaction surface bound to the caller's capability.
func (s *Session) Interactor(capability model.Capability, hooks interaction.Hooks) *interaction.Layer {
	return interaction.New(s.log, s.Store, s.Mutator(capability), s.Poll, capability, hooks)
}

// SessionManager opens map sessions on demand and keeps them alive until
// shutdown. Each session polls with the engine's own identity; auto-poll
// and interval refresh run regardless of who is currently viewing.
type SessionManager struct {
	log     zerolog.Logger
	client  backend.Client
	m       *metrics.Metrics
	opts    poller.Options
	baseCtx context.Context

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(ctx context.Context, log zerolog.Logger, client backend.Client, m *metrics.Metrics, opts poller.Options) *SessionManager {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SessionManager{
		log:      log,
		client:   client,
		m:        m,
		opts:     opts,
		baseCtx:  ctx,
		sessions: make(map[string]*Session),
	}
}

// Len reports the number of open map sessions.
func (sm *SessionManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// Get returns the session for mapID, opening it if needed. Opening
// validates the map against the upstream store and starts its refresh
// loop; the initial fill is attempted inline so the first view is not
// empty when the upstream is healthy.
func (sm *SessionManager) Get(ctx context.Context, mapID string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sess, ok := sm.sessions[mapID]; ok {
		return sess, nil
	}

	info, err := sm.client.GetMap(ctx, mapID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrMapNotFound
		}
		return nil, err
	}

	store := graph.NewStore()
	engineCap := model.Capability{Admin: true}
	poll := poller.New(sm.log, store, sm.client, engineCap, sm.m, mapID, sm.opts)

	sess := &Session{
		MapID:  mapID,
		Map:    info,
		Store:  store,
		Poll:   poll,
		log:    sm.log,
		client: sm.client,
		m:      sm.m,
	}

	if err := poll.RefreshOnce(ctx); err != nil {
		sm.log.Warn().Err(err).Str("map_id", mapID).Msg("initial map refresh failed")
	}
	poll.Start(sm.baseCtx)

	sm.sessions[mapID] = sess
	return sess, nil
}

// Close stops every session's refresh loop.
func (sm *SessionManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, sess := range sm.sessions {
		sess.Poll.Stop()
	}
	sm.sessions = make(map[string]*Session)
}
