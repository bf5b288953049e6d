// Package graph holds the in-memory node/edge state for one topology map.
//
// The store is the single source of truth for what the view renders. It is
// written from two directions: optimistic mutations and canonical refreshes.
// A canonical refresh is authoritative, including the empty set; a refresh
// that fails must simply not call ReplaceAll.
package graph

import (
	"sort"
	"sync"

	"topomap/engine-go/internal/model"
)

// Store is safe for concurrent use. Devices and edges are mutated in place
// where possible so render identity survives refreshes.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*model.Device
	edges map[string]*model.Edge
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		nodes: make(map[string]*model.Device),
		edges: make(map[string]*model.Edge),
	}
}

// UpsertNode inserts or replaces a node. The stored copy is normalized so the
// closed-enum invariants hold no matter what the caller passed in.
func (s *Store) UpsertNode(d model.Device) {
	d.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.nodes[d.ID]; ok {
		*existing = *d.Clone()
		return
	}
	s.nodes[d.ID] = d.Clone()
}

// RemoveNode deletes a node. Removing an absent id is a no-op.
func (s *Store) RemoveNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
}

// UpsertEdge inserts or replaces an edge.
func (s *Store) UpsertEdge(e model.Edge) {
	e.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.edges[e.ID]; ok {
		*existing = *e.Clone()
		return
	}
	s.edges[e.ID] = e.Clone()
}

// RemoveEdge deletes an edge. Removing an absent id is a no-op.
func (s *Store) RemoveEdge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges, id)
}

// GetNode returns a copy of the node, or false when absent.
func (s *Store) GetNode(id string) (model.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.nodes[id]
	if !ok {
		return model.Device{}, false
	}
	return *d.Clone(), true
}

// GetEdge returns a copy of the edge, or false when absent.
func (s *Store) GetEdge(id string) (model.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.edges[id]
	if !ok {
		return model.Edge{}, false
	}
	return *e.Clone(), true
}

// AllNodes returns copies of every node, ordered by id for stable output.
func (s *Store) AllNodes() []model.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Device, 0, len(s.nodes))
	for _, d := range s.nodes {
		out = append(out, *d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllEdges returns copies of every edge, ordered by id.
func (s *Store) AllEdges() []model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, *e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ReplaceAll swaps in a canonical node/edge set. Entries that already exist
// keep their allocation and are updated in place; anything missing from the
// new set is dropped, including the case where the new set is empty.
func (s *Store) ReplaceAll(nodes []model.Device, edges []model.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seenNodes := make(map[string]struct{}, len(nodes))
	for i := range nodes {
		d := nodes[i]
		d.Normalize()
		seenNodes[d.ID] = struct{}{}
		if existing, ok := s.nodes[d.ID]; ok {
			*existing = *d.Clone()
		} else {
			s.nodes[d.ID] = d.Clone()
		}
	}
	for id := range s.nodes {
		if _, ok := seenNodes[id]; !ok {
			delete(s.nodes, id)
		}
	}

	seenEdges := make(map[string]struct{}, len(edges))
	for i := range edges {
		e := edges[i]
		e.Normalize()
		seenEdges[e.ID] = struct{}{}
		if existing, ok := s.edges[e.ID]; ok {
			*existing = *e.Clone()
		} else {
			s.edges[e.ID] = e.Clone()
		}
	}
	for id := range s.edges {
		if _, ok := seenEdges[id]; !ok {
			delete(s.edges, id)
		}
	}
}

// UpdateNode applies fn to the stored node under the write lock. Returns
// false when the node is absent. Used for targeted status/latency updates so
// a single ping does not disturb the rest of the entry.
func (s *Store) UpdateNode(id string, fn func(*model.Device)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.nodes[id]
	if !ok {
		return false
	}
	fn(d)
	d.Normalize()
	return true
}

// Snapshot captures the full store state for later restore.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Nodes: s.AllNodes(), Edges: s.AllEdges()}
}

// Restore rewinds the store to a previously captured snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.ReplaceAll(snap.Nodes, snap.Edges)
}

// Snapshot is an immutable copy of store contents, taken before an optimistic
// mutation so a failed backend call can rewind exactly.
type Snapshot struct {
	Nodes []model.Device
	Edges []model.Edge
}
