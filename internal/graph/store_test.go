package graph

import (
	"reflect"
	"testing"

	"topomap/engine-go/internal/model"
)

func device(id string) model.Device {
	return model.Device{
		ID:     id,
		MapID:  "map-1",
		Name:   "Device " + id,
		Type:   model.TypeRouter,
		Status: model.StatusOnline,
	}
}

func edge(id, src, dst string) model.Edge {
	return model.Edge{ID: id, MapID: "map-1", SourceID: src, TargetID: dst, ConnectionType: model.ConnCat5}
}

func TestUpsertAndGetNode(t *testing.T) {
	s := NewStore()
	s.UpsertNode(device("d1"))

	got, ok := s.GetNode("d1")
	if !ok {
		t.Fatal("node not found")
	}
	if got.Name != "Device d1" {
		t.Fatalf("name = %q", got.Name)
	}

	// The returned value is a copy; mutating it must not leak into the store.
	got.Name = "mutated"
	again, _ := s.GetNode("d1")
	if again.Name != "Device d1" {
		t.Fatal("GetNode returned shared state")
	}
}

func TestUpsertNodeNormalizes(t *testing.T) {
	s := NewStore()
	d := device("d1")
	d.Status = "BOGUS"
	s.UpsertNode(d)

	got, _ := s.GetNode("d1")
	if got.Status != model.StatusUnknown {
		t.Fatalf("status = %q, want unknown", got.Status)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := NewStore()
	s.UpsertNode(device("d1"))
	s.RemoveNode("d1")
	s.RemoveNode("d1")
	s.RemoveNode("never-existed")
	s.RemoveEdge("never-existed")

	if _, ok := s.GetNode("d1"); ok {
		t.Fatal("node still present")
	}
}

func TestAllNodesSorted(t *testing.T) {
	s := NewStore()
	s.UpsertNode(device("d3"))
	s.UpsertNode(device("d1"))
	s.UpsertNode(device("d2"))

	nodes := s.AllNodes()
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes", len(nodes))
	}
	for i, want := range []string{"d1", "d2", "d3"} {
		if nodes[i].ID != want {
			t.Fatalf("nodes[%d].ID = %q, want %q", i, nodes[i].ID, want)
		}
	}
}

func TestReplaceAllIsAuthoritative(t *testing.T) {
	s := NewStore()
	s.UpsertNode(device("d1"))
	s.UpsertNode(device("d2"))
	s.UpsertEdge(edge("e1", "d1", "d2"))

	// d1 updated, d2 dropped, d3 added.
	updated := device("d1")
	updated.Status = model.StatusOffline
	s.ReplaceAll([]model.Device{updated, device("d3")}, nil)

	if _, ok := s.GetNode("d2"); ok {
		t.Fatal("d2 survived a refresh that omitted it")
	}
	if _, ok := s.GetNode("d3"); !ok {
		t.Fatal("d3 missing")
	}
	got, _ := s.GetNode("d1")
	if got.Status != model.StatusOffline {
		t.Fatalf("d1 status = %q, want offline", got.Status)
	}
	if _, ok := s.GetEdge("e1"); ok {
		t.Fatal("e1 survived a refresh that omitted it")
	}
}

func TestReplaceAllEmptySetClears(t *testing.T) {
	s := NewStore()
	s.UpsertNode(device("d1"))
	s.UpsertEdge(edge("e1", "d1", "d1"))

	// An empty canonical answer means the map really is empty.
	s.ReplaceAll(nil, nil)

	if n := len(s.AllNodes()); n != 0 {
		t.Fatalf("%d nodes left after empty refresh", n)
	}
	if n := len(s.AllEdges()); n != 0 {
		t.Fatalf("%d edges left after empty refresh", n)
	}
}

func TestUpdateNodeTargeted(t *testing.T) {
	s := NewStore()
	s.UpsertNode(device("d1"))

	ok := s.UpdateNode("d1", func(d *model.Device) {
		d.Status = model.StatusOffline
	})
	if !ok {
		t.Fatal("UpdateNode returned false for present node")
	}
	got, _ := s.GetNode("d1")
	if got.Status != model.StatusOffline {
		t.Fatalf("status = %q", got.Status)
	}

	if s.UpdateNode("ghost", func(d *model.Device) {}) {
		t.Fatal("UpdateNode returned true for absent node")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := NewStore()
	s.UpsertNode(device("d1"))
	s.UpsertNode(device("d2"))
	s.UpsertEdge(edge("e1", "d1", "d2"))
	before := s.Snapshot()

	s.RemoveNode("d1")
	s.RemoveEdge("e1")
	s.UpsertNode(device("d9"))

	s.Restore(before)
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatal("restore did not reproduce the snapshot exactly")
	}
}
