package style

import (
	"reflect"
	"testing"

	"topomap/engine-go/internal/model"
)

func f(v float64) *float64 { return &v }

func onlineDevice(id string) *model.Device {
	return &model.Device{ID: id, Status: model.StatusOnline}
}

func TestForEdgeByConnectionType(t *testing.T) {
	src, dst := onlineDevice("a"), onlineDevice("b")
	cases := []struct {
		ct       model.ConnectionType
		color    string
		dash     []int
		animated bool
	}{
		{model.ConnCat5, "#8b5cf6", nil, true},
		{model.ConnFiber, "#f97316", nil, true},
		{model.ConnWifi, "#0ea5e9", []int{6, 3}, true},
		{model.ConnRadio, "#84cc16", []int{2, 6}, true},
	}
	for _, tc := range cases {
		e := &model.Edge{ID: "e", SourceID: "a", TargetID: "b", ConnectionType: tc.ct}
		got := ForEdge(e, src, dst)
		if got.Color != tc.color || got.Animated != tc.animated || !reflect.DeepEqual(got.Dash, tc.dash) {
			t.Errorf("%s: got %+v", tc.ct, got)
		}
		if got.Label != string(tc.ct) {
			t.Errorf("%s: label = %q", tc.ct, got.Label)
		}
	}
}

func TestForEdgeBrokenWhenEndpointOffline(t *testing.T) {
	e := &model.Edge{ID: "e", SourceID: "a", TargetID: "b", ConnectionType: model.ConnFiber}
	offline := &model.Device{ID: "b", Status: model.StatusOffline}

	got := ForEdge(e, onlineDevice("a"), offline)
	if got.Color != brokenColor {
		t.Fatalf("color = %q, want broken", got.Color)
	}
	if got.Animated {
		t.Fatal("broken edge must not animate")
	}
	if got.Dash != nil {
		t.Fatalf("dash = %v, want none", got.Dash)
	}
	if got.Label != "fiber" {
		t.Fatalf("label = %q, connection label must survive breakage", got.Label)
	}
}

func TestForEdgeMissingEndpointIsBroken(t *testing.T) {
	e := &model.Edge{ID: "e", SourceID: "a", TargetID: "ghost", ConnectionType: model.ConnCat5}
	got := ForEdge(e, onlineDevice("a"), nil)
	if got.Color != brokenColor {
		t.Fatalf("dangling edge color = %q, want broken", got.Color)
	}
}

func TestForEdgeIsPure(t *testing.T) {
	e := &model.Edge{ID: "e", SourceID: "a", TargetID: "b", ConnectionType: model.ConnWifi}
	src, dst := onlineDevice("a"), onlineDevice("b")
	first := ForEdge(e, src, dst)
	second := ForEdge(e, src, dst)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same inputs produced different styles")
	}
}

func TestForNodeDecorationPrecedence(t *testing.T) {
	cases := []struct {
		name string
		d    model.Device
		want Decoration
	}{
		{
			name: "no thresholds",
			d:    model.Device{LastAvgLatency: f(500)},
			want: Decoration{},
		},
		{
			name: "no measurements",
			d:    model.Device{WarnLatencyMs: f(50), CritLatencyMs: f(100)},
			want: Decoration{},
		},
		{
			name: "warning latency",
			d:    model.Device{LastAvgLatency: f(60), WarnLatencyMs: f(50), CritLatencyMs: f(100)},
			want: Decoration{Ring: "warning", Badge: "latency"},
		},
		{
			name: "critical latency beats warning",
			d:    model.Device{LastAvgLatency: f(150), WarnLatencyMs: f(50), CritLatencyMs: f(100)},
			want: Decoration{Ring: "critical", Badge: "latency"},
		},
		{
			name: "critical loss beats warning latency",
			d: model.Device{
				LastAvgLatency: f(60), WarnLatencyMs: f(50),
				LastPacketLoss: f(20), CritLossPct: f(10),
			},
			want: Decoration{Ring: "critical", Badge: "loss"},
		},
		{
			name: "warning loss",
			d:    model.Device{LastPacketLoss: f(6), WarnLossPct: f(5)},
			want: Decoration{Ring: "warning", Badge: "loss"},
		},
		{
			name: "threshold boundary is inclusive",
			d:    model.Device{LastAvgLatency: f(50), WarnLatencyMs: f(50)},
			want: Decoration{Ring: "warning", Badge: "latency"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ForNode(&tc.d); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
