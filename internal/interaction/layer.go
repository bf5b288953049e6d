// Package interaction binds pointer gestures to graph operations: drag moves,
// right-click context menus, double-click editing, node-to-node connects.
// The menu is data, not markup: a table of actions filtered by capability
// and target, handed to the host UI to render.
package interaction

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"topomap/engine-go/internal/graph"
	"topomap/engine-go/internal/model"
	"topomap/engine-go/internal/mutation"
	"topomap/engine-go/internal/poller"
)

// Mode is the interaction state machine's current state.
type Mode int

const (
	ModeViewing Mode = iota
	ModeDragging
	ModeContextMenu
)

// TargetKind is what was right-clicked.
type TargetKind string

const (
	TargetNode   TargetKind = "node"
	TargetEdge   TargetKind = "edge"
	TargetCanvas TargetKind = "canvas"
)

// Target identifies the subject of a context menu.
type Target struct {
	Kind TargetKind
	ID   string // empty for canvas
}

// ActionID names a context-menu action.
type ActionID string

const (
	ActionEdit        ActionID = "edit"
	ActionAppearance  ActionID = "appearance"
	ActionCopy        ActionID = "copy"
	ActionPing        ActionID = "ping"
	ActionDelete      ActionID = "delete"
	ActionViewDetails ActionID = "view_details"
	ActionEdgeType    ActionID = "edge_type"
	ActionEdgeDelete  ActionID = "edge_delete"
	ActionAddDevice   ActionID = "add_device"
)

// MenuItem is one entry the host UI renders.
type MenuItem struct {
	Label  string   `json:"label"`
	Action ActionID `json:"action"`
}

// menuEntry is the role/action table: visibility is data-driven, no
// hand-built markup anywhere.
type menuEntry struct {
	label     string
	action    ActionID
	kind      TargetKind
	visibleIf func(c model.Capability, node *model.Device) bool
}

func mutator(c model.Capability, _ *model.Device) bool { return c.CanMutate() }

var menuTable = []menuEntry{
	{label: "Edit", action: ActionEdit, kind: TargetNode, visibleIf: mutator},
	{label: "Change icon", action: ActionAppearance, kind: TargetNode, visibleIf: mutator},
	{label: "Duplicate", action: ActionCopy, kind: TargetNode, visibleIf: mutator},
	{label: "Check status", action: ActionPing, kind: TargetNode, visibleIf: func(c model.Capability, n *model.Device) bool {
		return c.CanPing() && n != nil && n.IPAddress != ""
	}},
	{label: "Delete", action: ActionDelete, kind: TargetNode, visibleIf: mutator},
	{label: "View details", action: ActionViewDetails, kind: TargetNode, visibleIf: func(c model.Capability, _ *model.Device) bool {
		return !c.CanMutate() && !c.PublicView
	}},
	{label: "Connection type", action: ActionEdgeType, kind: TargetEdge, visibleIf: mutator},
	{label: "Delete link", action: ActionEdgeDelete, kind: TargetEdge, visibleIf: mutator},
	{label: "Add device", action: ActionAddDevice, kind: TargetCanvas, visibleIf: mutator},
}

// Hooks are the callbacks the host page wires into forms and navigation.
// Nil hooks are skipped.
type Hooks struct {
	OnEdit         func(deviceID string)
	OnViewDetails  func(deviceID string)
	OnStatusChange func(deviceID string, status model.DeviceStatus)

	// ConfirmDelete is consulted before any destructive action. A nil hook
	// confirms implicitly; a false return aborts without touching the graph.
	ConfirmDelete func(kind TargetKind, id string) bool
}

// Layer is the interaction state machine for one map view.
type Layer struct {
	log    zerolog.Logger
	store  *graph.Store
	mutate *mutation.Controller
	poll   *poller.Poller
	cap    model.Capability
	hooks  Hooks

	mu        sync.Mutex
	mode      Mode
	dragID    string
	dragStart model.Position
	menu      Target
}

// ErrBadState is returned when a gesture arrives in the wrong mode, e.g. a
// drop without a drag.
var ErrBadState = errors.New("interaction: gesture not valid in current state")

// New builds a layer. Capability arrives by injection, mirroring the
// controller it dispatches to.
func New(log zerolog.Logger, store *graph.Store, mutate *mutation.Controller, poll *poller.Poller, capability model.Capability, hooks Hooks) *Layer {
	return &Layer{
		log:    log,
		store:  store,
		mutate: mutate,
		poll:   poll,
		cap:    capability,
		hooks:  hooks,
	}
}

// Mode returns the current state.
func (l *Layer) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// BeginDrag starts dragging a node. Viewers cannot drag: the gesture is a
// no-op and the method reports false.
func (l *Layer) BeginDrag(nodeID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mode != ModeViewing || !l.cap.CanMutate() {
		return false
	}
	node, ok := l.store.GetNode(nodeID)
	if !ok {
		return false
	}
	l.mode = ModeDragging
	l.dragID = nodeID
	l.dragStart = node.Position
	return true
}

// EndDrag drops the node at pos and fires the move mutation. Intermediate
// frames never reach the backend; only the final position does.
func (l *Layer) EndDrag(ctx context.Context, pos model.Position) error {
	l.mu.Lock()
	if l.mode != ModeDragging {
		l.mu.Unlock()
		return ErrBadState
	}
	id := l.dragID
	start := l.dragStart
	l.mode = ModeViewing
	l.dragID = ""
	l.mu.Unlock()

	if pos == start {
		return nil
	}
	return l.mutate.MoveDevice(ctx, id, pos)
}

// CancelDrag abandons an in-progress drag without mutating anything.
func (l *Layer) CancelDrag() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mode == ModeDragging {
		l.mode = ModeViewing
		l.dragID = ""
	}
}

// OpenMenu computes the role-appropriate menu for a target. In public view
// the canvas is not interactive: no menu opens and the state stays Viewing.
func (l *Layer) OpenMenu(target Target) []MenuItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mode != ModeViewing || l.cap.PublicView {
		return nil
	}

	var node *model.Device
	if target.Kind == TargetNode {
		if n, ok := l.store.GetNode(target.ID); ok {
			node = &n
		} else {
			return nil
		}
	}
	if target.Kind == TargetEdge {
		if _, ok := l.store.GetEdge(target.ID); !ok {
			return nil
		}
	}

	var items []MenuItem
	for _, e := range menuTable {
		if e.kind != target.Kind {
			continue
		}
		if e.visibleIf(l.cap, node) {
			items = append(items, MenuItem{Label: e.label, Action: e.action})
		}
	}
	if len(items) == 0 {
		return nil
	}

	l.mode = ModeContextMenu
	l.menu = target
	return items
}

// Dismiss closes an open context menu.
func (l *Layer) Dismiss() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mode == ModeContextMenu {
		l.mode = ModeViewing
		l.menu = Target{}
	}
}

// Invoke runs a selected menu action and returns the machine to Viewing.
// Actions not visible for the caller's capability fall through to the
// controller's own gate, so a bypassed menu still cannot mutate.
func (l *Layer) Invoke(ctx context.Context, action ActionID) error {
	l.mu.Lock()
	if l.mode != ModeContextMenu {
		l.mu.Unlock()
		return ErrBadState
	}
	target := l.menu
	l.mode = ModeViewing
	l.menu = Target{}
	l.mu.Unlock()

	switch action {
	case ActionEdit:
		if l.cap.CanMutate() && l.hooks.OnEdit != nil {
			l.hooks.OnEdit(target.ID)
		}
		return nil
	case ActionViewDetails:
		if l.hooks.OnViewDetails != nil {
			l.hooks.OnViewDetails(target.ID)
		}
		return nil
	case ActionCopy:
		_, err := l.mutate.DuplicateDevice(ctx, target.ID)
		return err
	case ActionPing:
		return l.ping(ctx, target.ID)
	case ActionDelete:
		if !l.confirmDelete(TargetNode, target.ID) {
			return nil
		}
		return l.mutate.DeleteDevice(ctx, target.ID)
	case ActionEdgeDelete:
		if !l.confirmDelete(TargetEdge, target.ID) {
			return nil
		}
		return l.mutate.DeleteEdge(ctx, target.ID)
	default:
		// edge_type, appearance and add_device carry parameters; the host
		// collects them in a form and calls the controller directly.
		return nil
	}
}

// DoubleClick opens the edit form for a node, admin only.
func (l *Layer) DoubleClick(nodeID string) {
	if !l.cap.CanMutate() {
		return
	}
	if _, ok := l.store.GetNode(nodeID); !ok {
		return
	}
	if l.hooks.OnEdit != nil {
		l.hooks.OnEdit(nodeID)
	}
}

// Connect handles the drag-from-handle gesture between two nodes. Without
// mutation capability the gesture is a silent no-op, per the affordance
// being hidden in the first place.
func (l *Layer) Connect(ctx context.Context, sourceID, targetID string) error {
	if !l.cap.CanMutate() {
		return nil
	}
	_, err := l.mutate.ConnectDevices(ctx, sourceID, targetID, model.ConnCat5)
	return err
}

// ping re-checks its preconditions: the menu hides the action, but Invoke
// can be driven directly, so the gate lives here too, like the mutation
// entry points.
func (l *Layer) ping(ctx context.Context, deviceID string) error {
	if !l.cap.CanPing() {
		return nil
	}
	before, ok := l.store.GetNode(deviceID)
	if !ok || before.IPAddress == "" {
		return ErrBadState
	}
	if _, err := l.poll.PingOne(ctx, deviceID); err != nil {
		return err
	}
	after, ok := l.store.GetNode(deviceID)
	if ok && after.Status != before.Status {
		l.log.Debug().
			Str("device_id", deviceID).
			Str("status", string(after.Status)).
			Msg("ping changed device status")
		if l.hooks.OnStatusChange != nil {
			l.hooks.OnStatusChange(deviceID, after.Status)
		}
	}
	return nil
}

func (l *Layer) confirmDelete(kind TargetKind, id string) bool {
	if l.hooks.ConfirmDelete == nil {
		return true
	}
	return l.hooks.ConfirmDelete(kind, id)
}
