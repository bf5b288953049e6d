// Package mutation executes user-initiated graph edits against the upstream
// store using an optimistic protocol: apply locally, issue the call, then
// reconcile with the canonical response or rewind to the pre-mutation
// snapshot. The visible graph is never left in a state the store disagreed
// with.
package mutation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"topomap/engine-go/internal/backend"
	"topomap/engine-go/internal/graph"
	"topomap/engine-go/internal/metrics"
	"topomap/engine-go/internal/model"
)

var (
	// ErrReadOnly is returned when the caller lacks mutation capability.
	// Gating is enforced here as well as at the UI affordance level, since
	// context menus and shortcuts can bypass disabled controls.
	ErrReadOnly = errors.New("mutation: capability does not allow edits")

	// ErrInvalid wraps precondition failures detected before any optimistic
	// change or network call.
	ErrInvalid = errors.New("mutation: invalid input")
)

const duplicateOffset = 50.0

// Controller owns the edit path for one map. Capability is injected at
// construction; a fresh controller per caller is cheap.
type Controller struct {
	log     zerolog.Logger
	store   *graph.Store
	client  backend.Client
	cap     model.Capability
	metrics *metrics.Metrics
	mapID   string
}

// NewController builds a controller bound to one map and one capability.
func NewController(log zerolog.Logger, store *graph.Store, client backend.Client, cap model.Capability, m *metrics.Metrics, mapID string) *Controller {
	return &Controller{
		log:     log.With().Str("map_id", mapID).Logger(),
		store:   store,
		client:  client,
		cap:     cap,
		metrics: m,
		mapID:   mapID,
	}
}

func (c *Controller) guard(op string) error {
	if !c.cap.CanMutate() {
		c.metrics.IncMutation(op, "rejected")
		return ErrReadOnly
	}
	return nil
}

func (c *Controller) reject(op string, format string, args ...any) error {
	c.metrics.IncMutation(op, "rejected")
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func (c *Controller) rollback(op string, snap graph.Snapshot, err error) error {
	c.store.Restore(snap)
	c.metrics.IncMutation(op, "rolled_back")
	c.log.Warn().Err(err).Str("op", op).Msg("mutation rolled back")
	return err
}

func (c *Controller) confirm(op string) {
	c.metrics.IncMutation(op, "confirmed")
}

// CreateDevice adds a new device. The optimistic node carries a temporary
// client-side id until the store returns the canonical entity.
func (c *Controller) CreateDevice(ctx context.Context, d model.Device) (model.Device, error) {
	const op = "create_device"
	if err := c.guard(op); err != nil {
		return model.Device{}, err
	}

	d.ID = ""
	d.MapID = c.mapID
	d.Normalize()
	if err := d.Validate(); err != nil {
		return model.Device{}, c.reject(op, "%v", err)
	}

	snap := c.store.Snapshot()
	tmp := d
	tmp.ID = tempID()
	c.store.UpsertNode(tmp)

	created, err := c.client.CreateDevice(ctx, d)
	if err != nil {
		return model.Device{}, c.rollback(op, snap, err)
	}

	c.store.RemoveNode(tmp.ID)
	created.Normalize()
	c.store.UpsertNode(created)
	c.confirm(op)
	return created, nil
}

// MoveDevice sets a device's position. Callers fire this on drag-end, not on
// every intermediate frame.
func (c *Controller) MoveDevice(ctx context.Context, id string, pos model.Position) error {
	const op = "move_device"
	if err := c.guard(op); err != nil {
		return err
	}
	if _, ok := c.store.GetNode(id); !ok {
		return c.reject(op, "unknown device %s", id)
	}

	snap := c.store.Snapshot()
	c.store.UpdateNode(id, func(d *model.Device) { d.Position = pos })

	updated, err := c.client.UpdateDevice(ctx, id, backend.DevicePatch{Position: &pos})
	if err != nil {
		return c.rollback(op, snap, err)
	}

	updated.Normalize()
	c.store.UpsertNode(updated)
	c.confirm(op)
	return nil
}

// DeleteDevice removes a device. Confirmation is the caller layer's job;
// upstream cascade of dangling edges is the store's. Locally the incident
// edges are dropped too so the optimistic view stays consistent.
func (c *Controller) DeleteDevice(ctx context.Context, id string) error {
	const op = "delete_device"
	if err := c.guard(op); err != nil {
		return err
	}
	if _, ok := c.store.GetNode(id); !ok {
		return c.reject(op, "unknown device %s", id)
	}

	snap := c.store.Snapshot()
	for _, e := range c.store.AllEdges() {
		if e.SourceID == id || e.TargetID == id {
			c.store.RemoveEdge(e.ID)
		}
	}
	c.store.RemoveNode(id)

	if err := c.client.DeleteDevice(ctx, id); err != nil {
		return c.rollback(op, snap, err)
	}
	c.confirm(op)
	return nil
}

// DuplicateDevice copies a device: same map, type, variant, icon and
// thresholds, offset position, "Copy of" name. Identity, timestamps,
// live-status fields and the IP are not carried over; a duplicate with the
// source's IP would collide on reachability checks.
func (c *Controller) DuplicateDevice(ctx context.Context, id string) (model.Device, error) {
	const op = "duplicate_device"
	if err := c.guard(op); err != nil {
		return model.Device{}, err
	}
	src, ok := c.store.GetNode(id)
	if !ok {
		return model.Device{}, c.reject(op, "unknown device %s", id)
	}

	dup := *src.Clone()
	dup.ID = ""
	dup.Name = "Copy of " + src.Name
	dup.Position = model.Position{X: src.Position.X + duplicateOffset, Y: src.Position.Y + duplicateOffset}
	dup.IPAddress = ""
	dup.Status = model.StatusUnknown
	dup.LastSeen = nil
	dup.LastAvgLatency = nil
	dup.LastTTL = nil
	dup.LastPacketLoss = nil

	snap := c.store.Snapshot()
	tmp := dup
	tmp.ID = tempID()
	c.store.UpsertNode(tmp)

	created, err := c.client.CreateDevice(ctx, dup)
	if err != nil {
		return model.Device{}, c.rollback(op, snap, err)
	}

	c.store.RemoveNode(tmp.ID)
	created.Normalize()
	c.store.UpsertNode(created)
	c.confirm(op)
	return created, nil
}

// SetDeviceAppearance changes type+variant or the custom icon URL in one
// atomic call.
func (c *Controller) SetDeviceAppearance(ctx context.Context, id string, t model.DeviceType, variant int, iconURL string) error {
	const op = "retype_device"
	if err := c.guard(op); err != nil {
		return err
	}
	if _, ok := c.store.GetNode(id); !ok {
		return c.reject(op, "unknown device %s", id)
	}
	if variant < 0 {
		return c.reject(op, "variant must not be negative")
	}
	if iconURL == "" && !model.IsKnownType(t) {
		return c.reject(op, "unknown device type %q", t)
	}

	snap := c.store.Snapshot()
	c.store.UpdateNode(id, func(d *model.Device) {
		d.Type = t
		d.Variant = variant
		d.IconURL = iconURL
	})

	updated, err := c.client.UpdateDevice(ctx, id, backend.DevicePatch{
		Type:    &t,
		Variant: &variant,
		IconURL: &iconURL,
	})
	if err != nil {
		return c.rollback(op, snap, err)
	}

	updated.Normalize()
	c.store.UpsertNode(updated)
	c.confirm(op)
	return nil
}

// ConnectDevices creates an edge between two existing, distinct devices.
// An empty connection type defaults to cat5.
func (c *Controller) ConnectDevices(ctx context.Context, sourceID, targetID string, ct model.ConnectionType) (model.Edge, error) {
	const op = "create_edge"
	if err := c.guard(op); err != nil {
		return model.Edge{}, err
	}
	if sourceID == targetID {
		return model.Edge{}, c.reject(op, "cannot connect a device to itself")
	}
	if _, ok := c.store.GetNode(sourceID); !ok {
		return model.Edge{}, c.reject(op, "unknown source device %s", sourceID)
	}
	if _, ok := c.store.GetNode(targetID); !ok {
		return model.Edge{}, c.reject(op, "unknown target device %s", targetID)
	}

	e := model.Edge{
		MapID:          c.mapID,
		SourceID:       sourceID,
		TargetID:       targetID,
		ConnectionType: model.NormalizeConnectionType(string(ct)),
	}

	snap := c.store.Snapshot()
	tmp := e
	tmp.ID = tempID()
	c.store.UpsertEdge(tmp)

	created, err := c.client.CreateEdge(ctx, e)
	if err != nil {
		return model.Edge{}, c.rollback(op, snap, err)
	}

	c.store.RemoveEdge(tmp.ID)
	created.Normalize()
	c.store.UpsertEdge(created)
	c.confirm(op)
	return created, nil
}

// SetEdgeType changes an edge's connection type.
func (c *Controller) SetEdgeType(ctx context.Context, id string, ct model.ConnectionType) error {
	const op = "update_edge"
	if err := c.guard(op); err != nil {
		return err
	}
	if _, ok := c.store.GetEdge(id); !ok {
		return c.reject(op, "unknown edge %s", id)
	}
	ct = model.NormalizeConnectionType(string(ct))

	snap := c.store.Snapshot()
	c.store.UpsertEdge(func() model.Edge {
		e, _ := c.store.GetEdge(id)
		e.ConnectionType = ct
		return e
	}())

	updated, err := c.client.UpdateEdge(ctx, id, ct)
	if err != nil {
		return c.rollback(op, snap, err)
	}

	updated.Normalize()
	c.store.UpsertEdge(updated)
	c.confirm(op)
	return nil
}

// DeleteEdge removes an edge.
func (c *Controller) DeleteEdge(ctx context.Context, id string) error {
	const op = "delete_edge"
	if err := c.guard(op); err != nil {
		return err
	}
	if _, ok := c.store.GetEdge(id); !ok {
		return c.reject(op, "unknown edge %s", id)
	}

	snap := c.store.Snapshot()
	c.store.RemoveEdge(id)

	if err := c.client.DeleteEdge(ctx, id); err != nil {
		return c.rollback(op, snap, err)
	}
	c.confirm(op)
	return nil
}

// tempID marks an optimistic entity awaiting its canonical id. Two in-flight
// creates on the same map must not collide, hence the uuid.
func tempID() string {
	return "tmp-" + uuid.NewString()
}
