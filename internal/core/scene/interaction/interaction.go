// Package interaction routes pointer input and player proximity to
// registered scene objects.
//
// Objects declare what they respond to by implementing capability
// interfaces (Clickable, Hoverable, ProximityAware); the capability set is
// computed once at registration, so the per-frame paths never probe types.
package interaction

import (
	"context"
	"time"

	"github.com/nighttide/nighttide/internal/core/events/bus"
	"github.com/nighttide/nighttide/internal/core/gfx"
	"github.com/nighttide/nighttide/internal/core/observability/log"
	"github.com/nighttide/nighttide/internal/core/scene"
	"github.com/nighttide/nighttide/internal/core/spatial"
)

// SystemName identifies the dispatcher in the scene manager.
const SystemName = "interaction"

// Hit describes a resolved raycast intersection.
type Hit struct {
	// Mesh is the mesh the registered interactable owns. When the ray
	// struck a child mesh the ancestor chain has already been resolved.
	Mesh *gfx.Mesh
	// Point is the world-space intersection point.
	Point spatial.Vec3
	// Distance is the ray parameter at the intersection.
	Distance float64
}

// Interactable is the minimal contract every registered object satisfies.
type Interactable interface {
	// ID uniquely names the object within the dispatcher.
	ID() string
	// Mesh returns the object's hit-test mesh. The dispatcher borrows the
	// reference and never disposes it. May be nil for objects that only
	// use proximity callbacks with an explicit origin.
	Mesh() *gfx.Mesh
}

// Clickable objects receive a callback when a click raycast lands on them.
type Clickable interface {
	OnInteract(hit Hit)
}

// Hoverable objects receive enter/leave callbacks as the pointer passes
// over them. Hover raycasts run on every pointer move, so hoverable sets
// should stay small.
type Hoverable interface {
	OnHoverStart(hit Hit)
	OnHoverEnd()
}

// ProximityAware objects receive range callbacks based on player distance.
//
// Key characteristics:
// - Enter/leave are edge-triggered: fired once per boundary crossing.
// - OnWhileInRange fires every proximity poll while inside the radius.
type ProximityAware interface {
	InteractionRadius() float64
	OnEnterRange(distance float64)
	OnLeaveRange()
	OnWhileInRange(distance float64)
}

// Composite exposes additional child meshes that participate in click and
// hover hit testing. A hit on a child resolves to the owning interactable
// by walking the child's parent chain.
type Composite interface {
	HitMeshes() []*gfx.Mesh
}

// PickFn converts pointer device coordinates into a world-space ray.
// The hosting renderer owns the camera unprojection.
type PickFn func(x, y float64) spatial.Ray

// Config controls dispatcher timing.
type Config struct {
	// ProximityInterval throttles proximity polling.
	ProximityInterval time.Duration
	// ClickMaxDuration is the longest press still treated as a click
	// rather than a drag.
	ClickMaxDuration time.Duration
}

// DefaultConfig returns the standard dispatcher timing.
func DefaultConfig() Config {
	return Config{
		ProximityInterval: 100 * time.Millisecond,
		ClickMaxDuration:  200 * time.Millisecond,
	}
}

type entry struct {
	obj       Interactable
	clickable Clickable
	hoverable Hoverable
	proximity ProximityAware
	composite Composite

	enabled bool
	inRange bool
}

// Dispatcher implements scene.System and owns the interactable registry.
type Dispatcher struct {
	cfg    Config
	events bus.EventBus
	logger log.Log

	entries map[string]*entry
	// meshIndex maps every registered hit-test mesh (including child
	// meshes from Composite objects) back to the owning entry id.
	meshIndex map[*gfx.Mesh]string

	sincePoll float64
	pointerAt time.Time
	pointerOn bool
	hoverID   string

	initialized bool
	disposed    bool
}

// New creates a Dispatcher. The event bus and logger may be nil.
func New(cfg Config, events bus.EventBus, logger log.Log) *Dispatcher {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.ProximityInterval <= 0 {
		cfg.ProximityInterval = DefaultConfig().ProximityInterval
	}
	if cfg.ClickMaxDuration <= 0 {
		cfg.ClickMaxDuration = DefaultConfig().ClickMaxDuration
	}
	return &Dispatcher{
		cfg:       cfg,
		events:    events,
		logger:    logger,
		entries:   make(map[string]*entry),
		meshIndex: make(map[*gfx.Mesh]string),
	}
}

func (d *Dispatcher) Name() string { return SystemName }

func (d *Dispatcher) Initialize(context.Context) error {
	if d.initialized {
		return nil
	}
	d.initialized = true
	return nil
}

// Register adds an interactable. The capability set is fixed here: an
// object gains click, hover or proximity behavior by implementing the
// corresponding interface. Duplicate ids are rejected and the first
// registration wins.
func (d *Dispatcher) Register(obj Interactable) {
	if d.disposed {
		d.logger.Error("Register called on disposed dispatcher")
		return
	}
	if obj == nil || obj.ID() == "" {
		d.logger.Warn("ignoring interactable with missing id")
		return
	}
	id := obj.ID()
	if _, exists := d.entries[id]; exists {
		d.logger.Warn("duplicate interactable id, keeping first", log.String("id", id))
		return
	}
	e := &entry{obj: obj, enabled: true}
	e.clickable, _ = obj.(Clickable)
	e.hoverable, _ = obj.(Hoverable)
	e.proximity, _ = obj.(ProximityAware)
	e.composite, _ = obj.(Composite)
	if e.clickable == nil && e.hoverable == nil && e.proximity == nil {
		d.logger.Warn("interactable declares no capabilities", log.String("id", id))
	}
	d.entries[id] = e
	if m := obj.Mesh(); m != nil {
		d.meshIndex[m] = id
	}
	if e.composite != nil {
		for _, m := range e.composite.HitMeshes() {
			if m != nil {
				d.meshIndex[m] = id
			}
		}
	}
}

// Unregister removes an interactable. Unknown ids are ignored.
func (d *Dispatcher) Unregister(id string) {
	e, ok := d.entries[id]
	if !ok {
		return
	}
	if e.inRange && e.proximity != nil {
		e.proximity.OnLeaveRange()
		d.publish(bus.EventLeaveRange, bus.InteractionData{InteractableID: id})
	}
	if d.hoverID == id {
		if e.hoverable != nil {
			e.hoverable.OnHoverEnd()
		}
		d.hoverID = ""
	}
	delete(d.entries, id)
	for m, owner := range d.meshIndex {
		if owner == id {
			delete(d.meshIndex, m)
		}
	}
}

// Clear removes every interactable without firing leave callbacks.
func (d *Dispatcher) Clear() {
	d.entries = make(map[string]*entry)
	d.meshIndex = make(map[*gfx.Mesh]string)
	d.hoverID = ""
}

// SetEnabled toggles whether an interactable participates in dispatch.
// Disabling an in-range proximity object fires its leave edge.
func (d *Dispatcher) SetEnabled(id string, enabled bool) {
	e, ok := d.entries[id]
	if !ok || e.enabled == enabled {
		return
	}
	e.enabled = enabled
	if !enabled && e.inRange {
		e.inRange = false
		if e.proximity != nil {
			e.proximity.OnLeaveRange()
		}
		d.publish(bus.EventLeaveRange, bus.InteractionData{InteractableID: id})
	}
}

// Count returns the number of registered interactables.
func (d *Dispatcher) Count() int { return len(d.entries) }

// Update runs the throttled proximity poll against the frame camera
// position. Frames without a camera are skipped.
func (d *Dispatcher) Update(frame scene.Frame) error {
	if !d.initialized || d.disposed {
		return nil
	}
	d.sincePoll += frame.Delta
	if d.sincePoll < d.cfg.ProximityInterval.Seconds() {
		return nil
	}
	d.sincePoll = 0
	if frame.Camera == nil {
		return nil
	}
	d.pollProximity(frame.Camera.Position)
	return nil
}

func (d *Dispatcher) pollProximity(player spatial.Vec3) {
	for id, e := range d.entries {
		if e.proximity == nil || !e.enabled {
			continue
		}
		dist := d.distanceTo(e, player)
		inside := dist <= e.proximity.InteractionRadius()
		switch {
		case inside && !e.inRange:
			e.inRange = true
			e.proximity.OnEnterRange(dist)
			d.publish(bus.EventEnterRange, bus.InteractionData{InteractableID: id, Distance: dist})
		case !inside && e.inRange:
			e.inRange = false
			e.proximity.OnLeaveRange()
			d.publish(bus.EventLeaveRange, bus.InteractionData{InteractableID: id})
		}
		if inside {
			e.proximity.OnWhileInRange(dist)
		}
	}
}

func (d *Dispatcher) distanceTo(e *entry, player spatial.Vec3) float64 {
	if m := e.obj.Mesh(); m != nil {
		return spatial.Distance(m.Position, player)
	}
	return spatial.Distance(spatial.Vec3{}, player)
}

// PointerDown records the press time used for click-versus-drag detection.
func (d *Dispatcher) PointerDown(x, y float64, at time.Time) {
	if d.disposed {
		return
	}
	d.pointerAt = at
	d.pointerOn = true
}

// PointerUp completes a press. Presses shorter than ClickMaxDuration are
// clicks: the pick ray is cast against every enabled clickable mesh, the
// nearest hit's interactable receives OnInteract, and a miss emits the
// background-click event. Longer presses are drags and are ignored.
func (d *Dispatcher) PointerUp(x, y float64, at time.Time, pick PickFn) {
	if d.disposed || !d.pointerOn {
		return
	}
	d.pointerOn = false
	if at.Sub(d.pointerAt) >= d.cfg.ClickMaxDuration {
		return
	}
	if pick == nil {
		return
	}
	ray := pick(x, y)
	id, hit, ok := d.raycast(ray, func(e *entry) bool { return e.clickable != nil })
	if !ok {
		d.publish(bus.EventBackgroundClick, nil)
		return
	}
	d.entries[id].clickable.OnInteract(hit)
	d.publish(bus.EventInteractionPerformed, bus.InteractionData{
		InteractableID: id,
		Distance:       hit.Distance,
	})
}

// PointerMove raycasts the hoverable set and fires hover edges. Unlike
// proximity polling this runs on every call.
func (d *Dispatcher) PointerMove(x, y float64, pick PickFn) {
	if d.disposed || pick == nil {
		return
	}
	ray := pick(x, y)
	id, hit, ok := d.raycast(ray, func(e *entry) bool { return e.hoverable != nil })
	if ok && id == d.hoverID {
		return
	}
	if d.hoverID != "" {
		if prev, exists := d.entries[d.hoverID]; exists && prev.hoverable != nil {
			prev.hoverable.OnHoverEnd()
		}
		d.hoverID = ""
	}
	if ok {
		d.hoverID = id
		d.entries[id].hoverable.OnHoverStart(hit)
	}
}

// raycast intersects the ray with the bounding spheres of every indexed
// mesh whose owning entry passes the capability filter, returning the
// nearest hit. Child-mesh hits resolve to the owner through the index.
func (d *Dispatcher) raycast(ray spatial.Ray, want func(*entry) bool) (string, Hit, bool) {
	bestID := ""
	best := Hit{Distance: 0}
	found := false
	for m, id := range d.meshIndex {
		e, ok := d.entries[id]
		if !ok || !e.enabled || !want(e) {
			continue
		}
		t, ok := ray.IntersectSphere(m.BoundingSphere())
		if !ok {
			continue
		}
		if found && t >= best.Distance {
			continue
		}
		owner := d.resolveOwner(m)
		if owner == nil {
			owner = m
		}
		bestID = id
		best = Hit{Mesh: owner, Point: ray.At(t), Distance: t}
		found = true
	}
	return bestID, best, found
}

// resolveOwner walks the parent chain until it finds the mesh the
// interactable registered as its own, so callbacks always see the
// top-level mesh even when a child was struck.
func (d *Dispatcher) resolveOwner(m *gfx.Mesh) *gfx.Mesh {
	for cur := m; cur != nil; cur = cur.Parent() {
		id, ok := d.meshIndex[cur]
		if !ok {
			continue
		}
		if e, exists := d.entries[id]; exists && e.obj.Mesh() == cur {
			return cur
		}
	}
	return nil
}

func (d *Dispatcher) publish(eventType string, data any) {
	if d.events == nil {
		return
	}
	if err := d.events.Publish(bus.NewEvent(eventType, SystemName, data)); err != nil {
		d.logger.Warn("interaction event delivery failed",
			log.String("event", eventType), log.Err(err))
	}
}

// Dispose releases the registry. Safe to call multiple times.
func (d *Dispatcher) Dispose() error {
	if d.disposed {
		return nil
	}
	d.disposed = true
	d.entries = nil
	d.meshIndex = nil
	return nil
}
