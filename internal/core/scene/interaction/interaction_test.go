package interaction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nighttide/nighttide/internal/core/events/bus"
	"github.com/nighttide/nighttide/internal/core/gfx"
	"github.com/nighttide/nighttide/internal/core/scene"
	"github.com/nighttide/nighttide/internal/core/spatial"
)

// stubObject implements Interactable plus whichever capabilities a test
// flips on, recording every callback.
type stubObject struct {
	id   string
	mesh *gfx.Mesh

	radius float64

	interacts   []Hit
	hoverStarts []Hit
	hoverEnds   int
	enters      []float64
	leaves      int
	whileIn     []float64
}

func (s *stubObject) ID() string      { return s.id }
func (s *stubObject) Mesh() *gfx.Mesh { return s.mesh }

type clickStub struct{ stubObject }

func (s *clickStub) OnInteract(hit Hit) { s.interacts = append(s.interacts, hit) }

type hoverStub struct{ stubObject }

func (s *hoverStub) OnHoverStart(hit Hit) { s.hoverStarts = append(s.hoverStarts, hit) }
func (s *hoverStub) OnHoverEnd()          { s.hoverEnds++ }

type proximityStub struct{ stubObject }

func (s *proximityStub) InteractionRadius() float64 { return s.radius }
func (s *proximityStub) OnEnterRange(dist float64)  { s.enters = append(s.enters, dist) }
func (s *proximityStub) OnLeaveRange()              { s.leaves++ }
func (s *proximityStub) OnWhileInRange(dist float64) {
	s.whileIn = append(s.whileIn, dist)
}

// compositeClick is a clickable with extra child hit meshes.
type compositeClick struct {
	clickStub
	children []*gfx.Mesh
}

func (s *compositeClick) HitMeshes() []*gfx.Mesh { return s.children }

func meshAt(id string, pos spatial.Vec3, radius float64) *gfx.Mesh {
	m := gfx.NewMesh(id, nil, nil)
	m.Position = pos
	m.Scale = radius
	return m
}

func newDispatcher(t *testing.T, events bus.EventBus) *Dispatcher {
	t.Helper()
	d := New(Config{ProximityInterval: 10 * time.Millisecond, ClickMaxDuration: 200 * time.Millisecond}, events, nil)
	require.NoError(t, d.Initialize(context.Background()))
	return d
}

// pollAt runs one update with the throttle satisfied and the player at pos.
func pollAt(t *testing.T, d *Dispatcher, pos spatial.Vec3) {
	t.Helper()
	cam := &spatial.Camera{Position: pos}
	require.NoError(t, d.Update(scene.Frame{Delta: 0.02, Camera: cam}))
}

// pickDown returns a PickFn casting straight down the -Y axis from above
// the given x/z, ignoring the device coordinates.
func pickDown(x, z float64) PickFn {
	return func(float64, float64) spatial.Ray {
		return spatial.NewRay(spatial.V3(x, 100, z), spatial.V3(0, -1, 0))
	}
}

func TestProximityEdges(t *testing.T) {
	b := bus.New()
	var rangeEvents []string
	_, err := b.Subscribe(bus.EventEnterRange, func(e bus.Event) error {
		rangeEvents = append(rangeEvents, e.Type())
		return nil
	})
	require.NoError(t, err)
	_, err = b.Subscribe(bus.EventLeaveRange, func(e bus.Event) error {
		rangeEvents = append(rangeEvents, e.Type())
		return nil
	})
	require.NoError(t, err)

	d := newDispatcher(t, b)
	defer func() { _ = d.Dispose() }()

	obj := &proximityStub{stubObject: stubObject{
		id:     "shrine",
		mesh:   meshAt("shrine", spatial.V3(0, 0, 0), 1),
		radius: 5,
	}}
	d.Register(obj)

	pollAt(t, d, spatial.V3(10, 0, 0))
	assert.Empty(t, obj.enters)

	pollAt(t, d, spatial.V3(3, 0, 0))
	require.Len(t, obj.enters, 1)
	assert.InDelta(t, 3.0, obj.enters[0], 1e-9)

	// staying inside does not re-fire the edge but the continuous
	// callback keeps coming
	pollAt(t, d, spatial.V3(3, 0, 0))
	assert.Len(t, obj.enters, 1)
	assert.Len(t, obj.whileIn, 2)

	pollAt(t, d, spatial.V3(10, 0, 0))
	assert.Equal(t, 1, obj.leaves)
	assert.Equal(t, []string{bus.EventEnterRange, bus.EventLeaveRange}, rangeEvents)
}

func TestProximityThrottle(t *testing.T) {
	d := New(Config{ProximityInterval: 100 * time.Millisecond}, nil, nil)
	require.NoError(t, d.Initialize(context.Background()))
	defer func() { _ = d.Dispose() }()

	obj := &proximityStub{stubObject: stubObject{
		id:     "shrine",
		mesh:   meshAt("shrine", spatial.V3(0, 0, 0), 1),
		radius: 5,
	}}
	d.Register(obj)

	cam := &spatial.Camera{Position: spatial.V3(1, 0, 0)}
	for i := 0; i < 4; i++ {
		require.NoError(t, d.Update(scene.Frame{Delta: 0.016, Camera: cam}))
	}
	assert.Empty(t, obj.enters)

	require.NoError(t, d.Update(scene.Frame{Delta: 0.05, Camera: cam}))
	assert.Len(t, obj.enters, 1)
}

func TestClickHitsNearestClickable(t *testing.T) {
	b := bus.New()
	var performed []bus.InteractionData
	var background int
	_, err := b.Subscribe(bus.EventInteractionPerformed, func(e bus.Event) error {
		performed = append(performed, e.Data().(bus.InteractionData))
		return nil
	})
	require.NoError(t, err)
	_, err = b.Subscribe(bus.EventBackgroundClick, func(bus.Event) error {
		background++
		return nil
	})
	require.NoError(t, err)

	d := newDispatcher(t, b)
	defer func() { _ = d.Dispose() }()

	// both spheres sit on the ray; the higher one is struck first
	far := &clickStub{stubObject: stubObject{id: "far", mesh: meshAt("far", spatial.V3(0, 0, 0), 1)}}
	near := &clickStub{stubObject: stubObject{id: "near", mesh: meshAt("near", spatial.V3(0, 50, 0), 1)}}
	d.Register(far)
	d.Register(near)

	t0 := time.Now()
	d.PointerDown(0, 0, t0)
	d.PointerUp(0, 0, t0.Add(50*time.Millisecond), pickDown(0, 0))

	assert.Empty(t, far.interacts)
	require.Len(t, near.interacts, 1)
	assert.Equal(t, near.mesh, near.interacts[0].Mesh)
	require.Len(t, performed, 1)
	assert.Equal(t, "near", performed[0].InteractableID)
	assert.Zero(t, background)

	// a click on empty space emits the background event only
	d.PointerDown(0, 0, t0)
	d.PointerUp(0, 0, t0.Add(50*time.Millisecond), pickDown(500, 500))
	assert.Len(t, near.interacts, 1)
	assert.Equal(t, 1, background)
}

func TestDragIsNotAClick(t *testing.T) {
	d := newDispatcher(t, nil)
	defer func() { _ = d.Dispose() }()

	obj := &clickStub{stubObject: stubObject{id: "door", mesh: meshAt("door", spatial.V3(0, 0, 0), 2)}}
	d.Register(obj)

	t0 := time.Now()
	d.PointerDown(0, 0, t0)
	d.PointerUp(0, 0, t0.Add(300*time.Millisecond), pickDown(0, 0))
	assert.Empty(t, obj.interacts)

	// an up without a down is ignored too
	d.PointerUp(0, 0, t0, pickDown(0, 0))
	assert.Empty(t, obj.interacts)
}

func TestChildMeshResolvesToOwner(t *testing.T) {
	d := newDispatcher(t, nil)
	defer func() { _ = d.Dispose() }()

	root := meshAt("statue", spatial.V3(0, 0, 0), 1)
	arm := meshAt("statue-arm", spatial.V3(20, 0, 0), 1)
	arm.SetParent(root)

	obj := &compositeClick{
		clickStub: clickStub{stubObject: stubObject{id: "statue", mesh: root}},
		children:  []*gfx.Mesh{arm},
	}
	d.Register(obj)

	t0 := time.Now()
	d.PointerDown(0, 0, t0)
	d.PointerUp(0, 0, t0.Add(10*time.Millisecond), pickDown(20, 0))

	require.Len(t, obj.interacts, 1)
	// the callback sees the registered root, not the struck child
	assert.Equal(t, root, obj.interacts[0].Mesh)
}

func TestHoverEdges(t *testing.T) {
	d := newDispatcher(t, nil)
	defer func() { _ = d.Dispose() }()

	obj := &hoverStub{stubObject: stubObject{id: "lantern", mesh: meshAt("lantern", spatial.V3(0, 0, 0), 2)}}
	d.Register(obj)

	d.PointerMove(0, 0, pickDown(0, 0))
	require.Len(t, obj.hoverStarts, 1)

	// staying on the same object is not a new edge
	d.PointerMove(0, 0, pickDown(0, 0))
	assert.Len(t, obj.hoverStarts, 1)
	assert.Zero(t, obj.hoverEnds)

	d.PointerMove(0, 0, pickDown(500, 500))
	assert.Equal(t, 1, obj.hoverEnds)
}

func TestDuplicateIDKeepsFirst(t *testing.T) {
	d := newDispatcher(t, nil)
	defer func() { _ = d.Dispose() }()

	first := &clickStub{stubObject: stubObject{id: "door", mesh: meshAt("a", spatial.V3(0, 0, 0), 2)}}
	second := &clickStub{stubObject: stubObject{id: "door", mesh: meshAt("b", spatial.V3(0, 0, 0), 2)}}
	d.Register(first)
	d.Register(second)
	require.Equal(t, 1, d.Count())

	t0 := time.Now()
	d.PointerDown(0, 0, t0)
	d.PointerUp(0, 0, t0.Add(10*time.Millisecond), pickDown(0, 0))
	assert.Len(t, first.interacts, 1)
	assert.Empty(t, second.interacts)
}

func TestDisableAndUnregisterFireLeave(t *testing.T) {
	d := newDispatcher(t, nil)
	defer func() { _ = d.Dispose() }()

	obj := &proximityStub{stubObject: stubObject{
		id:     "shrine",
		mesh:   meshAt("shrine", spatial.V3(0, 0, 0), 1),
		radius: 5,
	}}
	d.Register(obj)
	pollAt(t, d, spatial.V3(1, 0, 0))
	require.Len(t, obj.enters, 1)

	d.SetEnabled("shrine", false)
	assert.Equal(t, 1, obj.leaves)

	// disabled objects never re-enter
	pollAt(t, d, spatial.V3(1, 0, 0))
	assert.Len(t, obj.enters, 1)

	d.SetEnabled("shrine", true)
	pollAt(t, d, spatial.V3(1, 0, 0))
	require.Len(t, obj.enters, 2)

	d.Unregister("shrine")
	assert.Equal(t, 2, obj.leaves)
	assert.Zero(t, d.Count())
}

func TestClearAndDispose(t *testing.T) {
	d := newDispatcher(t, nil)

	obj := &clickStub{stubObject: stubObject{id: "door", mesh: meshAt("door", spatial.V3(0, 0, 0), 2)}}
	d.Register(obj)
	d.Clear()
	assert.Zero(t, d.Count())

	require.NoError(t, d.Dispose())
	require.NoError(t, d.Dispose())

	// mutation after dispose is a safe no-op
	d.Register(obj)
	require.NoError(t, d.Update(scene.Frame{Delta: 1}))
}
