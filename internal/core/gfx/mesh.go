package gfx

import (
	"github.com/nighttide/nighttide/internal/core/spatial"
)

// Mesh is a positioned instance of geometry and material in the scene.
// Geometry and Material references may be shared between meshes; ownership
// of disposal lies with the component that created them.
type Mesh struct {
	ID       string
	Geometry *Geometry
	Material *Material

	Position spatial.Vec3
	Scale    float64
	Visible  bool

	parent *Mesh
}

// NewMesh constructs a visible mesh at the origin with unit scale.
func NewMesh(id string, g *Geometry, m *Material) *Mesh {
	return &Mesh{ID: id, Geometry: g, Material: m, Scale: 1, Visible: true}
}

// SetParent attaches the mesh under parent. Interaction hit resolution walks
// this chain to find the registered ancestor when a child mesh is hit.
func (m *Mesh) SetParent(parent *Mesh) { m.parent = parent }

// Parent returns the mesh's parent, or nil.
func (m *Mesh) Parent() *Mesh { return m.parent }

// BoundingSphere returns the mesh's world-space bounding sphere.
func (m *Mesh) BoundingSphere() spatial.Sphere {
	scale := m.Scale
	if scale == 0 {
		scale = 1
	}
	if m.Geometry == nil || m.Geometry.Disposed() {
		return spatial.Sphere{Center: m.Position, Radius: scale}
	}
	local := m.Geometry.BoundingSphere()
	return spatial.Sphere{
		Center: m.Position.Add(local.Center.Mul(scale)),
		Radius: local.Radius * scale,
	}
}

// Group is an ordered collection of meshes and lights with a shared
// lifecycle, mirroring a scene-graph group node.
type Group struct {
	Name   string
	Meshes []*Mesh
	Lights []*PointLight

	disposed bool
}

// NewGroup constructs an empty group.
func NewGroup(name string) *Group {
	return &Group{Name: name}
}

// Add appends a mesh to the group.
func (g *Group) Add(m *Mesh) { g.Meshes = append(g.Meshes, m) }

// AddLight appends a light to the group.
func (g *Group) AddLight(l *PointLight) { g.Lights = append(g.Lights, l) }

// Dispose releases every mesh's geometry and material plus all lights.
// Safe to call more than once.
func (g *Group) Dispose() {
	if g == nil || g.disposed {
		return
	}
	g.disposed = true
	for _, m := range g.Meshes {
		m.Geometry.Dispose()
		m.Material.Dispose()
	}
	for _, l := range g.Lights {
		l.Dispose()
	}
	g.Meshes = nil
	g.Lights = nil
}

// Disposed reports whether Dispose has been called.
func (g *Group) Disposed() bool { return g != nil && g.disposed }
