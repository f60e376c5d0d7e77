package gfx

import (
	"math"

	"github.com/nighttide/nighttide/internal/core/spatial"
)

// Geometry is an indexed triangle mesh with CPU-side vertex data.
type Geometry struct {
	Positions []spatial.Vec3
	Normals   []spatial.Vec3
	UVs       [][2]float64
	Indices   []uint32

	normalsDirty bool
	disposed     bool
	releases     int
}

// NewPlane builds a subdivided plane in the XZ plane centered on the origin,
// with +Y normals. segW and segH are the number of segments along width (X)
// and depth (Z); vertex counts are (segW+1)*(segH+1).
func NewPlane(width, depth float64, segW, segH int) *Geometry {
	if segW < 1 {
		segW = 1
	}
	if segH < 1 {
		segH = 1
	}
	cols := segW + 1
	rows := segH + 1

	g := &Geometry{
		Positions: make([]spatial.Vec3, 0, cols*rows),
		Normals:   make([]spatial.Vec3, 0, cols*rows),
		UVs:       make([][2]float64, 0, cols*rows),
		Indices:   make([]uint32, 0, segW*segH*6),
	}

	for z := 0; z < rows; z++ {
		tz := float64(z) / float64(segH)
		for x := 0; x < cols; x++ {
			tx := float64(x) / float64(segW)
			g.Positions = append(g.Positions, spatial.V3(
				(tx-0.5)*width,
				0,
				(tz-0.5)*depth,
			))
			g.Normals = append(g.Normals, spatial.V3(0, 1, 0))
			g.UVs = append(g.UVs, [2]float64{tx, tz})
		}
	}

	for z := 0; z < segH; z++ {
		for x := 0; x < segW; x++ {
			a := uint32(z*cols + x)
			b := a + 1
			c := a + uint32(cols)
			d := c + 1
			g.Indices = append(g.Indices, a, c, b, b, c, d)
		}
	}

	return g
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int { return len(g.Positions) }

// MarkNormalsDirty flags the normals for recomputation after vertex
// positions changed.
func (g *Geometry) MarkNormalsDirty() { g.normalsDirty = true }

// NormalsDirty reports whether normals are stale.
func (g *Geometry) NormalsDirty() bool { return g.normalsDirty }

// RecomputeNormals rebuilds per-vertex normals by accumulating area-weighted
// face normals, then clears the dirty flag.
func (g *Geometry) RecomputeNormals() {
	for i := range g.Normals {
		g.Normals[i] = spatial.Vec3{}
	}
	for i := 0; i+2 < len(g.Indices); i += 3 {
		ia, ib, ic := g.Indices[i], g.Indices[i+1], g.Indices[i+2]
		a, b, c := g.Positions[ia], g.Positions[ib], g.Positions[ic]
		// cross of edges is proportional to face area, which weights the sum
		n := b.Sub(a).Cross(c.Sub(a))
		g.Normals[ia] = g.Normals[ia].Add(n)
		g.Normals[ib] = g.Normals[ib].Add(n)
		g.Normals[ic] = g.Normals[ic].Add(n)
	}
	for i, n := range g.Normals {
		if l := n.Len(); l > 0 {
			g.Normals[i] = n.Mul(1 / l)
		} else {
			g.Normals[i] = spatial.V3(0, 1, 0)
		}
	}
	g.normalsDirty = false
}

// BoundingSphere computes a sphere around the vertex data, centered on the
// positions' centroid.
func (g *Geometry) BoundingSphere() spatial.Sphere {
	if len(g.Positions) == 0 {
		return spatial.Sphere{}
	}
	var center spatial.Vec3
	for _, p := range g.Positions {
		center = center.Add(p)
	}
	center = center.Mul(1 / float64(len(g.Positions)))
	maxSq := 0.0
	for _, p := range g.Positions {
		if d := spatial.DistanceSq(center, p); d > maxSq {
			maxSq = d
		}
	}
	return spatial.Sphere{Center: center, Radius: math.Sqrt(maxSq)}
}

// Dispose releases vertex buffers. Safe to call more than once.
func (g *Geometry) Dispose() {
	if g == nil || g.disposed {
		return
	}
	g.disposed = true
	g.releases++
	g.Positions = nil
	g.Normals = nil
	g.UVs = nil
	g.Indices = nil
}

// Disposed reports whether Dispose has been called.
func (g *Geometry) Disposed() bool { return g != nil && g.disposed }

// ReleaseCount returns how many times the buffers were released.
func (g *Geometry) ReleaseCount() int { return g.releases }
