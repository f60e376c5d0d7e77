package spatial

import "github.com/go-gl/mathgl/mgl64"

// Plane is the set of points p with Normal·p + D = 0. Frustum planes face
// inward, so a point is on the visible side when Normal·p + D >= 0.
type Plane struct {
	Normal Vec3
	D      float64
}

// DistanceTo returns the signed distance from p to the plane.
func (pl Plane) DistanceTo(p Vec3) float64 {
	return pl.Normal.Dot(p) + pl.D
}

// Frustum is the six inward-facing planes of a camera's view volume, in the
// order left, right, bottom, top, near, far.
type Frustum [6]Plane

// FrustumFromMatrix extracts normalized frustum planes from a combined
// view-projection matrix (row-based Gribb/Hartmann extraction).
func FrustumFromMatrix(vp Mat4) Frustum {
	row := func(i int) [4]float64 {
		return [4]float64{vp.At(i, 0), vp.At(i, 1), vp.At(i, 2), vp.At(i, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	mk := func(a, b [4]float64, sub bool) Plane {
		var v [4]float64
		for i := 0; i < 4; i++ {
			if sub {
				v[i] = b[i] - a[i]
			} else {
				v[i] = b[i] + a[i]
			}
		}
		n := Vec3{v[0], v[1], v[2]}
		ln := n.Len()
		if ln == 0 {
			return Plane{}
		}
		return Plane{Normal: n.Mul(1 / ln), D: v[3] / ln}
	}

	return Frustum{
		mk(r0, r3, false), // left:   row3 + row0
		mk(r0, r3, true),  // right:  row3 - row0
		mk(r1, r3, false), // bottom: row3 + row1
		mk(r1, r3, true),  // top:    row3 - row1
		mk(r2, r3, false), // near:   row3 + row2
		mk(r2, r3, true),  // far:    row3 - row2
	}
}

// ContainsSphere reports whether a sphere intersects the frustum volume.
func (f Frustum) ContainsSphere(s Sphere) bool {
	for _, pl := range f {
		if pl.DistanceTo(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether a point is inside the frustum volume.
func (f Frustum) ContainsPoint(p Vec3) bool {
	return f.ContainsSphere(Sphere{Center: p})
}

// Camera is the minimal camera state the scene systems need: a world
// position for distance sorting and a view-projection matrix for culling.
type Camera struct {
	Position       Vec3
	ViewProjection Mat4
}

// Frustum extracts the camera's view frustum.
func (c *Camera) Frustum() Frustum {
	return FrustumFromMatrix(c.ViewProjection)
}

// PerspectiveCamera builds a Camera looking from pos toward target.
// fovy is in radians.
func PerspectiveCamera(pos, target, up Vec3, fovy, aspect, near, far float64) *Camera {
	view := mgl64.LookAtV(pos, target, up)
	proj := mgl64.Perspective(fovy, aspect, near, far)
	return &Camera{
		Position:       pos,
		ViewProjection: proj.Mul4(view),
	}
}
