// Package spatial provides the 3D math shared by the scene systems: vectors,
// rays, bounding volumes, frustum extraction and a minimal camera model.
// It is a thin layer over go-gl/mathgl so the rest of the core never touches
// matrix plumbing directly.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is the vector type used across the scene core.
type Vec3 = mgl64.Vec3

// Mat4 is the 4x4 matrix type used for camera transforms.
type Mat4 = mgl64.Mat4

// V3 is shorthand for constructing a Vec3.
func V3(x, y, z float64) Vec3 { return Vec3{x, y, z} }

// DistanceSq returns the squared distance between a and b.
func DistanceSq(a, b Vec3) float64 {
	return b.Sub(a).LenSqr()
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	return b.Sub(a).Len()
}

// Lerp linearly interpolates from a to b by t.
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// LerpV3 linearly interpolates each component from a to b by t.
func LerpV3(a, b Vec3, t float64) Vec3 {
	return Vec3{Lerp(a[0], b[0], t), Lerp(a[1], b[1], t), Lerp(a[2], b[2], t)}
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp clamps v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center Vec3
	Radius float64
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// Ray is a half-line with a normalized direction.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// NewRay constructs a Ray, normalizing dir.
func NewRay(origin, dir Vec3) Ray {
	return Ray{Origin: origin, Dir: dir.Normalize()}
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// IntersectSphere returns the distance along the ray to the nearest
// intersection with s, or false if the ray misses or the sphere is behind
// the origin.
func (r Ray) IntersectSphere(s Sphere) (float64, bool) {
	oc := r.Origin.Sub(s.Center)
	b := oc.Dot(r.Dir)
	c := oc.LenSqr() - s.Radius*s.Radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

// IntersectAABB returns the distance along the ray to the nearest
// intersection with the box using the slab method.
func (r Ray) IntersectAABB(box AABB) (float64, bool) {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)
	for i := 0; i < 3; i++ {
		if r.Dir[i] == 0 {
			if r.Origin[i] < box.Min[i] || r.Origin[i] > box.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1.0 / r.Dir[i]
		t0 := (box.Min[i] - r.Origin[i]) * inv
		t1 := (box.Max[i] - r.Origin[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math.Max(tmin, t0)
		tmax = math.Min(tmax, t1)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
