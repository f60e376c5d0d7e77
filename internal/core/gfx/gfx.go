// Package gfx is the headless resource model for the scene core: textures,
// geometry, materials, lights and meshes as plain CPU-side state. A renderer
// consuming this module uploads these resources to the GPU; the simulation
// only mutates and disposes them.
package gfx

// Color is an RGB triple with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Lerp interpolates component-wise from c to other by t.
func (c Color) Lerp(other Color, t float64) Color {
	return Color{
		R: c.R + t*(other.R-c.R),
		G: c.G + t*(other.G-c.G),
		B: c.B + t*(other.B-c.B),
	}
}

// Texture is a square RGBA pixel buffer.
type Texture struct {
	Size   int
	Pixels []byte // len = Size*Size*4

	// OffsetX/OffsetY are UV scroll offsets advanced by animation.
	OffsetX float64
	OffsetY float64

	disposed bool
	releases int
}

// NewTexture allocates a Size x Size RGBA texture.
func NewTexture(size int) *Texture {
	return &Texture{Size: size, Pixels: make([]byte, size*size*4)}
}

// SetPixel writes an RGBA pixel. Coordinates outside the texture are ignored.
func (t *Texture) SetPixel(x, y int, r, g, b, a byte) {
	if x < 0 || y < 0 || x >= t.Size || y >= t.Size {
		return
	}
	i := (y*t.Size + x) * 4
	t.Pixels[i] = r
	t.Pixels[i+1] = g
	t.Pixels[i+2] = b
	t.Pixels[i+3] = a
}

// Pixel reads an RGBA pixel.
func (t *Texture) Pixel(x, y int) (r, g, b, a byte) {
	i := (y*t.Size + x) * 4
	return t.Pixels[i], t.Pixels[i+1], t.Pixels[i+2], t.Pixels[i+3]
}

// Dispose releases the pixel buffer. Safe to call more than once.
func (t *Texture) Dispose() {
	if t == nil || t.disposed {
		return
	}
	t.disposed = true
	t.releases++
	t.Pixels = nil
}

// Disposed reports whether Dispose has been called.
func (t *Texture) Disposed() bool { return t != nil && t.disposed }

// ReleaseCount returns how many times the underlying buffer was released.
// It never exceeds 1; tests use it to verify disposal idempotency.
func (t *Texture) ReleaseCount() int { return t.releases }

// MaterialKind selects the shading model a renderer should use.
type MaterialKind uint8

const (
	// MaterialUnlit is a flat-shaded material with no lighting.
	MaterialUnlit MaterialKind = iota
	// MaterialLambert is a basic diffuse-lit material.
	MaterialLambert
	// MaterialPhysical is a physically-based material with roughness/metalness.
	MaterialPhysical
)

// Material describes surface appearance. Texture references are borrowed;
// the component that created a texture owns its disposal.
type Material struct {
	Kind        MaterialKind
	Color       Color
	Opacity     float64
	Transparent bool
	Roughness   float64
	Metalness   float64

	Map             *Texture
	NormalMap       *Texture
	DisplacementMap *Texture

	DisplacementScale float64
	EnableReflections bool
	EnableRefractions bool

	disposed bool
	releases int
}

// Dispose marks the material released. Borrowed textures are not touched.
func (m *Material) Dispose() {
	if m == nil || m.disposed {
		return
	}
	m.disposed = true
	m.releases++
}

// Disposed reports whether Dispose has been called.
func (m *Material) Disposed() bool { return m != nil && m.disposed }

// ReleaseCount returns how many times the material was released.
func (m *Material) ReleaseCount() int { return m.releases }

// PointLight is an omnidirectional light source.
type PointLight struct {
	Position  [3]float64
	Color     Color
	Intensity float64
	Distance  float64
	Decay     float64

	disposed bool
	releases int
}

// Dispose releases the light. Safe to call more than once.
func (l *PointLight) Dispose() {
	if l == nil || l.disposed {
		return
	}
	l.disposed = true
	l.releases++
	l.Intensity = 0
}

// Disposed reports whether Dispose has been called.
func (l *PointLight) Disposed() bool { return l != nil && l.disposed }

// ReleaseCount returns how many times the light was released.
func (l *PointLight) ReleaseCount() int { return l.releases }

// Fog is renderer-facing fog state, swapped by the environment system.
type Fog struct {
	Color   Color
	Near    float64
	Far     float64
	Density float64
}
