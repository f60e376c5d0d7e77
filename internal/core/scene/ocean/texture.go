package ocean

import (
	"encoding/binary"
	"math"
	"runtime"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nighttide/nighttide/internal/core/gfx"
)

// textureParams fully determines a procedural texture set. The noise is a
// pure function of pixel coordinates and seed; animation comes from
// scrolling UV offsets at runtime, never from regenerating pixels.
type textureParams struct {
	Size    int
	Octaves int
	Seed    uint64
	Shallow gfx.Color
	Deep    gfx.Color
	Normals bool
}

type textureSet struct {
	Color  *gfx.Texture
	Height *gfx.Texture
	Normal *gfx.Texture
}

// heightFieldCache memoizes the expensive noise evaluation per process.
// Each surface still owns its texture buffers, so disposal stays per-owner.
var heightFieldCache = struct {
	mu     sync.RWMutex
	fields map[uint64][]float64
}{fields: make(map[uint64][]float64)}

func fieldCacheKey(size, octaves int, seed uint64) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(size))
	binary.LittleEndian.PutUint64(buf[8:], uint64(octaves))
	binary.LittleEndian.PutUint64(buf[16:], seed)
	return xxhash.Sum64(buf[:])
}

// pseudoNoise is a hash-style sin noise over integer lattice coordinates.
func pseudoNoise(x, y, seed float64) float64 {
	h := x*12.9898 + y*78.233 + seed*37.719
	s := math.Abs(math.Sin(h) * 43758.5453)
	return s - math.Floor(s)
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

// smoothNoise interpolates pseudoNoise over the four surrounding lattice
// points with smoothstep-weighted bilinear blending.
func smoothNoise(x, y, seed float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	sx := smoothstep(x - x0)
	sy := smoothstep(y - y0)

	n00 := pseudoNoise(x0, y0, seed)
	n10 := pseudoNoise(x0+1, y0, seed)
	n01 := pseudoNoise(x0, y0+1, seed)
	n11 := pseudoNoise(x0+1, y0+1, seed)

	nx0 := n00 + sx*(n10-n00)
	nx1 := n01 + sx*(n11-n01)
	return nx0 + sy*(nx1-nx0)
}

// octaveNoise sums smoothNoise octaves with halving amplitude and doubling
// frequency, normalized to [0, 1].
func octaveNoise(x, y, seed float64, octaves int) float64 {
	sum := 0.0
	amp := 0.5
	freq := 1.0
	total := 0.0
	for o := 0; o < octaves; o++ {
		sum += smoothNoise(x*freq, y*freq, seed+float64(o)*101) * amp
		total += amp
		amp *= 0.5
		freq *= 2
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// generateHeightField evaluates the noise for every pixel, rows fanned out
// across the available CPUs.
func generateHeightField(size, octaves int, seed uint64) []float64 {
	key := fieldCacheKey(size, octaves, seed)
	heightFieldCache.mu.RLock()
	if f, ok := heightFieldCache.fields[key]; ok {
		heightFieldCache.mu.RUnlock()
		return f
	}
	heightFieldCache.mu.RUnlock()

	field := make([]float64, size*size)
	fseed := float64(seed % 4096)
	// base frequency tuned so the lowest octave spans a few lattice cells
	scale := 6.0 / float64(size)

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for y := 0; y < size; y++ {
		y := y
		eg.Go(func() error {
			fy := float64(y) * scale
			row := field[y*size : (y+1)*size]
			for x := 0; x < size; x++ {
				row[x] = octaveNoise(float64(x)*scale, fy, fseed, octaves)
			}
			return nil
		})
	}
	_ = eg.Wait()

	heightFieldCache.mu.Lock()
	heightFieldCache.fields[key] = field
	heightFieldCache.mu.Unlock()
	return field
}

// generateTextureSet synthesizes the diffuse, displacement and (optionally)
// normal textures from one shared height field.
func generateTextureSet(p textureParams) textureSet {
	field := generateHeightField(p.Size, p.Octaves, p.Seed)

	set := textureSet{
		Color:  gfx.NewTexture(p.Size),
		Height: gfx.NewTexture(p.Size),
	}
	if p.Normals {
		set.Normal = gfx.NewTexture(p.Size)
	}

	at := func(x, y int) float64 {
		// wrap so the derived normals tile seamlessly
		x = (x + p.Size) % p.Size
		y = (y + p.Size) % p.Size
		return field[y*p.Size+x]
	}

	const normalStrength = 2.0
	for y := 0; y < p.Size; y++ {
		for x := 0; x < p.Size; x++ {
			v := at(x, y)

			c := p.Deep.Lerp(p.Shallow, v)
			set.Color.SetPixel(x, y, toByte(c.R), toByte(c.G), toByte(c.B), 255)

			hv := toByte(v)
			set.Height.SetPixel(x, y, hv, hv, hv, 255)

			if set.Normal != nil {
				nx := (at(x-1, y) - at(x+1, y)) * normalStrength
				nz := (at(x, y-1) - at(x, y+1)) * normalStrength
				inv := 1 / math.Sqrt(nx*nx+nz*nz+1)
				set.Normal.SetPixel(x, y,
					toByte(nx*inv*0.5+0.5),
					toByte(nz*inv*0.5+0.5),
					toByte(1*inv*0.5+0.5),
					255)
			}
		}
	}
	return set
}

func toByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v * 255)
}
