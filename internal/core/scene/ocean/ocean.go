// Package ocean owns the animated water surface: a subdivided plane whose
// material and vertex animation depend on the quality tier, procedural
// color/height/normal textures, and a queryable analytic wave function so
// other systems can read water height without touching GPU state.
package ocean

import (
	"context"
	"math"

	"github.com/nighttide/nighttide/internal/core/gfx"
	"github.com/nighttide/nighttide/internal/core/observability/log"
	"github.com/nighttide/nighttide/internal/core/quality"
	"github.com/nighttide/nighttide/internal/core/scene"
	"github.com/nighttide/nighttide/internal/core/spatial"
)

// SystemName is the registration name of the surface.
const SystemName = "ocean-surface"

// WaveConfig is one analytic wave component. Wavelengths are in world units;
// a zero wavelength disables that axis' contribution.
type WaveConfig struct {
	Amplitude   float64
	WavelengthX float64
	WavelengthZ float64
	Speed       float64
	Phase       float64
}

// RisingConfig makes the water level approach a target linearly over time.
type RisingConfig struct {
	Enable bool
	Target float64
	// Rate is world units per second.
	Rate float64
}

// Config tunes the surface.
type Config struct {
	Width float64
	Depth float64
	Level float64

	AnimationSpeed float64

	ColorShallow gfx.Color
	ColorDeep    gfx.Color

	Waves  []WaveConfig
	Rising RisingConfig

	TextureOctaves int
	Seed           uint64
}

// DefaultConfig returns the consolidated default tuning: a slow large-scale
// swell from two long crossed components plus a ripple.
func DefaultConfig() Config {
	return Config{
		Width:          400,
		Depth:          400,
		AnimationSpeed: 1,
		ColorShallow:   gfx.Color{R: 0.25, G: 0.65, B: 0.75},
		ColorDeep:      gfx.Color{R: 0.02, G: 0.12, B: 0.25},
		Waves: []WaveConfig{
			{Amplitude: 0.45, WavelengthX: 90, WavelengthZ: 0, Speed: 0.35},
			{Amplitude: 0.30, WavelengthX: 0, WavelengthZ: 70, Speed: 0.28, Phase: 1.3},
			{Amplitude: 0.08, WavelengthX: 14, WavelengthZ: 11, Speed: 0.9, Phase: 0.7},
		},
		TextureOctaves: 4,
		Seed:           1,
	}
}

// scroll rates are intentionally mismatched between the maps so the tiling
// repeat never lines up visually
const (
	colorScrollX  = 0.013
	colorScrollY  = 0.007
	normalScrollX = 0.011
	normalScrollY = 0.017
)

// Surface implements scene.System for the water plane.
type Surface struct {
	cfg      Config
	settings quality.Settings
	logger   log.Log

	geometry *gfx.Geometry
	material *gfx.Material
	mesh     *gfx.Mesh

	colorTex  *gfx.Texture
	heightTex *gfx.Texture
	normalTex *gfx.Texture

	waves      []WaveConfig
	waterLevel float64
	time       float64

	displace displacer

	initialized bool
	disposed    bool
}

// New constructs a surface. settings is the shared quality bundle.
func New(cfg Config, settings quality.Settings, logger log.Log) *Surface {
	if logger == nil {
		logger = log.Nop()
	}
	def := DefaultConfig()
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Depth <= 0 {
		cfg.Depth = def.Depth
	}
	if cfg.AnimationSpeed <= 0 {
		cfg.AnimationSpeed = def.AnimationSpeed
	}
	if cfg.TextureOctaves <= 0 {
		cfg.TextureOctaves = def.TextureOctaves
	}
	s := &Surface{
		cfg:        cfg,
		settings:   settings,
		logger:     logger.With(log.String("system", SystemName)),
		waterLevel: cfg.Level,
	}
	s.waves = append(s.waves, cfg.Waves...)
	return s
}

func (s *Surface) Name() string { return SystemName }

// Initialize builds the plane, the tier-appropriate material and, when the
// tier allows, the procedural texture set.
func (s *Surface) Initialize(context.Context) error {
	if s.disposed {
		s.logger.Error("initialize called on disposed surface")
		return nil
	}
	if s.initialized {
		s.logger.Warn("initialize called twice, ignoring")
		return nil
	}
	s.initialized = true

	seg := s.settings.OceanSegments
	s.geometry = gfx.NewPlane(s.cfg.Width, s.cfg.Depth, seg.Width, seg.Height)
	s.material = s.buildMaterial()
	s.mesh = gfx.NewMesh(SystemName, s.geometry, s.material)
	s.mesh.Position = spatial.V3(0, s.waterLevel, 0)

	if s.settings.EnableVertexDisplacement {
		s.displace = cpuDisplacer{}
	} else {
		s.displace = noopDisplacer{}
	}

	s.logger.Info("ocean surface initialized",
		log.String("tier", s.settings.Tier.String()),
		log.Int("segments_w", seg.Width),
		log.Int("segments_h", seg.Height),
		log.Bool("procedural_textures", s.colorTex != nil))
	return nil
}

func (s *Surface) buildMaterial() *gfx.Material {
	switch {
	case s.settings.Tier == quality.TierUltraLow:
		// flat unlit water, no textures at all
		return &gfx.Material{
			Kind:        gfx.MaterialUnlit,
			Color:       s.cfg.ColorDeep,
			Opacity:     0.9,
			Transparent: true,
		}
	case s.settings.Tier == quality.TierLow:
		return &gfx.Material{
			Kind:        gfx.MaterialLambert,
			Color:       s.cfg.ColorDeep.Lerp(s.cfg.ColorShallow, 0.25),
			Opacity:     0.9,
			Transparent: true,
		}
	default:
		m := &gfx.Material{
			Kind:              gfx.MaterialPhysical,
			Color:             s.cfg.ColorDeep.Lerp(s.cfg.ColorShallow, 0.25),
			Opacity:           0.92,
			Transparent:       true,
			Roughness:         0.15,
			Metalness:         0.0,
			DisplacementScale: 0.6,
			EnableReflections: s.settings.EnableReflections,
			EnableRefractions: s.settings.EnableRefractions,
		}
		if s.settings.EnableProceduralTextures && s.settings.TextureSize > 0 {
			set := generateTextureSet(textureParams{
				Size:    s.settings.TextureSize,
				Octaves: s.cfg.TextureOctaves,
				Seed:    s.cfg.Seed,
				Shallow: s.cfg.ColorShallow,
				Deep:    s.cfg.ColorDeep,
				Normals: s.settings.EnableNormalMaps,
			})
			s.colorTex = set.Color
			s.heightTex = set.Height
			s.normalTex = set.Normal
			m.Map = s.colorTex
			m.DisplacementMap = s.heightTex
			if s.settings.EnableNormalMaps {
				m.NormalMap = s.normalTex
			}
		}
		return m
	}
}

// Update advances the time accumulator, scrolls texture offsets, applies
// vertex displacement where the tier permits, and steps the rising water
// level toward its target.
func (s *Surface) Update(frame scene.Frame) error {
	if !s.initialized || s.disposed {
		return nil
	}
	dt := frame.Delta
	s.time += dt * s.cfg.AnimationSpeed

	if s.colorTex != nil {
		s.colorTex.OffsetX += colorScrollX * dt
		s.colorTex.OffsetY += colorScrollY * dt
	}
	if s.normalTex != nil {
		s.normalTex.OffsetX += normalScrollX * dt
		s.normalTex.OffsetY += normalScrollY * dt
	}

	s.displace.apply(s)

	if s.cfg.Rising.Enable {
		s.stepRising(dt)
	}
	return nil
}

// stepRising moves the level linearly toward the target without overshoot.
func (s *Surface) stepRising(dt float64) {
	target := s.cfg.Rising.Target
	remaining := target - s.waterLevel
	if remaining == 0 {
		return
	}
	step := s.cfg.Rising.Rate * dt
	if math.Abs(remaining) <= step {
		s.waterLevel = target
	} else if remaining > 0 {
		s.waterLevel += step
	} else {
		s.waterLevel -= step
	}
	s.mesh.Position[1] = s.waterLevel
}

// WaterHeightAt returns the instantaneous surface height at a world XZ
// position: the water level plus each wave component's contribution.
// Evaluated on demand, never cached.
func (s *Surface) WaterHeightAt(x, z float64) float64 {
	h := s.waterLevel
	for _, w := range s.waves {
		h += w.Amplitude * math.Sin(wavePhase(w, x, z, s.time))
	}
	return h
}

func wavePhase(w WaveConfig, x, z, t float64) float64 {
	p := w.Speed*t + w.Phase
	if w.WavelengthX != 0 {
		p += 2 * math.Pi / w.WavelengthX * x
	}
	if w.WavelengthZ != 0 {
		p += 2 * math.Pi / w.WavelengthZ * z
	}
	return p
}

// IsUnderwater reports whether a world position is below the surface.
func (s *Surface) IsUnderwater(pos spatial.Vec3) bool {
	return pos[1] < s.WaterHeightAt(pos[0], pos[2])
}

// WaterLevel returns the current base level.
func (s *Surface) WaterLevel() float64 { return s.waterLevel }

// SetWaterLevel sets the base level directly.
func (s *Surface) SetWaterLevel(level float64) {
	if s.disposed {
		s.logger.Error("SetWaterLevel called on disposed surface")
		return
	}
	s.waterLevel = level
	if s.mesh != nil {
		s.mesh.Position[1] = level
	}
}

// AddWave appends a wave component.
func (s *Surface) AddWave(w WaveConfig) {
	if s.disposed {
		s.logger.Error("AddWave called on disposed surface")
		return
	}
	s.waves = append(s.waves, w)
}

// ClearWaves removes all wave components, yielding a flat calm surface.
// Texture scrolling continues independently.
func (s *Surface) ClearWaves() {
	if s.disposed {
		s.logger.Error("ClearWaves called on disposed surface")
		return
	}
	s.waves = s.waves[:0]
}

// Mesh returns the water mesh for registration with the environment system.
func (s *Surface) Mesh() *gfx.Mesh { return s.mesh }

// Geometry exposes the plane for tests and renderers.
func (s *Surface) Geometry() *gfx.Geometry { return s.geometry }

// Material exposes the surface material.
func (s *Surface) Material() *gfx.Material { return s.material }

// Textures returns the procedural texture set; entries are nil on tiers
// without procedural textures.
func (s *Surface) Textures() (color, height, normal *gfx.Texture) {
	return s.colorTex, s.heightTex, s.normalTex
}

// Dispose frees geometry, material and textures. Idempotent.
func (s *Surface) Dispose() error {
	if s.disposed {
		return nil
	}
	s.disposed = true
	s.geometry.Dispose()
	s.material.Dispose()
	s.colorTex.Dispose()
	s.heightTex.Dispose()
	s.normalTex.Dispose()
	s.logger.Info("ocean surface disposed")
	return nil
}
