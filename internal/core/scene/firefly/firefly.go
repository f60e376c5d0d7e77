// Package firefly owns the decorative firefly field: a batch of wandering
// glow particles with a bounded pool of active point lights. Light selection
// is camera-aware when a camera is supplied and falls back to a round-robin
// rotation otherwise.
package firefly

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/nighttide/nighttide/internal/core/gfx"
	"github.com/nighttide/nighttide/internal/core/observability/log"
	"github.com/nighttide/nighttide/internal/core/quality"
	"github.com/nighttide/nighttide/internal/core/scene"
	"github.com/nighttide/nighttide/internal/core/spatial"
)

// SystemName is the registration name of the field.
const SystemName = "firefly-field"

// GroundHeightFn samples terrain height at a world XZ position.
type GroundHeightFn func(x, z float64) float64

// Config tunes the field. Zero values are replaced by DefaultConfig values
// where that keeps the field functional.
type Config struct {
	Count     int
	Radius    float64
	HeightMin float64
	HeightMax float64

	// VisualRadius is the glow primitive size, also used as the culling
	// bounding-sphere radius.
	VisualRadius float64

	BaseIntensity float64
	LightColor    gfx.Color
	LightDistance float64
	LightDecay    float64

	// FadeSpeed is fade progress per second toward the active/inactive target.
	FadeSpeed float64
	// LerpRate is the exponential smoothing rate toward the wander target.
	LerpRate float64

	WanderAmplitude float64
	WanderSpeed     float64
	DriftAmplitude  float64
	DriftSpeed      float64

	// RoundRobinInterval is the light rotation period in seconds used when
	// no camera is supplied.
	RoundRobinInterval float64

	Seed         uint64
	GroundHeight GroundHeightFn
}

// DefaultConfig returns the consolidated default tuning.
func DefaultConfig() Config {
	return Config{
		Count:              80,
		Radius:             30,
		HeightMin:          0.5,
		HeightMax:          4.0,
		VisualRadius:       0.08,
		BaseIntensity:      1.2,
		LightColor:         gfx.Color{R: 0.7, G: 1.0, B: 0.45},
		LightDistance:      6,
		LightDecay:         2,
		FadeSpeed:          1.5,
		LerpRate:           2.0,
		WanderAmplitude:    0.6,
		WanderSpeed:        1.1,
		DriftAmplitude:     1.8,
		DriftSpeed:         0.07,
		RoundRobinInterval: 4,
		Seed:               1,
	}
}

// Firefly is one particle's simulation state.
type Firefly struct {
	Position       spatial.Vec3
	BasePosition   spatial.Vec3
	TargetPosition spatial.Vec3
	PhaseOffset    float64

	HasLight     bool
	LightActive  bool
	FadeProgress float64
	// ActiveSince is the elapsed time the light was last activated at; the
	// round-robin policy rotates out the longest-active light.
	ActiveSince float64
}

// Field implements scene.System for the firefly particle field.
type Field struct {
	cfg      Config
	settings quality.Settings
	logger   log.Log

	group  *gfx.Group
	meshes []*gfx.Mesh
	lights []*gfx.PointLight
	flies  []Firefly

	material *gfx.Material

	intensity float64
	elapsed   float64
	rrTimer   float64

	initialized bool
	disposed    bool

	// scratch buffer for camera-aware selection, reused across frames
	candidates []int
}

// New constructs a field. settings is the shared quality bundle.
func New(cfg Config, settings quality.Settings, logger log.Log) *Field {
	if logger == nil {
		logger = log.Nop()
	}
	def := DefaultConfig()
	if cfg.Count <= 0 {
		cfg.Count = def.Count
	}
	if cfg.Radius <= 0 {
		cfg.Radius = def.Radius
	}
	if cfg.VisualRadius <= 0 {
		cfg.VisualRadius = def.VisualRadius
	}
	if cfg.FadeSpeed <= 0 {
		cfg.FadeSpeed = def.FadeSpeed
	}
	if cfg.LerpRate <= 0 {
		cfg.LerpRate = def.LerpRate
	}
	if cfg.RoundRobinInterval <= 0 {
		cfg.RoundRobinInterval = def.RoundRobinInterval
	}
	return &Field{
		cfg:       cfg,
		settings:  settings,
		logger:    logger.With(log.String("system", SystemName)),
		intensity: 1,
	}
}

func (f *Field) Name() string { return SystemName }

// Initialize allocates all particles, one glow primitive per particle, and
// one light object per particle. Lights are pre-created and gated by
// intensity only, so camera-aware reassignment never churns allocations.
func (f *Field) Initialize(context.Context) error {
	if f.disposed {
		f.logger.Error("initialize called on disposed field")
		return nil
	}
	if f.initialized {
		f.logger.Warn("initialize called twice, ignoring")
		return nil
	}
	f.initialized = true

	rng := rand.New(rand.NewSource(int64(f.cfg.Seed)))
	f.group = gfx.NewGroup(SystemName)
	f.material = &gfx.Material{
		Kind:        gfx.MaterialUnlit,
		Color:       f.cfg.LightColor,
		Opacity:     1,
		Transparent: true,
	}

	f.flies = make([]Firefly, f.cfg.Count)
	f.meshes = make([]*gfx.Mesh, f.cfg.Count)
	f.lights = make([]*gfx.PointLight, f.cfg.Count)

	for i := range f.flies {
		angle := rng.Float64() * 2 * math.Pi
		dist := math.Sqrt(rng.Float64()) * f.cfg.Radius
		x := math.Cos(angle) * dist
		z := math.Sin(angle) * dist
		ground := 0.0
		if f.cfg.GroundHeight != nil {
			ground = f.cfg.GroundHeight(x, z)
		}
		y := ground + f.cfg.HeightMin + rng.Float64()*(f.cfg.HeightMax-f.cfg.HeightMin)

		base := spatial.V3(x, y, z)
		f.flies[i] = Firefly{
			Position:       base,
			BasePosition:   base,
			TargetPosition: base,
			PhaseOffset:    phaseOffset(f.cfg.Seed, i),
			HasLight:       true,
		}

		mesh := gfx.NewMesh("", nil, f.material)
		mesh.Position = base
		mesh.Scale = f.cfg.VisualRadius
		f.meshes[i] = mesh
		f.group.Add(mesh)

		light := &gfx.PointLight{
			Position: [3]float64{x, y, z},
			Color:    f.cfg.LightColor,
			Distance: f.cfg.LightDistance,
			Decay:    f.cfg.LightDecay,
		}
		f.lights[i] = light
		f.group.AddLight(light)
	}

	f.logger.Info("firefly field initialized",
		log.Int("count", f.cfg.Count),
		log.Int("max_lights", f.settings.MaxFireflyLights))
	return nil
}

// phaseOffset derives a stable per-particle phase in [0, 2π) from the field
// seed and particle index.
func phaseOffset(seed uint64, index int) float64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], seed)
	binary.LittleEndian.PutUint64(buf[8:], uint64(index))
	h := xxhash.Sum64(buf[:])
	return float64(h%100_000) / 100_000 * 2 * math.Pi
}

// Update advances wander motion, light selection and fade integration.
func (f *Field) Update(frame scene.Frame) error {
	if !f.initialized || f.disposed {
		return nil
	}
	f.elapsed += frame.Delta

	f.updateWander(frame.Delta)
	if frame.Camera != nil {
		f.selectByCamera(frame.Camera)
	} else {
		f.rotateRoundRobin(frame.Delta)
	}
	f.integrateFades(frame.Delta)
	return nil
}

func (f *Field) updateWander(dt float64) {
	t := f.elapsed
	// exponential smoothing factor for this frame
	alpha := 1 - math.Exp(-f.cfg.LerpRate*dt)
	for i := range f.flies {
		fly := &f.flies[i]
		phase := fly.PhaseOffset

		// decorative oscillation: sum of sinusoids at different rates per axis
		floatOffs := spatial.V3(
			math.Sin(t*f.cfg.WanderSpeed+phase)*f.cfg.WanderAmplitude,
			math.Sin(t*f.cfg.WanderSpeed*0.73+phase*1.31)*f.cfg.WanderAmplitude*0.5,
			math.Cos(t*f.cfg.WanderSpeed*0.91+phase*0.67)*f.cfg.WanderAmplitude,
		)
		// slow independent horizontal drift
		drift := spatial.V3(
			math.Sin(t*f.cfg.DriftSpeed+float64(i)*2.39)*f.cfg.DriftAmplitude,
			0,
			math.Cos(t*f.cfg.DriftSpeed*1.17+float64(i)*1.73)*f.cfg.DriftAmplitude,
		)

		fly.TargetPosition = fly.BasePosition.Add(floatOffs).Add(drift)
		fly.Position = spatial.LerpV3(fly.Position, fly.TargetPosition, alpha)

		f.meshes[i].Position = fly.Position
		f.lights[i].Position = [3]float64{fly.Position[0], fly.Position[1], fly.Position[2]}
	}
}

// selectByCamera activates the closest frustum-visible fireflies, up to the
// tier's light budget. Ties in distance break by index ascending so the
// selection is deterministic.
func (f *Field) selectByCamera(camera *spatial.Camera) {
	budget := f.settings.MaxFireflyLights
	frustum := camera.Frustum()

	f.candidates = f.candidates[:0]
	for i := range f.flies {
		if !f.flies[i].HasLight {
			continue
		}
		if frustum.ContainsSphere(f.meshes[i].BoundingSphere()) {
			f.candidates = append(f.candidates, i)
		}
	}

	sort.SliceStable(f.candidates, func(a, b int) bool {
		da := spatial.DistanceSq(camera.Position, f.flies[f.candidates[a]].Position)
		db := spatial.DistanceSq(camera.Position, f.flies[f.candidates[b]].Position)
		return da < db
	})

	if len(f.candidates) > budget {
		f.candidates = f.candidates[:budget]
	}
	selected := make(map[int]struct{}, len(f.candidates))
	for _, i := range f.candidates {
		selected[i] = struct{}{}
	}

	for i := range f.flies {
		_, active := selected[i]
		f.setActive(i, active)
	}
}

// rotateRoundRobin keeps the light budget filled without a camera: the
// longest-active light is retired on an interval and replaced by the
// inactive firefly farthest from it, spreading illumination.
func (f *Field) rotateRoundRobin(dt float64) {
	budget := f.settings.MaxFireflyLights
	if budget <= 0 {
		for i := range f.flies {
			f.setActive(i, false)
		}
		return
	}

	active := 0
	for i := range f.flies {
		if f.flies[i].LightActive {
			active++
		}
	}
	// fill the budget in index order on startup or after budget changes
	for i := range f.flies {
		if active >= budget {
			break
		}
		if !f.flies[i].LightActive && f.flies[i].HasLight {
			f.setActive(i, true)
			active++
		}
	}

	f.rrTimer += dt
	if f.rrTimer < f.cfg.RoundRobinInterval {
		return
	}
	f.rrTimer = 0

	oldest := -1
	for i := range f.flies {
		if !f.flies[i].LightActive {
			continue
		}
		if oldest < 0 || f.flies[i].ActiveSince < f.flies[oldest].ActiveSince {
			oldest = i
		}
	}
	if oldest < 0 {
		return
	}

	farthest := -1
	farDist := -1.0
	for i := range f.flies {
		if f.flies[i].LightActive || !f.flies[i].HasLight || i == oldest {
			continue
		}
		d := spatial.DistanceSq(f.flies[oldest].Position, f.flies[i].Position)
		if d > farDist {
			farDist = d
			farthest = i
		}
	}
	if farthest < 0 {
		return
	}
	f.setActive(oldest, false)
	f.setActive(farthest, true)
}

func (f *Field) setActive(i int, active bool) {
	fly := &f.flies[i]
	if fly.LightActive == active {
		return
	}
	fly.LightActive = active
	if active {
		fly.ActiveSince = f.elapsed
	}
}

func (f *Field) integrateFades(dt float64) {
	step := f.cfg.FadeSpeed * dt
	for i := range f.flies {
		fly := &f.flies[i]
		if fly.LightActive {
			fly.FadeProgress = spatial.Clamp01(fly.FadeProgress + step)
		} else {
			fly.FadeProgress = spatial.Clamp01(fly.FadeProgress - step)
		}
		f.lights[i].Intensity = f.cfg.BaseIntensity * fly.FadeProgress * f.intensity
	}
}

// SetIntensity sets the global multiplier applied to mesh opacity and every
// light's computed intensity. Used for level fade transitions.
func (f *Field) SetIntensity(multiplier float64) {
	if f.disposed {
		f.logger.Error("SetIntensity called on disposed field")
		return
	}
	f.intensity = spatial.Clamp01(multiplier)
	if f.material != nil {
		f.material.Opacity = f.intensity
	}
	for i := range f.flies {
		f.lights[i].Intensity = f.cfg.BaseIntensity * f.flies[i].FadeProgress * f.intensity
	}
}

// ActiveLightCount returns how many lights are currently marked active.
func (f *Field) ActiveLightCount() int {
	n := 0
	for i := range f.flies {
		if f.flies[i].LightActive {
			n++
		}
	}
	return n
}

// Fireflies exposes the particle state for snapshots and tests. The slice
// is the live backing array; callers must not mutate it.
func (f *Field) Fireflies() []Firefly { return f.flies }

// Lights exposes the pre-created light objects. Read-only for callers.
func (f *Field) Lights() []*gfx.PointLight { return f.lights }

// Dispose releases every primitive, material and light. Idempotent.
func (f *Field) Dispose() error {
	if f.disposed {
		return nil
	}
	f.disposed = true
	if f.group != nil {
		f.group.Dispose()
	}
	if f.material != nil {
		f.material.Dispose()
	}
	f.meshes = nil
	f.lights = nil
	f.flies = nil
	f.logger.Info("firefly field disposed")
	return nil
}
