// Package quality maps a coarse device tier to the fixed bundle of rendering
// knobs shared by the scene systems. Resolution is a pure lookup; device
// probing happens once at startup and any failure degrades to the most
// conservative tier instead of propagating.
package quality

import (
	"fmt"
	"time"

	"github.com/nighttide/nighttide/internal/core/events/bus"
	"github.com/nighttide/nighttide/internal/core/observability/log"
)

// Tier is a named device-capability class.
type Tier uint8

const (
	TierUltraLow Tier = iota
	TierLow
	TierMedium
	TierHigh
	TierUltra
)

func (t Tier) String() string {
	switch t {
	case TierUltraLow:
		return "ultra_low"
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierUltra:
		return "ultra"
	default:
		return "unknown"
	}
}

// ParseTier maps a config string to a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "ultra_low":
		return TierUltraLow, nil
	case "low":
		return TierLow, nil
	case "medium":
		return TierMedium, nil
	case "high":
		return TierHigh, nil
	case "ultra":
		return TierUltra, nil
	default:
		return TierUltraLow, fmt.Errorf("unknown quality tier %q", s)
	}
}

// Segments is an ocean plane subdivision count.
type Segments struct {
	Width  int
	Height int
}

// Settings is the immutable knob bundle for one tier. A single Settings
// value is resolved at startup and shared by reference across systems.
type Settings struct {
	Tier          Tier
	OceanSegments Segments
	TextureSize   int

	MaxFireflyLights int

	EnableProceduralTextures bool
	EnableNormalMaps         bool
	EnableReflections        bool
	EnableRefractions        bool
	EnableVertexDisplacement bool

	EnvironmentPollInterval time.Duration
}

// defaultTable is the builtin tier table. One consolidated tuning, not the
// historical per-level variants.
var defaultTable = map[Tier]Settings{
	TierUltraLow: {
		Tier:                    TierUltraLow,
		OceanSegments:           Segments{Width: 16, Height: 16},
		TextureSize:             0,
		MaxFireflyLights:        0,
		EnvironmentPollInterval: 250 * time.Millisecond,
	},
	TierLow: {
		Tier:                    TierLow,
		OceanSegments:           Segments{Width: 32, Height: 32},
		TextureSize:             128,
		MaxFireflyLights:        4,
		EnvironmentPollInterval: 200 * time.Millisecond,
	},
	TierMedium: {
		Tier:                     TierMedium,
		OceanSegments:            Segments{Width: 64, Height: 64},
		TextureSize:              256,
		MaxFireflyLights:         8,
		EnableProceduralTextures: true,
		EnableNormalMaps:         true,
		EnableVertexDisplacement: true,
		EnvironmentPollInterval:  100 * time.Millisecond,
	},
	TierHigh: {
		Tier:                     TierHigh,
		OceanSegments:            Segments{Width: 128, Height: 128},
		TextureSize:              512,
		MaxFireflyLights:         12,
		EnableProceduralTextures: true,
		EnableNormalMaps:         true,
		EnableReflections:        true,
		EnableVertexDisplacement: true,
		EnvironmentPollInterval:  100 * time.Millisecond,
	},
	TierUltra: {
		Tier:                     TierUltra,
		OceanSegments:            Segments{Width: 192, Height: 192},
		TextureSize:              1024,
		MaxFireflyLights:         20,
		EnableProceduralTextures: true,
		EnableNormalMaps:         true,
		EnableReflections:        true,
		EnableRefractions:        true,
		EnableVertexDisplacement: true,
		EnvironmentPollInterval:  100 * time.Millisecond,
	},
}

// Resolver resolves tiers to settings, applying any loaded overrides.
type Resolver struct {
	table     map[Tier]Settings
	logger    log.Log
	events    bus.EventBus
	announced bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger attaches a logger.
func WithLogger(l log.Log) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithEventBus attaches a bus; the first resolution publishes
// bus.EventQualityResolved.
func WithEventBus(b bus.EventBus) Option {
	return func(r *Resolver) { r.events = b }
}

// NewResolver builds a resolver over the builtin tier table.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		table:  make(map[Tier]Settings, len(defaultTable)),
		logger: log.Nop(),
	}
	for tier, s := range defaultTable {
		r.table[tier] = s
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the settings for a tier. Unknown tiers resolve to the
// ultra_low row.
func (r *Resolver) Resolve(tier Tier) Settings {
	s, ok := r.table[tier]
	if !ok {
		r.logger.Warn("unknown tier, falling back to ultra_low", log.String("tier", tier.String()))
		s = r.table[TierUltraLow]
	}
	if r.events != nil && !r.announced {
		r.announced = true
		_ = r.events.Publish(bus.NewEvent(bus.EventQualityResolved, "quality",
			bus.QualityResolvedData{Tier: s.Tier.String()}))
	}
	return s
}

// ResolveFromCapabilities infers a tier from probed device capabilities and
// resolves it.
func (r *Resolver) ResolveFromCapabilities(caps DeviceCapabilities) Settings {
	tier := classify(caps)
	r.logger.Info("resolved quality tier",
		log.String("tier", tier.String()),
		log.Int("screen_width", caps.ScreenWidth),
		log.Bool("touch", caps.TouchCapable))
	return r.Resolve(tier)
}

// classify turns capabilities into a tier. Pure heuristic over screen area,
// memory and input class.
func classify(caps DeviceCapabilities) Tier {
	area := caps.ScreenWidth * caps.ScreenHeight
	switch {
	case area == 0:
		return TierUltraLow
	case caps.DeviceMemoryGB > 0 && caps.DeviceMemoryGB < 2:
		return TierUltraLow
	case caps.TouchCapable && area <= 1280*800:
		return TierLow
	case area <= 1366*768:
		return TierMedium
	case area <= 2560*1440 || caps.HardwareThreads < 8:
		return TierHigh
	default:
		return TierUltra
	}
}
