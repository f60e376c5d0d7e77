package environment

import (
	"github.com/nighttide/nighttide/internal/core/gfx"
)

// SceneEffects is the gfx-backed EffectsTarget: a full-screen tint overlay
// plus a fog swap to a short-range, high-density fog while underwater. The
// prior fog is restored on exit.
type SceneEffects struct {
	TintColor     gfx.Color
	TintOpacity   float64
	UnderwaterFog gfx.Fog

	baseFog  gfx.Fog
	fog      gfx.Fog
	tintOn   bool
	curDepth float64
}

// DefaultSceneEffects returns the standard blue-green underwater treatment.
func DefaultSceneEffects(baseFog gfx.Fog) *SceneEffects {
	return &SceneEffects{
		TintColor:   gfx.Color{R: 0.05, G: 0.25, B: 0.35},
		TintOpacity: 0.35,
		UnderwaterFog: gfx.Fog{
			Color:   gfx.Color{R: 0.03, G: 0.18, B: 0.28},
			Near:    1,
			Far:     22,
			Density: 0.12,
		},
		baseFog: baseFog,
		fog:     baseFog,
	}
}

func (e *SceneEffects) ApplyUnderwaterEffects(depth float64) {
	e.curDepth = depth
	if e.tintOn {
		return
	}
	e.tintOn = true
	e.fog = e.UnderwaterFog
}

func (e *SceneEffects) ClearUnderwaterEffects() {
	if !e.tintOn {
		return
	}
	e.tintOn = false
	e.curDepth = 0
	e.fog = e.baseFog
}

// TintActive reports whether the overlay is applied.
func (e *SceneEffects) TintActive() bool { return e.tintOn }

// ActiveFog returns the fog a renderer should use this frame.
func (e *SceneEffects) ActiveFog() gfx.Fog { return e.fog }

// Depth returns the last applied submersion depth.
func (e *SceneEffects) Depth() float64 { return e.curDepth }
