package ocean

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nighttide/nighttide/internal/core/gfx"
	"github.com/nighttide/nighttide/internal/core/quality"
	"github.com/nighttide/nighttide/internal/core/scene"
	"github.com/nighttide/nighttide/internal/core/spatial"
)

func settingsFor(t *testing.T, tier quality.Tier) quality.Settings {
	t.Helper()
	s := quality.NewResolver().Resolve(tier)
	// keep texture work small in tests
	if s.TextureSize > 32 {
		s.TextureSize = 32
	}
	if s.OceanSegments.Width > 16 {
		s.OceanSegments = quality.Segments{Width: 16, Height: 16}
	}
	return s
}

func newTestSurface(t *testing.T, cfg Config, tier quality.Tier) *Surface {
	t.Helper()
	s := New(cfg, settingsFor(t, tier), nil)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestWaterLevelConvergence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = 0
	cfg.Rising = RisingConfig{Enable: true, Target: 10, Rate: 2}
	s := newTestSurface(t, cfg, quality.TierUltraLow)
	defer func() { _ = s.Dispose() }()

	step := 0.01
	// 4 seconds: level must be 8 within float tolerance
	for i := 0; i < 400; i++ {
		require.NoError(t, s.Update(scene.Frame{Delta: step}))
	}
	assert.InDelta(t, 8.0, s.WaterLevel(), 1e-6)

	// one more second reaches the target exactly, clamped
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Update(scene.Frame{Delta: step}))
	}
	assert.Equal(t, 10.0, s.WaterLevel())

	// further updates never overshoot
	require.NoError(t, s.Update(scene.Frame{Delta: 1}))
	assert.Equal(t, 10.0, s.WaterLevel())
	assert.Equal(t, 10.0, s.Mesh().Position[1])
}

func TestWaterHeightQueries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = 5
	cfg.Waves = []WaveConfig{{Amplitude: 2, WavelengthX: 50, Speed: 1}}
	s := newTestSurface(t, cfg, quality.TierUltraLow)
	defer func() { _ = s.Dispose() }()

	t.Run("Height Stays In Wave Envelope", func(t *testing.T) {
		for _, x := range []float64{-40, 0, 13.7, 99} {
			h := s.WaterHeightAt(x, 0)
			assert.GreaterOrEqual(t, h, 3.0)
			assert.LessOrEqual(t, h, 7.0)
		}
	})

	t.Run("IsUnderwater", func(t *testing.T) {
		assert.True(t, s.IsUnderwater(spatial.V3(0, 1, 0)))
		assert.False(t, s.IsUnderwater(spatial.V3(0, 8, 0)))
	})

	t.Run("ClearWaves Flattens Surface", func(t *testing.T) {
		s.ClearWaves()
		assert.Equal(t, 5.0, s.WaterHeightAt(-40, 12))
		assert.Equal(t, 5.0, s.WaterHeightAt(8, -3))
	})

	t.Run("AddWave Restores Variation", func(t *testing.T) {
		s.AddWave(WaveConfig{Amplitude: 1, WavelengthX: 10, Speed: 1, Phase: 1})
		assert.NotEqual(t, s.WaterHeightAt(1, 0), s.WaterHeightAt(3.3, 0))
	})

	t.Run("SetWaterLevel", func(t *testing.T) {
		s.SetWaterLevel(-2)
		assert.Equal(t, -2.0, s.WaterLevel())
		assert.Equal(t, -2.0, s.Mesh().Position[1])
	})
}

func TestTierMaterials(t *testing.T) {
	t.Run("Ultra Low Is Unlit And Untextured", func(t *testing.T) {
		s := newTestSurface(t, DefaultConfig(), quality.TierUltraLow)
		defer func() { _ = s.Dispose() }()
		assert.Equal(t, gfx.MaterialUnlit, s.Material().Kind)
		c, h, n := s.Textures()
		assert.Nil(t, c)
		assert.Nil(t, h)
		assert.Nil(t, n)
	})

	t.Run("Low Is Lambert Without Maps", func(t *testing.T) {
		s := newTestSurface(t, DefaultConfig(), quality.TierLow)
		defer func() { _ = s.Dispose() }()
		assert.Equal(t, gfx.MaterialLambert, s.Material().Kind)
		assert.Nil(t, s.Material().Map)
	})

	t.Run("Medium Is Physical With Procedural Maps", func(t *testing.T) {
		s := newTestSurface(t, DefaultConfig(), quality.TierMedium)
		defer func() { _ = s.Dispose() }()
		m := s.Material()
		assert.Equal(t, gfx.MaterialPhysical, m.Kind)
		require.NotNil(t, m.Map)
		require.NotNil(t, m.DisplacementMap)
		require.NotNil(t, m.NormalMap)
		assert.False(t, m.EnableReflections)
	})

	t.Run("Ultra Enables Reflections And Refractions", func(t *testing.T) {
		s := newTestSurface(t, DefaultConfig(), quality.TierUltra)
		defer func() { _ = s.Dispose() }()
		assert.True(t, s.Material().EnableReflections)
		assert.True(t, s.Material().EnableRefractions)
	})
}

func TestTextureDeterminism(t *testing.T) {
	p := textureParams{
		Size: 16, Octaves: 3, Seed: 7,
		Shallow: gfx.Color{R: 1, G: 1, B: 1},
		Deep:    gfx.Color{},
		Normals: true,
	}
	a := generateTextureSet(p)
	b := generateTextureSet(p)
	assert.Equal(t, a.Color.Pixels, b.Color.Pixels)
	assert.Equal(t, a.Height.Pixels, b.Height.Pixels)
	assert.Equal(t, a.Normal.Pixels, b.Normal.Pixels)

	p.Seed = 8
	c := generateTextureSet(p)
	assert.NotEqual(t, a.Height.Pixels, c.Height.Pixels)
}

func TestScrollRatesMismatch(t *testing.T) {
	s := newTestSurface(t, DefaultConfig(), quality.TierMedium)
	defer func() { _ = s.Dispose() }()

	for i := 0; i < 100; i++ {
		require.NoError(t, s.Update(scene.Frame{Delta: 0.016}))
	}
	c, _, n := s.Textures()
	require.NotNil(t, c)
	require.NotNil(t, n)
	assert.Greater(t, c.OffsetX, 0.0)
	assert.NotEqual(t, c.OffsetX, c.OffsetY)
	assert.NotEqual(t, c.OffsetX, n.OffsetX)
	assert.NotEqual(t, c.OffsetY, n.OffsetY)
}

func TestVertexDisplacement(t *testing.T) {
	t.Run("Medium Tier Displaces And Fixes Normals", func(t *testing.T) {
		s := newTestSurface(t, DefaultConfig(), quality.TierMedium)
		defer func() { _ = s.Dispose() }()

		require.NoError(t, s.Update(scene.Frame{Delta: 0.5}))
		displaced := false
		for _, p := range s.Geometry().Positions {
			if p[1] != 0 {
				displaced = true
				break
			}
		}
		assert.True(t, displaced)
		assert.False(t, s.Geometry().NormalsDirty(), "normals recomputed after displacement")
	})

	t.Run("Low Tier Leaves Vertices Flat", func(t *testing.T) {
		s := newTestSurface(t, DefaultConfig(), quality.TierLow)
		defer func() { _ = s.Dispose() }()

		require.NoError(t, s.Update(scene.Frame{Delta: 0.5}))
		for _, p := range s.Geometry().Positions {
			require.Zero(t, p[1])
		}
	})
}

func TestDisposeIdempotent(t *testing.T) {
	s := newTestSurface(t, DefaultConfig(), quality.TierMedium)
	geo := s.Geometry()
	mat := s.Material()
	c, h, n := s.Textures()

	require.NoError(t, s.Dispose())
	require.NoError(t, s.Dispose())

	assert.Equal(t, 1, geo.ReleaseCount())
	assert.Equal(t, 1, mat.ReleaseCount())
	assert.Equal(t, 1, c.ReleaseCount())
	assert.Equal(t, 1, h.ReleaseCount())
	assert.Equal(t, 1, n.ReleaseCount())

	// mutators after dispose are safe no-ops
	s.SetWaterLevel(3)
	s.AddWave(WaveConfig{Amplitude: 1})
	require.NoError(t, s.Update(scene.Frame{Delta: 0.016}))
}

func TestDoubleInitializeIsNoop(t *testing.T) {
	s := newTestSurface(t, DefaultConfig(), quality.TierLow)
	defer func() { _ = s.Dispose() }()

	geo := s.Geometry()
	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, geo, s.Geometry())
}
