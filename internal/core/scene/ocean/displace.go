package ocean

// displacer is the per-tier vertex animation strategy. The vertex buffer is
// strategy-agnostic; low tiers simply never touch it, renderers on shader
// paths can substitute their own implementation.
type displacer interface {
	apply(s *Surface)
}

type noopDisplacer struct{}

func (noopDisplacer) apply(*Surface) {}

// cpuDisplacer recomputes every vertex height from the analytic wave
// function on the CPU. Cost is proportional to the tier's segment counts.
type cpuDisplacer struct{}

func (cpuDisplacer) apply(s *Surface) {
	g := s.geometry
	if g == nil || g.Disposed() || len(s.waves) == 0 {
		return
	}
	for i := range g.Positions {
		x := g.Positions[i][0]
		z := g.Positions[i][2]
		// vertex heights are relative to the mesh, which already sits at the
		// water level
		g.Positions[i][1] = s.WaterHeightAt(x, z) - s.waterLevel
	}
	g.MarkNormalsDirty()
	g.RecomputeNormals()
}
