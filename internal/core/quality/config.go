package quality

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Override holds optional per-tier knob replacements. Only set fields are
// merged onto the builtin table.
type Override struct {
	OceanSegmentsWidth  *int           `yaml:"ocean_segments_width,omitempty"`
	OceanSegmentsHeight *int           `yaml:"ocean_segments_height,omitempty"`
	TextureSize         *int           `yaml:"texture_size,omitempty"`
	MaxFireflyLights    *int           `yaml:"max_firefly_lights,omitempty"`
	ProceduralTextures  *bool          `yaml:"procedural_textures,omitempty"`
	NormalMaps          *bool          `yaml:"normal_maps,omitempty"`
	Reflections         *bool          `yaml:"reflections,omitempty"`
	Refractions         *bool          `yaml:"refractions,omitempty"`
	VertexDisplacement  *bool `yaml:"vertex_displacement,omitempty"`
	PollIntervalMS      *int  `yaml:"poll_interval_ms,omitempty"`
}

// OverrideConfig is the YAML document shape for tier-table overrides.
type OverrideConfig struct {
	Tiers map[string]Override `yaml:"tiers"`
}

// LoadOverridesYAML reads an OverrideConfig from YAML. Unknown tier names
// are rejected so typos do not silently no-op.
func LoadOverridesYAML(r io.Reader) (*OverrideConfig, error) {
	var c OverrideConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	for name := range c.Tiers {
		if _, err := ParseTier(name); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// ApplyOverrides merges the loaded overrides into the resolver's table.
func (r *Resolver) ApplyOverrides(c *OverrideConfig) error {
	if c == nil {
		return nil
	}
	for name, ov := range c.Tiers {
		tier, err := ParseTier(name)
		if err != nil {
			return err
		}
		s, ok := r.table[tier]
		if !ok {
			return fmt.Errorf("tier %q missing from table", name)
		}
		if ov.OceanSegmentsWidth != nil {
			s.OceanSegments.Width = *ov.OceanSegmentsWidth
		}
		if ov.OceanSegmentsHeight != nil {
			s.OceanSegments.Height = *ov.OceanSegmentsHeight
		}
		if ov.TextureSize != nil {
			s.TextureSize = *ov.TextureSize
		}
		if ov.MaxFireflyLights != nil {
			s.MaxFireflyLights = *ov.MaxFireflyLights
		}
		if ov.ProceduralTextures != nil {
			s.EnableProceduralTextures = *ov.ProceduralTextures
		}
		if ov.NormalMaps != nil {
			s.EnableNormalMaps = *ov.NormalMaps
		}
		if ov.Reflections != nil {
			s.EnableReflections = *ov.Reflections
		}
		if ov.Refractions != nil {
			s.EnableRefractions = *ov.Refractions
		}
		if ov.VertexDisplacement != nil {
			s.EnableVertexDisplacement = *ov.VertexDisplacement
		}
		if ov.PollIntervalMS != nil {
			s.EnvironmentPollInterval = time.Duration(*ov.PollIntervalMS) * time.Millisecond
		}
		r.table[tier] = s
	}
	return nil
}
