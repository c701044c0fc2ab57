// Package config holds the tunable parameters of the segmentation pipeline.
//
// Parameters can be read from YAML. Fields missing from the file keep their
// defaults. Example:
//
//	tolerance:
//	  h: 2.5
//	  s: 10
//	  l: 10
//	window: {w: 3, h: 3}
//	dilate: true
//	erode: true
//	background: "#0032C8"
//	chunksize: 15
//	groupthreshold: 0.1
package config

import (
	"fmt"
	"image/color"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ironsheep/debris-tools-mcp/internal/detection"
	"github.com/ironsheep/debris-tools-mcp/internal/imaging"
	"github.com/ironsheep/debris-tools-mcp/internal/segment"
)

// Params configures one run of the pipeline.
type Params struct {
	// Classifier
	Tolerance          segment.Tolerance `yaml:"tolerance" json:"tolerance"`
	IgnoreFlatChannels bool              `yaml:"ignoreflatchannels" json:"ignore_flat_channels"`

	// Morphology, applied dilate first, then erode
	Window segment.Window `yaml:"window" json:"window"`
	Dilate bool           `yaml:"dilate" json:"dilate"`
	Erode  bool           `yaml:"erode" json:"erode"`

	// Compositor
	Background string `yaml:"background" json:"background"` // hex, "#RRGGBB" or "#RRGGBBAA"

	// Tile grouping
	ChunkSize      int      `yaml:"chunksize" json:"chunk_size"`
	GroupThreshold float64  `yaml:"groupthreshold" json:"group_threshold"`
	GroupDepth     int      `yaml:"groupdepth" json:"group_depth"` // 0 = unbounded
	OrderedGroups  bool     `yaml:"orderedgroups" json:"ordered_groups"`
	Palette        []string `yaml:"palette" json:"palette"`

	// Interactive flood fill
	FillTolerance float64 `yaml:"filltolerance" json:"fill_tolerance"`
	FillDepth     int     `yaml:"filldepth" json:"fill_depth"`
}

// Default returns the parameters the interactive explorer starts with.
func Default() Params {
	return Params{
		Tolerance:      segment.Tolerance{H: 2.5, S: 10, L: 10},
		Window:         segment.Window{W: 3, H: 3},
		Background:     "#0032C8",
		ChunkSize:      15,
		GroupThreshold: detection.DefaultGroupThreshold,
		Palette:        append([]string(nil), imaging.DefaultPalette...),
		FillTolerance:  0.25,
		FillDepth:      100,
	}
}

// Parse reads YAML over the defaults and validates the result.
func Parse(b []byte) (Params, error) {
	p := Default()
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse config: %w", err)
	}
	return p, p.Validate()
}

// Load reads and parses the YAML file at path.
func Load(path string) (Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read config '%s': %w", path, err)
	}
	p, err := Parse(b)
	if err != nil {
		return p, fmt.Errorf("'%s': %w", path, err)
	}
	return p, nil
}

// AsYaml renders the parameters as YAML, for logging the effective config.
func (p Params) AsYaml() string {
	b, err := yaml.Marshal(p)
	if err != nil {
		log.Printf("Can't marshal config yaml: %v", err)
		return ""
	}
	return string(b)
}

// Validate checks that every parameter is in range.
func (p Params) Validate() error {
	for _, t := range []struct {
		name string
		v    float64
	}{
		{"tolerance.h", p.Tolerance.H},
		{"tolerance.s", p.Tolerance.S},
		{"tolerance.l", p.Tolerance.L},
		{"groupthreshold", p.GroupThreshold},
		{"filltolerance", p.FillTolerance},
	} {
		if t.v < 0 {
			return fmt.Errorf("%s must not be negative, got %g", t.name, t.v)
		}
	}
	if p.Window.W <= 0 || p.Window.H <= 0 {
		return fmt.Errorf("window must be positive, got %dx%d", p.Window.W, p.Window.H)
	}
	if p.ChunkSize <= 0 {
		return fmt.Errorf("chunksize must be positive, got %d", p.ChunkSize)
	}
	if p.FillDepth < 0 {
		return fmt.Errorf("filldepth must not be negative, got %d", p.FillDepth)
	}
	if _, err := p.BackgroundColor(); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	if _, err := p.PaletteColors(); err != nil {
		return err
	}
	return nil
}

// BackgroundColor parses Background.
func (p Params) BackgroundColor() (color.NRGBA, error) {
	return imaging.ParseHexColor(p.Background)
}

// PaletteColors parses Palette, falling back to imaging.DefaultPalette when
// it is empty.
func (p Params) PaletteColors() ([]color.NRGBA, error) {
	if len(p.Palette) == 0 {
		return imaging.ParsePalette(imaging.DefaultPalette)
	}
	return imaging.ParsePalette(p.Palette)
}

// GroupOptions returns the detection options for the tile grouping pass.
func (p Params) GroupOptions() detection.GroupOptions {
	return detection.GroupOptions{
		Threshold: p.GroupThreshold,
		MaxDepth:  p.GroupDepth,
		Ordered:   p.OrderedGroups,
	}
}

// ClassifyOptions returns the options for the classifier.
func (p Params) ClassifyOptions() segment.ClassifyOptions {
	return segment.ClassifyOptions{IgnoreFlatChannels: p.IgnoreFlatChannels}
}
