// Package config loads nameplate settings from a TOML file.
//
// Every field has a default, so an empty file (or no file) yields the
// plate used in production: a 512 px canvas, the brush-font spacing
// table, and a 2.5×6 plate.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gogpu/gg"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// DefaultPlaceholderText is engraved before the user enters anything.
const DefaultPlaceholderText = "試作品"

// Duration is a time.Duration written as a Go duration string ("100ms").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the root of the configuration file.
type Config struct {
	CanvasSize        int    `toml:"canvas_size"`
	PlaceholderText   string `toml:"placeholder_text"`
	DefaultFontFamily string `toml:"default_font_family"`

	Plate    Plate              `toml:"plate"`
	Material Material           `toml:"material"`
	Compose  Compose            `toml:"compose"`
	FontGate FontGate           `toml:"fontgate"`
	Assets   Assets             `toml:"assets"`
	Fonts    Fonts              `toml:"fonts"`
	Spacing  map[string]float64 `toml:"spacing"`
	Preview  Preview            `toml:"preview"`
}

// Plate is the size of the engraved plate in scene units.
type Plate struct {
	Width  float32 `toml:"width"`
	Height float32 `toml:"height"`
}

// Material holds the surface parameters.
type Material struct {
	BumpScale float32 `toml:"bump_scale"`
	Roughness float32 `toml:"roughness"`
	Metalness float32 `toml:"metalness"`
	Color     string  `toml:"color"`
}

// Compose holds map drawing parameters.
type Compose struct {
	FallbackColor    string  `toml:"fallback_color"`
	MultiplyStrength float64 `toml:"multiply_strength"`
	VerticalOffset   float64 `toml:"vertical_offset"`
}

// FontGate bounds the wait for a font.
type FontGate struct {
	SampleSizePx float64  `toml:"sample_size_px"`
	PollInterval Duration `toml:"poll_interval"`
	MaxAttempts  int      `toml:"max_attempts"`
}

// Assets locates texture images.
type Assets struct {
	Root         string   `toml:"root"`
	Wood         string   `toml:"wood"`
	Frames       []string `toml:"frames"`
	DefaultFrame string   `toml:"default_frame"`
}

// Fonts locates font files. Families maps a family name to a file
// relative to Dir.
type Fonts struct {
	Dir      string            `toml:"dir"`
	Watch    bool              `toml:"watch"`
	Families map[string]string `toml:"families"`
}

// Preview configures the preview server.
type Preview struct {
	Addr      string `toml:"addr"`
	SendQueue int    `toml:"send_queue"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CanvasSize:        512,
		PlaceholderText:   DefaultPlaceholderText,
		DefaultFontFamily: "sans-serif",
		Plate:             Plate{Width: 2.5, Height: 6},
		Material: Material{
			BumpScale: 8,
			Roughness: 1,
			Metalness: 0.1,
			Color:     "#cccccc",
		},
		Compose: Compose{
			FallbackColor:    "#8B4513",
			MultiplyStrength: 0.8,
			VerticalOffset:   23,
		},
		FontGate: FontGate{
			SampleSizePx: 120,
			PollInterval: Duration(100 * time.Millisecond),
			MaxAttempts:  100,
		},
		Assets: Assets{
			Root:         "texture",
			Wood:         "wood.png",
			DefaultFrame: "frame_default.png",
		},
		Preview: Preview{
			Addr:      "localhost:8080",
			SendQueue: 4,
		},
	}
}

// Parse decodes TOML data over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("%w: line %d column %d: %v", ErrInvalidConfig, row, col, err)
		}
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path. Relative asset and font
// directories are resolved against the file's directory.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Dir(path)
	cfg.Assets.Root = resolve(base, cfg.Assets.Root)
	cfg.Fonts.Dir = resolve(base, cfg.Fonts.Dir)
	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Marshal encodes cfg as TOML.
func Marshal(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.CanvasSize <= 0:
		return invalid("canvas_size must be positive, got %d", c.CanvasSize)
	case c.DefaultFontFamily == "":
		return invalid("default_font_family is empty")
	case !(c.Plate.Width > 0) || !(c.Plate.Height > 0):
		return invalid("plate dimensions must be positive, got %vx%v", c.Plate.Width, c.Plate.Height)
	case c.Material.BumpScale < 0:
		return invalid("material.bump_scale must not be negative")
	case c.Material.Roughness < 0 || c.Material.Roughness > 1:
		return invalid("material.roughness must be in [0, 1], got %v", c.Material.Roughness)
	case c.Material.Metalness < 0 || c.Material.Metalness > 1:
		return invalid("material.metalness must be in [0, 1], got %v", c.Material.Metalness)
	case c.Compose.MultiplyStrength <= 0 || c.Compose.MultiplyStrength > 1:
		return invalid("compose.multiply_strength must be in (0, 1], got %v", c.Compose.MultiplyStrength)
	case c.FontGate.SampleSizePx <= 0:
		return invalid("fontgate.sample_size_px must be positive")
	case c.FontGate.PollInterval <= 0:
		return invalid("fontgate.poll_interval must be positive")
	case c.FontGate.MaxAttempts <= 0:
		return invalid("fontgate.max_attempts must be positive")
	case c.Preview.SendQueue <= 0:
		return invalid("preview.send_queue must be positive")
	}
	for _, h := range []struct{ key, val string }{
		{"material.color", c.Material.Color},
		{"compose.fallback_color", c.Compose.FallbackColor},
	} {
		if !isHexColor(h.val) {
			return invalid("%s: %q is not a #rrggbb color", h.key, h.val)
		}
	}
	for family, coeff := range c.Spacing {
		if coeff <= -1 {
			return invalid("spacing.%s: coefficient %v collapses rows", family, coeff)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ColorComponents parses a validated #rrggbb color into [0, 1] components.
// Anything else yields black.
func ColorComponents(s string) [3]float32 {
	if !isHexColor(s) {
		return [3]float32{}
	}
	c := gg.Hex(s)
	return [3]float32{float32(c.R), float32(c.G), float32(c.B)}
}
