package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 512, cfg.CanvasSize)
	assert.Equal(t, "試作品", cfg.PlaceholderText)
	assert.Equal(t, "sans-serif", cfg.DefaultFontFamily)
	assert.Equal(t, float32(8), cfg.Material.BumpScale)
	assert.Equal(t, 100*time.Millisecond, time.Duration(cfg.FontGate.PollInterval))
	assert.Equal(t, 100, cfg.FontGate.MaxAttempts)
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseOverrides(t *testing.T) {
	data := []byte(`
canvas_size = 1024
placeholder_text = "見本"

[plate]
width = 3.0
height = 9.0

[fontgate]
poll_interval = "50ms"
max_attempts = 20

[assets]
frames = ["frame_default.png", "frame_gold.png"]

[fonts]
dir = "fonts"
[fonts.families]
kokuryu = "kokuryu.otf"

[spacing]
kokuryu = -0.15
`)
	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.CanvasSize)
	assert.Equal(t, "見本", cfg.PlaceholderText)
	assert.Equal(t, Plate{Width: 3, Height: 9}, cfg.Plate)
	assert.Equal(t, 50*time.Millisecond, time.Duration(cfg.FontGate.PollInterval))
	assert.Equal(t, 20, cfg.FontGate.MaxAttempts)
	assert.Equal(t, float64(120), cfg.FontGate.SampleSizePx, "unset keys keep defaults")
	assert.Equal(t, []string{"frame_default.png", "frame_gold.png"}, cfg.Assets.Frames)
	assert.Equal(t, "kokuryu.otf", cfg.Fonts.Families["kokuryu"])
	assert.InDelta(t, -0.15, cfg.Spacing["kokuryu"], 1e-12)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "canvas_size = "},
		{"unknown key", "canvas_sise = 512"},
		{"bad duration", "[fontgate]\npoll_interval = \"soon\""},
		{"zero canvas", "canvas_size = 0"},
		{"roughness", "[material]\nroughness = 2.0"},
		{"color", "[material]\ncolor = \"grey\""},
		{"multiply", "[compose]\nmultiply_strength = 0.0"},
		{"attempts", "[fontgate]\nmax_attempts = 0"},
		{"plate", "[plate]\nwidth = -1.0"},
		{"spacing", "[spacing]\nkokuryu = -1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nameplate.toml")
	require.NoError(t, os.WriteFile(path, []byte("[fonts]\ndir = \"fonts\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "texture"), cfg.Assets.Root)
	assert.Equal(t, filepath.Join(dir, "fonts"), cfg.Fonts.Dir)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Spacing = map[string]float64{"kokuryu": -0.1}
	cfg.Assets.Frames = []string{"frame_default.png"}
	cfg.Fonts.Families = map[string]string{"kokuryu": "kokuryu.otf"}
	data, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "100ms")

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestColorComponents(t *testing.T) {
	tests := []struct {
		in   string
		want [3]float32
	}{
		{"#cccccc", [3]float32{0.8, 0.8, 0.8}},
		{"#8B4513", [3]float32{139.0 / 255, 69.0 / 255, 19.0 / 255}},
		{"#8b4513", [3]float32{139.0 / 255, 69.0 / 255, 19.0 / 255}},
		{"#ffffff", [3]float32{1, 1, 1}},
		{"nope", [3]float32{}},
		{"#ccc", [3]float32{}},
		{"#12345g", [3]float32{}},
	}
	for _, tt := range tests {
		got := ColorComponents(tt.in)
		for i := range got {
			assert.InDelta(t, tt.want[i], got[i], 1e-6, "%s component %d", tt.in, i)
		}
	}
}
