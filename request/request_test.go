package request

import (
	"math"
	"testing"
)

func TestClampSize(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"valid", 64, 64},
		{"minimum", 10, 10},
		{"too small", 9, DefaultFontSizePx},
		{"zero", 0, DefaultFontSizePx},
		{"negative", -30, DefaultFontSizePx},
		{"NaN", math.NaN(), DefaultFontSizePx},
		{"Inf", math.Inf(1), DefaultFontSizePx},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampSize(tt.in); got != tt.want {
				t.Errorf("ClampSize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"120", 120},
		{" 48 ", 48},
		{"", DefaultFontSizePx},
		{"abc", DefaultFontSizePx},
		{"5", DefaultFontSizePx},
		{"12.5", 12},
		{"48px", 48},
		{"\t 64.9pt", 64},
		{"+30", 30},
		{"-30", DefaultFontSizePx},
		{"0x40", 64},
		{"px48", DefaultFontSizePx},
		{"9.99", DefaultFontSizePx},
	}
	for _, tt := range tests {
		if got := ParseSize(tt.raw); got != tt.want {
			t.Errorf("ParseSize(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	r := New("AB", "  ", 3, "default")
	if r.FontFamily() != DefaultFontFamily {
		t.Errorf("FontFamily() = %q, want %q", r.FontFamily(), DefaultFontFamily)
	}
	if !r.IsDefaultFont() {
		t.Error("IsDefaultFont() = false, want true")
	}
	if r.FontSizePx() != DefaultFontSizePx {
		t.Errorf("FontSizePx() = %v, want %v", r.FontSizePx(), DefaultFontSizePx)
	}
	if r.FrameTextureID() != "default" {
		t.Errorf("FrameTextureID() = %q, want default", r.FrameTextureID())
	}
}

func TestNewNormalizesText(t *testing.T) {
	// "e" + combining acute accent composes to a single rune.
	r := New("e\u0301", "kokuryu", 100, "")
	if got := len(r.Runes()); got != 1 {
		t.Errorf("len(Runes()) = %d, want 1", got)
	}
	if r.Text() != "\u00e9" {
		t.Errorf("Text() = %q, want %q", r.Text(), "\u00e9")
	}
}

func TestWithTextKeepsOtherFields(t *testing.T) {
	r := New("A", "kokuryu", 80, "frame2.png")
	r2 := r.WithText("試作品")
	if r.Text() != "A" {
		t.Errorf("original text changed to %q", r.Text())
	}
	if r2.Text() != "試作品" || r2.FontFamily() != "kokuryu" || r2.FontSizePx() != 80 || r2.FrameTextureID() != "frame2.png" {
		t.Errorf("WithText() = %+v", r2)
	}
	if got := len(r2.Runes()); got != 3 {
		t.Errorf("len(Runes()) = %d, want 3", got)
	}
}
