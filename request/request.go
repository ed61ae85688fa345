// Package request defines the immutable snapshot of a personalization
// request taken at the moment an update is triggered.
package request

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultFontFamily is the system font family. It never waits on the
	// font readiness gate.
	DefaultFontFamily = "sans-serif"

	// DefaultFontSizePx replaces font sizes that are missing, non-numeric
	// or below MinFontSizePx.
	DefaultFontSizePx = 120

	// MinFontSizePx is the smallest nominal font size accepted as-is.
	MinFontSizePx = 10
)

// TextureRequest is a snapshot of the user's input.
// Values are immutable once built by New.
type TextureRequest struct {
	text           string
	fontFamily     string
	fontSizePx     float64
	frameTextureID string
}

// New builds a TextureRequest.
//
// The text is NFC-normalized so that composed and decomposed input produce
// the same glyph rows. An empty family selects DefaultFontFamily, and a size
// below MinFontSizePx (or NaN/Inf) is replaced by DefaultFontSizePx.
func New(text, fontFamily string, fontSizePx float64, frameTextureID string) TextureRequest {
	family := strings.TrimSpace(fontFamily)
	if family == "" {
		family = DefaultFontFamily
	}
	return TextureRequest{
		text:           norm.NFC.String(text),
		fontFamily:     family,
		fontSizePx:     ClampSize(fontSizePx),
		frameTextureID: frameTextureID,
	}
}

// ClampSize returns size unless it is too small or not a finite number,
// in which case DefaultFontSizePx is returned.
func ClampSize(size float64) float64 {
	if math.IsNaN(size) || math.IsInf(size, 0) || size < MinFontSizePx {
		return DefaultFontSizePx
	}
	return size
}

// ParseSize parses raw size input from a text field or slider the way a
// browser's parseInt does: leading space is skipped, an optional sign and
// "0x" prefix are accepted, and parsing stops at the first character that
// is not a digit, so "12.5" is 12 and "48px" is 48. Input without leading
// digits is clamped to DefaultFontSizePx.
func ParseSize(raw string) float64 {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	base := 10
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}
	end := 0
	for end < len(s) && digitValue(s[end]) < base {
		end++
	}
	if end == 0 {
		return DefaultFontSizePx
	}
	n, err := strconv.ParseUint(s[:end], base, 64)
	if err != nil {
		return DefaultFontSizePx
	}
	v := float64(n)
	if neg {
		v = -v
	}
	return ClampSize(v)
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return 99
	}
}

// Text returns the normalized text.
func (r TextureRequest) Text() string { return r.text }

// Runes returns the characters of the text in drawing order.
func (r TextureRequest) Runes() []rune { return []rune(r.text) }

// FontFamily returns the requested font family.
func (r TextureRequest) FontFamily() string { return r.fontFamily }

// FontSizePx returns the clamped nominal font size in pixels.
func (r TextureRequest) FontSizePx() float64 { return r.fontSizePx }

// FrameTextureID returns the opaque frame texture identifier.
func (r TextureRequest) FrameTextureID() string { return r.frameTextureID }

// IsDefaultFont reports whether the request uses the system font family.
func (r TextureRequest) IsDefaultFont() bool { return r.fontFamily == DefaultFontFamily }

// WithText returns a copy of r with different text.
func (r TextureRequest) WithText(text string) TextureRequest {
	r.text = norm.NFC.String(text)
	return r
}
