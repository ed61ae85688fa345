// Package compose draws the bump and albedo maps of an engraved plate.
//
// The bump map is the height field: a black canvas, the decorative frame
// stretched over it, and the engraved characters in white. The albedo map
// is the wood texture (or a flat wood color when the texture is missing)
// darkened by the bump map under a multiply layer, so that the engraving
// reads as shadowed grooves.
package compose

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/gogpu/nameplate"
	"github.com/gogpu/nameplate/layout"
)

const (
	// DefaultCanvasSize is the edge of the square map buffers.
	DefaultCanvasSize = 512

	// DefaultMultiplyStrength is the opacity of the bump layer multiplied
	// over the wood.
	DefaultMultiplyStrength = 0.8
)

// DefaultFallbackColor is the flat wood color used when no wood texture
// is available.
var DefaultFallbackColor = gg.Hex("#8B4513")

// ErrNoFaces is returned by Compose when the Compositor has no FaceProvider.
var ErrNoFaces = errors.New("compose: no face provider")

// FaceProvider supplies sized faces for a font family.
// fonts.Registry implements FaceProvider.
type FaceProvider interface {
	Face(family string, sizePx float64) text.Face
}

// Maps holds the buffers produced by one Compose call.
type Maps struct {
	Bump   *image.RGBA
	Albedo *image.RGBA
	Size   int
}

// Compositor draws map buffers. The zero value is not usable; set Faces.
// Zero CanvasSize, FallbackColor and MultiplyStrength take the defaults.
type Compositor struct {
	CanvasSize       int
	Faces            FaceProvider
	FallbackColor    gg.RGBA
	MultiplyStrength float64
}

func (c *Compositor) size() int {
	if c.CanvasSize > 0 {
		return c.CanvasSize
	}
	return DefaultCanvasSize
}

func (c *Compositor) fallback() gg.RGBA {
	if c.FallbackColor == (gg.RGBA{}) {
		return DefaultFallbackColor
	}
	return c.FallbackColor
}

func (c *Compositor) strength() float64 {
	if c.MultiplyStrength > 0 {
		return c.MultiplyStrength
	}
	return DefaultMultiplyStrength
}

// Compose draws fresh bump and albedo buffers for l. frame and wood may be
// nil: a missing frame leaves the bump background black and a missing
// wood texture is replaced by the fallback color.
//
// Compose is deterministic: identical inputs produce byte-identical
// buffers.
func (c *Compositor) Compose(l layout.GlyphLayout, frame, wood *gg.ImageBuf) (*Maps, error) {
	if c.Faces == nil {
		return nil, ErrNoFaces
	}
	size := c.size()
	if l.CanvasSize != 0 && l.CanvasSize != size {
		return nil, fmt.Errorf("compose: layout canvas %d does not match %d", l.CanvasSize, size)
	}

	bump := c.drawBump(l, frame, size)
	albedo := c.drawAlbedo(bump, wood, size)

	nameplate.Logger().Debug("compose: maps drawn",
		"glyphs", l.Len(), "size", size, "frame", frame != nil, "wood", wood != nil)

	return &Maps{Bump: bump, Albedo: albedo, Size: size}, nil
}

func (c *Compositor) drawBump(l layout.GlyphLayout, frame *gg.ImageBuf, size int) *image.RGBA {
	dc := gg.NewContext(size, size)
	defer dc.Close()

	dc.ClearWithColor(gg.Black)
	if frame != nil {
		stretch(dc, frame, size, gg.BlendNormal, 1)
	}

	if l.Len() > 0 {
		face := c.Faces.Face(l.FontFamily, l.FontSize)
		if face != nil {
			dc.SetFont(face)
			dc.SetRGB(1, 1, 1)
			m := face.Metrics()
			// Center the em box on CenterY, as a "middle" text baseline does.
			shift := (m.Ascent - m.Descent) / 2
			for _, g := range l.Glyphs {
				s := string(g.Char)
				dc.DrawString(s, g.CenterX-face.Advance(s)/2, g.CenterY+shift)
			}
		}
	}
	return toRGBA(dc.Image())
}

func (c *Compositor) drawAlbedo(bump *image.RGBA, wood *gg.ImageBuf, size int) *image.RGBA {
	dc := gg.NewContext(size, size)
	defer dc.Close()

	drawAlbedoBase(dc, wood, c.fallback(), size)

	dc.PushLayer(gg.BlendMultiply, c.strength())
	dc.DrawImage(gg.ImageBufFromImage(bump), 0, 0)
	dc.PopLayer()

	return toRGBA(dc.Image())
}

// drawAlbedoBase fills dc with wood stretched to size, or with fallback.
func drawAlbedoBase(dc *gg.Context, wood *gg.ImageBuf, fallback gg.RGBA, size int) {
	if wood == nil {
		dc.ClearWithColor(fallback)
		return
	}
	dc.ClearWithColor(gg.Black)
	stretch(dc, wood, size, gg.BlendNormal, 1)
}

func stretch(dc *gg.Context, img *gg.ImageBuf, size int, mode gg.BlendMode, opacity float64) {
	dc.DrawImageEx(img, gg.DrawImageOptions{
		DstWidth:      float64(size),
		DstHeight:     float64(size),
		Interpolation: gg.InterpBilinear,
		Opacity:       opacity,
		BlendMode:     mode,
	})
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
