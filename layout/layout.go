// Package layout places characters for vertical, one-per-row engraving.
package layout

import "github.com/gogpu/nameplate/fonts"

const (
	// ReferenceCanvasSize is the canvas size nominal font sizes refer to.
	ReferenceCanvasSize = 512

	// DefaultVerticalOffset shifts the block down to balance ascender and
	// descender weight.
	DefaultVerticalOffset = 23
)

// Glyph is one character and the center of the cell it is drawn in.
type Glyph struct {
	Char    rune
	CenterX float64
	CenterY float64
}

// GlyphLayout is the placement of a whole text. It is recomputed on every
// request and never mutated afterwards.
type GlyphLayout struct {
	Glyphs []Glyph

	// FontFamily is the family the glyphs are to be drawn with.
	FontFamily string

	// FontSize is the effective font size in canvas pixels.
	FontSize float64

	// Step is the distance between consecutive row centers.
	Step float64

	// TotalHeight is the vertical extent of the block.
	TotalHeight float64

	// Top is the y of the block's upper edge, offset included.
	Top float64

	// CanvasSize is the square canvas edge the layout was computed for.
	CanvasSize int
}

// Len returns the number of glyphs.
func (l GlyphLayout) Len() int { return len(l.Glyphs) }

// Params holds the inputs of Compute besides the text.
type Params struct {
	FontFamily     string
	NominalSizePx  float64
	CanvasSize     int
	Spacing        fonts.SpacingTable
	VerticalOffset float64
}

// Compute stacks the characters of text top to bottom, one per row,
// centered horizontally. It is a pure function of its arguments.
//
// The effective font size scales the nominal size by
// CanvasSize/ReferenceCanvasSize. Each row advances by
// size*(1+c), where c is the family's spacing coefficient, so the block
// height is n*size + (n-1)*c*size.
func Compute(text []rune, p Params) GlyphLayout {
	size := p.NominalSizePx * float64(p.CanvasSize) / ReferenceCanvasSize
	adjust := p.Spacing.Coefficient(p.FontFamily) * size
	step := size + adjust

	n := len(text)
	var total float64
	if n > 0 {
		total = float64(n)*size + float64(n-1)*adjust
	}

	canvas := float64(p.CanvasSize)
	top := canvas/2 - total/2 + p.VerticalOffset

	l := GlyphLayout{
		FontFamily:  p.FontFamily,
		FontSize:    size,
		Step:        step,
		TotalHeight: total,
		Top:         top,
		CanvasSize:  p.CanvasSize,
	}
	if n == 0 {
		return l
	}

	l.Glyphs = make([]Glyph, n)
	y := top + size/2
	for i, c := range text {
		l.Glyphs[i] = Glyph{Char: c, CenterX: canvas / 2, CenterY: y}
		y += step
	}
	return l
}

// Midpoint returns the vertical middle of the drawn block: halfway between
// the top of the first cell and the bottom of the last one.
func (l GlyphLayout) Midpoint() float64 {
	return l.Top + l.TotalHeight/2
}
