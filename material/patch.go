package material

import (
	_ "embed"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/effect"
	"github.com/gogpu/naga"

	"github.com/gogpu/nameplate"
)

// Remix constants: roughness *= mix(RemixBase, 1-g, RemixWeight).
const (
	RemixBase   = 0.5
	RemixWeight = 0.6
)

//go:embed shaders/roughness_remix.wgsl
var roughnessRemixWGSL string

// compileWGSL is replaced in tests to observe compilation.
var compileWGSL = naga.Compile

// RoughnessPatch is the fragment stage that derives per-texel roughness from
// the shared bump texture. A Material owns one patch for its lifetime; the
// shader is compiled on first use and the result is reused by every bind.
type RoughnessPatch struct {
	once  sync.Once
	spirv []byte
	err   error
}

// Source returns the WGSL source of the patch.
func (p *RoughnessPatch) Source() string { return roughnessRemixWGSL }

// SPIRV compiles the patch once and returns the SPIR-V module.
func (p *RoughnessPatch) SPIRV() ([]byte, error) {
	p.once.Do(func() {
		p.spirv, p.err = compileWGSL(roughnessRemixWGSL)
		if p.err != nil {
			p.err = fmt.Errorf("material: compile roughness patch: %w", p.err)
			nameplate.Logger().Warn("material: roughness patch unavailable", "err", p.err)
			return
		}
		nameplate.Logger().Debug("material: roughness patch compiled", "bytes", len(p.spirv))
	})
	return p.spirv, p.err
}

// Remix evaluates the patch for one texel green value in [0, 1].
func Remix(roughness, green float64) float64 {
	inv := 1 - green
	return roughness * (RemixBase + (inv-RemixBase)*RemixWeight)
}

// EffectiveRoughness evaluates the roughness patch on the CPU and returns
// the per-texel roughness map a renderer would sample, as gray levels.
func EffectiveRoughness(bump image.Image, roughness float64) *image.RGBA {
	inverted := effect.Invert(clone.AsRGBA(bump))
	return adjust.Apply(inverted, func(c color.RGBA) color.RGBA {
		// c.G already holds 1-g.
		v := roughness * (RemixBase + (float64(c.G)/255-RemixBase)*RemixWeight)
		g := uint8(clamp01(v)*255 + 0.5)
		return color.RGBA{R: g, G: g, B: g, A: 255}
	})
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
