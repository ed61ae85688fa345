package material

import "github.com/chewxy/math32"

// Default plate dimensions in scene units.
const (
	DefaultPlateWidth  float32 = 2.5
	DefaultPlateHeight float32 = 6
)

// UVTransform scales and shifts texture coordinates:
// uv' = uv*Repeat + Offset.
type UVTransform struct {
	Repeat [2]float32
	Offset [2]float32
}

// IdentityUV leaves texture coordinates unchanged.
var IdentityUV = UVTransform{Repeat: [2]float32{1, 1}}

// PlateUV fits a square map onto a width×height plate without stretching:
// the map keeps its full height and a centered horizontal band of
// width/height of it is shown. Degenerate dimensions yield IdentityUV.
func PlateUV(width, height float32) UVTransform {
	if !validDim(width) || !validDim(height) {
		return IdentityUV
	}
	aspect := height / width
	return UVTransform{
		Repeat: [2]float32{1 / aspect, 1},
		Offset: [2]float32{(1 - 1/aspect) / 2, 0},
	}
}

func validDim(v float32) bool {
	return v > 0 && !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

// Apply maps a plate texture coordinate to a map texture coordinate.
func (t UVTransform) Apply(u, v float32) (float32, float32) {
	return u*t.Repeat[0] + t.Offset[0], v*t.Repeat[1] + t.Offset[1]
}

// Equal reports whether t and o match within a small tolerance.
func (t UVTransform) Equal(o UVTransform) bool {
	const eps = 1e-6
	for i := range 2 {
		if math32.Abs(t.Repeat[i]-o.Repeat[i]) > eps || math32.Abs(t.Offset[i]-o.Offset[i]) > eps {
			return false
		}
	}
	return true
}
