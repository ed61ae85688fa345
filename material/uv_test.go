package material

import (
	"math"
	"testing"
)

func TestPlateUV(t *testing.T) {
	uv := PlateUV(2.5, 6)
	want := UVTransform{
		Repeat: [2]float32{2.5 / 6, 1},
		Offset: [2]float32{(1 - 2.5/6) / 2, 0},
	}
	if !uv.Equal(want) {
		t.Errorf("PlateUV(2.5, 6) = %+v, want %+v", uv, want)
	}

	// The visible band is centered on the map.
	u0, _ := uv.Apply(0, 0)
	u1, _ := uv.Apply(1, 0)
	if math.Abs(float64(u0+u1)/2-0.5) > 1e-6 {
		t.Errorf("band [%v, %v] not centered", u0, u1)
	}
}

func TestPlateUVDegenerate(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	for _, dims := range [][2]float32{{0, 6}, {2.5, 0}, {-1, 6}, {nan, 6}, {2.5, inf}} {
		if uv := PlateUV(dims[0], dims[1]); !uv.Equal(IdentityUV) {
			t.Errorf("PlateUV(%v, %v) = %+v, want identity", dims[0], dims[1], uv)
		}
	}
}

func TestSquarePlateIsIdentity(t *testing.T) {
	if uv := PlateUV(3, 3); !uv.Equal(IdentityUV) {
		t.Errorf("PlateUV(3, 3) = %+v", uv)
	}
}
