package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/fxamacker/cbor/v2"

	"github.com/gogpu/nameplate/compose"
	"github.com/gogpu/nameplate/material"
)

// Update is the CBOR message broadcast after every material update.
// Map images are PNG encoded.
type Update struct {
	Generation uint64     `cbor:"1,keyasint"`
	BumpScale  float32    `cbor:"2,keyasint"`
	Roughness  float32    `cbor:"3,keyasint"`
	Metalness  float32    `cbor:"4,keyasint"`
	Color      [3]float32 `cbor:"5,keyasint"`
	Repeat     [2]float32 `cbor:"6,keyasint"`
	Offset     [2]float32 `cbor:"7,keyasint"`
	Albedo     []byte     `cbor:"8,keyasint"`
	Bump       []byte     `cbor:"9,keyasint"`

	// EffectiveRoughness is the per-texel roughness after the material's
	// roughness patch, for clients without shader support.
	EffectiveRoughness []byte `cbor:"10,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	decMode = dm
}

// NewUpdate builds the message for s and the maps it was uploaded from.
func NewUpdate(s *material.State, maps *compose.Maps, withRoughness bool) (*Update, error) {
	u := &Update{
		Generation: s.Generation,
		BumpScale:  s.BumpScale,
		Roughness:  s.Roughness,
		Metalness:  s.Metalness,
		Color:      s.Color,
		Repeat:     s.UV.Repeat,
		Offset:     s.UV.Offset,
	}
	var err error
	if u.Albedo, err = encodePNG(maps.Albedo); err != nil {
		return nil, fmt.Errorf("preview: albedo: %w", err)
	}
	if u.Bump, err = encodePNG(maps.Bump); err != nil {
		return nil, fmt.Errorf("preview: bump: %w", err)
	}
	if withRoughness {
		eff := material.EffectiveRoughness(maps.Bump, float64(s.Roughness))
		if u.EffectiveRoughness, err = encodePNG(eff); err != nil {
			return nil, fmt.Errorf("preview: roughness: %w", err)
		}
	}
	return u, nil
}

// Marshal encodes u.
func (u *Update) Marshal() ([]byte, error) {
	return encMode.Marshal(u)
}

// UnmarshalUpdate decodes a message produced by Update.Marshal.
func UnmarshalUpdate(data []byte) (*Update, error) {
	var u Update
	if err := decMode.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("preview: decode update: %w", err)
	}
	return &u, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
