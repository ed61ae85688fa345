// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package material

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// Texture errors.
var (
	// ErrUploadFailed wraps any failure of an Uploader.
	ErrUploadFailed = errors.New("material: texture upload failed")

	// ErrInvalidDimensions is returned for empty or mismatched pixel data.
	ErrInvalidDimensions = errors.New("material: invalid texture dimensions")
)

// ColorSpace tells the sampler how texel values are encoded.
type ColorSpace uint8

const (
	// ColorSpaceNone marks data textures (height, roughness) that are
	// sampled as-is.
	ColorSpaceNone ColorSpace = iota

	// ColorSpaceSRGB marks color textures that are decoded from sRGB.
	ColorSpaceSRGB
)

// String returns the color space name.
func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceNone:
		return "none"
	case ColorSpaceSRGB:
		return "srgb"
	default:
		return fmt.Sprintf("ColorSpace(%d)", uint8(c))
	}
}

// TextureDescriptor describes a 2D RGBA texture to upload.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	Width  uint32
	Height uint32

	// Format is RGBA8UnormSrgb for color maps and RGBA8Unorm for data maps.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage gputypes.TextureUsage

	ColorSpace ColorSpace
}

// defaultUsage is the usage of every map texture: sampled by the material
// and written once at creation.
const defaultUsage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst

func colorDescriptor(label string, size int) TextureDescriptor {
	return TextureDescriptor{
		Label:      label,
		Width:      uint32(size),
		Height:     uint32(size),
		Format:     gputypes.TextureFormatRGBA8UnormSrgb,
		Usage:      defaultUsage,
		ColorSpace: ColorSpaceSRGB,
	}
}

func dataDescriptor(label string, size int) TextureDescriptor {
	return TextureDescriptor{
		Label:      label,
		Width:      uint32(size),
		Height:     uint32(size),
		Format:     gputypes.TextureFormatRGBA8Unorm,
		Usage:      defaultUsage,
		ColorSpace: ColorSpaceNone,
	}
}

// validate checks that data holds exactly Width*Height RGBA pixels.
func (d TextureDescriptor) validate(data []byte) error {
	if d.Width == 0 || d.Height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, d.Width, d.Height)
	}
	if want := int(d.Width) * int(d.Height) * 4; len(data) != want {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrInvalidDimensions, len(data), d.Width, d.Height)
	}
	return nil
}

// Texture is an uploaded map texture owned by a Material.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() uint32

	// Height returns the texture height in pixels.
	Height() uint32

	// Format returns the texture pixel format.
	Format() gputypes.TextureFormat

	// Destroy releases the texture. The Material calls it exactly once.
	Destroy()
}

// Uploader creates textures from RGBA pixel data.
type Uploader interface {
	Upload(desc TextureDescriptor, data []byte) (Texture, error)
}
