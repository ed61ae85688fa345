// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package material

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/nameplate"
)

// ErrNilProvider is returned when a nil DeviceProvider is passed.
var ErrNilProvider = errors.New("material: nil DeviceProvider")

// TextureCreator creates device textures from RGBA pixel data. The texture
// creators of gogpu renderers satisfy it.
type TextureCreator interface {
	NewTextureFromRGBA(width, height int, data []byte) (any, error)
}

// textureDestroyer matches the Destroy method of device textures.
type textureDestroyer interface {
	Destroy()
}

// DeviceUploader uploads textures to the host's GPU device.
type DeviceUploader struct {
	provider gpucontext.DeviceProvider
	creator  TextureCreator
}

// NewDeviceUploader creates an uploader for the device of provider.
// The provider should come from the host application, for example
// gogpu.App.GPUContextProvider().
func NewDeviceUploader(provider gpucontext.DeviceProvider, creator TextureCreator) (*DeviceUploader, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if creator == nil {
		return nil, fmt.Errorf("%w: nil TextureCreator", ErrUploadFailed)
	}
	return &DeviceUploader{provider: provider, creator: creator}, nil
}

// Provider returns the DeviceProvider textures are uploaded to.
func (u *DeviceUploader) Provider() gpucontext.DeviceProvider { return u.provider }

// Upload implements Uploader.
func (u *DeviceUploader) Upload(desc TextureDescriptor, data []byte) (Texture, error) {
	if err := desc.validate(data); err != nil {
		return nil, err
	}
	if u.provider.Device() == nil {
		return nil, fmt.Errorf("%w: no device", ErrUploadFailed)
	}
	tex, err := u.creator.NewTextureFromRGBA(int(desc.Width), int(desc.Height), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUploadFailed, desc.Label, err)
	}
	nameplate.Logger().Debug("material: texture uploaded",
		"label", desc.Label, "width", desc.Width, "height", desc.Height,
		"format", desc.Format, "surface", u.provider.SurfaceFormat())
	return &deviceTexture{tex: tex, desc: desc}, nil
}

// deviceTexture wraps a texture returned by a TextureCreator.
type deviceTexture struct {
	tex  any
	desc TextureDescriptor
}

func (t *deviceTexture) Width() uint32                  { return t.desc.Width }
func (t *deviceTexture) Height() uint32                 { return t.desc.Height }
func (t *deviceTexture) Format() gputypes.TextureFormat { return t.desc.Format }

// Native returns the texture created by the host's TextureCreator.
func (t *deviceTexture) Native() any { return t.tex }

func (t *deviceTexture) Destroy() {
	if d, ok := t.tex.(textureDestroyer); ok {
		d.Destroy()
	}
}
