// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package material

import (
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/nameplate"
)

// SoftwareUploader keeps textures as CPU copies. It is used when no GPU
// device is attached, for exporting maps, and in tests.
//
// SoftwareUploader is safe for concurrent use.
type SoftwareUploader struct {
	mu        sync.Mutex
	live      int
	created   int
	destroyed int
	doubles   int

	// FailAfter makes every upload after the first FailAfter ones fail.
	// Zero disables failure injection.
	FailAfter int
}

// Upload implements Uploader.
func (u *SoftwareUploader) Upload(desc TextureDescriptor, data []byte) (Texture, error) {
	if err := desc.validate(data); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.FailAfter > 0 && u.created >= u.FailAfter {
		return nil, ErrUploadFailed
	}
	u.created++
	u.live++
	pix := make([]byte, len(data))
	copy(pix, data)
	return &SoftwareTexture{owner: u, desc: desc, pix: pix}, nil
}

// Live returns the number of textures created and not yet destroyed.
func (u *SoftwareUploader) Live() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.live
}

// Created returns the total number of textures created.
func (u *SoftwareUploader) Created() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.created
}

// Destroyed returns the total number of textures destroyed.
func (u *SoftwareUploader) Destroyed() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.destroyed
}

// DoubleDestroys returns how many times Destroy was called on a texture
// that was already destroyed.
func (u *SoftwareUploader) DoubleDestroys() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.doubles
}

// SoftwareTexture is a CPU-side texture created by SoftwareUploader.
type SoftwareTexture struct {
	owner     *SoftwareUploader
	desc      TextureDescriptor
	pix       []byte
	destroyed bool
}

func (t *SoftwareTexture) Width() uint32                  { return t.desc.Width }
func (t *SoftwareTexture) Height() uint32                 { return t.desc.Height }
func (t *SoftwareTexture) Format() gputypes.TextureFormat { return t.desc.Format }

// Descriptor returns the descriptor the texture was created with.
func (t *SoftwareTexture) Descriptor() TextureDescriptor { return t.desc }

// Pixels returns the texture data. It is nil after Destroy.
func (t *SoftwareTexture) Pixels() []byte {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.pix
}

// Destroyed reports whether Destroy has been called.
func (t *SoftwareTexture) Destroyed() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.destroyed
}

// Destroy implements Texture.
func (t *SoftwareTexture) Destroy() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.destroyed {
		t.owner.doubles++
		nameplate.Logger().Warn("material: texture destroyed twice", "label", t.desc.Label)
		return
	}
	t.destroyed = true
	t.pix = nil
	t.owner.live--
	t.owner.destroyed++
}
