package session

import (
	"github.com/gogpu/nameplate/fonts"
	"github.com/gogpu/nameplate/imagecache"
	"github.com/gogpu/nameplate/material"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	fonts     *fonts.Registry
	uploader  material.Uploader
	resolver  imagecache.Resolver
	observers []material.Observer
}

// WithFonts uses reg instead of a registry built from the configuration.
// The Session does not close a registry passed this way.
func WithFonts(reg *fonts.Registry) Option {
	return func(o *options) {
		o.fonts = reg
	}
}

// WithUploader sets the texture uploader. The default keeps textures in
// memory (material.SoftwareUploader).
func WithUploader(u material.Uploader) Option {
	return func(o *options) {
		o.uploader = u
	}
}

// WithResolver sets where texture images are read from. The default reads
// from the configured asset root.
func WithResolver(r imagecache.Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithObserver registers an observer of every material update.
func WithObserver(obs material.Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}
