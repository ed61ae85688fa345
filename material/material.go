// Package material binds composed maps to the plate's physically based
// material.
//
// A Material owns the textures of the currently displayed maps. Each Bind
// uploads a new generation, publishes it atomically, and only then
// destroys the previous generation, so a render loop reading State never
// sees a half-applied binding or a destroyed texture of the current
// generation.
package material

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/nameplate"
	"github.com/gogpu/nameplate/compose"
)

// ErrDisposed is returned by Bind after Dispose.
var ErrDisposed = errors.New("material: disposed")

// Default surface parameters of the plate.
const (
	DefaultBumpScale float32 = 8
	DefaultRoughness float32 = 1
	DefaultMetalness float32 = 0.1
)

// DefaultColor is the base color 0xcccccc in linear [0, 1] components.
var DefaultColor = [3]float32{0xcc / 255.0, 0xcc / 255.0, 0xcc / 255.0}

// Params are the scalar surface parameters applied on every bind.
type Params struct {
	BumpScale float32
	Roughness float32
	Metalness float32
	Color     [3]float32
}

// DefaultParams returns the plate's surface parameters.
func DefaultParams() Params {
	return Params{
		BumpScale: DefaultBumpScale,
		Roughness: DefaultRoughness,
		Metalness: DefaultMetalness,
		Color:     DefaultColor,
	}
}

// State is one published material binding. It is never modified after
// publication.
type State struct {
	// Map is the albedo texture, sRGB encoded.
	Map Texture

	// BumpMap and RoughnessMap are the same height texture.
	BumpMap      Texture
	RoughnessMap Texture

	BumpScale float32
	Roughness float32
	Metalness float32
	Color     [3]float32

	// UV applies to Map, BumpMap and RoughnessMap alike.
	UV UVTransform

	// Patch derives per-texel roughness from RoughnessMap.
	Patch *RoughnessPatch

	// Generation increases by one with every successful bind.
	Generation uint64
}

// textures returns the distinct textures of s.
func (s *State) textures() []Texture {
	var out []Texture
	for _, t := range []Texture{s.Map, s.BumpMap, s.RoughnessMap} {
		if t == nil {
			continue
		}
		dup := false
		for _, o := range out {
			if o == t {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t)
		}
	}
	return out
}

func (s *State) release() {
	if s == nil {
		return
	}
	for _, t := range s.textures() {
		t.Destroy()
	}
}

// Observer is notified after each successful bind. maps are the buffers
// the state's textures were uploaded from.
type Observer interface {
	MaterialUpdated(s *State, maps *compose.Maps)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(s *State, maps *compose.Maps)

// MaterialUpdated calls f(s, maps).
func (f ObserverFunc) MaterialUpdated(s *State, maps *compose.Maps) { f(s, maps) }

// Material is the plate's surface. Bind and Dispose are serialized;
// State may be called from any goroutine, including a render loop.
type Material struct {
	uploader Uploader
	params   Params
	patch    *RoughnessPatch

	mu        sync.Mutex
	gen       uint64
	disposed  bool
	observers []Observer

	state atomic.Pointer[State]
}

// New creates a Material that uploads through u. The roughness patch is
// created here, once, and shared by every State of the Material.
func New(u Uploader, params Params) *Material {
	return &Material{
		uploader: u,
		params:   params,
		patch:    &RoughnessPatch{},
	}
}

// Patch returns the Material's roughness patch.
func (m *Material) Patch() *RoughnessPatch { return m.patch }

// Params returns the surface parameters applied on bind.
func (m *Material) Params() Params { return m.params }

// State returns the current binding, or nil before the first bind.
func (m *Material) State() *State { return m.state.Load() }

// Observe registers o for future binds.
func (m *Material) Observe(o Observer) {
	m.mu.Lock()
	m.observers = append(m.observers, o)
	m.mu.Unlock()
}

// Bind uploads maps and makes them the current binding of the plate.
// plateWidth and plateHeight set the UV transform. The albedo is uploaded
// as sRGB color and the bump map as raw data; the bump texture also
// serves as the roughness map.
//
// On failure the current binding stays in place and nothing leaks.
// On success the previous generation's textures are destroyed, each once.
func (m *Material) Bind(maps *compose.Maps, plateWidth, plateHeight float32) (*State, error) {
	if maps == nil || maps.Albedo == nil || maps.Bump == nil {
		return nil, fmt.Errorf("%w: missing map", ErrInvalidDimensions)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return nil, ErrDisposed
	}

	gen := m.gen + 1
	albedo, err := m.uploader.Upload(colorDescriptor(fmt.Sprintf("albedo#%d", gen), maps.Size), maps.Albedo.Pix)
	if err != nil {
		return nil, fmt.Errorf("material: upload albedo: %w", err)
	}
	bump, err := m.uploader.Upload(dataDescriptor(fmt.Sprintf("bump#%d", gen), maps.Size), maps.Bump.Pix)
	if err != nil {
		albedo.Destroy()
		return nil, fmt.Errorf("material: upload bump: %w", err)
	}

	s := &State{
		Map:          albedo,
		BumpMap:      bump,
		RoughnessMap: bump,
		BumpScale:    m.params.BumpScale,
		Roughness:    m.params.Roughness,
		Metalness:    m.params.Metalness,
		Color:        m.params.Color,
		UV:           PlateUV(plateWidth, plateHeight),
		Patch:        m.patch,
		Generation:   gen,
	}
	m.gen = gen
	prev := m.state.Swap(s)
	prev.release()

	nameplate.Logger().Debug("material: bound", "generation", gen, "size", maps.Size)

	for _, o := range m.observers {
		o.MaterialUpdated(s, maps)
	}
	return s, nil
}

// Dispose destroys the current textures. Later binds fail with
// ErrDisposed. Dispose is idempotent.
func (m *Material) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	m.disposed = true
	m.state.Swap(nil).release()
}
