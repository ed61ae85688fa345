// Package fonts keeps the font families the plate can be engraved with.
//
// Families are registered by name and loaded lazily: nothing is read from
// disk until a caller demands glyphs from the family, mirroring how web
// fonts are only fetched once text needs them. [Registry.Check] answers
// whether every glyph of a text is available, which is what the font
// readiness gate polls.
package fonts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/font"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"

	"github.com/gogpu/nameplate"
	"github.com/gogpu/nameplate/internal/facecache"
	"github.com/gogpu/nameplate/request"
)

// DefaultFamily is the system family. It is backed by the embedded Go Bold
// font and is always loaded.
const DefaultFamily = request.DefaultFontFamily

// faceCacheCapacity is the per-shard capacity of the face cache.
const faceCacheCapacity = 32

type loadState int

const (
	stateIdle loadState = iota
	stateLoading
	stateLoaded
	stateFailed
)

func (s loadState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateLoading:
		return "loading"
	case stateLoaded:
		return "loaded"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// family is one registered font family. All fields after path/data are
// guarded by Registry.mu.
type family struct {
	name string
	path string // empty for in-memory fonts
	data []byte // in-memory font data, nil for file-backed fonts

	state  loadState
	gen    uint64
	done   chan struct{} // closed when the current load attempt finishes
	source *text.FontSource
	cmap   *font.Face // glyph coverage; not safe for concurrent use
	err    error
}

// Registry holds the registered font families.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
	demands  map[string]int
	probes   int

	readFile func(name string) ([]byte, error)
	faces    *facecache.Cache[text.Face]
	wg       sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithReadFile replaces os.ReadFile for loading font files.
func WithReadFile(fn func(name string) ([]byte, error)) Option {
	return func(r *Registry) {
		r.readFile = fn
	}
}

// NewRegistry creates a Registry with the default family already loaded.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		families: make(map[string]*family),
		demands:  make(map[string]int),
		readFile: os.ReadFile,
		faces:    facecache.New[text.Face](faceCacheCapacity),
	}
	for _, opt := range opts {
		opt(r)
	}

	def := &family{name: DefaultFamily, data: gobold.TTF}
	src, cmap, err := parseFont(def.data)
	if err != nil {
		return nil, fmt.Errorf("fonts: default family: %w", err)
	}
	def.state = stateLoaded
	def.source = src
	def.cmap = cmap
	def.done = make(chan struct{})
	close(def.done)
	r.families[DefaultFamily] = def
	return r, nil
}

// Register adds a file-backed family. The file is not read until the
// family is demanded or loaded.
func (r *Registry) Register(name, path string) error {
	if name == "" {
		return ErrEmptyFamily
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceLocked(&family{name: name, path: path})
	return nil
}

// RegisterData adds a family backed by in-memory font data.
// The data is parsed lazily like a file-backed family.
func (r *Registry) RegisterData(name string, data []byte) error {
	if name == "" {
		return ErrEmptyFamily
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceLocked(&family{name: name, data: data})
	return nil
}

func (r *Registry) replaceLocked(f *family) {
	if old, ok := r.families[f.name]; ok {
		old.gen++
		f.gen = old.gen
		closeSource(old)
	}
	r.families[f.name] = f
	r.faces.DropFamily(f.name)
}

// Families returns the registered family names, sorted.
func (r *Registry) Families() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.families))
	for name := range r.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Loaded reports whether family has finished loading successfully.
func (r *Registry) Loaded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[name]
	return ok && f.state == stateLoaded
}

// Demand asks the registry to make the glyphs of text in family available,
// starting a background load if the family is not loaded yet. The returned
// release function must be called once the caller no longer needs the
// demand; calling it more than once is harmless.
//
// Demanding an unknown family is allowed: nothing is loaded and Check keeps
// reporting false, as a browser does for a family it cannot find.
func (r *Registry) Demand(name, txt string) (release func()) {
	r.mu.Lock()
	r.probes++
	r.demands[name]++
	if f, ok := r.families[name]; ok && (f.state == stateIdle || f.state == stateFailed) {
		r.startLoadLocked(f)
	}
	r.mu.Unlock()

	nameplate.Logger().Debug("fonts: glyphs demanded", "family", name, "runes", len([]rune(txt)))

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.probes--
			if r.demands[name]--; r.demands[name] <= 0 {
				delete(r.demands, name)
			}
		})
	}
}

// ActiveProbes returns the number of demands that have not been released.
func (r *Registry) ActiveProbes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.probes
}

// Check reports whether every non-space character of txt can be drawn with
// family at sizePx. It never triggers a load.
func (r *Registry) Check(sizePx float64, name, txt string) bool {
	if sizePx <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[name]
	if !ok || f.state != stateLoaded {
		return false
	}
	for _, c := range txt {
		if unicode.IsSpace(c) {
			continue
		}
		if _, ok := f.cmap.NominalGlyph(c); !ok {
			return false
		}
	}
	return true
}

// Load loads family and waits until it is ready or ctx is done.
func (r *Registry) Load(ctx context.Context, name string) error {
	r.mu.Lock()
	f, ok := r.families[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownFamily, name)
	}
	if f.state == stateLoaded {
		r.mu.Unlock()
		return nil
	}
	if f.state != stateLoading {
		r.startLoadLocked(f)
	}
	done := f.done
	r.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case f.state == stateLoaded:
		return nil
	case f.err != nil:
		return f.err
	default:
		return fmt.Errorf("%w: %q", ErrNotLoaded, name)
	}
}

// Face returns a face for family at sizePx. When the family is unknown or
// not loaded yet, the default family is substituted so drawing can go on
// with system glyphs.
func (r *Registry) Face(name string, sizePx float64) text.Face {
	r.mu.Lock()
	f, ok := r.families[name]
	if !ok || f.state != stateLoaded {
		if ok || name != DefaultFamily {
			nameplate.Logger().Debug("fonts: substituting default family", "family", name)
		}
		f = r.families[DefaultFamily]
	}
	key := facecache.Key{Family: f.name, Gen: f.gen, SizePx: sizePx}
	src := f.source
	r.mu.Unlock()

	return r.faces.GetOrCreate(key, func() text.Face {
		return src.Face(sizePx)
	})
}

// Invalidate drops the loaded font of family so that the next demand
// reloads it. Used when the font file changes on disk.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[name]
	if !ok || name == DefaultFamily {
		return
	}
	closeSource(f)
	f.gen++
	f.state = stateIdle
	f.err = nil
	r.faces.DropFamily(name)
	nameplate.Logger().Info("fonts: family invalidated", "family", name)
	if r.demands[name] > 0 {
		r.startLoadLocked(f)
	}
}

// Close waits for in-flight loads and releases all fonts.
func (r *Registry) Close() error {
	r.wg.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.families {
		closeSource(f)
		f.state = stateIdle
	}
	r.faces.Clear()
	return nil
}

func (r *Registry) startLoadLocked(f *family) {
	f.state = stateLoading
	f.err = nil
	f.done = make(chan struct{})
	gen, done := f.gen, f.done

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(done)

		data := f.data
		var err error
		if f.path != "" {
			data, err = r.readFile(f.path)
		}
		var (
			src  *text.FontSource
			cmap *font.Face
		)
		if err == nil {
			src, cmap, err = parseFont(data)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if f.gen != gen {
			// Invalidated or replaced while loading.
			if src != nil {
				_ = src.Close()
			}
			return
		}
		if err != nil {
			f.state = stateFailed
			f.err = fmt.Errorf("fonts: load %q: %w", f.name, err)
			nameplate.Logger().Warn("fonts: load failed", "family", f.name, "err", err)
			return
		}
		f.state = stateLoaded
		f.source = src
		f.cmap = cmap
		nameplate.Logger().Info("fonts: family loaded", "family", f.name)
	}()
}

func parseFont(data []byte) (*text.FontSource, *font.Face, error) {
	src, err := text.NewFontSource(data)
	if err != nil {
		return nil, nil, err
	}
	cmap, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}
	return src, cmap, nil
}

func closeSource(f *family) {
	if f.source != nil && f.name != DefaultFamily {
		_ = f.source.Close()
	}
	if f.name != DefaultFamily {
		f.source = nil
		f.cmap = nil
	}
}
