// Package imagecache loads the frame and wood textures in the background.
//
// A Cache has one slot per texture role. Each slot holds at most one image
// and is complete only once that image has decoded. Loads are asynchronous:
// Load returns a Future immediately and the decode runs on its own
// goroutine. Starting a load in a slot supersedes the load already running
// there; the older load is cancelled and its result discarded. Slots never
// affect each other.
package imagecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"sync"

	"github.com/gogpu/gg"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/nameplate"
)

// MaxImageBytes bounds the encoded size of a texture.
const MaxImageBytes = 32 << 20

var (
	// ErrNotImage is returned when the content is not a recognized image.
	ErrNotImage = errors.New("imagecache: not an image")

	// ErrTooLarge is returned when the content exceeds MaxImageBytes.
	ErrTooLarge = errors.New("imagecache: image too large")

	// ErrReplaced resolves the Future of a load superseded by a newer load
	// in the same slot.
	ErrReplaced = errors.New("imagecache: load replaced by a newer load")

	// ErrClosed is returned by loads started after Close.
	ErrClosed = errors.New("imagecache: cache closed")
)

// Slot names a texture role.
type Slot int

const (
	// SlotFrame holds the decorative frame drawn under the engraving.
	SlotFrame Slot = iota
	// SlotWood holds the wood grain of the albedo map.
	SlotWood

	numSlots
)

// String returns the slot name.
func (s Slot) String() string {
	switch s {
	case SlotFrame:
		return "frame"
	case SlotWood:
		return "wood"
	default:
		return fmt.Sprintf("Slot(%d)", int(s))
	}
}

// LoadError reports a texture that could not be fetched or decoded.
type LoadError struct {
	Slot Slot
	ID   string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("imagecache: load %s %q: %v", e.Slot, e.ID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SlotState is a snapshot of one slot.
type SlotState struct {
	ID       string
	Complete bool
	Pending  bool
	Err      error
}

type slot struct {
	gen    uint64
	id     string
	cancel context.CancelFunc
	img    *gg.ImageBuf
	done   bool
	err    error
}

// Cache holds the texture slots. It is safe for concurrent use.
type Cache struct {
	resolver Resolver

	mu         sync.Mutex
	slots      [numSlots]slot
	onComplete []func(Slot, error)
	closed     bool

	wg sync.WaitGroup
}

// New creates a Cache that fetches through r.
func New(r Resolver) *Cache {
	return &Cache{resolver: r}
}

// OnComplete registers fn to run after every load that is not superseded,
// with the load's error (nil on success). Loads finishing after Close do
// not run it. fn runs on the loading goroutine
// after the slot has been updated.
func (c *Cache) OnComplete(fn func(slot Slot, err error)) {
	c.mu.Lock()
	c.onComplete = append(c.onComplete, fn)
	c.mu.Unlock()
}

// Load starts loading id into slot and returns its Future. Any previous
// load of the slot is cancelled and the slot holds no image until the new
// load completes. Cancelling ctx cancels the load.
func (c *Cache) Load(ctx context.Context, s Slot, id string) *Future {
	f := newFuture(s, id)
	if s < 0 || s >= numSlots {
		f.resolve(nil, &LoadError{Slot: s, ID: id, Err: errors.New("unknown slot")})
		return f
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		f.resolve(nil, &LoadError{Slot: s, ID: id, Err: ErrClosed})
		return f
	}
	st := &c.slots[s]
	if st.cancel != nil {
		st.cancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	st.gen++
	gen := st.gen
	*st = slot{gen: gen, id: id, cancel: cancel}
	c.wg.Add(1)
	c.mu.Unlock()

	nameplate.Logger().Debug("imagecache: load started", "slot", s, "id", id)

	go func() {
		defer c.wg.Done()
		defer cancel()
		img, err := c.fetch(lctx, id)
		if err != nil {
			err = &LoadError{Slot: s, ID: id, Err: err}
		}
		c.finish(s, gen, f, img, err)
	}()
	return f
}

func (c *Cache) finish(s Slot, gen uint64, f *Future, img *gg.ImageBuf, err error) {
	c.mu.Lock()
	st := &c.slots[s]
	if st.gen != gen {
		c.mu.Unlock()
		f.resolve(nil, &LoadError{Slot: s, ID: f.id, Err: ErrReplaced})
		return
	}
	st.cancel = nil
	st.done = true
	st.img, st.err = img, err
	var hooks []func(Slot, error)
	if !c.closed {
		hooks = append(hooks, c.onComplete...)
	}
	c.mu.Unlock()

	if err != nil {
		nameplate.Logger().Warn("imagecache: load failed", "slot", s, "id", f.id, "err", err)
	} else {
		w, h := img.Bounds()
		nameplate.Logger().Debug("imagecache: load complete", "slot", s, "id", f.id, "width", w, "height", h)
	}

	f.resolve(img, err)
	for _, fn := range hooks {
		fn(s, err)
	}
}

func (c *Cache) fetch(ctx context.Context, id string) (*gg.ImageBuf, error) {
	rc, err := c.resolver.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageBytes {
		return nil, ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode sniffs data and decodes it into an image buffer. Content whose
// magic bytes match no image type is rejected with ErrNotImage. Content that
// only looks like an image, such as a truncated header, fails in the
// decoder with an error naming the sniffed format.
func Decode(data []byte) (*gg.ImageBuf, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || kind.MIME.Type != "image" {
		return nil, ErrNotImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind.Extension, err)
	}
	nameplate.Logger().Debug("imagecache: decoded", "format", format, "bounds", img.Bounds())
	return gg.ImageBufFromImage(img), nil
}

// Image returns the image of slot if its load has completed successfully.
func (c *Cache) Image(s Slot) (*gg.ImageBuf, bool) {
	if s < 0 || s >= numSlots {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	st := &c.slots[s]
	if !st.done || st.err != nil || st.img == nil {
		return nil, false
	}
	return st.img, true
}

// State returns a snapshot of slot.
func (c *Cache) State(s Slot) SlotState {
	if s < 0 || s >= numSlots {
		return SlotState{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	st := &c.slots[s]
	return SlotState{
		ID:       st.id,
		Complete: st.done && st.err == nil && st.img != nil,
		Pending:  st.cancel != nil,
		Err:      st.err,
	}
}

// Close cancels pending loads and waits for their goroutines.
func (c *Cache) Close() error {
	c.mu.Lock()
	c.closed = true
	for i := range c.slots {
		if c.slots[i].cancel != nil {
			c.slots[i].cancel()
		}
	}
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}
