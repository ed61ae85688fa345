package imagecache

import (
	"context"

	"github.com/gogpu/gg"
)

// Future is the result of one Load.
type Future struct {
	slot Slot
	id   string
	done chan struct{}
	img  *gg.ImageBuf
	err  error
}

func newFuture(s Slot, id string) *Future {
	return &Future{slot: s, id: id, done: make(chan struct{})}
}

func (f *Future) resolve(img *gg.ImageBuf, err error) {
	f.img, f.err = img, err
	close(f.done)
}

// Slot returns the slot the load targets.
func (f *Future) Slot() Slot { return f.slot }

// ID returns the requested texture id.
func (f *Future) ID() string { return f.id }

// Done is closed when the load has finished, failed or been replaced.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the load finishes or ctx is done. A load replaced by a
// newer load of the same slot reports ErrReplaced.
func (f *Future) Wait(ctx context.Context) (*gg.ImageBuf, error) {
	select {
	case <-f.done:
		return f.img, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
