// Package fontgate waits until a font can draw every glyph of a text.
//
// Font files may be fetched lazily, so asking whether a font is ready
// without first demanding the glyphs can report false forever. The gate
// therefore demands the glyphs through a probe, then polls availability at
// a fixed interval for a bounded number of attempts. Running out of
// attempts is not an error: the caller proceeds with whatever glyphs the
// platform substitutes.
package fontgate

import (
	"context"
	"time"

	"github.com/gogpu/nameplate"
	"github.com/gogpu/nameplate/request"
)

// Prober is the font-availability primitive the gate polls.
type Prober interface {
	// Demand asks the font subsystem to fetch the glyphs of text in
	// family. The returned function releases the demand.
	Demand(family, text string) (release func())

	// Check reports whether every glyph of text is available in family
	// at sizePx.
	Check(sizePx float64, family, text string) bool
}

// Default polling parameters: 100 checks, 100ms apart, about 10s in total.
const (
	DefaultSampleSizePx = 120
	DefaultPollInterval = 100 * time.Millisecond
	DefaultMaxAttempts  = 100
)

// Options controls polling. Zero fields take the defaults.
type Options struct {
	SampleSizePx float64
	PollInterval time.Duration
	MaxAttempts  int
}

// DefaultOptions returns the default polling options.
func DefaultOptions() Options {
	return Options{
		SampleSizePx: DefaultSampleSizePx,
		PollInterval: DefaultPollInterval,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

func (o Options) withDefaults() Options {
	if o.SampleSizePx <= 0 {
		o.SampleSizePx = DefaultSampleSizePx
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// Result describes how a wait ended.
type Result struct {
	// Ready is true when the availability check succeeded or the gate was
	// bypassed.
	Ready bool

	// Bypassed is true for the system family and for empty text.
	Bypassed bool

	// TimedOut is true when MaxAttempts checks ran without success.
	TimedOut bool

	// Attempts is the number of availability checks performed.
	Attempts int

	// Waited is the time spent between the first check and the outcome.
	Waited time.Duration
}

// Gate waits for font readiness.
type Gate struct {
	prober Prober
}

// New creates a Gate polling p.
func New(p Prober) *Gate {
	return &Gate{prober: p}
}

// IsFontReady demands the glyphs of text in family and polls until they
// are available, MaxAttempts checks have run, or ctx is done.
//
// Only cancellation returns an error. The probe is released on every path.
func (g *Gate) IsFontReady(ctx context.Context, family, text string, opts Options) (Result, error) {
	if family == request.DefaultFontFamily || text == "" {
		return Result{Ready: true, Bypassed: true}, nil
	}
	opts = opts.withDefaults()
	log := nameplate.Logger()

	release := g.prober.Demand(family, text)
	defer release()

	start := time.Now()
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		if g.prober.Check(opts.SampleSizePx, family, text) {
			res := Result{Ready: true, Attempts: attempt, Waited: time.Since(start)}
			log.Debug("fontgate: font ready", "family", family, "attempts", attempt, "waited", res.Waited)
			return res, nil
		}
		if attempt >= opts.MaxAttempts {
			res := Result{TimedOut: true, Attempts: attempt, Waited: time.Since(start)}
			log.Warn("fontgate: font not ready, drawing with substitutes",
				"family", family, "attempts", attempt, "waited", res.Waited)
			return res, nil
		}
		select {
		case <-ctx.Done():
			return Result{Attempts: attempt, Waited: time.Since(start)}, ctx.Err()
		case <-ticker.C:
		}
	}
}
