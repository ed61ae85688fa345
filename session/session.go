// Package session runs the texture pipeline for one personalization view.
//
// A Session owns all mutable state of the view: the texture cache, the
// font registry, and the plate material. Each update goes through the
// same stages: snapshot the request, wait for the font, lay out the
// glyphs, draw the maps, and bind them to the material.
//
// Updates may overlap. Every update takes a new generation and cancels
// the update before it; an update that is no longer the latest when it
// reaches the bind stage is dropped with ErrSuperseded, so the material
// always shows the most recent request.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gg"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/nameplate"
	"github.com/gogpu/nameplate/compose"
	"github.com/gogpu/nameplate/config"
	"github.com/gogpu/nameplate/fontgate"
	"github.com/gogpu/nameplate/fonts"
	"github.com/gogpu/nameplate/imagecache"
	"github.com/gogpu/nameplate/layout"
	"github.com/gogpu/nameplate/material"
	"github.com/gogpu/nameplate/request"
)

// Session errors.
var (
	// ErrSuperseded is returned by an update overtaken by a newer one.
	ErrSuperseded = errors.New("session: update superseded by a newer request")

	// ErrClosed is returned by updates after Close.
	ErrClosed = errors.New("session: closed")
)

var _ fontgate.Prober = (*fonts.Registry)(nil)

// Result describes a completed update.
type Result struct {
	Request    request.TextureRequest
	Font       fontgate.Result
	Layout     layout.GlyphLayout
	Maps       *compose.Maps
	State      *material.State
	Generation uint64
}

// Session is safe for concurrent use.
type Session struct {
	cfg        config.Config
	registry   *fonts.Registry
	ownsFonts  bool
	gate       *fontgate.Gate
	gateOpts   fontgate.Options
	spacing    fonts.SpacingTable
	images     *imagecache.Cache
	compositor *compose.Compositor
	material   *material.Material

	baseCtx context.Context
	stop    context.CancelFunc

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	last    request.TextureRequest
	hasLast bool
	closed  bool

	// bindMu serializes the bind stage.
	bindMu sync.Mutex

	frameRebuild atomic.Bool
	wg           sync.WaitGroup
}

// New creates a Session for cfg. Nothing is loaded until Start.
func New(cfg config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		cfg:      cfg,
		registry: o.fonts,
		spacing:  fonts.DefaultSpacing.Merge(cfg.Spacing),
		gateOpts: fontgate.Options{
			SampleSizePx: cfg.FontGate.SampleSizePx,
			PollInterval: timeDuration(cfg.FontGate.PollInterval),
			MaxAttempts:  cfg.FontGate.MaxAttempts,
		},
	}
	if s.registry == nil {
		reg, err := fonts.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		s.registry, s.ownsFonts = reg, true
	}
	for name, file := range cfg.Fonts.Families {
		if err := s.registry.Register(name, filepath.Join(cfg.Fonts.Dir, file)); err != nil {
			s.closeFonts()
			return nil, fmt.Errorf("session: register font %q: %w", name, err)
		}
	}
	s.gate = fontgate.New(s.registry)

	resolver := o.resolver
	if resolver == nil {
		resolver = imagecache.DirResolver(cfg.Assets.Root)
	}
	s.images = imagecache.New(resolver)
	s.images.OnComplete(s.imageLoaded)

	s.compositor = &compose.Compositor{
		CanvasSize:       cfg.CanvasSize,
		Faces:            s.registry,
		FallbackColor:    gg.Hex(cfg.Compose.FallbackColor),
		MultiplyStrength: cfg.Compose.MultiplyStrength,
	}

	uploader := o.uploader
	if uploader == nil {
		uploader = &material.SoftwareUploader{}
	}
	s.material = material.New(uploader, material.Params{
		BumpScale: cfg.Material.BumpScale,
		Roughness: cfg.Material.Roughness,
		Metalness: cfg.Material.Metalness,
		Color:     config.ColorComponents(cfg.Material.Color),
	})
	for _, obs := range o.observers {
		s.material.Observe(obs)
	}

	s.baseCtx, s.stop = context.WithCancel(context.Background())
	return s, nil
}

// Config returns the configuration the Session was created with.
func (s *Session) Config() config.Config { return s.cfg }

// Material returns the plate material.
func (s *Session) Material() *material.Material { return s.material }

// Images returns the texture cache.
func (s *Session) Images() *imagecache.Cache { return s.images }

// Fonts returns the font registry.
func (s *Session) Fonts() *fonts.Registry { return s.registry }

// Start loads the wood texture and the default frame concurrently, then
// engraves the placeholder text. Missing textures are not an error; the
// maps fall back to plain colors. Start also begins watching the font
// directory when configured.
func (s *Session) Start(ctx context.Context) (*Result, error) {
	wood := s.images.Load(s.baseCtx, imagecache.SlotWood, s.cfg.Assets.Wood)
	var frame *imagecache.Future
	if s.cfg.Assets.DefaultFrame != "" {
		frame = s.images.Load(s.baseCtx, imagecache.SlotFrame, s.cfg.Assets.DefaultFrame)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range []*imagecache.Future{wood, frame} {
		if f == nil {
			continue
		}
		g.Go(func() error {
			_, err := f.Wait(gctx)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				nameplate.Logger().Warn("session: texture unavailable, using fallback",
					"slot", f.Slot(), "id", f.ID(), "err", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.cfg.Fonts.Watch && s.cfg.Fonts.Dir != "" {
		if err := s.registry.Watch(s.baseCtx, s.cfg.Fonts.Dir); err != nil {
			nameplate.Logger().Warn("session: font directory not watched", "dir", s.cfg.Fonts.Dir, "err", err)
		}
	}

	req := request.New(s.cfg.PlaceholderText, s.cfg.DefaultFontFamily, request.DefaultFontSizePx, "")
	nameplate.Logger().Info("session: started", "wood", wood.ID(), "placeholder", req.Text())
	return s.run(ctx, req)
}

// OnUpdateRequested engraves text in family at sizePx (nominal pixels on a
// 512 px canvas) over frameID. A non-numeric or too small size is
// replaced by the default; an empty family means the system family; an
// empty frameID keeps the current frame.
//
// The call blocks until the material shows the new maps, the update is
// superseded (ErrSuperseded), or ctx is done.
func (s *Session) OnUpdateRequested(ctx context.Context, text, family string, sizePx float64, frameID string) (*Result, error) {
	req := request.New(text, family, sizePx, frameID)
	s.mu.Lock()
	s.last, s.hasLast = req, true
	s.mu.Unlock()
	return s.run(ctx, req)
}

// OnFrameChoiceChanged starts loading frameID into the frame slot. When
// the load finishes, successfully or not, the plate is rebuilt with the
// last entered text, or the placeholder when none was entered.
func (s *Session) OnFrameChoiceChanged(ctx context.Context, frameID string) *imagecache.Future {
	s.frameRebuild.Store(true)
	return s.images.Load(ctx, imagecache.SlotFrame, frameID)
}

// imageLoaded runs on the cache's loading goroutine.
func (s *Session) imageLoaded(slot imagecache.Slot, err error) {
	if slot != imagecache.SlotFrame || !s.frameRebuild.CompareAndSwap(true, false) {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		res, err := s.run(s.baseCtx, s.rebuildRequest())
		switch {
		case errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
			nameplate.Logger().Debug("session: frame rebuild dropped", "err", err)
		case err != nil:
			nameplate.Logger().Warn("session: frame rebuild failed", "err", err)
		default:
			nameplate.Logger().Debug("session: frame rebuild", "generation", res.Generation)
		}
	}()
}

func (s *Session) rebuildRequest() request.TextureRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.last
	if !s.hasLast {
		req = request.New("", s.cfg.DefaultFontFamily, request.DefaultFontSizePx, "")
	}
	// The frame slot already holds the new choice.
	req = request.New(req.Text(), req.FontFamily(), req.FontSizePx(), "")
	if req.Text() == "" {
		req = req.WithText(s.cfg.PlaceholderText)
	}
	return req
}

// begin starts a new generation and cancels the previous one.
func (s *Session) begin(ctx context.Context) (uint64, context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil, nil, ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	rctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.baseCtx, cancel)
	s.cancel = cancel
	return s.gen, rctx, func() {
		stop()
		cancel()
	}, nil
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// abort maps the error of an interrupted update.
func (s *Session) abort(ctx context.Context, gen uint64, err error) error {
	if !s.current(gen) {
		return ErrSuperseded
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (s *Session) run(ctx context.Context, req request.TextureRequest) (*Result, error) {
	gen, rctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	log := nameplate.Logger().With("generation", gen)
	log.Debug("session: update", "text", req.Text(), "family", req.FontFamily(),
		"size", req.FontSizePx(), "frame", req.FrameTextureID())

	if id := req.FrameTextureID(); id != "" {
		if st := s.images.State(imagecache.SlotFrame); st.ID != id || !st.Complete {
			s.frameRebuild.Store(false)
			if _, err := s.images.Load(rctx, imagecache.SlotFrame, id).Wait(rctx); err != nil {
				if rctx.Err() != nil {
					return nil, s.abort(ctx, gen, err)
				}
				log.Warn("session: frame unavailable, drawing without it", "id", id, "err", err)
			}
		}
	}

	font, err := s.gate.IsFontReady(rctx, req.FontFamily(), req.Text(), s.gateOpts)
	if err != nil {
		return nil, s.abort(ctx, gen, err)
	}

	l := layout.Compute(req.Runes(), layout.Params{
		FontFamily:     req.FontFamily(),
		NominalSizePx:  req.FontSizePx(),
		CanvasSize:     s.cfg.CanvasSize,
		Spacing:        s.spacing,
		VerticalOffset: s.cfg.Compose.VerticalOffset,
	})

	frame, _ := s.images.Image(imagecache.SlotFrame)
	wood, _ := s.images.Image(imagecache.SlotWood)
	maps, err := s.compositor.Compose(l, frame, wood)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s.bindMu.Lock()
	defer s.bindMu.Unlock()
	if !s.current(gen) {
		log.Debug("session: update superseded before bind")
		return nil, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := s.material.Bind(maps, s.cfg.Plate.Width, s.cfg.Plate.Height)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	log.Debug("session: material updated", "state", state.Generation, "font_ready", font.Ready)

	return &Result{
		Request:    req,
		Font:       font,
		Layout:     l,
		Maps:       maps,
		State:      state,
		Generation: gen,
	}, nil
}

// Close cancels running updates, waits for background work, and releases
// the material's textures.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.stop()
	err := s.images.Close()
	s.wg.Wait()

	s.bindMu.Lock()
	s.material.Dispose()
	s.bindMu.Unlock()

	if ferr := s.closeFonts(); err == nil {
		err = ferr
	}
	nameplate.Logger().Info("session: closed")
	return err
}

func (s *Session) closeFonts() error {
	if !s.ownsFonts {
		return nil
	}
	return s.registry.Close()
}

func timeDuration(d config.Duration) time.Duration { return time.Duration(d) }
