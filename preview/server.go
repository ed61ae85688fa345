package preview

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gogpu/nameplate"
	"github.com/gogpu/nameplate/imagecache"
	"github.com/gogpu/nameplate/request"
	"github.com/gogpu/nameplate/session"
)

// Updater is the part of session.Session the server drives.
type Updater interface {
	OnUpdateRequested(ctx context.Context, text, family string, sizePx float64, frameID string) (*session.Result, error)
	OnFrameChoiceChanged(ctx context.Context, frameID string) *imagecache.Future
}

var _ Updater = (*session.Session)(nil)

// UpdateResponse is the CBOR body answering POST /update.
type UpdateResponse struct {
	Generation uint64 `cbor:"1,keyasint"`
	FontReady  bool   `cbor:"2,keyasint"`
	TimedOut   bool   `cbor:"3,keyasint"`
	Glyphs     int    `cbor:"4,keyasint"`
}

// Server routes preview requests:
//
//	GET  /ws      material updates (WebSocket, CBOR Update messages)
//	POST /update  form fields text, font, size, frame
//	POST /frame   form field frame
type Server struct {
	ctx     context.Context
	updater Updater
	hub     *Hub
	mux     *http.ServeMux
}

// NewServer creates a Server. Frame loads started through /frame outlive
// the HTTP request and are bounded by ctx.
func NewServer(ctx context.Context, u Updater, hub *Hub) *Server {
	s := &Server{ctx: ctx, updater: u, hub: hub, mux: http.NewServeMux()}
	s.mux.Handle("GET /ws", hub)
	s.mux.HandleFunc("POST /update", s.handleUpdate)
	s.mux.HandleFunc("POST /frame", s.handleFrame)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.updater.OnUpdateRequested(r.Context(),
		r.FormValue("text"),
		r.FormValue("font"),
		request.ParseSize(r.FormValue("size")),
		r.FormValue("frame"),
	)
	switch {
	case errors.Is(err, session.ErrSuperseded):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, session.ErrClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		nameplate.Logger().Warn("preview: update failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	body, err := encMode.Marshal(UpdateResponse{
		Generation: res.Generation,
		FontReady:  res.Font.Ready,
		TimedOut:   res.Font.TimedOut,
		Glyphs:     res.Layout.Len(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	_, _ = w.Write(body)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame := r.FormValue("frame")
	if frame == "" {
		http.Error(w, "missing frame", http.StatusBadRequest)
		return
	}
	s.updater.OnFrameChoiceChanged(s.ctx, frame)
	w.WriteHeader(http.StatusAccepted)
}

// ListenAndServe serves h on addr until ctx is done, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, h)
}

// Serve is ListenAndServe on an existing listener.
func Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	nameplate.Logger().Info("preview: serving", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
