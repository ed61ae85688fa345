package fonts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r, err := NewRegistry(opts...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSpacingTable(t *testing.T) {
	if got := DefaultSpacing.Coefficient("kokuryu"); got != -0.1 {
		t.Errorf("Coefficient(kokuryu) = %v, want -0.1", got)
	}
	if got := DefaultSpacing.Coefficient("unknown"); got != 0 {
		t.Errorf("Coefficient(unknown) = %v, want 0", got)
	}

	src := map[string]float64{"a": 0.2}
	table := NewSpacingTable(src)
	src["a"] = 0.9
	if got := table.Coefficient("a"); got != 0.2 {
		t.Errorf("table changed with its source map: got %v", got)
	}

	merged := DefaultSpacing.Merge(map[string]float64{"kokuryu": -0.05, "new": 0.1})
	if merged.Coefficient("kokuryu") != -0.05 || merged.Coefficient("new") != 0.1 {
		t.Errorf("Merge() did not override: %v %v", merged.Coefficient("kokuryu"), merged.Coefficient("new"))
	}
	if DefaultSpacing.Coefficient("kokuryu") != -0.1 {
		t.Error("Merge() mutated the receiver")
	}
	if merged.Len() != DefaultSpacing.Len()+1 {
		t.Errorf("merged.Len() = %d, want %d", merged.Len(), DefaultSpacing.Len()+1)
	}
}

func TestDefaultFamilyLoaded(t *testing.T) {
	r := newTestRegistry(t)

	if !r.Loaded(DefaultFamily) {
		t.Fatal("default family should be loaded at construction")
	}
	if !r.Check(120, DefaultFamily, "AB") {
		t.Error("Check(AB) = false, want true")
	}
	if !r.Check(120, DefaultFamily, "A B\n") {
		t.Error("Check should ignore whitespace")
	}
	if r.Check(120, DefaultFamily, "試作品") {
		t.Error("Check(CJK) = true, want false for a Latin font")
	}
	if r.Check(0, DefaultFamily, "AB") {
		t.Error("Check with zero size should be false")
	}
}

func TestDemandLoadsLazily(t *testing.T) {
	var reads atomic.Int32
	r := newTestRegistry(t, WithReadFile(func(name string) ([]byte, error) {
		reads.Add(1)
		return goregular.TTF, nil
	}))
	if err := r.Register("kokuryu", "kokuryu.ttf"); err != nil {
		t.Fatal(err)
	}

	if r.Check(120, "kokuryu", "AB") {
		t.Fatal("Check should be false before the family is demanded")
	}
	if got := reads.Load(); got != 0 {
		t.Fatalf("font file read %d times before demand, want 0", got)
	}

	release := r.Demand("kokuryu", "AB")
	if r.ActiveProbes() != 1 {
		t.Errorf("ActiveProbes() = %d, want 1", r.ActiveProbes())
	}
	waitFor(t, 2*time.Second, func() bool { return r.Check(120, "kokuryu", "AB") })

	release()
	release()
	if r.ActiveProbes() != 0 {
		t.Errorf("ActiveProbes() after release = %d, want 0", r.ActiveProbes())
	}
	if got := reads.Load(); got != 1 {
		t.Errorf("font file read %d times, want 1", got)
	}
}

func TestDemandUnknownFamily(t *testing.T) {
	r := newTestRegistry(t)
	release := r.Demand("nope", "AB")
	defer release()
	if r.Check(120, "nope", "AB") {
		t.Error("Check(unknown family) = true, want false")
	}
}

func TestLoadErrors(t *testing.T) {
	readErr := errors.New("disk on fire")
	r := newTestRegistry(t, WithReadFile(func(string) ([]byte, error) {
		return nil, readErr
	}))
	if err := r.Register("broken", "broken.ttf"); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := r.Load(ctx, "broken"); !errors.Is(err, readErr) {
		t.Errorf("Load(broken) = %v, want wrapping %v", err, readErr)
	}
	if r.Loaded("broken") {
		t.Error("Loaded(broken) = true after failure")
	}
	if err := r.Load(ctx, "missing"); !errors.Is(err, ErrUnknownFamily) {
		t.Errorf("Load(missing) = %v, want ErrUnknownFamily", err)
	}
	if err := r.Register("", "x.ttf"); !errors.Is(err, ErrEmptyFamily) {
		t.Errorf("Register(\"\") = %v, want ErrEmptyFamily", err)
	}
}

func TestLoadInvalidData(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RegisterData("garbage", []byte("not a font")); err != nil {
		t.Fatal(err)
	}
	if err := r.Load(context.Background(), "garbage"); err == nil {
		t.Error("Load(garbage) = nil, want parse error")
	}
}

func TestFaceSubstitutesDefault(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RegisterData("go-regular", goregular.TTF); err != nil {
		t.Fatal(err)
	}

	face := r.Face("go-regular", 48)
	if face == nil {
		t.Fatal("Face() = nil")
	}
	if face.Size() != 48 {
		t.Errorf("Face().Size() = %v, want 48", face.Size())
	}
	if face != r.Face("go-regular", 48) {
		t.Error("Face() should be cached per family and size")
	}

	if err := r.Load(context.Background(), "go-regular"); err != nil {
		t.Fatal(err)
	}
	loaded := r.Face("go-regular", 48)
	if loaded.Source() == r.Face(DefaultFamily, 48).Source() {
		t.Error("loaded family should not share the default font source")
	}
	if r.Face("unknown", 12) == nil {
		t.Error("Face(unknown) = nil, want default substitution")
	}
}

func TestInvalidateReloadsDemanded(t *testing.T) {
	var reads atomic.Int32
	r := newTestRegistry(t, WithReadFile(func(string) ([]byte, error) {
		reads.Add(1)
		return goregular.TTF, nil
	}))
	_ = r.Register("brush", "brush.ttf")
	if err := r.Load(context.Background(), "brush"); err != nil {
		t.Fatal(err)
	}

	r.Invalidate("brush")
	if r.Loaded("brush") {
		t.Fatal("Loaded() = true right after Invalidate without demand")
	}

	release := r.Demand("brush", "A")
	defer release()
	waitFor(t, 2*time.Second, func() bool { return r.Loaded("brush") })

	r.Invalidate("brush")
	waitFor(t, 2*time.Second, func() bool { return r.Loaded("brush") })
	if got := reads.Load(); got != 3 {
		t.Errorf("reads = %d, want 3", got)
	}

	r.Invalidate(DefaultFamily)
	if !r.Loaded(DefaultFamily) {
		t.Error("default family must never be invalidated")
	}
}

func TestInvalidateKeepsOtherFaces(t *testing.T) {
	r := newTestRegistry(t, WithReadFile(func(string) ([]byte, error) {
		return goregular.TTF, nil
	}))
	_ = r.Register("brush", "brush.ttf")
	if err := r.Load(context.Background(), "brush"); err != nil {
		t.Fatal(err)
	}

	def := r.Face(DefaultFamily, 120)
	before := r.Face("brush", 120)
	r.Invalidate("brush")
	if err := r.Load(context.Background(), "brush"); err != nil {
		t.Fatal(err)
	}

	if r.Face(DefaultFamily, 120) != def {
		t.Error("invalidating brush dropped the default family's face")
	}
	if r.Face("brush", 120) == before {
		t.Error("reloaded family still returns the stale face")
	}
}

func TestWatchInvalidatesChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brush.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o600); err != nil {
		t.Fatal(err)
	}

	r := newTestRegistry(t)
	_ = r.Register("brush", path)
	if err := r.Load(context.Background(), "brush"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, dir) }()

	waitFor(t, 5*time.Second, func() bool {
		// Rewrite until the watcher is attached and sees an event.
		_ = os.WriteFile(path, goregular.TTF, 0o600)
		return !r.Loaded("brush")
	})

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() = %v, want nil after cancel", err)
	}
}

func TestWatchMissingDir(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Watch(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Error("Watch(missing dir) = nil, want error")
	}
}
