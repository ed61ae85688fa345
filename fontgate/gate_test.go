package fontgate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeProber becomes ready after readyAfter checks; 0 means never.
type fakeProber struct {
	mu         sync.Mutex
	readyAfter int
	checks     int
	demands    int
	released   int
	lastSize   float64
	onCheck    func(n int)
}

func (p *fakeProber) Demand(family, text string) func() {
	p.mu.Lock()
	p.demands++
	p.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.released++
			p.mu.Unlock()
		})
	}
}

func (p *fakeProber) Check(sizePx float64, family, text string) bool {
	p.mu.Lock()
	p.checks++
	n := p.checks
	p.lastSize = sizePx
	cb := p.onCheck
	p.mu.Unlock()
	if cb != nil {
		cb(n)
	}
	return p.readyAfter > 0 && n >= p.readyAfter
}

func fastOptions(maxAttempts int) Options {
	return Options{SampleSizePx: 120, PollInterval: time.Millisecond, MaxAttempts: maxAttempts}
}

func TestIsFontReadyBypass(t *testing.T) {
	tests := []struct {
		name   string
		family string
		text   string
	}{
		{"system font", "sans-serif", "AB"},
		{"empty text", "kokuryu", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProber{}
			res, err := New(p).IsFontReady(context.Background(), tt.family, tt.text, DefaultOptions())
			if err != nil {
				t.Fatalf("IsFontReady() error = %v", err)
			}
			if !res.Ready || !res.Bypassed {
				t.Errorf("result = %+v, want ready and bypassed", res)
			}
			if p.demands != 0 || p.checks != 0 {
				t.Errorf("prober used on bypass: demands=%d checks=%d", p.demands, p.checks)
			}
		})
	}
}

func TestIsFontReadyBecomesReady(t *testing.T) {
	p := &fakeProber{readyAfter: 3}
	res, err := New(p).IsFontReady(context.Background(), "kokuryu", "試作品", fastOptions(100))
	if err != nil {
		t.Fatalf("IsFontReady() error = %v", err)
	}
	if !res.Ready || res.TimedOut || res.Bypassed {
		t.Errorf("result = %+v, want ready", res)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	if p.demands != 1 || p.released != 1 {
		t.Errorf("demands=%d released=%d, want 1 and 1", p.demands, p.released)
	}
	if p.lastSize != 120 {
		t.Errorf("checked at size %v, want 120", p.lastSize)
	}
}

func TestIsFontReadyTimesOutAfterMaxAttempts(t *testing.T) {
	p := &fakeProber{}
	res, err := New(p).IsFontReady(context.Background(), "kokuryu", "AB", fastOptions(7))
	if err != nil {
		t.Fatalf("timeout must not be an error, got %v", err)
	}
	if res.Ready || !res.TimedOut {
		t.Errorf("result = %+v, want timed out", res)
	}
	if res.Attempts != 7 || p.checks != 7 {
		t.Errorf("Attempts=%d checks=%d, want exactly 7", res.Attempts, p.checks)
	}
	if p.released != 1 {
		t.Errorf("probe released %d times, want 1", p.released)
	}
}

func TestIsFontReadyCancelReleasesProbe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProber{onCheck: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	opts := Options{PollInterval: 10 * time.Millisecond, MaxAttempts: 100}

	res, err := New(p).IsFontReady(ctx, "kokuryu", "AB", opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("IsFontReady() error = %v, want context.Canceled", err)
	}
	if res.Ready {
		t.Error("cancelled wait reported ready")
	}
	if p.released != 1 {
		t.Errorf("probe released %d times, want 1", p.released)
	}
}

func TestOptionsDefaults(t *testing.T) {
	got := Options{}.withDefaults()
	if got != DefaultOptions() {
		t.Errorf("Options{}.withDefaults() = %+v, want %+v", got, DefaultOptions())
	}
	if DefaultOptions().PollInterval*time.Duration(DefaultOptions().MaxAttempts) != 10*time.Second {
		t.Error("default polling budget should be 10s")
	}
}
