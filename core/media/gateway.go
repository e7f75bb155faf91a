package media

import (
	"context"
	"sync"
	"time"
)

// gateway owns the single session handle of a widget.
// It polls the probe until the provider shows up, then never constructs again.
type gateway struct {
	probe    ScriptReadinessProbe
	interval time.Duration

	mu       sync.Mutex
	handle   SessionHandle
	attempts int
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func newGateway(probe ScriptReadinessProbe, interval time.Duration) *gateway {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &gateway{probe: probe, interval: interval}
}

// acquire tries to construct the handle once. It is a no-op if a handle already exists.
func (g *gateway) acquire(cfg SessionConfig, onResult ResultFunc) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handle != nil {
		return true
	}
	if g.stopped {
		return false
	}
	g.attempts++
	handle, ok := g.probe.TryAcquire(cfg, onResult)
	if !ok || handle == nil {
		return false
	}
	g.handle = handle
	return true
}

// start makes an immediate attempt and falls back to polling.
// onReady is called once, outside of the gateway lock, when the handle is constructed.
func (g *gateway) start(cfg SessionConfig, onResult ResultFunc, onReady func()) {
	if g.acquire(cfg, onResult) {
		onReady()
		return
	}

	g.mu.Lock()
	if g.stopped || g.cancel != nil {
		g.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.done = make(chan struct{})
	done := g.done
	g.mu.Unlock()

	go g.poll(ctx, done, cfg, onResult, onReady)
}

func (g *gateway) poll(ctx context.Context, done chan struct{}, cfg SessionConfig, onResult ResultFunc, onReady func()) {
	defer close(done)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if g.acquire(cfg, onResult) {
				onReady()
				return
			}
		}
	}
}

// stop cancels a pending poll and waits for it to exit.
func (g *gateway) stop() {
	g.mu.Lock()
	g.stopped = true
	cancel, done := g.cancel, g.done
	g.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (g *gateway) current() SessionHandle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handle
}

func (g *gateway) attemptCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

// polling reports whether a poll goroutine was started, and its done channel.
func (g *gateway) polling() (bool, chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancel != nil, g.done
}
