package cloudinary

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/media"
)

var ErrUnknownSession = errors.New("unknown upload session")

type pinger interface {
	Ping(ctx context.Context) error
}

// Bootstrap is the process wide upload provider.
// It starts unloaded; Load probes the API in the background and makes the provider
// available to widgets once it answers.
type Bootstrap struct {
	client   *Client
	pinger   pinger
	uploader uploader
	interval time.Duration
	logger   core.Logger

	loadOnce sync.Once
	mu       sync.RWMutex
	loaded   bool
	sessions map[string]*session
}

var _ media.ScriptReadinessProbe = (*Bootstrap)(nil)

func NewBootstrap(conf *core.Config, client *Client, logger core.Logger) *Bootstrap {
	interval := conf.Cloudinary.ReadinessInterval
	if interval <= 0 {
		interval = media.DefaultPollInterval
	}
	return &Bootstrap{
		client:   client,
		pinger:   client,
		uploader: client,
		interval: interval,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// Load probes the upload API until it answers or ctx is done. It returns immediately.
func (b *Bootstrap) Load(ctx context.Context) {
	b.loadOnce.Do(func() {
		go b.load(ctx)
	})
}

func (b *Bootstrap) load(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		err := b.pinger.Ping(ctx)
		if err == nil {
			b.Install()
			b.logger.Info("cloudinary: upload provider loaded", map[string]interface{}{"attempts": attempt})
			return
		}
		if attempt == 1 {
			b.logger.Warn("cloudinary: upload provider not available yet", err)
		}

		select {
		case <-ctx.Done():
			b.logger.Warn("cloudinary: gave up loading upload provider", ctx.Err())
			return
		case <-time.After(b.interval):
		}
	}
}

// Install makes the provider available without probing it.
func (b *Bootstrap) Install() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loaded = true
}

func (b *Bootstrap) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// TryAcquire constructs the session handle of a widget. It never blocks on the network.
func (b *Bootstrap) TryAcquire(cfg media.SessionConfig, onResult media.ResultFunc) (media.SessionHandle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.loaded {
		return nil, false
	}
	if cfg.Key == "" {
		cfg.Key = uuid.New().String()
	}
	if _, ok := b.sessions[cfg.Key]; ok {
		b.logger.Warn("cloudinary: replacing upload session", map[string]interface{}{"key": cfg.Key})
	}
	s := &session{client: b.uploader, cfg: cfg, onResult: onResult}
	b.sessions[cfg.Key] = s
	return s, true
}

func (b *Bootstrap) session(key string) (*session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[key]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s, nil
}

// Submit delivers a file to an open session. The outcome is pushed to the session's
// result callback before Submit returns, and returned as well.
func (b *Bootstrap) Submit(ctx context.Context, key, filename string, r io.Reader) error {
	s, err := b.session(key)
	if err != nil {
		return err
	}
	return s.submit(ctx, filename, r)
}

// Cancel closes an open session without a file. It reports whether a session was open.
func (b *Bootstrap) Cancel(key string) (bool, error) {
	s, err := b.session(key)
	if err != nil {
		return false, err
	}
	return s.cancel(), nil
}

// Release forgets the session of an unmounted widget.
func (b *Bootstrap) Release(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, key)
}

// DeleteByToken revokes an asset through the underlying client.
func (b *Bootstrap) DeleteByToken(ctx context.Context, token string) error {
	return b.client.DeleteByToken(ctx, token)
}
