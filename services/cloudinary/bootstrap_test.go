package cloudinary

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/media"
)

type resultRecorder struct {
	mu      sync.Mutex
	errs    []error
	results []media.UploadResult
}

func (r *resultRecorder) onResult(err error, res media.UploadResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.results = append(r.results, res)
}

func (r *resultRecorder) last() (error, media.UploadResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.results)
	if n == 0 {
		return nil, media.UploadResult{}
	}
	return r.errs[n-1], r.results[n-1]
}

func (r *resultRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func newTestBootstrap(t *testing.T) (*Bootstrap, *fakeCloudinary) {
	t.Helper()
	fc := newFakeCloudinary(t)
	conf := newTestConfig(fc.URL)
	return NewBootstrap(conf, NewClient(conf), core.NopLogger{}), fc
}

func testSessionConfig(key string) media.SessionConfig {
	cfg := media.NewSessionConfig("demo", "unsigned")
	cfg.Key = key
	return cfg
}

func TestBootstrap_notLoaded(t *testing.T) {
	b, _ := newTestBootstrap(t)

	handle, ok := b.TryAcquire(testSessionConfig("w1"), func(error, media.UploadResult) {})

	assert.False(t, ok)
	assert.Nil(t, handle)
	assert.Equal(t, ErrUnknownSession, b.Submit(context.Background(), "w1", "me.png", bytes.NewReader(pngBytes)))
}

func TestBootstrap_Load(t *testing.T) {
	b, fc := newTestBootstrap(t)
	atomic.StoreInt32(&fc.down, 1)

	b.Load(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.False(t, b.Loaded(), "provider is down")

	atomic.StoreInt32(&fc.down, 0)
	require.Eventually(t, b.Loaded, time.Second, 5*time.Millisecond)

	_, ok := b.TryAcquire(testSessionConfig("w1"), func(error, media.UploadResult) {})
	assert.True(t, ok)
}

func TestBootstrap_LoadGivesUp(t *testing.T) {
	b, fc := newTestBootstrap(t)
	atomic.StoreInt32(&fc.down, 1)

	ctx, cancel := context.WithCancel(context.Background())
	b.Load(ctx)
	cancel()
	time.Sleep(20 * time.Millisecond)

	atomic.StoreInt32(&fc.down, 0)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, b.Loaded())
}

func TestBootstrap_Submit(t *testing.T) {
	b, fc := newTestBootstrap(t)
	b.Install()
	rec := new(resultRecorder)
	handle, ok := b.TryAcquire(testSessionConfig("w1"), rec.onResult)
	require.True(t, ok)

	// not armed yet
	err := b.Submit(context.Background(), "w1", "me.png", bytes.NewReader(pngBytes))
	assert.Equal(t, ErrSessionNotOpen, err)
	assert.Zero(t, rec.count())

	handle.Open()
	require.NoError(t, b.Submit(context.Background(), "w1", "me.png", bytes.NewReader(pngBytes)))

	resErr, res := rec.last()
	require.NoError(t, resErr)
	assert.Equal(t, media.EventSuccess, res.Event)
	assert.Equal(t, "uploads/abc123", res.Info.PublicID)
	assert.Equal(t, "tok1", res.Info.DeleteToken)

	fc.mu.Lock()
	assert.Equal(t, "uploads", fc.fields["folder"])
	fc.mu.Unlock()

	// single file: the session must be opened again
	err = b.Submit(context.Background(), "w1", "me.png", bytes.NewReader(pngBytes))
	assert.Equal(t, ErrSessionNotOpen, err)
	assert.Equal(t, 1, rec.count())
}

func TestBootstrap_SubmitRejected(t *testing.T) {
	gif := append([]byte("GIF89a"), make([]byte, 32)...)
	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)

	tests := []struct {
		name    string
		content []byte
		maxSize int64
		wantErr error
	}{
		{name: "too large", content: pngBytes, maxSize: 16, wantErr: ErrFileTooLarge},
		{name: "gif", content: gif, wantErr: ErrFormatNotAllowed},
		{name: "not an image", content: []byte("hello world"), wantErr: ErrFormatNotAllowed},
		{name: "jpeg", content: jpeg},
		{name: "png at the limit", content: pngBytes, maxSize: int64(len(pngBytes))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBootstrap(t)
			b.Install()
			cfg := testSessionConfig("w1")
			if tt.maxSize > 0 {
				cfg.MaxFileSize = tt.maxSize
			}
			rec := new(resultRecorder)
			handle, _ := b.TryAcquire(cfg, rec.onResult)
			handle.Open()

			err := b.Submit(context.Background(), "w1", "file", bytes.NewReader(tt.content))

			resErr, _ := rec.last()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.NoError(t, resErr)
				return
			}
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.wantErr, vErr.Err)
			assert.Equal(t, err, resErr, "the widget is told as well")
		})
	}
}

func TestBootstrap_SubmitUploadFails(t *testing.T) {
	b, fc := newTestBootstrap(t)
	b.Install()
	rec := new(resultRecorder)
	handle, _ := b.TryAcquire(testSessionConfig("w1"), rec.onResult)
	handle.Open()
	atomic.StoreInt32(&fc.down, 1)

	err := b.Submit(context.Background(), "w1", "me.png", bytes.NewReader(pngBytes))

	assert.Error(t, err)
	resErr, res := rec.last()
	assert.Error(t, resErr)
	assert.Empty(t, res.Event)
}

func TestBootstrap_Cancel(t *testing.T) {
	b, _ := newTestBootstrap(t)
	b.Install()
	rec := new(resultRecorder)
	handle, _ := b.TryAcquire(testSessionConfig("w1"), rec.onResult)

	cancelled, err := b.Cancel("w1")
	require.NoError(t, err)
	assert.False(t, cancelled, "nothing to cancel")

	handle.Open()
	cancelled, err = b.Cancel("w1")
	require.NoError(t, err)
	assert.True(t, cancelled)
	_, res := rec.last()
	assert.Equal(t, media.EventAbort, res.Event)

	_, err = b.Cancel("w2")
	assert.Equal(t, ErrUnknownSession, err)
}

func TestBootstrap_Release(t *testing.T) {
	b, _ := newTestBootstrap(t)
	b.Install()
	handle, _ := b.TryAcquire(testSessionConfig("w1"), func(error, media.UploadResult) {})
	handle.Open()

	b.Release("w1")

	assert.Equal(t, ErrUnknownSession, b.Submit(context.Background(), "w1", "me.png", bytes.NewReader(pngBytes)))
}

func TestBootstrap_generatedKey(t *testing.T) {
	b, _ := newTestBootstrap(t)
	b.Install()

	handle, ok := b.TryAcquire(media.NewSessionConfig("demo", "unsigned"), func(error, media.UploadResult) {})
	require.True(t, ok)

	key := handle.(*session).Key()
	assert.NotEmpty(t, key)
	_, err := b.session(key)
	assert.NoError(t, err)
}

// the widget and the provider together: Scenario C end to end
func TestBootstrap_withWidget(t *testing.T) {
	b, fc := newTestBootstrap(t)
	var changes []*media.AssetReference
	var mu sync.Mutex

	w, err := media.NewWidget(
		media.Options{Probe: b, Deleter: b, Session: testSessionConfig("w1"), PollInterval: 5 * time.Millisecond},
		media.Props{OnChange: func(v *media.AssetReference) {
			mu.Lock()
			defer mu.Unlock()
			changes = append(changes, v)
		}},
	)
	require.NoError(t, err)
	w.Mount()
	defer w.Unmount()

	b.Load(context.Background())
	require.Eventually(t, w.Ready, time.Second, 5*time.Millisecond)

	w.Open()
	require.NoError(t, b.Submit(context.Background(), "w1", "me.png", bytes.NewReader(pngBytes)))
	w.Remove(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.Equal(t, "uploads/abc123", changes[0].PublicID)
	assert.Nil(t, changes[1])
	assert.Equal(t, []string{"tok1"}, fc.deletedTokens())
}
