package cloudinary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
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

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

// fakeCloudinary mimics the parts of the upload API used by the client.
type fakeCloudinary struct {
	*httptest.Server

	mu       sync.Mutex
	fields   map[string]string
	filename string
	tokens   []string
	down     int32 // answers 503 while set
	failDel  bool
}

func newFakeCloudinary(t *testing.T) *fakeCloudinary {
	t.Helper()
	fc := &fakeCloudinary{}
	mux := http.NewServeMux()
	mux.HandleFunc("/demo/image/upload", fc.upload)
	mux.HandleFunc("/demo/delete_by_token", fc.deleteByToken)
	fc.Server = httptest.NewServer(mux)
	t.Cleanup(fc.Close)
	return fc
}

func (fc *fakeCloudinary) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"message": msg}})
}

func (fc *fakeCloudinary) upload(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&fc.down) == 1 {
		fc.writeError(w, http.StatusServiceUnavailable, "down for maintenance")
		return
	}
	if r.Method != http.MethodPost {
		fc.writeError(w, http.StatusBadRequest, "Missing required parameter - file")
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		fc.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, header, err := r.FormFile("file")
	if err != nil {
		fc.writeError(w, http.StatusBadRequest, "Missing required parameter - file")
		return
	}
	if r.FormValue("upload_preset") == "" {
		fc.writeError(w, http.StatusBadRequest, "Upload preset must be specified when using unsigned upload")
		return
	}

	fc.mu.Lock()
	fc.fields = map[string]string{
		"upload_preset":       r.FormValue("upload_preset"),
		"folder":              r.FormValue("folder"),
		"return_delete_token": r.FormValue("return_delete_token"),
	}
	fc.filename = header.Filename
	fc.mu.Unlock()

	publicID := r.FormValue("folder") + "/abc123"
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"asset_id":      "3515c6000a548515f1134043f9785c2f",
		"public_id":     publicID,
		"format":        "png",
		"resource_type": "image",
		"bytes":         header.Size,
		"width":         1,
		"height":        1,
		"secure_url":    "https://res.cloudinary.com/demo/image/upload/v1/" + publicID + ".png",
		"delete_token":  "tok1",
	})
}

func (fc *fakeCloudinary) deleteByToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		fc.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fc.mu.Lock()
	fc.tokens = append(fc.tokens, r.PostFormValue("token"))
	fail := fc.failDel
	fc.mu.Unlock()

	if fail {
		fc.writeError(w, http.StatusUnauthorized, "Stale request - reported time is 10 minutes ago")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
}

func (fc *fakeCloudinary) deletedTokens() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.tokens...)
}

func newTestConfig(baseURL string) *core.Config {
	conf := &core.Config{}
	conf.Cloudinary.CloudName = "demo"
	conf.Cloudinary.UploadPreset = "unsigned"
	conf.Cloudinary.APIBaseURL = baseURL + "/"
	conf.Cloudinary.RequestTimeout = time.Second
	conf.Cloudinary.ReadinessInterval = 5 * time.Millisecond
	return conf
}

func TestClient_Upload(t *testing.T) {
	fc := newFakeCloudinary(t)
	client := NewClient(newTestConfig(fc.URL))

	info, err := client.Upload(context.Background(), UploadParams{UploadPreset: "unsigned", Folder: "uploads"}, "me.png", strings.NewReader(string(pngBytes)))
	require.NoError(t, err)

	assert.Equal(t, "uploads/abc123", info.PublicID)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/uploads/abc123.png", info.SecureURL)
	assert.Equal(t, "tok1", info.DeleteToken)
	assert.Equal(t, int64(len(pngBytes)), info.Bytes)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Equal(t, map[string]string{"upload_preset": "unsigned", "folder": "uploads", "return_delete_token": "true"}, fc.fields)
	assert.Equal(t, "me.png", fc.filename)
}

func TestClient_UploadRejected(t *testing.T) {
	fc := newFakeCloudinary(t)
	client := NewClient(newTestConfig(fc.URL))

	_, err := client.Upload(context.Background(), UploadParams{}, "me.png", strings.NewReader(string(pngBytes)))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Upload preset must be specified when using unsigned upload", apiErr.Message)
}

func TestClient_DeleteByToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		failDel bool
		wantErr bool
		wantReq []string
	}{
		{name: "ok", token: "tok1", wantReq: []string{"tok1"}},
		{name: "expired token", token: "tok1", failDel: true, wantErr: true, wantReq: []string{"tok1"}},
		{name: "empty token", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeCloudinary(t)
			fc.failDel = tt.failDel
			client := NewClient(newTestConfig(fc.URL))

			err := client.DeleteByToken(context.Background(), tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("DeleteByToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.wantReq, fc.deletedTokens())
		})
	}
}

func TestClient_DeleteByTokenHonoursContext(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	client := NewClient(newTestConfig(slow.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := client.DeleteByToken(ctx, "tok1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, int64(time.Since(start)), int64(500*time.Millisecond))
}

func TestClient_Ping(t *testing.T) {
	fc := newFakeCloudinary(t)
	client := NewClient(newTestConfig(fc.URL))

	assert.NoError(t, client.Ping(context.Background()), "a 4xx means the API is up")

	atomic.StoreInt32(&fc.down, 1)
	assert.Error(t, client.Ping(context.Background()))

	unreachable := NewClient(newTestConfig("http://127.0.0.1:1"))
	assert.Error(t, unreachable.Ping(context.Background()))
}

var _ media.Deleter = (*Bootstrap)(nil)
