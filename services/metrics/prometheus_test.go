package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver(t *testing.T) {
	m := New()
	obs := m.Observer("avatar")

	obs.SessionAcquired()
	obs.SessionOpened()
	obs.UploadSucceeded()
	obs.UploadRejected()
	obs.UploadRejected()
	obs.Removed(true)
	obs.Removed(false)
	obs.RemoteDeletionFailed()
	m.Mounted("avatar")
	m.Mounted("avatar")
	m.Unmounted("avatar")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues("avatar")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.opens.WithLabelValues("avatar")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("avatar", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploads.WithLabelValues("avatar", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.removals.WithLabelValues("avatar", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.removals.WithLabelValues("avatar", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deleteFailures.WithLabelValues("avatar")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mounted.WithLabelValues("avatar")))
	assert.Zero(t, testutil.ToFloat64(m.uploads.WithLabelValues("banner", "success")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observer("banner").UploadSucceeded()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `classroom_widget_uploads_total{kind="banner",result="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
