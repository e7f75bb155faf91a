package media

import (
	"context"
	"time"
)

const (
	DefaultFolder       = "uploads"
	DefaultMaxFileSize  = int64(5_000_000)
	DefaultPollInterval = 500 * time.Millisecond

	// provider events
	EventSuccess = "success"
	EventAbort   = "abort"
	EventClose   = "close"
)

// DefaultAllowedFormats is the image allow-list of upload sessions.
var DefaultAllowedFormats = []string{"png", "jpg", "jpeg"}

// SessionConfig is handed to the provider when a session handle is constructed.
// It is fixed for the lifetime of the handle.
type SessionConfig struct {
	// Key identifies the session to the provider (eg: to route files to it).
	Key            string
	CloudName      string
	UploadPreset   string
	SingleFile     bool
	Folder         string
	MaxFileSize    int64
	AllowedFormats []string
}

// NewSessionConfig returns the default single-file image session config.
func NewSessionConfig(cloudName, uploadPreset string) SessionConfig {
	formats := make([]string, len(DefaultAllowedFormats))
	copy(formats, DefaultAllowedFormats)
	return SessionConfig{
		CloudName:      cloudName,
		UploadPreset:   uploadPreset,
		SingleFile:     true,
		Folder:         DefaultFolder,
		MaxFileSize:    DefaultMaxFileSize,
		AllowedFormats: formats,
	}
}

// UploadInfo is the provider's description of an uploaded asset.
// Only SecureURL, PublicID and DeleteToken are used by the widget.
type UploadInfo struct {
	SecureURL    string `json:"secure_url"`
	PublicID     string `json:"public_id"`
	DeleteToken  string `json:"delete_token,omitempty"`
	AssetID      string `json:"asset_id,omitempty"`
	Format       string `json:"format,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
	Bytes        int64  `json:"bytes,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

type UploadResult struct {
	Event string
	Info  UploadInfo
}

// ResultFunc receives every event of an upload session.
type ResultFunc func(err error, result UploadResult)

// SessionHandle is the bound connection to the upload provider for one widget.
type SessionHandle interface {
	// Open starts (or resumes) the provider's upload flow. Completion is pushed to the ResultFunc.
	Open()
}

// ScriptReadinessProbe gives access to an upload provider that becomes available asynchronously.
type ScriptReadinessProbe interface {
	// TryAcquire constructs a session handle if the provider is available.
	// It must not block.
	TryAcquire(cfg SessionConfig, onResult ResultFunc) (SessionHandle, bool)
}

// Deleter revokes an uploaded asset with the deletion token issued at upload time.
type Deleter interface {
	DeleteByToken(ctx context.Context, token string) error
}
