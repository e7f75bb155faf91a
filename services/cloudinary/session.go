package cloudinary

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/media"
)

var (
	ErrSessionNotOpen   = errors.New("upload session is not open")
	ErrSessionBusy      = errors.New("an upload is already in progress")
	ErrFileTooLarge     = errors.New("file is too large")
	ErrFormatNotAllowed = errors.New("file format is not allowed")
)

// session is the upload handle of one widget.
// Open arms it for a single file; the file itself arrives through Bootstrap.Submit.
type session struct {
	client   uploader
	cfg      media.SessionConfig
	onResult media.ResultFunc

	mu    sync.Mutex
	armed bool
	busy  bool
}

type uploader interface {
	Upload(ctx context.Context, params UploadParams, filename string, content io.Reader) (media.UploadInfo, error)
}

var _ media.SessionHandle = (*session)(nil)

func (s *session) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
}

func (s *session) Key() string { return s.cfg.Key }

// cancel closes an armed session, reporting an abort.
func (s *session) cancel() bool {
	s.mu.Lock()
	if !s.armed || s.busy {
		s.mu.Unlock()
		return false
	}
	s.armed = false
	s.mu.Unlock()

	s.onResult(nil, media.UploadResult{Event: media.EventAbort})
	return true
}

func (s *session) submit(ctx context.Context, filename string, r io.Reader) error {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return ErrSessionNotOpen
	}
	if s.busy {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.busy = true
	s.mu.Unlock()

	err := s.upload(ctx, filename, r)

	s.mu.Lock()
	s.busy = false
	if s.cfg.SingleFile {
		s.armed = false
	}
	s.mu.Unlock()
	return err
}

func (s *session) upload(ctx context.Context, filename string, r io.Reader) error {
	content, err := s.validate(r)
	if err != nil {
		s.onResult(err, media.UploadResult{})
		return err
	}

	info, err := s.client.Upload(ctx, UploadParams{UploadPreset: s.cfg.UploadPreset, Folder: s.cfg.Folder}, filename, bytes.NewReader(content))
	if err != nil {
		s.onResult(err, media.UploadResult{})
		return err
	}
	s.onResult(nil, media.UploadResult{Event: media.EventSuccess, Info: info})
	return nil
}

// validate reads the whole file, enforcing the session's size limit and image format allow-list.
func (s *session) validate(r io.Reader) ([]byte, error) {
	limit := s.cfg.MaxFileSize
	if limit <= 0 {
		limit = media.DefaultMaxFileSize
	}
	content, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	if int64(len(content)) > limit {
		return nil, core.NewValidationError(ErrFileTooLarge, core.FieldError{
			Field: "file",
			Error: fmt.Sprintf("file must not exceed %d bytes", limit),
		})
	}

	kind, err := filetype.Match(content)
	if err != nil {
		return nil, errors.Wrap(err, "detecting file type")
	}
	for _, format := range s.cfg.AllowedFormats {
		if core.CleanString(format, true /* lower */) == kind.Extension || (format == "jpeg" && kind.Extension == "jpg") {
			return content, nil
		}
	}
	return nil, core.NewValidationError(ErrFormatNotAllowed, core.FieldError{Field: "file", Error: ErrFormatNotAllowed.Error()})
}
