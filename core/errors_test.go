package core

import (
	stderrors "errors"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	errTooLarge := errors.New("file is too large")

	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantMsgs map[string]string
	}{
		{name: "no fields", err: NewValidationError(errTooLarge), wantMsg: "file is too large"},
		{
			name:     "fields",
			err:      NewValidationError(errTooLarge, FieldError{Field: "file", Error: "file must not exceed 10 bytes"}),
			wantMsg:  "file is too large",
			wantMsgs: map[string]string{"file": "file must not exceed 10 bytes"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.True(t, stderrors.Is(tt.err, errTooLarge))

			vErr, ok := errors.Cause(errors.Wrap(tt.err, "uploading")).(*ValidationError)
			if assert.True(t, ok) {
				assert.Equal(t, tt.wantMsgs, vErr.FieldMessages())
			}
		})
	}
}

func TestIsShutdown(t *testing.T) {
	assert.True(t, IsShutdown(errors.Wrap(NewShutdownError("db is gone"), "querying users")))
	assert.False(t, IsShutdown(errors.New("db is gone")))
}
