package media

import (
	"context"

	"github.com/pkg/errors"
)

// Remove reverses the current asset: it revokes the remote asset when the widget holds its
// deletion token, then always clears the field and reports nil through OnChange.
// The remote outcome never blocks the local transition. Concurrent calls are no-ops.
func (w *Widget) Remove(ctx context.Context) {
	w.mu.Lock()
	if w.unmounted || w.preview == nil || w.removing || w.props.Disabled {
		w.mu.Unlock()
		return
	}
	w.removing = true
	token := w.deleteToken
	w.mu.Unlock()

	// 1. best-effort remote deletion
	if token != "" {
		if err := w.deleteRemote(ctx, token); err != nil {
			w.logger.Warn("media: failed to remove asset from provider", err)
			w.obs.RemoteDeletionFailed()
		}
	}

	// 2. unconditional local transition
	w.mu.Lock()
	w.removing = false
	if w.unmounted {
		w.mu.Unlock()
		return
	}
	w.preview = nil
	w.clearTokenLocked()
	w.enqueueLocked(emission{value: nil})
	w.mu.Unlock()

	w.obs.Removed(token != "")
	w.flush()
}

func (w *Widget) deleteRemote(ctx context.Context, token string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("deleter panicked: %v", r)
		}
	}()
	return errors.Wrap(w.opts.Deleter.DeleteByToken(ctx, token), "deleting by token")
}
