package media

import "github.com/pkg/errors"

var errIncompleteResult = errors.New("upload result is missing secure_url or public_id")

// Open starts the provider's upload flow.
// It is a silent no-op unless the widget is mounted, enabled, empty and the provider is ready:
// an asset must be removed before another one is uploaded.
func (w *Widget) Open() {
	w.mu.Lock()
	inert := w.props.Disabled || !w.mounted || w.unmounted || w.preview != nil || w.removing
	w.mu.Unlock()
	if inert {
		return
	}

	handle := w.gw.current()
	if handle == nil {
		w.logger.Debug("media: open ignored, upload provider not ready")
		return
	}
	w.obs.SessionOpened()
	handle.Open()
}

// handleResult is the one-shot subscription registered with the provider at session construction.
func (w *Widget) handleResult(err error, result UploadResult) {
	if err == nil && result.Event == EventSuccess {
		if result.Info.SecureURL == "" || result.Info.PublicID == "" {
			err = errIncompleteResult
		} else {
			w.commitUpload(result.Info)
			return
		}
	}

	// anything but an error or a cancellation is provider chatter
	if err == nil && result.Event != EventAbort {
		return
	}

	w.mu.Lock()
	if w.unmounted {
		w.mu.Unlock()
		return
	}
	w.enqueueLocked(emission{status: &Status{Kind: StatusUploadRejected, Event: result.Event, Err: err}})
	w.mu.Unlock()

	w.logger.Warn("media: upload rejected", map[string]interface{}{"event": result.Event, "error": err})
	w.obs.UploadRejected()
	w.flush()
}

func (w *Widget) commitUpload(info UploadInfo) {
	ref := &AssetReference{URL: info.SecureURL, PublicID: info.PublicID}

	w.mu.Lock()
	if w.unmounted {
		w.mu.Unlock()
		return
	}
	w.preview = ref
	w.deleteToken = info.DeleteToken
	w.tokenAsset = nil
	if info.DeleteToken != "" {
		w.tokenAsset = ref.clone()
	}
	w.enqueueLocked(emission{value: ref})
	w.mu.Unlock()

	w.obs.UploadSucceeded()
	w.flush()
}
