package media

import (
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/vishusingh1/classroom/core"
)

// Props is what the parent form hands to the widget.
type Props struct {
	// Value is the field value owned by the parent. nil means "no image".
	Value *AssetReference
	// OnChange receives every value produced by the widget (nil after a removal).
	OnChange func(*AssetReference)
	// OnStatus optionally receives side-channel notifications (readiness, rejected uploads).
	OnStatus func(Status)
	Disabled bool
}

type Options struct {
	Probe        ScriptReadinessProbe
	Deleter      Deleter
	Session      SessionConfig
	PollInterval time.Duration
	Logger       core.Logger
	Observer     Observer
}

type emission struct {
	status *Status
	value  *AssetReference
}

// Widget is one mounted upload widget.
//
// All state transitions happen under mu. Callbacks are queued while holding the lock
// and delivered outside of it, in order, so they may call back into the widget.
type Widget struct {
	opts   Options
	gw     *gateway
	logger core.Logger
	obs    Observer

	mu          sync.Mutex
	props       Props
	external    *AssetReference // last value supplied by the parent
	preview     *AssetReference
	deleteToken string
	tokenAsset  *AssetReference // the asset deleteToken revokes
	removing    bool
	mounted     bool
	unmounted   bool
	queue       []emission
	flushing    bool
}

// NewWidget returns an unmounted widget previewing props.Value.
func NewWidget(opts Options, props Props) (*Widget, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(opts.Probe, "Probe"),
		vala.IsNotNil(opts.Deleter, "Deleter"),
		vala.StringNotEmpty(opts.Session.CloudName, "Session.CloudName"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "validating widget options")
	}

	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	w := &Widget{
		opts:     opts,
		gw:       newGateway(opts.Probe, opts.PollInterval),
		logger:   opts.Logger,
		obs:      opts.Observer,
		props:    props,
		external: props.Value.clone(),
		preview:  props.Value.clone(),
	}
	return w, nil
}

// Mount binds the widget to the upload provider, polling until it is available.
// A widget can only be mounted once.
func (w *Widget) Mount() {
	w.mu.Lock()
	if w.mounted || w.unmounted {
		w.mu.Unlock()
		return
	}
	w.mounted = true
	cfg := w.opts.Session
	w.mu.Unlock()

	w.gw.start(cfg, w.handleResult, w.onReady)
}

// Unmount cancels the readiness poll and turns every pending or later callback into a no-op.
func (w *Widget) Unmount() {
	w.mu.Lock()
	if w.unmounted {
		w.mu.Unlock()
		return
	}
	w.unmounted = true
	w.queue = nil
	w.mu.Unlock()

	w.gw.stop()
}

// SetProps is called whenever the parent re-renders.
// The latest OnChange always wins. The preview follows the supplied value whenever that value
// changed or differs from what is shown (eg: an upload the parent has not written back).
// It never fires OnChange.
func (w *Widget) SetProps(props Props) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.unmounted {
		return
	}
	w.props = props
	if SameAsset(props.Value, w.external) && SameAsset(props.Value, w.preview) {
		return
	}
	w.external = props.Value.clone()
	w.preview = props.Value.clone()
	if props.Value == nil || !SameAsset(props.Value, w.tokenAsset) {
		w.clearTokenLocked()
	}
}

func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		Value:    w.preview.clone(),
		Ready:    w.gw.current() != nil,
		Disabled: w.props.Disabled,
		Mounted:  w.mounted && !w.unmounted,
	}
	switch {
	case w.preview == nil:
		snap.State = StateEmpty
	case w.removing:
		snap.State = StateRemoving
	default:
		snap.State = StatePreviewing
	}
	return snap
}

// Ready reports whether the session handle has been constructed.
func (w *Widget) Ready() bool {
	return w.gw.current() != nil
}

func (w *Widget) onReady() {
	w.mu.Lock()
	if w.unmounted {
		w.mu.Unlock()
		return
	}
	w.enqueueLocked(emission{status: &Status{Kind: StatusReady}})
	w.mu.Unlock()

	w.obs.SessionAcquired()
	w.flush()
}

func (w *Widget) clearTokenLocked() {
	w.deleteToken = ""
	w.tokenAsset = nil
}

func (w *Widget) enqueueLocked(e emission) {
	w.queue = append(w.queue, e)
}

// flush delivers queued callbacks in order. Only one goroutine flushes at a time;
// the others (and re-entrant calls from a callback) leave their emissions to it.
func (w *Widget) flush() {
	w.mu.Lock()
	if w.flushing {
		w.mu.Unlock()
		return
	}
	w.flushing = true
	locked := true
	// a panicking callback must not leave the queue stuck
	defer func() {
		if !locked {
			w.mu.Lock()
		}
		w.flushing = false
		w.mu.Unlock()
	}()

	for len(w.queue) > 0 && !w.unmounted {
		e := w.queue[0]
		w.queue = w.queue[1:]
		// read the callbacks at call time, never earlier
		onChange, onStatus := w.props.OnChange, w.props.OnStatus
		w.mu.Unlock()
		locked = false

		if e.status != nil {
			if onStatus != nil {
				onStatus(*e.status)
			}
		} else if onChange != nil {
			onChange(e.value.clone())
		}

		w.mu.Lock()
		locked = true
	}
}
