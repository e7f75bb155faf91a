package echoapi

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/media"
	"github.com/vishusingh1/classroom/services/cloudinary"
	"github.com/vishusingh1/classroom/services/metrics"
)

const (
	kindAvatar = "avatar"
	kindBanner = "banner"

	maxMountedWidgets = 1024
	storeTimeout      = 10 * time.Second
)

// binding connects a widget to the record that owns its value.
type binding struct {
	kind     string
	recordID int
	load     func(ctx context.Context) (*media.AssetReference, error)
	store    func(ctx context.Context, ref *media.AssetReference) (*media.AssetReference, error)
}

// mount is a widget mounted on behalf of a dashboard user.
// It plays the parent form: it owns the value, persists every change and pushes it back.
type mount struct {
	id      uuid.UUID
	ownerID int
	binding binding
	widget  *media.Widget
	hub     *eventHub
	logger  core.Logger

	mu       sync.Mutex
	disabled bool
}

func (m *mount) props(value *media.AssetReference) media.Props {
	m.mu.Lock()
	defer m.mu.Unlock()
	return media.Props{Value: value, OnChange: m.onChange, OnStatus: m.onStatus, Disabled: m.disabled}
}

func (m *mount) onChange(ref *media.AssetReference) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	stored, err := m.binding.store(ctx, ref)
	if err != nil {
		m.logger.Error("widgets: saving value", errors.Wrapf(err, "%s of record %d", m.binding.kind, m.binding.recordID))
		m.publish()
		return
	}
	m.widget.SetProps(m.props(stored))
	m.publish()
}

func (m *mount) onStatus(st media.Status) {
	ev := &statusEvent{Kind: st.Kind.String(), Event: st.Event}
	if st.Err != nil {
		ev.Error = st.Err.Error()
	}
	m.hub.broadcast(widgetEvent{Type: eventStatus, Widget: m.id.String(), Status: ev})
	if st.Kind == media.StatusReady {
		m.publish()
	}
}

// setDisabled re-renders the widget with the record's current value.
func (m *mount) setDisabled(ctx context.Context, disabled bool) error {
	value, err := m.binding.load(ctx)
	if err != nil {
		return errors.Wrap(err, "loading widget value")
	}
	m.mu.Lock()
	m.disabled = disabled
	m.mu.Unlock()

	m.widget.SetProps(m.props(value))
	m.publish()
	return nil
}

func (m *mount) snapshotEvent() widgetEvent {
	snap := m.widget.Snapshot()
	return widgetEvent{Type: eventSnapshot, Widget: m.id.String(), Snapshot: &snap}
}

func (m *mount) publish() {
	m.hub.broadcast(m.snapshotEvent())
}

type sessionSettings struct {
	CloudName      string   `json:"cloud_name" validate:"required"`
	UploadPreset   string   `json:"upload_preset" validate:"required"`
	Folder         string   `json:"folder" validate:"required"`
	MaxFileSize    int64    `json:"max_file_size" validate:"min=1"`
	AllowedFormats []string `json:"allowed_formats" validate:"required,imageformats"`
}

// widgetRegistry holds the mounted widgets by id.
type widgetRegistry struct {
	provider *cloudinary.Bootstrap
	metrics  *metrics.Metrics
	logger   core.Logger
	session  media.SessionConfig
	interval time.Duration

	mu     sync.RWMutex
	mounts map[uuid.UUID]*mount
}

func newWidgetRegistry(conf *core.Config, validate *validator.Validate, provider *cloudinary.Bootstrap, m *metrics.Metrics, logger core.Logger) (*widgetRegistry, error) {
	settings := sessionSettings{
		CloudName:      conf.Cloudinary.CloudName,
		UploadPreset:   conf.Cloudinary.UploadPreset,
		Folder:         conf.Cloudinary.Folder,
		MaxFileSize:    conf.Cloudinary.MaxFileSize,
		AllowedFormats: conf.Cloudinary.AllowedFormats,
	}
	if err := validate.Struct(settings); err != nil {
		return nil, errors.Wrap(err, "validating cloudinary settings")
	}

	session := media.NewSessionConfig(settings.CloudName, settings.UploadPreset)
	session.Folder = settings.Folder
	session.MaxFileSize = settings.MaxFileSize
	session.AllowedFormats = append([]string(nil), settings.AllowedFormats...)

	return &widgetRegistry{
		provider: provider,
		metrics:  m,
		logger:   logger,
		session:  session,
		interval: conf.Cloudinary.ReadinessInterval,
		mounts:   make(map[uuid.UUID]*mount),
	}, nil
}

func (r *widgetRegistry) mount(ctx context.Context, ownerID int, b binding) (*mount, error) {
	value, err := b.load(ctx)
	if err != nil {
		return nil, err
	}

	m := &mount{id: uuid.New(), ownerID: ownerID, binding: b, hub: newEventHub(), logger: r.logger}
	cfg := r.session
	cfg.Key = m.id.String()
	cfg.AllowedFormats = append([]string(nil), r.session.AllowedFormats...)
	w, err := media.NewWidget(media.Options{
		Probe:        r.provider,
		Deleter:      r.provider,
		Session:      cfg,
		PollInterval: r.interval,
		Logger:       r.logger,
		Observer:     r.metrics.Observer(b.kind),
	}, m.props(value))
	if err != nil {
		return nil, errors.Wrap(err, "creating widget")
	}
	m.widget = w

	r.mu.Lock()
	if len(r.mounts) >= maxMountedWidgets {
		r.mu.Unlock()
		return nil, errWidgetLimitReached
	}
	r.mounts[m.id] = m
	r.mu.Unlock()

	r.metrics.Mounted(b.kind)
	w.Mount()
	return m, nil
}

func (r *widgetRegistry) get(id uuid.UUID) (*mount, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mounts[id]
	if !ok {
		return nil, false
	}
	return m, true
}

func (r *widgetRegistry) unmount(id uuid.UUID) bool {
	r.mu.Lock()
	m, ok := r.mounts[id]
	if ok {
		delete(r.mounts, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	m.widget.Unmount()
	r.provider.Release(id.String())
	m.hub.close()
	r.metrics.Unmounted(m.binding.kind)
	return true
}

func (r *widgetRegistry) unmountAll() {
	r.mu.RLock()
	ids := make([]uuid.UUID, 0, len(r.mounts))
	for id := range r.mounts {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.unmount(id)
	}
}
