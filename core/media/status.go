package media

type StatusKind int

const (
	// StatusReady is reported once the session handle has been constructed.
	StatusReady StatusKind = iota + 1
	// StatusUploadRejected is reported when the provider reports an error or a cancellation.
	StatusUploadRejected
)

func (k StatusKind) String() string {
	switch k {
	case StatusReady:
		return "ready"
	case StatusUploadRejected:
		return "upload_rejected"
	default:
		return "unknown"
	}
}

// Status is a side-channel notification. It never carries a value change.
type Status struct {
	Kind  StatusKind
	Event string
	Err   error
}

// Observer is notified of widget activity (metrics).
type Observer interface {
	SessionAcquired()
	SessionOpened()
	UploadSucceeded()
	UploadRejected()
	Removed(remote bool)
	RemoteDeletionFailed()
}

type nopObserver struct{}

func (nopObserver) SessionAcquired()      {}
func (nopObserver) SessionOpened()        {}
func (nopObserver) UploadSucceeded()      {}
func (nopObserver) UploadRejected()       {}
func (nopObserver) Removed(bool)          {}
func (nopObserver) RemoteDeletionFailed() {}
