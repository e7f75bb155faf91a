package echoapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/vishusingh1/classroom/core/media"
)

const (
	eventSnapshot  = "snapshot"
	eventStatus    = "status"
	eventUnmounted = "unmounted"

	subscriberBuffer = 16
	writeWait        = 10 * time.Second
)

type statusEvent struct {
	Kind  string `json:"kind"`
	Event string `json:"event,omitempty"`
	Error string `json:"error,omitempty"`
}

type widgetEvent struct {
	Type     string          `json:"type"`
	Widget   string          `json:"widget"`
	Snapshot *media.Snapshot `json:"snapshot,omitempty"`
	Status   *statusEvent    `json:"status,omitempty"`
}

// eventHub fans the events of one widget out to its websocket subscribers.
// Slow subscribers miss events rather than block the widget.
type eventHub struct {
	mu     sync.Mutex
	subs   map[chan widgetEvent]struct{}
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan widgetEvent]struct{})}
}

func (h *eventHub) subscribe() (chan widgetEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch := make(chan widgetEvent, subscriberBuffer)
	h.subs[ch] = struct{}{}
	return ch, true
}

func (h *eventHub) unsubscribe(ch chan widgetEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *eventHub) broadcast(ev widgetEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// close ends every subscription; later subscriptions fail.
func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the token travels in the query string, not in a cookie
	CheckOrigin: func(*http.Request) bool { return true },
}

func writeEvent(conn *websocket.Conn, ev widgetEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}

// events streams the widget's snapshots and status notifications until the
// client goes away or the widget is unmounted.
func (api *widgetAPI) events(ctx echo.Context) error {
	m := contextMount(ctx)
	ch, ok := m.hub.subscribe()
	if !ok {
		return errWidgetNotFound
	}
	defer m.hub.unsubscribe(ch)

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeEvent(conn, m.snapshotEvent()); err != nil {
		return nil
	}
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				_ = writeEvent(conn, widgetEvent{Type: eventUnmounted, Widget: m.id.String()})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, eventUnmounted),
					time.Now().Add(writeWait))
				return nil
			}
			if err := writeEvent(conn, ev); err != nil {
				return nil
			}
		case <-gone:
			return nil
		}
	}
}
