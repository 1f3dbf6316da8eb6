package web

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/briangreenhill/mapty/internal/app"
	"github.com/briangreenhill/mapty/internal/workout"
)

// Signal is one render instruction pushed to browsers.
type Signal struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload,omitempty"`
}

const (
	SignalMapInit     = "map.initialize"
	SignalMarker      = "map.marker"
	SignalSetView     = "map.set_view"
	SignalFormShow    = "form.show"
	SignalFormHide    = "form.hide"
	SignalFormClear   = "form.clear"
	SignalFormToggle  = "form.toggle_fields"
	SignalListEntry   = "list.entry"
	SignalAlert       = "alert"
	SignalListCleared = "list.cleared"
)

type viewPayload struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Zoom    int     `json:"zoom,omitempty"`
	Animate bool    `json:"animate,omitempty"`
	TileURL string  `json:"tileUrl,omitempty"`
	MaxZoom int     `json:"maxZoom,omitempty"`
}

type markerPayload struct {
	Lat   float64             `json:"lat"`
	Lng   float64             `json:"lng"`
	Popup workout.MarkerPopup `json:"popup"`
}

type alertPayload struct {
	Message string `json:"message"`
}

// Client is one browser connection. Send is drained by the connection's
// writer; Stop marks the writer as gone.
type Client struct {
	Send chan []byte

	quit      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
}

func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// Hub fans signals out to every connected browser.
type Hub struct {
	logger  *slog.Logger
	tileURL string
	maxZoom int

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub(logger *slog.Logger, tileURL string, maxZoom int) *Hub {
	return &Hub{
		logger:  logger,
		tileURL: tileURL,
		maxZoom: maxZoom,
		clients: map[*Client]struct{}{},
	}
}

func NewClient() *Client {
	return &Client{Send: make(chan []byte, 64), quit: make(chan struct{})}
}

// Register adds c to broadcasts.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes c from broadcasts and closes its Send channel.
// It is safe to call more than once, and on a client never registered.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.closeSend()
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast never blocks: a client whose buffer is full misses the signal.
func (h *Hub) Broadcast(s Signal) {
	payload, err := json.Marshal(s)
	if err != nil {
		h.logger.Error("Error encoding signal", slog.String("kind", s.Kind), slog.Any("error", err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.Send <- payload:
		default:
			h.logger.Warn("Dropping signal for slow client", slog.String("kind", s.Kind))
		}
	}
}

// Views renders every controller call to all connected clients.
func (h *Hub) Views() app.Views {
	v := signalView{send: h.Broadcast, tileURL: h.tileURL, maxZoom: h.maxZoom}
	return app.Views{Map: v, Form: v, List: v, Notify: v}
}

// ClientViews renders only to c, for replaying state to a new connection.
// Sends block until the writer takes them or stops, so a replay larger
// than the buffer is delivered whole. c must not be unregistered while
// a replay is running.
func (h *Hub) ClientViews(c *Client) app.Views {
	send := func(s Signal) {
		payload, err := json.Marshal(s)
		if err != nil {
			h.logger.Error("Error encoding signal", slog.String("kind", s.Kind), slog.Any("error", err))
			return
		}
		select {
		case c.Send <- payload:
		case <-c.quit:
		}
	}
	v := signalView{send: send, tileURL: h.tileURL, maxZoom: h.maxZoom}
	return app.Views{Map: v, Form: v, List: v, Notify: v}
}

// signalView turns controller render calls into signals.
type signalView struct {
	send    func(Signal)
	tileURL string
	maxZoom int
}

func (v signalView) Initialize(center workout.Coords, zoom int) {
	v.send(Signal{Kind: SignalMapInit, Payload: viewPayload{
		Lat: center.Lat, Lng: center.Lng, Zoom: zoom, TileURL: v.tileURL, MaxZoom: v.maxZoom,
	}})
}

func (v signalView) AddMarker(at workout.Coords, popup workout.MarkerPopup) {
	v.send(Signal{Kind: SignalMarker, Payload: markerPayload{Lat: at.Lat, Lng: at.Lng, Popup: popup}})
}

func (v signalView) SetView(center workout.Coords, zoom int, animate bool) {
	v.send(Signal{Kind: SignalSetView, Payload: viewPayload{Lat: center.Lat, Lng: center.Lng, Zoom: zoom, Animate: animate}})
}

func (v signalView) Show() { v.send(Signal{Kind: SignalFormShow}) }

func (v signalView) Hide() { v.send(Signal{Kind: SignalFormHide}) }

func (v signalView) ClearFields() { v.send(Signal{Kind: SignalFormClear}) }

func (v signalView) ToggleCadenceElevation() { v.send(Signal{Kind: SignalFormToggle}) }

func (v signalView) RenderEntry(entry workout.ListEntry) {
	v.send(Signal{Kind: SignalListEntry, Payload: entry})
}

func (v signalView) Alert(message string) {
	v.send(Signal{Kind: SignalAlert, Payload: alertPayload{Message: message}})
}
