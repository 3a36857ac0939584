// Package preview runs the development loop: a static file server over the
// app directory with live reload, and filesystem watch bindings that rerun
// tasks when their sources change.
package preview

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// EventType tells the browser how to apply a change.
type EventType string

const (
	// EventCSS swaps stylesheets in place.
	EventCSS EventType = "css"
	// EventReload reloads the page.
	EventReload EventType = "reload"
)

// Event is one live reload message. Paths are URL paths below the server root.
type Event struct {
	Type  EventType `json:"type"`
	Paths []string  `json:"paths,omitempty"`
	ID    string    `json:"id"`
}

const defaultHeartbeat = 30 * time.Second

// LiveReloadHub manages SSE clients and fans events out to them.
type LiveReloadHub struct {
	mu        sync.RWMutex
	nextID    int
	clients   map[int]*lrClient
	rec       metrics.Recorder
	closed    bool
	heartbeat time.Duration
}

type lrClient struct {
	id   int
	ch   chan []byte
	done chan struct{}
}

func NewLiveReloadHub(rec metrics.Recorder) *LiveReloadHub {
	return &LiveReloadHub{
		clients:   map[int]*lrClient{},
		rec:       metrics.OrNoop(rec),
		heartbeat: defaultHeartbeat,
	}
}

// ServeHTTP implements the SSE endpoint.
func (h *LiveReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	client, ok := h.addClient()
	if !ok {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.removeClient(client.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	send := func(chunk string) bool {
		if _, err := bw.WriteString(chunk); err != nil {
			slog.Debug("livereload write", "error", err)
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	if !send(": connected\n\n") {
		return
	}

	hb := time.NewTicker(h.heartbeat)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if !send(": ping\n\n") {
				return
			}
		case payload := <-client.ch:
			if !send("data: " + string(payload) + "\n\n") {
				return
			}
		}
	}
}

// addClient registers a new client unless the hub is shut down. The check
// and the registration share one lock so Shutdown cannot miss a client.
func (h *LiveReloadHub) addClient() (*lrClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	client := &lrClient{id: h.nextID, ch: make(chan []byte, 8), done: make(chan struct{})}
	h.nextID++
	h.clients[client.id] = client
	h.rec.SetLiveReloadClients(len(h.clients))
	return client, true
}

func (h *LiveReloadHub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
		h.rec.SetLiveReloadClients(len(h.clients))
	}
}

// Clients returns the number of connected clients.
func (h *LiveReloadHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every client. Clients whose buffers are full are
// dropped; the browser script reconnects.
func (h *LiveReloadHub) Broadcast(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("livereload encode", "error", err)
		return
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	snapshot := make([]*lrClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- payload:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.rec.IncLiveReloadBroadcast(string(ev.Type))
	slog.Debug("livereload broadcast", "type", ev.Type, "paths", ev.Paths, "clients", len(snapshot), "dropped", dropped)
}

// Shutdown disconnects all clients and rejects new ones.
func (h *LiveReloadHub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*lrClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.rec.SetLiveReloadClients(0)
}
