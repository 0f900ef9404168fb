package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ballast-systems/ballast/internal/engine"
)

// Per-client buffer. A subscriber that falls this far behind starts
// missing decisions instead of stalling the hub.
const streamBufferDepth = 16

const pingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// #region hub

// hub fans a single decision feed out to any number of stream clients.
type hub struct {
	mu     sync.Mutex
	subs   map[chan engine.Decision]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[chan engine.Decision]struct{})}
}

// run broadcasts from src until it closes, then closes every subscriber.
func (h *hub) run(src <-chan engine.Decision) {
	for d := range src {
		h.mu.Lock()
		for ch := range h.subs {
			select {
			case ch <- d:
			default:
			}
		}
		h.mu.Unlock()
	}

	h.mu.Lock()
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = nil
	h.mu.Unlock()
}

// subscribe registers a new client channel and returns it with a cancel
// func. After run has finished, subscribers get an already-closed channel.
func (h *hub) subscribe() (<-chan engine.Decision, func()) {
	ch := make(chan engine.Decision, streamBufferDepth)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if !h.closed {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// #endregion hub

// #region handler

func (s *Server) streamDecisions(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	feed, cancel := s.hub.subscribe()
	defer cancel()

	// The read loop exists only to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case d, ok := <-feed:
			if !ok {
				return
			}
			if err := conn.WriteJSON(d); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// #endregion handler
