package bridge

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chat-widget/backend/pkg/utils"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	sseKeepAlive = 25 * time.Second
	maxInbound   = 4096
)

type parent struct {
	id     string
	origin string
	send   chan Envelope
}

// Hub is a Target whose parents are hosting pages connected over WebSocket
// or SSE. A post reaches only parents whose Origin header equals the target.
type Hub struct {
	mu      sync.RWMutex
	parents map[string]*parent
	force   bool

	allow    func(origin string) bool
	inbound  func(origin string, raw []byte) bool
	upgrader websocket.Upgrader
}

// NewHub creates a hub accepting parents whose origin passes allow. When
// forceFramed is set the hub reports itself framed even with no parent.
func NewHub(allow func(origin string) bool, forceFramed bool) *Hub {
	h := &Hub{
		parents: make(map[string]*parent),
		force:   forceFramed,
		allow:   allow,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return h.allow(r.Header.Get("Origin"))
		},
	}
	return h
}

// SetInbound routes frames received from parents to fn.
func (h *Hub) SetInbound(fn func(origin string, raw []byte) bool) {
	h.mu.Lock()
	h.inbound = fn
	h.mu.Unlock()
}

// Framed reports whether at least one parent is attached.
func (h *Hub) Framed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.force || len(h.parents) > 0
}

// PostMessage queues env for every parent whose origin equals targetOrigin.
func (h *Hub) PostMessage(env Envelope, targetOrigin string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	matched := false
	for _, p := range h.parents {
		if p.origin != targetOrigin {
			continue
		}
		matched = true
		select {
		case p.send <- env:
		default:
			log.Printf("[bridge] dropping %s event for slow parent %s", env.Event, p.id)
		}
	}
	if !matched {
		return ErrOriginMismatch
	}
	return nil
}

func (h *Hub) register(origin string) *parent {
	p := &parent{id: uuid.NewString(), origin: origin, send: make(chan Envelope, sendBuffer)}
	h.mu.Lock()
	h.parents[p.id] = p
	h.mu.Unlock()
	log.Printf("[bridge] parent %s attached origin=%s", p.id, origin)
	return p
}

func (h *Hub) unregister(p *parent) {
	h.mu.Lock()
	if _, ok := h.parents[p.id]; ok {
		delete(h.parents, p.id)
		close(p.send)
	}
	h.mu.Unlock()
	log.Printf("[bridge] parent %s detached", p.id)
}

func (h *Hub) dispatch(origin string, raw []byte) {
	h.mu.RLock()
	fn := h.inbound
	h.mu.RUnlock()
	if fn != nil {
		fn(origin, raw)
	}
}

// ServeWS upgrades a hosting page connection. Disallowed origins are refused
// by the upgrader.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[bridge] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	origin := r.Header.Get("Origin")
	p := h.register(origin)
	defer h.unregister(p)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for env := range p.send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(env); err != nil {
				log.Printf("[bridge] write to parent %s failed: %v", p.id, err)
				_ = conn.Close()
				return
			}
		}
	}()

	conn.SetReadLimit(maxInbound)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[bridge] parent %s closed unexpectedly: %v", p.id, err)
			}
			break
		}
		h.dispatch(origin, message)
	}

	h.unregister(p)
	<-done
}

// ServeSSE streams envelopes to a hosting page that cannot open a socket.
// It is outbound only.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.allow(origin) {
		utils.RespondError(w, http.StatusForbidden, "origin not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w, origin)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	p := h.register(origin)
	defer h.unregister(p)

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keep-alive"); err != nil {
				return
			}
		case env, ok := <-p.send:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(env.Event), env); err != nil {
				return
			}
		}
	}
}
