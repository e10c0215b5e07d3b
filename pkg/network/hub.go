// Package network pushes game snapshots to websocket subscribers:
// scoreboards, overlays, and anything else on the cabinet's LAN that
// wants the live game state without polling.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/gorilla/websocket"
)

const (
	// writeTimeout bounds a single frame write to a subscriber.
	writeTimeout = 10 * time.Second
	// pongTimeout is how long a subscriber may stay silent before the
	// read side gives up on it. Pings go out well inside that window.
	pongTimeout  = 60 * time.Second
	pingInterval = (pongTimeout * 9) / 10
	// maxMessageSize caps inbound frames. Subscribers are read-only,
	// so anything beyond a control frame is already suspect.
	maxMessageSize = 512
	// sendBufferSize is the per-subscriber frame buffer. A subscriber
	// that falls this far behind is dropped rather than allowed to
	// stall the fan-out.
	sendBufferSize = 16
	// broadcastBufferSize is the hub's inbound snapshot buffer.
	broadcastBufferSize = 64
)

// Hub fans snapshots out to websocket subscribers. Subscribers are
// read-only spectators: inbound frames are drained so control frames
// get handled, and otherwise ignored.
type Hub struct {
	lock        sync.RWMutex
	subscribers map[*subscriber]struct{}
	broadcasts  chan types.Snapshot
	upgrader    websocket.Upgrader

	fanOuts          atomic.Uint64
	snapshotsDropped atomic.Uint64
	slowDropped      atomic.Uint64
}

type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	addr string
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		broadcasts:  make(chan types.Snapshot, broadcastBufferSize),
		upgrader: websocket.Upgrader{
			// The cabinet API is an unauthenticated LAN surface, so
			// cross-origin viewers are expected.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start fans queued snapshots out until ctx is cancelled, then closes
// every subscriber.
func (h *Hub) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case snapshot := <-h.broadcasts:
			h.fanOut(snapshot)
		}
	}
}

// BroadcastSnapshot queues a snapshot for fan-out. It never blocks:
// when the hub is saturated the snapshot is dropped, and the next tick
// delivers a fresher one anyway.
func (h *Hub) BroadcastSnapshot(snapshot types.Snapshot) {
	select {
	case h.broadcasts <- snapshot:
	default:
		h.snapshotsDropped.Add(1)
		log.Warn("Hub broadcast buffer full, dropping snapshot")
	}
}

// ServeHTTP upgrades the request and registers the connection as a
// subscriber. Mount it wherever the router serves the push endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade websocket connection: %v", err)
		return
	}
	sub := &subscriber{
		hub:  h,
		conn: conn,
		addr: conn.RemoteAddr().String(),
		send: make(chan []byte, sendBufferSize),
	}
	h.add(sub)
	log.Debug("Subscriber connected from %s", sub.addr)

	go sub.writePump()
	go sub.readPump()
}

func (h *Hub) add(sub *subscriber) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.subscribers[sub] = struct{}{}
}

// remove unregisters sub and closes its send channel. Only the first
// call does anything, so the read pump, the write pump, and a slow-
// subscriber drop can all race to it safely.
func (h *Hub) remove(sub *subscriber) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.subscribers[sub]; !ok {
		return
	}
	delete(h.subscribers, sub)
	close(sub.send)
}

func (h *Hub) closeAll() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.send)
	}
}

func (h *Hub) fanOut(snapshot types.Snapshot) {
	b, err := json.Marshal(snapshot)
	if err != nil {
		log.Error("Failed to marshal snapshot: %v", err)
		return
	}

	h.lock.RLock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.lock.RUnlock()

	for _, sub := range subs {
		select {
		case sub.send <- b:
		default:
			// Too far behind to catch up: cut it loose. The write
			// pump sees the closed channel and finishes the close
			// handshake.
			h.remove(sub)
			h.slowDropped.Add(1)
			log.Warn("Dropping slow subscriber %s", sub.addr)
		}
	}
	h.fanOuts.Add(1)
}

// HubStats reports subscriber counts for the stats endpoint.
type HubStats struct {
	Subscribers      int    `json:"subscribers"`
	FanOuts          uint64 `json:"fan_outs"`
	SnapshotsDropped uint64 `json:"snapshots_dropped"`
	SlowDropped      uint64 `json:"slow_dropped"`
}

func (h *Hub) Stats() HubStats {
	h.lock.RLock()
	subscribers := len(h.subscribers)
	h.lock.RUnlock()
	return HubStats{
		Subscribers:      subscribers,
		FanOuts:          h.fanOuts.Load(),
		SnapshotsDropped: h.snapshotsDropped.Load(),
		SlowDropped:      h.slowDropped.Load(),
	}
}

// writePump owns all writes to the connection, including pings. It
// exits when the send channel closes or a write fails, and the
// connection dies with it.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.hub.remove(s)
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug("Failed to write to subscriber %s: %v", s.addr, err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *subscriber) readPump() {
	defer func() {
		s.hub.remove(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug("Subscriber %s read error: %v", s.addr, err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	}
}
