package api

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"arena/internal/game"
	"arena/internal/lobby"
	"arena/internal/metrics"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxFrameBytes = 4096

	// snapshotQueueLen bounds buffered snapshots per endpoint; overflow
	// drops the oldest so a stalled reader never grows memory.
	snapshotQueueLen = 8
	// eventQueueLen bounds the reliable event queue; persistent overflow
	// closes the endpoint instead of dropping events.
	eventQueueLen = 64
)

// inboundFrame is the union of the two accepted client message kinds.
type inboundFrame struct {
	Type string `json:"type"`

	// configChange fields.
	WeaponConfig  string `json:"weaponConfig,omitempty"`
	UtilityWeapon string `json:"utilityWeapon,omitempty"`
	PlayerName    string `json:"playerName,omitempty"`

	// playerInput fields.
	game.Input
}

// session is one connected endpoint: a player or a spectator.
type session struct {
	conn      *websocket.Conn
	match     *game.Match
	lob       *lobby.Lobby
	playerID  game.EntityID
	spectator bool

	snapshots chan *game.TickSnapshot
	events    chan game.Event

	slow      atomic.Bool
	warnedBad atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn *websocket.Conn, m *game.Match, lob *lobby.Lobby, playerID game.EntityID, spectator bool) *session {
	return &session{
		conn:      conn,
		match:     m,
		lob:       lob,
		playerID:  playerID,
		spectator: spectator,
		snapshots: make(chan *game.TickSnapshot, snapshotQueueLen),
		events:    make(chan game.Event, eventQueueLen),
		done:      make(chan struct{}),
	}
}

// enqueueSnapshot applies the backpressure policy: drop the oldest
// snapshot, keep the newest, flag the endpoint slow.
func (s *session) enqueueSnapshot(snap *game.TickSnapshot) {
	select {
	case s.snapshots <- snap:
		return
	default:
	}
	select {
	case <-s.snapshots:
		if s.slow.CompareAndSwap(false, true) {
			log.Printf("session %d: slow consumer, dropping oldest snapshots", s.playerID)
		}
	default:
	}
	select {
	case s.snapshots <- snap:
	default:
	}
}

// enqueueEvent uses the reliable queue: overflow closes the endpoint.
func (s *session) enqueueEvent(e game.Event) {
	select {
	case s.events <- e:
	default:
		log.Printf("session %d: event queue overflow, closing", s.playerID)
		s.close()
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// readPump parses inbound frames until the transport fails. Malformed
// frames are dropped (logged once per session); transport errors end the
// session.
func (s *session) readPump() {
	defer s.close()
	s.conn.SetReadLimit(maxFrameBytes)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logBadFrame("malformed frame")
			continue
		}
		switch frame.Type {
		case "playerInput":
			if s.spectator {
				continue
			}
			in := frame.Input
			in.ClampAxes()
			s.match.SubmitInput(s.playerID, in)
		case "configChange":
			if s.spectator {
				continue
			}
			// Weapon switches are allowed mid-match; team swaps are not
			// part of the message shape at all.
			s.match.UpdateLoadout(s.playerID,
				game.WeaponKind(frame.WeaponConfig),
				game.WeaponKind(frame.UtilityWeapon),
				frame.PlayerName)
		default:
			s.logBadFrame("unknown frame type " + frame.Type)
		}
	}
}

func (s *session) logBadFrame(reason string) {
	if s.warnedBad.CompareAndSwap(false, true) {
		log.Printf("session %d: dropping input (%s)", s.playerID, reason)
	}
}

// writePump serializes outbound traffic: events for the tick drain after
// its snapshot, pings keep the connection alive, and every write carries a
// deadline.
func (s *session) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		s.close()
	}()

	for {
		select {
		case <-s.done:
			return
		case snap := <-s.snapshots:
			if !s.writeJSON(snap) {
				return
			}
			// Drain events emitted up to this snapshot before the next one.
			if !s.flushEvents() {
				return
			}
		case e := <-s.events:
			if !s.writeJSON(e) {
				return
			}
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) flushEvents() bool {
	for {
		select {
		case e := <-s.events:
			if !s.writeJSON(e) {
				return false
			}
		default:
			return true
		}
	}
}

func (s *session) writeJSON(v any) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		return false
	}
	metrics.IncrementWSMessages()
	return true
}

// wsConnections is the process-wide endpoint count backing the gauge.
var wsConnections atomic.Int64

// hub fans one match's snapshots and events out to its sessions.
type hub struct {
	mu         sync.Mutex
	sessions   map[*session]struct{}
	spectators int
}

func newHub(m *game.Match) *hub {
	h := &hub{sessions: make(map[*session]struct{})}
	m.OnSnapshot(h.broadcastSnapshot)
	m.OnEvent(h.broadcastEvent)
	return h
}

func (h *hub) add(s *session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	if s.spectator {
		h.spectators++
	}
	h.mu.Unlock()
	metrics.UpdateWSConnections(wsConnections.Add(1))
}

func (h *hub) remove(s *session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	if ok {
		delete(h.sessions, s)
		if s.spectator {
			h.spectators--
		}
	}
	h.mu.Unlock()
	if ok {
		metrics.UpdateWSConnections(wsConnections.Add(-1))
	}
}

// closeAll tears down every session, used when the match goes away.
func (h *hub) closeAll() {
	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}

func (h *hub) spectatorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.spectators
}

func (h *hub) broadcastSnapshot(snap *game.TickSnapshot) {
	h.mu.Lock()
	for s := range h.sessions {
		s.enqueueSnapshot(snap)
	}
	h.mu.Unlock()
}

func (h *hub) broadcastEvent(e game.Event) {
	h.mu.Lock()
	for s := range h.sessions {
		s.enqueueEvent(e)
	}
	h.mu.Unlock()
}
