package game

import (
	"fmt"

	"golang.org/x/time/rate"
)

// EventCategory classifies a gameEvent frame.
type EventCategory string

const (
	EventKill        EventCategory = "kill"
	EventCapture     EventCategory = "capture"
	EventSystem      EventCategory = "system"
	EventAchievement EventCategory = "achievement"
	EventWarning     EventCategory = "warning"
	EventInfo        EventCategory = "info"
)

// Event is one point-in-time message fanned out to every session after the
// snapshot of the tick that produced it. Type matches the wire frame kind.
type Event struct {
	Type            string        `json:"type"`
	Category        EventCategory `json:"category,omitempty"`
	Message         string        `json:"message,omitempty"`
	DisplayDuration float64       `json:"displayDuration,omitempty"`

	// playerKilled fields.
	VictimID   EntityID `json:"victimId,omitempty"`
	KillerID   EntityID `json:"killerId,omitempty"`
	KillerName string   `json:"killerName,omitempty"`

	// round and game-over fields.
	Round        int         `json:"round,omitempty"`
	Scores       map[int]int `json:"scores,omitempty"`
	RestDuration float64     `json:"restDuration,omitempty"`
	Victory      string      `json:"victory,omitempty"`
}

// eventBus is the per-match bounded event buffer. Emission is rate limited
// so a pathological rule loop cannot flood sessions; past the buffer cap the
// oldest events are dropped.
type eventBus struct {
	buf     []Event
	cap     int
	limiter *rate.Limiter
	dropped int
}

func newEventBus(capacity int, perSecond float64) *eventBus {
	return &eventBus{
		buf:     make([]Event, 0, capacity),
		cap:     capacity,
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)),
	}
}

// lifecycle reports whether an event must reach clients even under a
// kill-feed flood. These frames bypass the emission limiter.
func (e Event) lifecycle() bool {
	switch e.Type {
	case "roundStart", "roundEnd", "gameOver":
		return true
	}
	return false
}

func (b *eventBus) emit(e Event) {
	if !e.lifecycle() && !b.limiter.Allow() {
		b.dropped++
		return
	}
	if len(b.buf) >= b.cap {
		copy(b.buf, b.buf[1:])
		b.buf = b.buf[:len(b.buf)-1]
		b.dropped++
	}
	b.buf = append(b.buf, e)
}

// takeDropped returns and resets the dropped-event count.
func (b *eventBus) takeDropped() int {
	n := b.dropped
	b.dropped = 0
	return n
}

// drain returns buffered events in emission order and resets the buffer.
func (b *eventBus) drain() []Event {
	if len(b.buf) == 0 {
		return nil
	}
	out := make([]Event, len(b.buf))
	copy(out, b.buf)
	b.buf = b.buf[:0]
	return out
}

const defaultEventDisplay = 4.0

func (m *Match) emitKill(victim, killer *Player) {
	name := ""
	var kid EntityID
	if killer != nil {
		name = killer.Name
		kid = killer.ID
	}
	m.events.emit(Event{
		Type:       "playerKilled",
		VictimID:   victim.ID,
		KillerID:   kid,
		KillerName: name,
	})
	msg := fmt.Sprintf("<color:#ff5555>%s</color> eliminated", victim.Name)
	if killer != nil {
		msg = fmt.Sprintf("<color:#55ff55>%s</color> eliminated <color:#ff5555>%s</color>", killer.Name, victim.Name)
	}
	m.events.emit(Event{
		Type:            "gameEvent",
		Category:        EventKill,
		Message:         msg,
		DisplayDuration: defaultEventDisplay,
	})
}

func (m *Match) emitCapture(msg string) {
	m.events.emit(Event{Type: "gameEvent", Category: EventCapture, Message: msg, DisplayDuration: defaultEventDisplay})
}

func (m *Match) emitInfo(msg string) {
	m.events.emit(Event{Type: "gameEvent", Category: EventInfo, Message: msg, DisplayDuration: defaultEventDisplay})
}

func (m *Match) emitWarning(msg string) {
	m.events.emit(Event{Type: "gameEvent", Category: EventWarning, Message: msg, DisplayDuration: defaultEventDisplay})
}

func (m *Match) emitRoundStart(round int, scores map[int]int) {
	m.events.emit(Event{Type: "roundStart", Round: round, Scores: scores})
}

func (m *Match) emitRoundEnd(round int, scores map[int]int, rest float64) {
	m.events.emit(Event{Type: "roundEnd", Round: round, Scores: scores, RestDuration: rest})
}

func (m *Match) emitGameOver(victory, msg string, scores map[int]int) {
	m.events.emit(Event{Type: "gameOver", Victory: victory, Message: msg, Scores: scores})
}
