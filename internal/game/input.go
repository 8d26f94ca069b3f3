package game

import (
	"math"
	"sync"
)

// Input is one tick of player intent, as sent on the wire.
type Input struct {
	MoveX  float64 `json:"moveX"`
	MoveY  float64 `json:"moveY"`
	WorldX float64 `json:"worldX"`
	WorldY float64 `json:"worldY"`
	Fire   bool    `json:"left"`
	Alt    bool    `json:"right"`
	Reload bool    `json:"reload"`
	Source string  `json:"inputSource,omitempty"`
}

// clampAxes normalizes the movement vector so diagonal input is not
// faster, and squashes non-finite values to zero.
func (in *Input) clampAxes() {
	if !isFinite(in.MoveX) {
		in.MoveX = 0
	}
	if !isFinite(in.MoveY) {
		in.MoveY = 0
	}
	if !isFinite(in.WorldX) {
		in.WorldX = 0
	}
	if !isFinite(in.WorldY) {
		in.WorldY = 0
	}
	if l := math.Hypot(in.MoveX, in.MoveY); l > 1 {
		in.MoveX /= l
		in.MoveY /= l
	}
}

// ClampAxes sanitizes an input frame arriving from the wire.
func (in *Input) ClampAxes() { in.clampAxes() }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Mailbox is a single-slot latest-wins input buffer. Sessions write at
// network rate; the tick reads once per step. Take keeps the stored value
// so held keys persist across ticks until a newer frame replaces them.
type Mailbox struct {
	mu  sync.Mutex
	in  Input
	set bool
}

// Put overwrites the slot with newer intent.
func (mb *Mailbox) Put(in Input) {
	mb.mu.Lock()
	mb.in = in
	mb.set = true
	mb.mu.Unlock()
}

// Take returns the current intent and whether anything was ever stored.
func (mb *Mailbox) Take() (Input, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.in, mb.set
}
