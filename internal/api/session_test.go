package api

import (
	"testing"

	"arena/internal/game"
)

// TestSnapshotBackpressure verifies a full snapshot queue drops the oldest
// frame, keeps the newest, and only flags the endpoint slow.
func TestSnapshotBackpressure(t *testing.T) {
	s := newSession(nil, nil, nil, 7, false)

	for i := 1; i <= snapshotQueueLen; i++ {
		s.enqueueSnapshot(&game.TickSnapshot{Tick: int64(i)})
	}
	if s.slow.Load() {
		t.Fatal("filling to capacity must not flag the consumer slow")
	}

	s.enqueueSnapshot(&game.TickSnapshot{Tick: 99})
	if !s.slow.Load() {
		t.Error("overflow should flag the consumer slow")
	}
	select {
	case <-s.done:
		t.Fatal("overflow must not close the session")
	default:
	}

	if got := len(s.snapshots); got != snapshotQueueLen {
		t.Fatalf("queue should stay at capacity after overflow, got %d", got)
	}
	if head := <-s.snapshots; head.Tick != 2 {
		t.Errorf("oldest frame should be dropped, head is tick %d", head.Tick)
	}
	var last *game.TickSnapshot
	for len(s.snapshots) > 0 {
		last = <-s.snapshots
	}
	if last == nil || last.Tick != 99 {
		t.Error("newest frame must be kept at the tail")
	}
}
