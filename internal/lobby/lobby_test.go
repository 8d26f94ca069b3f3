package lobby

import (
	"testing"
	"time"

	"arena/internal/config"
	"arena/internal/game"
)

func testConfig() config.Config {
	cfg := config.Config{
		Game:   config.DefaultGame(),
		Server: config.DefaultServer(),
		Limits: config.DefaultLimits(),
	}
	// Keep teardown waits short in tests.
	cfg.Limits.MatchCullInterval = 50 * time.Millisecond
	return cfg
}

// TestCreateAndFind verifies the basic registry round trip.
func TestCreateAndFind(t *testing.T) {
	l := New(testConfig())
	defer l.Shutdown()

	m, err := l.CreateMatch(game.ModeTDM)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, ok := l.Find(m.ID())
	if !ok || got != m {
		t.Error("created match should be findable by id")
	}
	if _, ok := l.Find("m999999"); ok {
		t.Error("unknown id should not resolve")
	}

	rows := l.List()
	if len(rows) != 1 || rows[0].ID != m.ID() || rows[0].Mode != game.ModeTDM {
		t.Errorf("listing wrong: %+v", rows)
	}
}

// TestFindOrJoin verifies id resolution, mode reuse, and creation fallback.
func TestFindOrJoin(t *testing.T) {
	l := New(testConfig())
	defer l.Shutdown()

	if _, err := l.FindOrJoin("m424242", game.ModeTDM); err != ErrNoSuchMatch {
		t.Errorf("explicit unknown id should fail, got %v", err)
	}

	first, err := l.FindOrJoin("", game.ModeTDM)
	if err != nil {
		t.Fatalf("create fallback: %v", err)
	}
	again, err := l.FindOrJoin("", game.ModeTDM)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if again != first {
		t.Error("empty id should join the existing match of the same mode")
	}

	other, err := l.FindOrJoin("", game.ModeCTF)
	if err != nil {
		t.Fatalf("other mode: %v", err)
	}
	if other == first {
		t.Error("a different mode needs its own match")
	}
}

// TestMatchPoolExhaustion verifies the concurrent-match ceiling.
func TestMatchPoolExhaustion(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.MaxMatches = 2
	l := New(cfg)
	defer l.Shutdown()

	for i := 0; i < 2; i++ {
		if _, err := l.CreateMatch(game.ModeTDM); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := l.CreateMatch(game.ModeTDM); err != ErrTooManyMatches {
		t.Errorf("expected ErrTooManyMatches, got %v", err)
	}

	// Removing a match frees its pool slot.
	id := l.List()[0].ID
	l.RemoveMatch(id)
	if _, err := l.CreateMatch(game.ModeTDM); err != nil {
		t.Errorf("slot should be free after removal: %v", err)
	}
}

// TestGlobalPlayerCap verifies reserve/release accounting.
func TestGlobalPlayerCap(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.MaxGlobalPlayers = 2
	l := New(cfg)
	defer l.Shutdown()

	if err := l.ReservePlayerSlot(); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := l.ReservePlayerSlot(); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := l.ReservePlayerSlot(); err != ErrGlobalCapacity {
		t.Errorf("expected ErrGlobalCapacity, got %v", err)
	}

	l.ReleasePlayerSlot()
	if err := l.ReservePlayerSlot(); err != nil {
		t.Errorf("release should reopen a slot: %v", err)
	}
	if l.GlobalPlayers() != 2 {
		t.Errorf("global count should be 2, got %d", l.GlobalPlayers())
	}
}

// TestCullRemovesAbandonedMatches verifies matches with no human endpoints
// are torn down while watched ones survive.
func TestCullRemovesAbandonedMatches(t *testing.T) {
	l := New(testConfig())
	defer l.Shutdown()

	abandoned, _ := l.CreateMatch(game.ModeTDM)
	watched, _ := l.CreateMatch(game.ModeKOTH)
	watched.RetainSession(true)

	l.cullOnce()

	if _, ok := l.Find(abandoned.ID()); ok {
		t.Error("match with zero human sessions should be culled")
	}
	if _, ok := l.Find(watched.ID()); !ok {
		t.Error("watched match must survive the cull")
	}

	select {
	case <-abandoned.Done():
	case <-time.After(2 * time.Second):
		t.Error("culled match's tick loop should stop")
	}
}

// TestShutdownStopsEverything verifies Shutdown drains the registry and
// stops every tick loop.
func TestShutdownStopsEverything(t *testing.T) {
	l := New(testConfig())
	m, _ := l.CreateMatch(game.ModeTDM)

	l.Shutdown()
	if len(l.List()) != 0 {
		t.Error("shutdown should empty the registry")
	}
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Error("tick loop should stop on shutdown")
	}
}
