// Package lobby is the process-wide supervisor of match engines: creation,
// lookup, the global player cap, and the periodic cull of matches nobody is
// watching.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"arena/internal/config"
	"arena/internal/game"
	"arena/internal/metrics"
)

var (
	// ErrTooManyMatches means the tick pool is exhausted.
	ErrTooManyMatches = errors.New("match limit reached")
	// ErrGlobalCapacity means the process-wide player cap is reached.
	ErrGlobalCapacity = errors.New("server is full")
	// ErrNoSuchMatch means the id resolves to nothing.
	ErrNoSuchMatch = errors.New("no such match")
)

type entry struct {
	match  *game.Match
	cancel context.CancelFunc
}

// Lobby owns every running match. Matches share nothing but this registry
// and the global player counter; each ticks on its own goroutine, bounded
// by a weighted semaphore.
type Lobby struct {
	cfg config.Config

	mu      sync.Mutex
	matches map[string]*entry

	nextID  atomic.Uint64
	players atomic.Int64
	pool    *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a lobby. Call Start to begin the cull loop.
func New(cfg config.Config) *Lobby {
	ctx, cancel := context.WithCancel(context.Background())
	return &Lobby{
		cfg:     cfg,
		matches: make(map[string]*entry),
		pool:    semaphore.NewWeighted(int64(cfg.Limits.MaxMatches)),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the periodic cull. Runs until Shutdown.
func (l *Lobby) Start() {
	go l.cullLoop()
}

// Shutdown tears down every match and stops the cull loop.
func (l *Lobby) Shutdown() {
	l.cancel()
	l.mu.Lock()
	ids := make([]string, 0, len(l.matches))
	for id := range l.matches {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	for _, id := range ids {
		l.RemoveMatch(id)
	}
}

// CreateMatch allocates a fresh id, builds the engine with generated
// terrain, and starts its tick job on the shared bounded pool.
func (l *Lobby) CreateMatch(mode game.GameMode) (*game.Match, error) {
	if !l.pool.TryAcquire(1) {
		metrics.RecordConnectionRejected("capacity")
		return nil, ErrTooManyMatches
	}
	id := fmt.Sprintf("m%06d", l.nextID.Add(1))
	seed := time.Now().UnixNano() ^ int64(l.nextID.Load())<<32
	m := game.NewMatch(id, mode, l.cfg, seed)

	ctx, cancel := context.WithCancel(l.ctx)
	l.mu.Lock()
	l.matches[id] = &entry{match: m, cancel: cancel}
	n := len(l.matches)
	l.mu.Unlock()
	metrics.UpdateActiveMatches(n)

	go func() {
		defer l.pool.Release(1)
		m.Run(ctx)
	}()

	log.Printf("lobby: created match %s mode=%s seed=%d", id, mode, seed)
	return m, nil
}

// Find returns a match by id.
func (l *Lobby) Find(id string) (*game.Match, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.matches[id]
	if !ok {
		return nil, false
	}
	return e.match, true
}

// FindOrJoin resolves a match id, falls back to any joinable match of the
// mode, and finally creates a fresh one.
func (l *Lobby) FindOrJoin(id string, mode game.GameMode) (*game.Match, error) {
	if id != "" {
		if m, ok := l.Find(id); ok {
			return m, nil
		}
		return nil, ErrNoSuchMatch
	}

	l.mu.Lock()
	for _, e := range l.matches {
		if e.match.Mode() == mode && !e.match.Ended() {
			l.mu.Unlock()
			return e.match, nil
		}
	}
	l.mu.Unlock()
	return l.CreateMatch(mode)
}

// RemoveMatch shuts a match down and drops it from the registry.
func (l *Lobby) RemoveMatch(id string) {
	l.mu.Lock()
	e, ok := l.matches[id]
	if ok {
		delete(l.matches, id)
	}
	n := len(l.matches)
	l.mu.Unlock()
	if !ok {
		return
	}
	metrics.UpdateActiveMatches(n)
	e.cancel()
	<-e.match.Done()
	log.Printf("lobby: removed match %s", id)
}

// MatchInfo is one row of the lobby listing.
type MatchInfo struct {
	ID      string        `json:"id"`
	Mode    game.GameMode `json:"mode"`
	Players int           `json:"players"`
	Humans  int64         `json:"humans"`
	Ended   bool          `json:"ended"`
}

// List snapshots the running matches for the listing API.
func (l *Lobby) List() []MatchInfo {
	l.mu.Lock()
	entries := make([]*entry, 0, len(l.matches))
	for _, e := range l.matches {
		entries = append(entries, e)
	}
	l.mu.Unlock()

	out := make([]MatchInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, MatchInfo{
			ID:      e.match.ID(),
			Mode:    e.match.Mode(),
			Players: e.match.PlayerCount(),
			Humans:  e.match.HumanSessions(),
			Ended:   e.match.Ended(),
		})
	}
	return out
}

// ReservePlayerSlot claims one slot against the global cap.
func (l *Lobby) ReservePlayerSlot() error {
	for {
		cur := l.players.Load()
		if cur >= int64(l.cfg.Limits.MaxGlobalPlayers) {
			metrics.RecordConnectionRejected("capacity")
			return ErrGlobalCapacity
		}
		if l.players.CompareAndSwap(cur, cur+1) {
			metrics.UpdateGlobalPlayers(cur + 1)
			return nil
		}
	}
}

// ReleasePlayerSlot returns a slot claimed by ReservePlayerSlot.
func (l *Lobby) ReleasePlayerSlot() {
	metrics.UpdateGlobalPlayers(l.players.Add(-1))
}

// GlobalPlayers returns the current global player count.
func (l *Lobby) GlobalPlayers() int64 { return l.players.Load() }

// cullLoop tears down matches with zero human endpoints. An AI-only match
// is gone within one interval.
func (l *Lobby) cullLoop() {
	t := time.NewTicker(l.cfg.Limits.MatchCullInterval)
	defer t.Stop()
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-t.C:
			l.cullOnce()
		}
	}
}

func (l *Lobby) cullOnce() {
	l.mu.Lock()
	var stale []string
	for id, e := range l.matches {
		if e.match.HumanSessions() == 0 {
			stale = append(stale, id)
		}
	}
	l.mu.Unlock()
	for _, id := range stale {
		log.Printf("lobby: culling match %s (no human sessions)", id)
		l.RemoveMatch(id)
	}
}
