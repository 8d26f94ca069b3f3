package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"arena/internal/config"
	"arena/internal/game"
	"arena/internal/lobby"
)

// looseRateLimit keeps the limiter out of the way for functional tests.
var looseRateLimit = RateLimitConfig{
	RequestsPerSecond: 1000,
	Burst:             1000,
	CleanupInterval:   time.Minute,
}

func newTestServer(t *testing.T, rlc RateLimitConfig) (*httptest.Server, *lobby.Lobby, func()) {
	t.Helper()
	cfg := config.Config{
		Game:   config.DefaultGame(),
		Server: config.DefaultServer(),
		Limits: config.DefaultLimits(),
	}
	lob := lobby.New(cfg)
	lob.Start()
	r, rl := NewRouter(RouterConfig{
		Lobby:          lob,
		Config:         cfg,
		RateLimit:      rlc,
		DisableLogging: true,
	})
	srv := httptest.NewServer(r)
	cleanup := func() {
		srv.Close()
		rl.Stop()
		lob.Shutdown()
	}
	return srv, lob, cleanup
}

// TestHealthz verifies the liveness endpoint.
func TestHealthz(t *testing.T) {
	srv, _, cleanup := newTestServer(t, looseRateLimit)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status %d", resp.StatusCode)
	}
}

// TestMatchListing verifies the JSON listing reflects running matches.
func TestMatchListing(t *testing.T) {
	srv, lob, cleanup := newTestServer(t, looseRateLimit)
	defer cleanup()

	m, err := lob.CreateMatch(game.ModeKOTH)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/matches")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type %q", ct)
	}
	var rows []lobby.MatchInfo
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != m.ID() || rows[0].Mode != game.ModeKOTH {
		t.Errorf("listing wrong: %+v", rows)
	}
}

// TestMatchStats verifies the scoreboard endpoint round trip.
func TestMatchStats(t *testing.T) {
	srv, lob, cleanup := newTestServer(t, looseRateLimit)
	defer cleanup()

	m, err := lob.CreateMatch(game.ModeTDM)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id, err := m.AddPlayer(game.PlayerMeta{Name: "scorer"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/matches/" + m.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var stats struct {
		ID      string        `json:"id"`
		Mode    game.GameMode `json:"mode"`
		Players []struct {
			ID   game.EntityID `json:"id"`
			Name string        `json:"name"`
		} `json:"players"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.ID != m.ID() || stats.Mode != game.ModeTDM {
		t.Errorf("stats header wrong: %+v", stats)
	}
	found := false
	for _, p := range stats.Players {
		if p.ID == id && p.Name == "scorer" {
			found = true
		}
	}
	if !found {
		t.Error("scoreboard should list the joined player")
	}
}

// TestRejectsBadRequests verifies mode validation and unknown-id handling.
func TestRejectsBadRequests(t *testing.T) {
	srv, _, cleanup := newTestServer(t, looseRateLimit)
	defer cleanup()

	cases := []struct {
		path string
		want int
	}{
		{"/game?mode=bogus", http.StatusBadRequest},
		{"/game/m999999", http.StatusNotFound},
		{"/spectate/m999999", http.StatusNotFound},
		{"/api/matches/m999999/preview.png", http.StatusNotFound},
	}
	for _, c := range cases {
		resp, err := http.Get(srv.URL + c.path)
		if err != nil {
			t.Fatalf("%s: %v", c.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != c.want {
			t.Errorf("%s: status %d, want %d", c.path, resp.StatusCode, c.want)
		}
	}
}

// TestRateLimitRejects verifies per-IP throttling returns 429.
func TestRateLimitRejects(t *testing.T) {
	srv, _, cleanup := newTestServer(t, RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		CleanupInterval:   time.Minute,
	})
	defer cleanup()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request should pass, status %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second request should be throttled, status %d", resp.StatusCode)
	}
}

// TestPreviewImage verifies the match preview renders a PNG.
func TestPreviewImage(t *testing.T) {
	srv, lob, cleanup := newTestServer(t, looseRateLimit)
	defer cleanup()

	m, err := lob.CreateMatch(game.ModeCTF)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	resp, err := http.Get(srv.URL + "/api/matches/" + m.ID() + "/preview.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type %q", ct)
	}
	magic := make([]byte, 8)
	if _, err := io.ReadFull(resp.Body, magic); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(magic, []byte("\x89PNG")) {
		t.Error("body should start with the PNG signature")
	}
}

// readFrame decodes the next frame's type field, skipping nothing.
func readFrame(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return head.Type, data
}

// TestGameWebSocketFlow runs the join handshake end to end: configChange in,
// initialState out, then streaming gameState frames.
func TestGameWebSocketFlow(t *testing.T) {
	srv, lob, cleanup := newTestServer(t, looseRateLimit)
	defer cleanup()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game?mode=tdm"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	join := map[string]string{
		"type":         "configChange",
		"weaponConfig": "rifle",
		"playerName":   "Tester",
	}
	if err := conn.WriteJSON(join); err != nil {
		t.Fatalf("handshake write: %v", err)
	}

	kind, data := readFrame(t, conn)
	if kind != "initialState" {
		t.Fatalf("first frame should be initialState, got %q", kind)
	}
	var init game.InitialState
	if err := json.Unmarshal(data, &init); err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if init.PlayerID == 0 {
		t.Error("initial state should carry the assigned player id")
	}
	if init.Mode != game.ModeTDM || init.TickRate != 60 {
		t.Errorf("init mode=%s tickRate=%d", init.Mode, init.TickRate)
	}

	// The stream settles into gameState frames with our player present.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		kind, data := readFrame(t, conn)
		if kind != "gameState" {
			continue // kill feed and round events interleave
		}
		var snap game.TickSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		for _, p := range snap.Players {
			if p.ID == init.PlayerID && p.Name == "Tester" {
				if lob.GlobalPlayers() != 1 {
					t.Errorf("global player count %d", lob.GlobalPlayers())
				}
				return
			}
		}
		t.Fatal("snapshot should include the joined player")
	}
	t.Fatal("no gameState frame arrived in time")
}

// TestSpectateWebSocketFlow verifies the read-only endpoint's init frame.
func TestSpectateWebSocketFlow(t *testing.T) {
	srv, lob, cleanup := newTestServer(t, looseRateLimit)
	defer cleanup()

	m, err := lob.CreateMatch(game.ModeTDM)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/spectate/" + m.ID()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	kind, data := readFrame(t, conn)
	if kind != "spectatorInit" {
		t.Fatalf("first frame should be spectatorInit, got %q", kind)
	}
	var init game.InitialState
	if err := json.Unmarshal(data, &init); err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if init.PlayerID != 0 || !init.Spectator {
		t.Errorf("spectator init playerId=%d spectator=%v", init.PlayerID, init.Spectator)
	}
}
