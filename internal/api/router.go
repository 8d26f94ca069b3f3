package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"arena/internal/config"
	"arena/internal/game"
	"arena/internal/lobby"
	"arena/internal/metrics"
)

// joinHandshakeWait bounds how long a fresh connection may take to send its
// loadout frame before defaults apply.
const joinHandshakeWait = 10 * time.Second

// RouterConfig is everything the router needs, injected explicitly.
type RouterConfig struct {
	Lobby          *lobby.Lobby
	Config         config.Config
	RateLimit      RateLimitConfig
	CORSOrigins    []string
	DisableLogging bool // quiet request logs in tests
}

// Handler serves the HTTP and WebSocket surface of the server. One hub
// exists per live match, created lazily on the first connection.
type Handler struct {
	lob *lobby.Lobby
	cfg config.Config

	upgrader websocket.Upgrader

	mu   sync.Mutex
	hubs map[string]*hub
}

// NewRouter builds the chi router with middleware and all routes wired. It
// is a pure function of its config; nothing global is touched.
func NewRouter(rc RouterConfig) (chi.Router, *IPRateLimiter) {
	h := &Handler{
		lob:  rc.Lobby,
		cfg:  rc.Config,
		hubs: make(map[string]*hub),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(rc.CORSOrigins),
	}

	rl := NewIPRateLimiter(rc.RateLimit)

	r := chi.NewRouter()
	if !rc.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(rl.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rc.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/game", h.serveGame)
	r.Get("/game/{matchID}", h.serveGame)
	r.Get("/spectate/{matchID}", h.serveSpectate)

	r.Route("/api", func(r chi.Router) {
		r.Get("/matches", h.listMatches)
		r.Get("/matches/{matchID}", h.serveStats)
		r.Get("/matches/{matchID}/preview.png", h.servePreview)
	})

	return r, rl
}

// originChecker accepts same-origin requests plus the configured list. An
// empty list (or "*") allows everything, for local development.
func originChecker(allowed []string) func(r *http.Request) bool {
	open := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			open = true
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		if open {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		metrics.RecordConnectionRejected("invalid")
		return false
	}
}

// requestMetrics records latency and status per route pattern.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		endpoint := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		metrics.RecordRequest(r.Method, endpoint, ww.Status(), time.Since(start))
	})
}

// hubFor returns the match's hub, creating it on first use. The hub tears
// itself down when the match's tick loop exits.
func (h *Handler) hubFor(m *game.Match) *hub {
	h.mu.Lock()
	defer h.mu.Unlock()
	if hb, ok := h.hubs[m.ID()]; ok {
		return hb
	}
	hb := newHub(m)
	h.hubs[m.ID()] = hb
	go func() {
		<-m.Done()
		h.mu.Lock()
		delete(h.hubs, m.ID())
		h.mu.Unlock()
		hb.closeAll()
	}()
	return hb
}

func parseMode(raw string) (game.GameMode, bool) {
	if raw == "" {
		return game.ModeTDM, true
	}
	switch mode := game.GameMode(raw); mode {
	case game.ModeTDM, game.ModeKOTH, game.ModeCTF, game.ModeOddball,
		game.ModeJuggernaut, game.ModeLoneWolf, game.ModeZombie:
		return mode, true
	}
	return "", false
}

// serveGame admits a player: resolve the match, claim a global slot,
// upgrade, take the loadout handshake, join, then pump until disconnect.
func (h *Handler) serveGame(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(r.URL.Query().Get("mode"))
	if !ok {
		metrics.RecordConnectionRejected("invalid")
		http.Error(w, "unknown game mode", http.StatusBadRequest)
		return
	}

	m, err := h.lob.FindOrJoin(chi.URLParam(r, "matchID"), mode)
	switch {
	case errors.Is(err, lobby.ErrNoSuchMatch):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	if err := h.lob.ReservePlayerSlot(); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lob.ReleasePlayerSlot()
		return
	}

	meta := readJoinHandshake(conn)
	playerID, err := m.AddPlayer(meta)
	if err != nil {
		if errors.Is(err, game.ErrMatchFull) {
			metrics.RecordConnectionRejected("match_full")
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(writeWait))
		conn.Close()
		h.lob.ReleasePlayerSlot()
		return
	}

	m.RetainSession(true)
	hb := h.hubFor(m)
	s := newSession(conn, m, h.lob, playerID, false)
	hb.add(s)

	if !s.writeJSON(m.InitialStateFor(playerID, false)) {
		s.close()
	}

	go s.writePump()
	s.readPump()
	<-s.done

	hb.remove(s)
	m.RemovePlayer(playerID)
	m.ReleaseSession(true)
	h.lob.ReleasePlayerSlot()
	log.Printf("session: player %d left match %s", playerID, m.ID())
}

// readJoinHandshake waits for the initial loadout frame. Anything else,
// including silence, yields a default loadout; the player can still change
// weapons later.
func readJoinHandshake(conn *websocket.Conn) game.PlayerMeta {
	var meta game.PlayerMeta
	conn.SetReadDeadline(time.Now().Add(joinHandshakeWait))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return meta
	}
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Type != "configChange" {
		return meta
	}
	meta.Name = frame.PlayerName
	meta.WeaponConfig = game.WeaponKind(frame.WeaponConfig)
	meta.UtilityWeapon = game.WeaponKind(frame.UtilityWeapon)
	return meta
}

// serveSpectate admits a read-only endpoint against the per-match cap.
func (h *Handler) serveSpectate(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lob.Find(chi.URLParam(r, "matchID"))
	if !ok {
		http.Error(w, "no such match", http.StatusNotFound)
		return
	}

	hb := h.hubFor(m)
	if hb.spectatorCount() >= h.cfg.Limits.MaxSpectatorsPerMatch {
		metrics.RecordConnectionRejected("match_full")
		http.Error(w, "spectator limit reached", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m.RetainSession(true)
	s := newSession(conn, m, h.lob, 0, true)
	hb.add(s)

	if !s.writeJSON(m.InitialStateFor(0, true)) {
		s.close()
	}

	go s.writePump()
	s.readPump()
	<-s.done

	hb.remove(s)
	m.ReleaseSession(true)
}

func (h *Handler) listMatches(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.lob.List()); err != nil {
		log.Printf("api: encoding match list: %v", err)
	}
}

// matchStats is the scoreboard payload for one match.
type matchStats struct {
	ID         string          `json:"id"`
	Mode       game.GameMode   `json:"mode"`
	Phase      game.Phase      `json:"phase"`
	Tick       int64           `json:"tick"`
	ServerTime float64         `json:"serverTime"`
	Round      int             `json:"round"`
	Scores     map[int]int     `json:"scores"`
	Players    []scoreboardRow `json:"players"`
}

type scoreboardRow struct {
	ID       game.EntityID `json:"id"`
	Name     string        `json:"name"`
	Team     int           `json:"team"`
	IsAI     bool          `json:"isAI"`
	Alive    bool          `json:"alive"`
	Kills    int           `json:"kills"`
	Deaths   int           `json:"deaths"`
	Captures int           `json:"captures,omitempty"`
	Score    int           `json:"score"`
}

// serveStats reports a match's scoreboard from its latest snapshot.
func (h *Handler) serveStats(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lob.Find(chi.URLParam(r, "matchID"))
	if !ok {
		http.Error(w, "no such match", http.StatusNotFound)
		return
	}
	snap := m.Snapshot()
	stats := matchStats{
		ID:         m.ID(),
		Mode:       snap.Rules.Mode,
		Phase:      snap.Rules.Phase,
		Tick:       snap.Tick,
		ServerTime: snap.ServerTime,
		Round:      snap.Rules.Round,
		Scores:     snap.Rules.Scores,
		Players:    make([]scoreboardRow, 0, len(snap.Players)),
	}
	for _, p := range snap.Players {
		stats.Players = append(stats.Players, scoreboardRow{
			ID: p.ID, Name: p.Name, Team: p.Team, IsAI: p.IsAI,
			Alive: p.Alive, Kills: p.Kills, Deaths: p.Deaths,
			Captures: p.Captures, Score: p.Score,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Printf("api: encoding match stats: %v", err)
	}
}

func (h *Handler) servePreview(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lob.Find(chi.URLParam(r, "matchID"))
	if !ok {
		http.Error(w, "no such match", http.StatusNotFound)
		return
	}
	png, err := renderPreview(m)
	if err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "max-age=5")
	w.Write(png)
}
