package game

import (
	"sort"

	"arena/internal/game/physics"
)

// Wire records carry only what the client renders. Physics handles never
// cross this boundary. Entity arrays are sorted by id so every client sees
// identical ordering.

type PlayerView struct {
	ID        EntityID     `json:"id"`
	Name      string       `json:"name"`
	Team      int          `json:"team"`
	IsAI      bool         `json:"isAI"`
	Alive     bool         `json:"alive"`
	Pos       physics.Vec2 `json:"pos"`
	Vel       physics.Vec2 `json:"vel"`
	Rotation  float64      `json:"rotation"`
	Health    float64      `json:"health"`
	MaxHealth float64      `json:"maxHealth"`
	Lives     int          `json:"lives,omitempty"`
	Weapon    WeaponKind   `json:"weapon"`
	Magazine  int          `json:"magazine"`
	Reloading bool         `json:"reloading"`
	Kills     int          `json:"kills"`
	Deaths    int          `json:"deaths"`
	Captures  int          `json:"captures,omitempty"`
	Score     int          `json:"score"`
	VIP       bool         `json:"vip,omitempty"`
	HasFlag   bool         `json:"hasFlag,omitempty"`
}

type ProjectileView struct {
	ID       EntityID      `json:"id"`
	Kind     OrdinanceKind `json:"kind"`
	Owner    EntityID      `json:"owner"`
	Pos      physics.Vec2  `json:"pos"`
	Vel      physics.Vec2  `json:"vel"`
	Rotation float64       `json:"rotation"`
}

type ObstacleView struct {
	ID     EntityID      `json:"id"`
	Shape  ObstacleShape `json:"shape"`
	Pos    physics.Vec2  `json:"pos"`
	W      float64       `json:"w"`
	H      float64       `json:"h"`
	Health float64       `json:"health,omitempty"`
	Owner  EntityID      `json:"owner,omitempty"`
}

type BeamView struct {
	ID    EntityID     `json:"id"`
	Owner EntityID     `json:"owner"`
	Start physics.Vec2 `json:"start"`
	End   physics.Vec2 `json:"end"`
}

type EffectView struct {
	ID       EntityID     `json:"id"`
	Kind     EffectKind   `json:"kind"`
	Pos      physics.Vec2 `json:"pos"`
	Radius   float64      `json:"radius"`
	Progress float64      `json:"progress"` // elapsed fraction 0..1
}

type UtilityView struct {
	ID     EntityID     `json:"id"`
	Kind   string       `json:"kind"` // turret, pad, laser, pickup
	Pos    physics.Vec2 `json:"pos"`
	Aim    float64      `json:"aim,omitempty"`
	Health float64      `json:"health,omitempty"`
	Type   PickupType   `json:"pickupType,omitempty"`
	Linked EntityID     `json:"linked,omitempty"`
	Ready  bool         `json:"ready,omitempty"`
}

type FlagView struct {
	ID      EntityID     `json:"id"`
	Team    int          `json:"team"`
	Oddball bool         `json:"oddball,omitempty"`
	State   FlagState    `json:"state"`
	Carrier EntityID     `json:"carrier,omitempty"`
	Pos     physics.Vec2 `json:"pos"`
	Home    physics.Vec2 `json:"home"`
}

type ZoneView struct {
	ID       EntityID     `json:"id"`
	Number   int          `json:"number"`
	Pos      physics.Vec2 `json:"pos"`
	Radius   float64      `json:"radius"`
	State    ZoneState    `json:"state"`
	Team     int          `json:"team,omitempty"`
	Progress float64      `json:"progress"`
}

type HQView struct {
	ID     EntityID     `json:"id"`
	Team   int          `json:"team"`
	Pos    physics.Vec2 `json:"pos"`
	Health float64      `json:"health"`
	Active bool         `json:"active"`
}

// RuleView is the per-tick rule state block.
type RuleView struct {
	Mode        GameMode    `json:"mode"`
	Phase       Phase       `json:"phase"`
	Round       int         `json:"round"`
	RoundsTotal int         `json:"roundsTotal,omitempty"`
	RoundLeft   float64     `json:"roundLeft"` // seconds
	RestLeft    float64     `json:"restLeft,omitempty"`
	Scores      map[int]int `json:"scores"`
	Victory     string      `json:"victory,omitempty"`
	VictoryMsg  string      `json:"victoryMessage,omitempty"`
}

// TickSnapshot is the gameState frame broadcast each tick.
type TickSnapshot struct {
	Type        string           `json:"type"` // always "gameState"
	Tick        int64            `json:"tick"`
	ServerTime  float64          `json:"serverTime"` // seconds of match time
	Rules       RuleView         `json:"rules"`
	Players     []PlayerView     `json:"players"`
	Projectiles []ProjectileView `json:"projectiles"`
	Obstacles   []ObstacleView   `json:"obstacles"` // destructibles only
	Beams       []BeamView       `json:"beams"`
	Effects     []EffectView     `json:"effects"`
	Utilities   []UtilityView    `json:"utilities"`
	Flags       []FlagView       `json:"flags,omitempty"`
	Zones       []ZoneView       `json:"zones,omitempty"`
	HQs         []HQView         `json:"hqs,omitempty"`
}

// InitialState is sent once per session after the channel opens.
type InitialState struct {
	Type      string         `json:"type"` // initialState or spectatorInit
	PlayerID  EntityID       `json:"playerId,omitempty"`
	Spectator bool           `json:"spectator,omitempty"`
	MatchID   string         `json:"matchId"`
	Mode      GameMode       `json:"mode"`
	WorldW    float64        `json:"worldWidth"`
	WorldH    float64        `json:"worldHeight"`
	TickRate  int            `json:"tickRate"`
	Seed      int64          `json:"seed"`
	Biome     Biome          `json:"biome"`
	Obstacles []ObstacleView `json:"obstacles"` // full static layout
	FlagHomes []FlagView     `json:"flagHomes,omitempty"`
	Zones     []ZoneView     `json:"zones,omitempty"`
	Teams     []int          `json:"teams"`
}

// buildSnapshot serializes the current world. Must run inside the tick with
// the match lock held; the returned value is immutable afterwards.
func (m *Match) buildSnapshot() *TickSnapshot {
	s := &TickSnapshot{
		Type:       "gameState",
		Tick:       m.tick,
		ServerTime: float64(m.tick) / float64(m.cfg.Game.TickRate),
		Rules: RuleView{
			Mode:        m.rules.Mode,
			Phase:       m.rules.Phase,
			Round:       m.rules.Round,
			RoundsTotal: m.rules.RoundsTotal,
			RoundLeft:   float64(m.rules.RoundTicksLeft) / float64(m.cfg.Game.TickRate),
			RestLeft:    float64(m.rules.RestTicksLeft) / float64(m.cfg.Game.TickRate),
			Scores:      m.scoresCopy(),
			Victory:     m.rules.Victory,
			VictoryMsg:  m.rules.VictoryMessage,
		},
	}

	for _, p := range m.reg.Players {
		v := PlayerView{
			ID: p.ID, Name: p.Name, Team: p.Team, IsAI: p.IsAI,
			Alive:     p.Alive(),
			Health:    p.Health,
			MaxHealth: p.MaxHealth,
			Lives:     p.Lives,
			Weapon:    p.ActiveWeapon().Weapon.Kind,
			Magazine:  p.ActiveWeapon().Magazine,
			Reloading: p.ActiveWeapon().Reloading(m.tick),
			Kills:     p.Kills,
			Deaths:    p.Deaths,
			Captures:  p.Captures,
			Score:     p.Score,
			VIP:       p.Effective().VIP,
			HasFlag:   p.CarriedFlag != 0,
			Rotation:  p.Rotation,
		}
		if p.Alive() {
			v.Pos = m.world.Position(p.Body)
			v.Vel = m.world.Velocity(p.Body)
		}
		s.Players = append(s.Players, v)
	}
	sort.Slice(s.Players, func(i, j int) bool { return s.Players[i].ID < s.Players[j].ID })

	for _, p := range m.reg.Projectiles {
		s.Projectiles = append(s.Projectiles, ProjectileView{
			ID: p.ID, Kind: p.Kind, Owner: p.Owner,
			Pos:      m.world.Position(p.Body),
			Vel:      m.world.Velocity(p.Body),
			Rotation: m.world.Angle(p.Body),
		})
	}
	sort.Slice(s.Projectiles, func(i, j int) bool { return s.Projectiles[i].ID < s.Projectiles[j].ID })

	// Statics live in initial state; only destructibles change.
	for _, o := range m.reg.Obstacles {
		if !o.Destructible {
			continue
		}
		s.Obstacles = append(s.Obstacles, obstacleView(o))
	}
	sort.Slice(s.Obstacles, func(i, j int) bool { return s.Obstacles[i].ID < s.Obstacles[j].ID })

	for _, b := range m.reg.Beams {
		s.Beams = append(s.Beams, BeamView{ID: b.ID, Owner: b.Owner, Start: b.Start, End: b.End})
	}
	sort.Slice(s.Beams, func(i, j int) bool { return s.Beams[i].ID < s.Beams[j].ID })

	for _, e := range m.reg.Effects {
		s.Effects = append(s.Effects, EffectView{
			ID: e.ID, Kind: e.Kind, Pos: e.Pos, Radius: e.Radius,
			Progress: float64(e.Elapsed) / float64(e.Duration),
		})
	}
	sort.Slice(s.Effects, func(i, j int) bool { return s.Effects[i].ID < s.Effects[j].ID })

	s.Utilities = m.utilityViews()

	// Objective arrays are gated by the active mode's entities.
	for _, f := range m.reg.Flags {
		s.Flags = append(s.Flags, flagView(f))
	}
	sort.Slice(s.Flags, func(i, j int) bool { return s.Flags[i].ID < s.Flags[j].ID })

	for _, z := range m.reg.Zones {
		s.Zones = append(s.Zones, zoneView(z))
	}
	sort.Slice(s.Zones, func(i, j int) bool { return s.Zones[i].ID < s.Zones[j].ID })

	for _, h := range m.reg.HQs {
		s.HQs = append(s.HQs, HQView{ID: h.ID, Team: h.Team, Pos: h.Pos, Health: h.Health, Active: h.Active})
	}
	sort.Slice(s.HQs, func(i, j int) bool { return s.HQs[i].ID < s.HQs[j].ID })

	return s
}

func (m *Match) utilityViews() []UtilityView {
	var out []UtilityView
	for _, t := range m.reg.Turrets {
		out = append(out, UtilityView{
			ID: t.ID, Kind: "turret", Pos: m.world.Position(t.Body),
			Aim: t.Aim, Health: t.Health,
		})
	}
	for _, p := range m.reg.Pads {
		out = append(out, UtilityView{
			ID: p.ID, Kind: "pad", Pos: p.Pos, Linked: p.Linked,
			Ready: m.tick >= p.ReadyAt,
		})
	}
	for _, l := range m.reg.Lasers {
		out = append(out, UtilityView{ID: l.ID, Kind: "laser", Pos: l.Pos, Aim: l.Angle})
	}
	for _, p := range m.reg.Pickups {
		out = append(out, UtilityView{ID: p.ID, Kind: "pickup", Pos: p.Pos, Type: p.Type})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func obstacleView(o *Obstacle) ObstacleView {
	return ObstacleView{
		ID: o.ID, Shape: o.Shape, Pos: o.Pos, W: o.W, H: o.H,
		Health: o.Health, Owner: o.Owner,
	}
}

func flagView(f *Flag) FlagView {
	return FlagView{
		ID: f.ID, Team: f.OwnerTeam, Oddball: f.Oddball,
		State: f.State, Carrier: f.Carrier, Pos: f.Pos, Home: f.Home,
	}
}

func zoneView(z *Zone) ZoneView {
	return ZoneView{
		ID: z.ID, Number: z.Number, Pos: z.Pos, Radius: z.Radius,
		State: z.State, Team: z.Team, Progress: z.Progress,
	}
}

// buildInitialState serializes the one-time payload for a new session.
func (m *Match) buildInitialState(playerID EntityID, spectator bool) *InitialState {
	w, h := m.world.Size()
	init := &InitialState{
		Type:      "initialState",
		PlayerID:  playerID,
		Spectator: spectator,
		MatchID:   m.id,
		Mode:      m.rules.Mode,
		WorldW:    w,
		WorldH:    h,
		TickRate:  m.cfg.Game.TickRate,
		Seed:      m.terrain.Seed,
		Biome:     m.terrain.Biome,
		Teams:     m.teams(),
	}
	if spectator {
		init.Type = "spectatorInit"
		init.PlayerID = 0
	}
	for _, o := range m.reg.Obstacles {
		init.Obstacles = append(init.Obstacles, obstacleView(o))
	}
	sort.Slice(init.Obstacles, func(i, j int) bool { return init.Obstacles[i].ID < init.Obstacles[j].ID })
	for _, f := range m.reg.Flags {
		init.FlagHomes = append(init.FlagHomes, flagView(f))
	}
	sort.Slice(init.FlagHomes, func(i, j int) bool { return init.FlagHomes[i].ID < init.FlagHomes[j].ID })
	for _, z := range m.reg.Zones {
		init.Zones = append(init.Zones, zoneView(z))
	}
	sort.Slice(init.Zones, func(i, j int) bool { return init.Zones[i].ID < init.Zones[j].ID })
	return init
}
