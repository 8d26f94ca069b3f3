package game

import (
	"arena/internal/game/physics"
)

// FlagState is the lifecycle of a capturable flag.
type FlagState string

const (
	FlagHome    FlagState = "home"
	FlagCarried FlagState = "carried"
	FlagDropped FlagState = "dropped"
)

// Flag is a CTF flag or the neutral oddball.
type Flag struct {
	ID        EntityID
	OwnerTeam int // 0 for the oddball
	Oddball   bool
	Home      physics.Vec2
	Pos       physics.Vec2
	State     FlagState
	Carrier   EntityID // set iff State == FlagCarried
	ReturnAt  int64    // tick a dropped flag snaps home; 0 = none
	Captures  int
	Body      physics.BodyID // sensor; present while not carried
}

// ZoneState is the KOTH control lifecycle.
type ZoneState string

const (
	ZoneNeutral    ZoneState = "neutral"
	ZoneCapturing  ZoneState = "capturing"
	ZoneContested  ZoneState = "contested"
	ZoneControlled ZoneState = "controlled"
)

// Zone is a controllable region scored by team presence.
type Zone struct {
	ID       EntityID
	Number   int
	Pos      physics.Vec2
	Radius   float64
	State    ZoneState
	Team     int     // capturing or controlling team; 0 = none
	Progress float64 // 0..1
	Body     physics.BodyID

	// counts is rebuilt every tick from sensor presence, keyed by team.
	counts map[int]int
}

// Presence returns how many live players of a team stood in the zone this
// tick.
func (z *Zone) Presence(team int) int { return z.counts[team] }

// occupiedTeams returns the distinct teams present.
func (z *Zone) occupiedTeams() []int {
	var out []int
	for t, n := range z.counts {
		if n > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Workshop is a bounded region where standing players craft power-up
// pickups over time.
type Workshop struct {
	ID          EntityID
	Pos         physics.Vec2
	Radius      float64
	Body        physics.BodyID
	CraftTime   float64 // seconds of presence per pickup
	MaxPickups  int     // concurrent pickups in the world from this shop
	LivePickups int

	// progress per crafting player, cleared when they leave.
	progress map[EntityID]float64
	present  map[EntityID]struct{}
}

// Headquarters is a destructible team base for defense modes.
type Headquarters struct {
	ID        EntityID
	Team      int
	Pos       physics.Vec2
	Health    float64
	MaxHealth float64
	Active    bool
	Body      physics.BodyID
}

// addFlag registers a flag at its home pedestal.
func (m *Match) addFlag(team int, home physics.Vec2, oddball bool) *Flag {
	f := &Flag{
		ID:        m.reg.NewID(),
		OwnerTeam: team,
		Oddball:   oddball,
		Home:      home,
		Pos:       home,
		State:     FlagHome,
	}
	f.Body = m.flagBody(f)
	m.reg.AddFlag(f)
	return f
}

func (m *Match) flagBody(f *Flag) physics.BodyID {
	return m.world.AddBody(physics.BodySpec{
		Kind:   physics.Sensor,
		Shape:  physics.Circle{R: 18},
		Pos:    f.Pos,
		Filter: physics.Filter{Category: physics.CatPickup, Mask: physics.CatPlayer},
		Owner:  uint64(f.ID),
	})
}

// addZone registers a KOTH zone.
func (m *Match) addZone(number int, pos physics.Vec2, radius float64) *Zone {
	z := &Zone{
		ID:     m.reg.NewID(),
		Number: number,
		Pos:    pos,
		Radius: radius,
		State:  ZoneNeutral,
		counts: make(map[int]int),
	}
	z.Body = m.world.AddBody(physics.BodySpec{
		Kind:   physics.Sensor,
		Shape:  physics.Circle{R: radius},
		Pos:    pos,
		Filter: physics.Filter{Category: physics.CatZone, Mask: physics.CatPlayer},
		Owner:  uint64(z.ID),
	})
	m.reg.AddZone(z)
	return z
}

// addWorkshop registers a crafting region.
func (m *Match) addWorkshop(pos physics.Vec2, radius float64) *Workshop {
	w := &Workshop{
		ID:         m.reg.NewID(),
		Pos:        pos,
		Radius:     radius,
		CraftTime:  6,
		MaxPickups: 3,
		progress:   make(map[EntityID]float64),
		present:    make(map[EntityID]struct{}),
	}
	w.Body = m.world.AddBody(physics.BodySpec{
		Kind:   physics.Sensor,
		Shape:  physics.Circle{R: radius},
		Pos:    pos,
		Filter: physics.Filter{Category: physics.CatZone, Mask: physics.CatPlayer},
		Owner:  uint64(w.ID),
	})
	m.reg.AddWorkshop(w)
	return w
}

// addHQ registers a team headquarters.
func (m *Match) addHQ(team int, pos physics.Vec2, health float64) *Headquarters {
	h := &Headquarters{
		ID:        m.reg.NewID(),
		Team:      team,
		Pos:       pos,
		Health:    health,
		MaxHealth: health,
		Active:    true,
	}
	h.Body = m.world.AddBody(physics.BodySpec{
		Kind:   physics.Static,
		Shape:  physics.Rect{HalfW: 50, HalfH: 50},
		Pos:    pos,
		Filter: physics.Filter{Category: physics.CatObstacle, Mask: physics.CatAll},
		Owner:  uint64(h.ID),
	})
	m.reg.AddHQ(h)
	return h
}

// stepObjectiveEntities keeps carried flags glued to their carriers, returns
// expired drops home, and advances workshop crafting. Zone state machines
// belong to the ruleset.
func (m *Match) stepObjectiveEntities() {
	for _, f := range m.reg.Flags {
		switch f.State {
		case FlagCarried:
			carrier, ok := m.reg.Players[f.Carrier]
			if !ok || !carrier.Alive() {
				// Orphaned carry; the rule step emits the warning.
				m.returnFlagHome(f)
				m.emitWarning("flag reset: carrier missing")
				continue
			}
			f.Pos = m.world.Position(carrier.Body)
		case FlagDropped:
			if f.ReturnAt != 0 && m.tick >= f.ReturnAt {
				m.returnFlagHome(f)
			}
		}
	}

	dt := 1.0 / float64(m.cfg.Game.TickRate)
	for _, w := range m.reg.Workshops {
		for id := range w.progress {
			if _, here := w.present[id]; !here {
				delete(w.progress, id)
			}
		}
		for id := range w.present {
			if w.LivePickups >= w.MaxPickups {
				break
			}
			w.progress[id] += dt
			if w.progress[id] >= w.CraftTime {
				w.progress[id] = 0
				m.craftPickup(w)
			}
		}
		clear(w.present)
	}
}

// craftPickup drops a random power-up near the workshop.
func (m *Match) craftPickup(w *Workshop) {
	types := []PickupType{PickupHealth, PickupSpeed, PickupDamage, PickupShield, PickupAmmo}
	t := types[m.rng.Intn(len(types))]
	off := physics.FromAngle(m.rng.Float64() * 6.28318).Scale(w.Radius * 0.6)
	if m.spawnPickup(t, w.Pos.Add(off), w.ID) != nil {
		w.LivePickups++
	}
}

// pickUpFlag transitions a flag to carried. Carry rules (team checks) are
// enforced by the caller.
func (m *Match) pickUpFlag(f *Flag, pl *Player) {
	if f.Body != 0 {
		m.world.RemoveBody(f.Body)
		f.Body = 0
	}
	f.State = FlagCarried
	f.Carrier = pl.ID
	f.ReturnAt = 0
	pl.CarriedFlag = f.ID
}

// dropFlag places a carried flag at the carrier's death position.
func (m *Match) dropFlag(f *Flag, at physics.Vec2) {
	if pl, ok := m.reg.Players[f.Carrier]; ok {
		pl.CarriedFlag = 0
	}
	f.State = FlagDropped
	f.Carrier = 0
	f.Pos = at
	f.ReturnAt = m.tick + m.secondsToTicks(m.cfg.Game.FlagReturnSeconds)
	f.Body = m.flagBody(f)
}

// returnFlagHome snaps a flag back to its pedestal.
func (m *Match) returnFlagHome(f *Flag) {
	if pl, ok := m.reg.Players[f.Carrier]; ok {
		pl.CarriedFlag = 0
	}
	f.State = FlagHome
	f.Carrier = 0
	f.Pos = f.Home
	f.ReturnAt = 0
	if f.Body == 0 {
		f.Body = m.flagBody(f)
	} else {
		m.world.SetPosition(f.Body, f.Home)
	}
}
