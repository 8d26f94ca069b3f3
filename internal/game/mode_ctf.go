package game

import "fmt"

// ctfRules covers capture-the-flag and, with oddball set, the neutral-ball
// variant where points accrue per second of carry.
type ctfRules struct {
	oddball bool
	carry   float64 // fractional oddball points
}

func (r *ctfRules) Init(m *Match) {
	w, _ := m.world.Size()
	if r.oddball {
		m.addFlag(0, m.vec(0, 0), true)
		return
	}
	m.addFlag(1, m.vec(-w/2+120, 0), false)
	m.addFlag(2, m.vec(w/2-120, 0), false)
	m.addWorkshop(m.vec(0, 0), 70)
}

func (r *ctfRules) Step(m *Match) {
	if r.oddball {
		r.stepOddball(m)
		return
	}
	// Carrier reaching their own pedestal scores. Own flag must be home.
	for _, f := range m.reg.Flags {
		if f.State != FlagCarried {
			continue
		}
		carrier, ok := m.reg.Players[f.Carrier]
		if !ok || !carrier.Alive() {
			m.returnFlagHome(f)
			m.emitWarning("flag reset: carrier missing")
			continue
		}
		own := m.teamFlag(carrier.Team)
		if own == nil || own.State != FlagHome {
			continue
		}
		if m.world.Position(carrier.Body).DistanceTo(own.Home) <= PlayerRadius+20 {
			f.Captures++
			carrier.Captures++
			m.rules.AddScore(carrier.Team, 1)
			m.emitCapture(fmt.Sprintf("<color:#ffd700>%s</color> captured the flag", carrier.Name))
			m.returnFlagHome(f)
		}
	}
}

func (r *ctfRules) stepOddball(m *Match) {
	for _, f := range m.reg.Flags {
		if !f.Oddball || f.State != FlagCarried {
			continue
		}
		carrier, ok := m.reg.Players[f.Carrier]
		if !ok || !carrier.Alive() {
			m.returnFlagHome(f)
			m.emitWarning("ball reset: carrier missing")
			continue
		}
		r.carry += m.cfg.Game.OddballPointsPerSecond / float64(m.cfg.Game.TickRate)
		if r.carry >= 1 {
			pts := int(r.carry)
			r.carry -= float64(pts)
			m.rules.AddScore(carrier.Team, pts)
			carrier.Score += pts
		}
	}
}

// teamFlag returns the flag owned by a team, or nil.
func (m *Match) teamFlag(team int) *Flag {
	for _, f := range m.reg.Flags {
		if f.OwnerTeam == team && !f.Oddball {
			return f
		}
	}
	return nil
}

// touchFlag resolves a player touching a flag sensor: opposing players
// pick it up, owners return their dropped flag. Flags only exist in modes
// that created them, so this is safe to call from contact resolution
// unconditionally.
func (m *Match) touchFlag(f *Flag, pl *Player) {
	if f.State == FlagCarried || pl.CarriedFlag != 0 || !pl.Alive() {
		return
	}
	if f.Oddball {
		m.pickUpFlag(f, pl)
		m.emitInfo(fmt.Sprintf("%s holds the ball", pl.Name))
		return
	}
	if pl.Team == f.OwnerTeam {
		if f.State == FlagDropped {
			m.returnFlagHome(f)
			m.emitInfo(fmt.Sprintf("%s returned the flag", pl.Name))
		}
		return
	}
	m.pickUpFlag(f, pl)
	m.emitInfo(fmt.Sprintf("%s took team %d's flag", pl.Name, f.OwnerTeam))
}

func (r *ctfRules) OnKill(m *Match, victim, killer *Player) {
	if killer != nil && killer.ID != victim.ID && killer.Team != victim.Team {
		killer.Score++
	}
	// Carried flags are dropped by the engine's death path.
}

func (r *ctfRules) OnRoundReset(m *Match) {
	r.carry = 0
	for _, f := range m.reg.Flags {
		m.returnFlagHome(f)
	}
}

func (r *ctfRules) Victory(m *Match) (string, string, bool) {
	return "", "", false
}
