package game

import "fmt"

// kothRules drives the zone control state machine. Presence counts are
// rebuilt each tick from sensor contacts before Step runs.
type kothRules struct {
	// scoreCarry accumulates fractional per-tick zone score until it
	// reaches a whole point.
	scoreCarry map[int]float64
}

func (r *kothRules) Init(m *Match) {
	r.scoreCarry = make(map[int]float64)
	w, h := m.world.Size()
	m.addZone(1, m.vec(0, 0), m.cfg.Game.ZoneRadius)
	if m.cfg.Game.ZoneCount > 1 {
		m.addZone(2, m.vec(-w/4, h/4), m.cfg.Game.ZoneRadius)
	}
	if m.cfg.Game.ZoneCount > 2 {
		m.addZone(3, m.vec(w/4, -h/4), m.cfg.Game.ZoneRadius)
	}
}

func (r *kothRules) Step(m *Match) {
	dt := 1.0 / float64(m.cfg.Game.TickRate)
	capTime := m.cfg.Game.CaptureSeconds

	for _, z := range m.reg.Zones {
		teams := z.occupiedTeams()

		switch z.State {
		case ZoneNeutral:
			if len(teams) == 1 {
				z.State = ZoneCapturing
				z.Team = teams[0]
				z.Progress = 0
			}
		case ZoneCapturing:
			switch {
			case len(teams) == 0:
				// Capturer left: progress decays toward neutral.
				z.Progress -= dt / capTime
				if z.Progress <= 0 {
					z.Progress = 0
					z.State = ZoneNeutral
					z.Team = 0
				}
			case len(teams) == 1 && teams[0] == z.Team:
				z.Progress += dt / capTime
				if z.Progress >= 1 {
					z.Progress = 1
					z.State = ZoneControlled
					m.emitCapture(fmt.Sprintf("team %d controls zone %d", z.Team, z.Number))
				}
			default:
				// Any other team present freezes progress.
				z.State = ZoneContested
			}
		case ZoneContested:
			switch {
			case len(teams) == 0:
				z.Progress -= dt / capTime
				if z.Progress <= 0 {
					z.Progress = 0
					z.State = ZoneNeutral
					z.Team = 0
				}
			case len(teams) == 1:
				if z.Progress >= 1 && teams[0] == z.Team {
					z.State = ZoneControlled
				} else {
					z.State = ZoneCapturing
					if teams[0] != z.Team {
						z.Team = teams[0]
						z.Progress = 0
					}
				}
			}
		case ZoneControlled:
			if hasOtherTeam(teams, z.Team) {
				z.State = ZoneContested
			} else {
				r.scoreCarry[z.Team] += m.cfg.Game.ZonePointsPerSecond * dt
				if r.scoreCarry[z.Team] >= 1 {
					pts := int(r.scoreCarry[z.Team])
					r.scoreCarry[z.Team] -= float64(pts)
					m.rules.AddScore(z.Team, pts)
				}
			}
		}
	}
}

func hasOtherTeam(teams []int, owner int) bool {
	for _, t := range teams {
		if t != owner {
			return true
		}
	}
	return false
}

func (r *kothRules) OnKill(m *Match, victim, killer *Player) {
	if killer != nil && killer.ID != victim.ID && killer.Team != victim.Team {
		killer.Score++
	}
}

func (r *kothRules) OnRoundReset(m *Match) {
	r.scoreCarry = make(map[int]float64)
	for _, z := range m.reg.Zones {
		z.State = ZoneNeutral
		z.Team = 0
		z.Progress = 0
		clear(z.counts)
	}
}

func (r *kothRules) Victory(m *Match) (string, string, bool) {
	return "", "", false
}
