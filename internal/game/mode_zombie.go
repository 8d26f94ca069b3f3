package game

import "fmt"

// zombieRules: humans share team 1 and defend against waves of AI zombies
// on team 2. A wave ends when every zombie is dead; after a rest the next,
// larger wave spawns. Score is waves survived; the match ends when every
// human is eliminated (endless victory condition otherwise).
type zombieRules struct {
	wave         int
	resting      bool
	restLeft     int64
	zombiesAlive int
}

const (
	zombieTeam = 2
	humanTeam  = 1
)

func (r *zombieRules) Init(m *Match) {
	for _, p := range m.reg.Players {
		if !p.IsAI {
			p.Team = humanTeam
			p.Lives = m.cfg.Game.ZombieHumanLives
		}
	}
	m.addHQ(humanTeam, m.vec(0, 0), 500)
	m.addWorkshop(m.randomOpenPoint(60), 60)
	r.startWave(m)
}

func (r *zombieRules) waveSize(m *Match) int {
	return m.cfg.Game.ZombieBaseWave + m.cfg.Game.ZombiePerWave*r.wave
}

func (r *zombieRules) startWave(m *Match) {
	r.wave++
	r.resting = false
	n := r.waveSize(m)
	spawned := 0
	for i := 0; i < n; i++ {
		meta := PlayerMeta{
			Name:         fmt.Sprintf("Zombie %d-%d", r.wave, i+1),
			Team:         zombieTeam,
			IsAI:         true,
			WeaponConfig: "flamethrower",
		}
		if _, err := m.addPlayerLocked(meta); err != nil {
			break
		}
		spawned++
	}
	r.zombiesAlive = spawned
	m.emitInfo(fmt.Sprintf("<color:#55ff55>wave %d</color>: %d zombies", r.wave, spawned))
}

func (r *zombieRules) Step(m *Match) {
	if r.resting {
		r.restLeft--
		if r.restLeft <= 0 {
			r.startWave(m)
		}
		return
	}
	if r.zombiesAlive <= 0 {
		m.rules.AddScore(humanTeam, 1)
		r.resting = true
		r.restLeft = m.secondsToTicks(m.cfg.Game.ZombieRestSeconds)
		m.emitInfo(fmt.Sprintf("wave %d cleared", r.wave))
	}
}

func (r *zombieRules) OnKill(m *Match, victim, killer *Player) {
	if victim.Team == zombieTeam {
		r.zombiesAlive--
		if killer != nil && killer.Team == humanTeam {
			killer.Score++
		}
		// Dead zombies never respawn; drop them from the match.
		victim.Eliminated = true
		victim.RespawnAt = 0
		m.reg.Defer(victim.ID)
	}
}

func (r *zombieRules) OnRoundReset(m *Match) {
	for _, p := range m.reg.Players {
		if p.Team == zombieTeam {
			m.reg.Defer(p.ID)
		}
	}
	r.wave = 0
	r.zombiesAlive = 0
	r.startWave(m)
}

func (r *zombieRules) Victory(m *Match) (string, string, bool) {
	for _, p := range m.reg.Players {
		if p.Team == humanTeam && !p.Eliminated {
			return "", "", false
		}
	}
	if len(m.reg.Players) == 0 {
		return "", "", false
	}
	return VictoryElimination, fmt.Sprintf("overrun at wave %d", r.wave), true
}
