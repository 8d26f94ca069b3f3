package game

import "fmt"

// GameMode selects the objective ruleset of a match.
type GameMode string

const (
	ModeTDM        GameMode = "tdm"
	ModeKOTH       GameMode = "koth"
	ModeCTF        GameMode = "ctf"
	ModeOddball    GameMode = "oddball"
	ModeJuggernaut GameMode = "juggernaut"
	ModeLoneWolf   GameMode = "lonewolf"
	ModeZombie     GameMode = "zombie"
)

// Phase is the round lifecycle.
type Phase string

const (
	PhasePre     Phase = "pre"
	PhasePlaying Phase = "playing"
	PhaseRest    Phase = "rest"
	PhaseEnded   Phase = "ended"
)

// Victory condition kinds reported in gameOver frames.
const (
	VictoryScoreLimit  = "scoreLimit"
	VictoryTimeLimit   = "timeLimit"
	VictoryObjective   = "objective"
	VictoryElimination = "elimination"
	VictorySystem      = "system"
)

// RuleState is the mode-independent scoring and phase state.
type RuleState struct {
	Mode           GameMode
	Phase          Phase
	Round          int
	RoundsTotal    int
	RoundTicksLeft int64
	RestTicksLeft  int64
	TeamScores     map[int]int
	Victory        string // victory kind once ended
	VictoryMessage string
}

// AddScore credits a team. Scores never decrease during play.
func (rs *RuleState) AddScore(team, points int) {
	if points > 0 {
		rs.TeamScores[team] += points
	}
}

// Leader returns the highest-scoring team and its score.
func (rs *RuleState) Leader() (team, score int) {
	for t, s := range rs.TeamScores {
		if s > score || (s == score && (team == 0 || t < team)) {
			team, score = t, s
		}
	}
	return
}

// Ruleset is one game mode's objective machine. All methods run on the
// match tick goroutine.
type Ruleset interface {
	// Init seeds mode entities (zones, flags, HQs) after terrain.
	Init(m *Match)
	// Step advances objective state once per playing tick.
	Step(m *Match)
	// OnKill is called after a death is resolved. killer may be nil.
	OnKill(m *Match, victim, killer *Player)
	// OnRoundReset restores mode entities between rounds.
	OnRoundReset(m *Match)
	// Victory reports whether the mode-specific condition is met.
	Victory(m *Match) (kind, message string, over bool)
}

// newRuleset maps a mode to its machine.
func newRuleset(mode GameMode) Ruleset {
	switch mode {
	case ModeKOTH:
		return &kothRules{}
	case ModeCTF:
		return &ctfRules{}
	case ModeOddball:
		return &ctfRules{oddball: true}
	case ModeJuggernaut:
		return &juggernautRules{}
	case ModeLoneWolf:
		return &loneWolfRules{}
	case ModeZombie:
		return &zombieRules{}
	default:
		return &tdmRules{}
	}
}

// stepRules runs tick step 9: respawns, objective advancement, round and
// victory evaluation.
func (m *Match) stepRules() {
	m.stepRespawns()

	rs := &m.rules
	switch rs.Phase {
	case PhasePre:
		rs.Phase = PhasePlaying
		rs.Round = 1
		rs.RoundTicksLeft = m.secondsToTicks(m.cfg.Game.RoundSeconds)
		m.emitRoundStart(rs.Round, m.scoresCopy())
	case PhasePlaying:
		m.ruleset.Step(m)
		m.checkVictory()
		if rs.Phase != PhasePlaying {
			return
		}
		if rs.RoundTicksLeft > 0 {
			rs.RoundTicksLeft--
			if rs.RoundTicksLeft == 0 {
				m.endRound()
			}
		}
	case PhaseRest:
		rs.RestTicksLeft--
		if rs.RestTicksLeft <= 0 {
			m.startNextRound()
		}
	case PhaseEnded:
		// Terminal; the lobby tears the match down.
	}
}

func (m *Match) endRound() {
	rs := &m.rules
	m.emitRoundEnd(rs.Round, m.scoresCopy(), m.cfg.Game.RestSeconds)
	if rs.RoundsTotal > 0 && rs.Round >= rs.RoundsTotal {
		// Last round: settle on points.
		team, _ := rs.Leader()
		m.finish(VictoryTimeLimit, fmt.Sprintf("team %d wins on points", team))
		return
	}
	rs.Phase = PhaseRest
	rs.RestTicksLeft = m.secondsToTicks(m.cfg.Game.RestSeconds)
}

func (m *Match) startNextRound() {
	rs := &m.rules
	rs.Round++
	rs.Phase = PhasePlaying
	rs.RoundTicksLeft = m.secondsToTicks(m.cfg.Game.RoundSeconds)
	m.resetForRound()
	m.ruleset.OnRoundReset(m)
	m.emitRoundStart(rs.Round, m.scoresCopy())
}

// resetForRound respawns everyone at fresh spawn points and clears
// transient entities. Scores persist across rounds.
func (m *Match) resetForRound() {
	for _, p := range m.reg.Projectiles {
		m.reg.Defer(p.ID)
	}
	for _, b := range m.reg.Beams {
		m.reg.Defer(b.ID)
	}
	for _, e := range m.reg.Effects {
		m.reg.Defer(e.ID)
	}
	for _, pl := range m.reg.Players {
		if pl.Eliminated {
			continue
		}
		m.despawnPlayer(pl)
		m.spawnPlayer(pl)
	}
}

func (m *Match) checkVictory() {
	rs := &m.rules
	if kind, msg, over := m.ruleset.Victory(m); over {
		m.finish(kind, msg)
		return
	}
	if m.cfg.Game.ScoreLimit > 0 {
		if team, score := rs.Leader(); score >= m.cfg.Game.ScoreLimit {
			m.finish(VictoryScoreLimit, fmt.Sprintf("team %d reached %d points", team, score))
		}
	}
}

// finish transitions to ended and emits gameOver exactly once.
func (m *Match) finish(kind, msg string) {
	rs := &m.rules
	if rs.Phase == PhaseEnded {
		return
	}
	rs.Phase = PhaseEnded
	rs.Victory = kind
	rs.VictoryMessage = msg
	m.emitGameOver(kind, msg, m.scoresCopy())
}

func (m *Match) scoresCopy() map[int]int {
	out := make(map[int]int, len(m.rules.TeamScores))
	for t, s := range m.rules.TeamScores {
		out[t] = s
	}
	return out
}

// stepRespawns re-enters dead players whose respawn deadline passed.
func (m *Match) stepRespawns() {
	for _, pl := range m.reg.Players {
		if pl.Alive() || pl.Eliminated || pl.RespawnAt == 0 {
			continue
		}
		if m.tick >= pl.RespawnAt {
			pl.RespawnAt = 0
			m.spawnPlayer(pl)
		}
	}
}

// zoneMembershipReset clears per-tick zone presence before contact
// resolution rebuilds it.
func (m *Match) zoneMembershipReset() {
	for _, z := range m.reg.Zones {
		clear(z.counts)
	}
}
