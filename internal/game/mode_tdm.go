package game

// tdmRules: score is the team kill count; first to the score limit or the
// highest total at time limit wins. The shared machinery in rules.go covers
// both ends, so the machine itself is nearly empty.
type tdmRules struct{}

func (r *tdmRules) Init(m *Match) {
	m.addWorkshop(m.randomOpenPoint(60), 60)
}

func (r *tdmRules) Step(m *Match) {}

func (r *tdmRules) OnKill(m *Match, victim, killer *Player) {
	if killer == nil || killer.ID == victim.ID {
		return
	}
	if victim.Team != 0 && killer.Team == victim.Team {
		return // no points for friendly fire
	}
	m.rules.AddScore(killer.Team, 1)
	killer.Score++
}

func (r *tdmRules) OnRoundReset(m *Match) {}

func (r *tdmRules) Victory(m *Match) (string, string, bool) {
	return "", "", false
}
