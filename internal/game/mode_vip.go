package game

import (
	"fmt"
	"sort"
)

// juggernautRules designates one VIP per team with a boosted attribute set.
// Eliminating the opposing juggernaut scores; replacement selection is
// deterministic (next alive player in id order).
type juggernautRules struct {
	vips map[int]EntityID // team -> current juggernaut
}

const juggernautSource = "mode:juggernaut"

func (r *juggernautRules) Init(m *Match) {
	r.vips = make(map[int]EntityID)
	for _, team := range m.teams() {
		r.pickJuggernaut(m, team)
	}
}

// teams returns the distinct nonzero team numbers, sorted.
func (m *Match) teams() []int {
	seen := map[int]struct{}{}
	for _, p := range m.reg.Players {
		if p.Team != 0 {
			seen[p.Team] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// teamPlayersByID returns a team's players sorted by id, the selection
// order for juggernaut succession.
func (m *Match) teamPlayersByID(team int) []*Player {
	var out []*Player
	for _, p := range m.reg.Players {
		if p.Team == team {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *juggernautRules) pickJuggernaut(m *Match, team int) {
	for _, p := range m.teamPlayersByID(team) {
		if p.Eliminated || !p.Alive() {
			continue
		}
		r.vips[team] = p.ID
		r.applyBoost(m, p)
		m.emitInfo(fmt.Sprintf("<color:#ffd700>%s</color> is team %d's juggernaut", p.Name, team))
		return
	}
	delete(r.vips, team)
}

func (r *juggernautRules) applyBoost(m *Match, p *Player) {
	far := m.tick + 1<<40 // effectively until reassigned
	p.RefreshMod(Modification{Attr: AttrVIP, Op: OpSet, Value: 1, ExpiresAt: far, Source: juggernautSource})
	p.RefreshMod(Modification{Attr: AttrDamageMult, Op: OpMul, Value: 1.5, ExpiresAt: far, Source: juggernautSource})
	p.RefreshMod(Modification{Attr: AttrMoveSpeed, Op: OpMul, Value: 1.15, ExpiresAt: far, Source: juggernautSource})
	p.MaxHealth = 180
	p.Health = p.MaxHealth
}

func (r *juggernautRules) Step(m *Match) {
	// Fill any vacant VIP slot at the respawn boundary.
	for _, team := range m.teams() {
		id, ok := r.vips[team]
		if !ok {
			r.pickJuggernaut(m, team)
			continue
		}
		if _, live := m.reg.Players[id]; !live {
			r.pickJuggernaut(m, team)
		}
	}
}

func (r *juggernautRules) OnKill(m *Match, victim, killer *Player) {
	if r.vips[victim.Team] != victim.ID {
		if killer != nil && killer.Team != victim.Team {
			killer.Score++
		}
		return
	}
	// The fallen juggernaut rejoins as a regular player; succession happens
	// at the next respawn boundary.
	victim.RemoveModsFrom(juggernautSource)
	victim.MaxHealth = 100
	delete(r.vips, victim.Team)
	r.pickJuggernaut(m, victim.Team)

	if killer != nil && killer.Team != victim.Team {
		m.rules.AddScore(killer.Team, m.cfg.Game.JuggernautPoints)
		killer.Score += m.cfg.Game.JuggernautPoints
		m.emitCapture(fmt.Sprintf("%s brought down the juggernaut", killer.Name))
	}
}

func (r *juggernautRules) OnRoundReset(m *Match) {
	for team, id := range r.vips {
		if p, ok := m.reg.Players[id]; ok {
			p.RemoveModsFrom(juggernautSource)
			p.MaxHealth = 100
			p.Health = p.MaxHealth
		}
		delete(r.vips, team)
	}
	for _, team := range m.teams() {
		r.pickJuggernaut(m, team)
	}
}

func (r *juggernautRules) Victory(m *Match) (string, string, bool) {
	return "", "", false
}

// loneWolfRules: one wolf versus everyone. Each wolf death grows the next
// spawn's multipliers by a configured step; hunters score wolf kills, the
// wolf scores by staying alive.
type loneWolfRules struct {
	wolf   EntityID
	deaths int
	carry  float64
}

const loneWolfSource = "mode:lonewolf"

func (r *loneWolfRules) Init(m *Match) {
	r.pickWolf(m)
}

func (r *loneWolfRules) pickWolf(m *Match) {
	var candidates []*Player
	for _, p := range m.reg.Players {
		if !p.Eliminated {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		r.wolf = 0
		return
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	w := candidates[m.rng.Intn(len(candidates))]
	r.wolf = w.ID
	r.applyGrowth(m, w)
	m.emitInfo(fmt.Sprintf("<color:#ff5555>%s</color> is the lone wolf", w.Name))
}

// applyGrowth sets the wolf's buffs scaled by accumulated deaths.
func (r *loneWolfRules) applyGrowth(m *Match, w *Player) {
	far := m.tick + 1<<40
	step := m.cfg.Game.LoneWolfGrowth
	mult := 1 + step*float64(r.deaths)
	w.RefreshMod(Modification{Attr: AttrVIP, Op: OpSet, Value: 1, ExpiresAt: far, Source: loneWolfSource})
	w.RefreshMod(Modification{Attr: AttrMoveSpeed, Op: OpMul, Value: mult, ExpiresAt: far, Source: loneWolfSource})
	w.RefreshMod(Modification{Attr: AttrDamageMult, Op: OpMul, Value: mult, ExpiresAt: far, Source: loneWolfSource})
}

func (r *loneWolfRules) Step(m *Match) {
	w, ok := m.reg.Players[r.wolf]
	if !ok {
		r.pickWolf(m)
		return
	}
	// Wolf survival time converts to score, one point per second.
	if w.Alive() {
		r.carry += 1.0 / float64(m.cfg.Game.TickRate)
		if r.carry >= 1 {
			pts := int(r.carry)
			r.carry -= float64(pts)
			w.Score += pts
			m.rules.AddScore(w.Team, pts)
		}
	}
}

func (r *loneWolfRules) OnKill(m *Match, victim, killer *Player) {
	if victim.ID != r.wolf {
		if killer != nil && killer.ID == r.wolf {
			killer.Score += 2
			m.rules.AddScore(killer.Team, 2)
		}
		return
	}
	r.deaths++
	if killer != nil && killer.ID != victim.ID {
		killer.Score += 5
		m.rules.AddScore(killer.Team, 5)
		m.emitCapture(fmt.Sprintf("%s took down the wolf", killer.Name))
	}
	// Same wolf respawns stronger.
	victim.RemoveModsFrom(loneWolfSource)
	r.applyGrowth(m, victim)
}

func (r *loneWolfRules) OnRoundReset(m *Match) {
	if w, ok := m.reg.Players[r.wolf]; ok {
		w.RemoveModsFrom(loneWolfSource)
	}
	r.deaths = 0
	r.carry = 0
	r.pickWolf(m)
}

func (r *loneWolfRules) Victory(m *Match) (string, string, bool) {
	return "", "", false
}
