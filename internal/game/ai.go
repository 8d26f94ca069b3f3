package game

import (
	"math"
	"math/rand"

	"arena/internal/game/physics"
)

// aiMode is the behavior state of one AI player.
type aiMode uint8

const (
	aiWander aiMode = iota
	aiEngage
	aiFlee
	aiObjective
)

// aiController produces the same Input shape a human submits. Decisions are
// deterministic given the match seed and tick counter: the controller never
// reads the wall clock and owns a private RNG stream.
type aiController struct {
	rng      *rand.Rand
	mode     aiMode
	target   EntityID
	goal     physics.Vec2
	nextPlan int64
}

// aiDecideEvery is the decision cadence in ticks; between decisions the
// current mode keeps steering without re-planning.
const aiDecideEvery = 3

func newAIController(matchSeed int64, id EntityID) *aiController {
	return &aiController{
		rng: rand.New(rand.NewSource(matchSeed ^ int64(id)*0x5deece66d)),
	}
}

// decide returns this tick's intent for the AI player.
func (c *aiController) decide(m *Match, self *Player) Input {
	if !self.Alive() {
		return Input{}
	}
	if m.tick < c.nextPlan {
		return c.steer(m, self)
	}
	c.nextPlan = m.tick + aiDecideEvery

	pos := m.world.Position(self.Body)
	enemy, dist := c.nearestEnemy(m, self)
	low := self.Health < self.MaxHealth*0.3

	switch {
	case low && enemy != nil && dist < 400:
		c.mode = aiFlee
		c.target = enemy.ID
	case enemy != nil && dist < self.Effective().VisionRange && c.hasLineOfSight(m, pos, enemy):
		c.mode = aiEngage
		c.target = enemy.ID
	case c.objectiveGoal(m, self):
		c.mode = aiObjective
	default:
		if c.mode != aiWander || pos.DistanceTo(c.goal) < 40 {
			c.mode = aiWander
			c.goal = c.randomGoal(m)
		}
	}
	return c.steer(m, self)
}

// steer converts the current mode into movement and fire intent.
func (c *aiController) steer(m *Match, self *Player) Input {
	pos := m.world.Position(self.Body)
	var in Input
	in.Source = "ai"

	switch c.mode {
	case aiEngage:
		enemy, ok := m.reg.Players[c.target]
		if !ok || !enemy.Alive() {
			c.mode = aiWander
			c.goal = c.randomGoal(m)
			break
		}
		epos := m.world.Position(enemy.Body)
		in.WorldX, in.WorldY = epos.X, epos.Y
		in.Fire = true
		// Keep a preferred engagement distance.
		d := pos.DistanceTo(epos)
		want := self.Primary.Weapon.Range * 0.5
		dir := epos.Sub(pos).Normalize()
		if d > want {
			in.MoveX, in.MoveY = dir.X, dir.Y
		} else if d < want*0.5 {
			in.MoveX, in.MoveY = -dir.X, -dir.Y
		} else {
			// Strafe around the target.
			p := dir.Perp()
			in.MoveX, in.MoveY = p.X, p.Y
		}
		if self.Primary.Magazine == 0 {
			in.Reload = true
		}
	case aiFlee:
		enemy, ok := m.reg.Players[c.target]
		if ok && enemy.Alive() {
			away := pos.Sub(m.world.Position(enemy.Body)).Normalize()
			in.MoveX, in.MoveY = away.X, away.Y
			in.WorldX, in.WorldY = pos.X+away.X*100, pos.Y+away.Y*100
		}
		in.Reload = self.Primary.Magazine < self.Primary.Weapon.MagazineSize
	case aiObjective, aiWander:
		to := c.goal.Sub(pos)
		if to.Len() > 1 {
			dir := to.Normalize()
			in.MoveX, in.MoveY = dir.X, dir.Y
		}
		in.WorldX, in.WorldY = c.goal.X, c.goal.Y
	}

	in.clampAxes()
	return in
}

// nearestEnemy scans live hostile players by distance.
func (c *aiController) nearestEnemy(m *Match, self *Player) (*Player, float64) {
	pos := m.world.Position(self.Body)
	var best *Player
	bestD := math.MaxFloat64
	for _, p := range m.reg.Players {
		if p.ID == self.ID || !p.Alive() {
			continue
		}
		if self.Team != 0 && p.Team == self.Team {
			continue
		}
		d := m.world.Position(p.Body).DistanceTo(pos)
		if d < bestD {
			best, bestD = p, d
		}
	}
	return best, bestD
}

func (c *aiController) hasLineOfSight(m *Match, from physics.Vec2, target *Player) bool {
	to := m.world.Position(target.Body)
	hit, ok := m.world.Raycast(from, to, physics.CatObstacle, 0)
	return !ok || hit.Fraction >= 1
}

// objectiveGoal points the AI at its mode's objective when one exists:
// contested or enemy zones, the opposing flag, or the human HQ for zombies.
func (c *aiController) objectiveGoal(m *Match, self *Player) bool {
	for _, z := range m.reg.Zones {
		if z.State != ZoneControlled || z.Team != self.Team {
			c.goal = z.Pos
			return true
		}
	}
	for _, f := range m.reg.Flags {
		if f.State == FlagCarried {
			continue
		}
		if f.Oddball || f.OwnerTeam != self.Team {
			c.goal = f.Pos
			return true
		}
	}
	for _, hq := range m.reg.HQs {
		if hq.Active && hq.Team != self.Team {
			c.goal = hq.Pos
			return true
		}
	}
	return false
}

func (c *aiController) randomGoal(m *Match) physics.Vec2 {
	w, h := m.world.Size()
	return physics.Vec(
		(c.rng.Float64()-0.5)*w*0.8,
		(c.rng.Float64()-0.5)*h*0.8,
	)
}
