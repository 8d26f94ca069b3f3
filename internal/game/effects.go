package game

import (
	"fmt"

	"arena/internal/game/physics"
)

// EffectKind identifies a field-effect contract.
type EffectKind string

const (
	EffectExplosion     EffectKind = "explosion"
	EffectFire          EffectKind = "fire"
	EffectElectric      EffectKind = "electric"
	EffectFreeze        EffectKind = "freeze"
	EffectFragmentation EffectKind = "fragmentation"
	EffectPoison        EffectKind = "poison"
	EffectHeal          EffectKind = "heal"
	EffectSmoke         EffectKind = "smoke"
	EffectSlow          EffectKind = "slow"
	EffectShield        EffectKind = "shield"
	EffectGravity       EffectKind = "gravity"
	EffectReveal        EffectKind = "reveal"
	EffectSpeedBoost    EffectKind = "speedBoost"
	EffectProximityMine EffectKind = "proximityMine"
)

// FieldEffect is a time-extended area entity. Every tick it queries the
// players inside its radius and applies its kind's contract.
type FieldEffect struct {
	ID        EntityID
	Kind      EffectKind
	Pos       physics.Vec2
	Radius    float64
	Owner     EntityID
	OwnerTeam int
	Strength  float64 // damage or heal per second, or modifier magnitude
	Duration  int64   // total lifetime ticks
	Elapsed   int64
	Armed     bool // proximity mines only
}

func (e *FieldEffect) sourceTag() string {
	return fmt.Sprintf("effect:%s:%d", e.Kind, e.ID)
}

// spawnEffect creates a field effect, respecting the entity ceiling.
func (m *Match) spawnEffect(kind EffectKind, pos physics.Vec2, radius float64, duration int64, owner EntityID, team int, strength float64) *FieldEffect {
	if m.reg.Count() >= m.cfg.Limits.MaxEntitiesPerMatch {
		return nil
	}
	if duration < 1 {
		duration = 1
	}
	e := &FieldEffect{
		ID:        m.reg.NewID(),
		Kind:      kind,
		Pos:       pos,
		Radius:    radius,
		Owner:     owner,
		OwnerTeam: team,
		Strength:  strength,
		Duration:  duration,
		Armed:     kind == EffectProximityMine,
	}
	m.reg.AddEffect(e)
	return e
}

// stepEffects applies every active field effect to the players inside it,
// then expires finished effects. Instant kinds (explosion, fragmentation)
// deal their full strength on their first tick only.
func (m *Match) stepEffects() {
	for _, e := range m.reg.Effects {
		if m.reg.Deferred(e.ID) {
			continue
		}
		first := e.Elapsed == 0
		e.Elapsed++
		if e.Elapsed > e.Duration {
			m.reg.Defer(e.ID)
			continue
		}
		switch e.Kind {
		case EffectExplosion, EffectFragmentation:
			if first {
				m.applyExplosion(e)
			}
		case EffectProximityMine:
			m.stepMine(e)
		default:
			m.applyContinuous(e)
		}
	}
}

// explosionFalloff scales damage linearly from full at the center to 30%
// at the rim.
func explosionFalloff(dist, radius float64) float64 {
	if radius <= 0 {
		return 1
	}
	f := 1 - 0.7*(dist/radius)
	if f < 0.3 {
		f = 0.3
	}
	return f
}

func (m *Match) applyExplosion(e *FieldEffect) {
	for _, pl := range m.playersInRadius(e.Pos, e.Radius) {
		// Explosives hurt their owner too; only mines spare nobody either.
		dist := m.world.Position(pl.Body).DistanceTo(e.Pos)
		m.damagePlayer(pl, e.Strength*explosionFalloff(dist, e.Radius), e.Owner)
	}
	for _, ob := range m.obstaclesInRadius(e.Pos, e.Radius) {
		m.damageObstacle(ob, e.Strength)
	}
}

func (m *Match) stepMine(e *FieldEffect) {
	// Trigger radius is tighter than the blast radius.
	trigger := e.Radius * 0.45
	for _, pl := range m.playersInRadius(e.Pos, trigger) {
		if pl.ID == e.Owner {
			continue
		}
		m.applyExplosion(e)
		m.reg.Defer(e.ID)
		return
	}
}

// applyContinuous runs the per-tick contract of DOT/status kinds.
func (m *Match) applyContinuous(e *FieldEffect) {
	dt := 1.0 / float64(m.cfg.Game.TickRate)
	src := e.sourceTag()
	// Status mods outlive the effect by one tick so a player leaving the
	// radius sheds the status naturally.
	expiry := m.tick + 2

	for _, pl := range m.playersInRadius(e.Pos, e.Radius) {
		hostile := e.OwnerTeam == 0 || pl.Team != e.OwnerTeam
		switch e.Kind {
		case EffectFire, EffectPoison, EffectElectric:
			if hostile && pl.ID != e.Owner {
				m.damagePlayer(pl, e.Strength*dt, e.Owner)
			}
		case EffectFreeze:
			if hostile && pl.ID != e.Owner {
				m.damagePlayer(pl, e.Strength*dt, e.Owner)
				pl.RefreshMod(Modification{Attr: AttrMoveSpeed, Op: OpSet, Value: 0, ExpiresAt: expiry, Source: src})
			}
		case EffectSlow:
			if hostile {
				pl.RefreshMod(Modification{Attr: AttrMoveSpeed, Op: OpMul, Value: 0.5, ExpiresAt: expiry, Source: src})
			}
		case EffectHeal:
			if !hostile {
				pl.Health = min(pl.MaxHealth, pl.Health+e.Strength*dt)
			}
		case EffectShield:
			if !hostile {
				pl.RefreshMod(Modification{Attr: AttrInvulnerable, Op: OpSet, Value: 1, ExpiresAt: expiry, Source: src})
			}
		case EffectSpeedBoost:
			if !hostile {
				pl.RefreshMod(Modification{Attr: AttrMoveSpeed, Op: OpMul, Value: 1.5, ExpiresAt: expiry, Source: src})
			}
		case EffectReveal:
			pl.RefreshMod(Modification{Attr: AttrVisionRange, Op: OpMul, Value: 1.8, ExpiresAt: expiry, Source: src})
		case EffectGravity:
			// Pull toward the center, scaled by strength.
			if pl.Alive() {
				pull := e.Pos.Sub(m.world.Position(pl.Body))
				if d := pull.Len(); d > 1 {
					v := m.world.Velocity(pl.Body)
					m.world.SetVelocity(pl.Body, v.Add(pull.Scale(e.Strength/d)))
				}
			}
		case EffectSmoke:
			pl.RefreshMod(Modification{Attr: AttrVisionRange, Op: OpMul, Value: 0.4, ExpiresAt: expiry, Source: src})
		}
	}
}

// playersInRadius returns live players whose bodies intersect the circle.
func (m *Match) playersInRadius(p physics.Vec2, r float64) []*Player {
	var out []*Player
	for _, bid := range m.world.OverlapCircle(p, r, physics.CatPlayer) {
		id := EntityID(m.world.Owner(bid))
		if pl, ok := m.reg.Players[id]; ok && pl.Alive() && !m.reg.Deferred(id) {
			out = append(out, pl)
		}
	}
	return out
}

// obstaclesInRadius returns destructible obstacles intersecting the circle.
func (m *Match) obstaclesInRadius(p physics.Vec2, r float64) []*Obstacle {
	var out []*Obstacle
	for _, bid := range m.world.OverlapCircle(p, r, physics.CatObstacle) {
		id := EntityID(m.world.Owner(bid))
		if ob, ok := m.reg.Obstacles[id]; ok && ob.Destructible && !m.reg.Deferred(id) {
			out = append(out, ob)
		}
	}
	return out
}
