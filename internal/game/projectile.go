package game

import (
	"math"

	"arena/internal/game/physics"
)

// ProjectileRadius is the body radius of every in-flight round.
const ProjectileRadius = 4.0

// Projectile is an in-flight round. Pose and velocity live in the physics
// body; the struct carries gameplay state only.
type Projectile struct {
	ID        EntityID
	Kind      OrdinanceKind
	Owner     EntityID
	OwnerTeam int
	Body      physics.BodyID

	Damage   float64
	Effects  BulletEffect
	Splash   float64
	LifeLeft int64 // remaining lifetime in ticks
	FuseLeft int64 // grenade/mine fuse in ticks; <0 = none
	Pierces  int   // remaining pierce budget
	Armed    bool  // mines only

	// pierced tracks players already damaged by a piercing round so one
	// round never hits the same target twice.
	pierced map[EntityID]struct{}
}

// MarkPierced records a target hit by a piercing round.
func (p *Projectile) MarkPierced(id EntityID) {
	if p.pierced == nil {
		p.pierced = make(map[EntityID]struct{}, 2)
	}
	p.pierced[id] = struct{}{}
}

// AlreadyPierced reports whether this round already damaged the target.
func (p *Projectile) AlreadyPierced(id EntityID) bool {
	_, ok := p.pierced[id]
	return ok
}

// spawnProjectile creates one round travelling along dir from pos. The body
// joins the owner's collision group so the round passes through its shooter.
func (m *Match) spawnProjectile(owner *Player, w Weapon, pos physics.Vec2, dir physics.Vec2) *Projectile {
	if m.reg.Count() >= m.cfg.Limits.MaxEntitiesPerMatch {
		return nil
	}
	id := m.reg.NewID()
	speed := w.Speed
	vel := dir.Scale(speed)

	p := &Projectile{
		ID:        id,
		Kind:      w.Ordinance,
		Owner:     owner.ID,
		OwnerTeam: owner.Team,
		Damage:    w.Damage * m.cfg.Game.WeaponDamageMult * owner.Effective().DamageMult,
		Effects:   w.Effects,
		Splash:    w.Splash,
		LifeLeft:  m.secondsToTicks(w.Lifetime),
		FuseLeft:  -1,
		Pierces:   w.Pierces,
	}
	if w.Fuse > 0 {
		p.FuseLeft = m.secondsToTicks(w.Fuse)
	}

	mask := physics.CatPlayer | physics.CatObstacle | physics.CatUtility
	if w.Ordinance == OrdMine {
		// Mines sit still and arm in place; they trigger via their own
		// proximity field effect, not via contacts.
		vel = physics.Vec2{}
		mask = physics.CatObstacle
	}
	p.Body = m.world.AddBody(physics.BodySpec{
		Kind:  physics.Kinematic,
		Shape: physics.Circle{R: ProjectileRadius},
		Pos:   pos,
		Vel:   vel,
		Angle: dir.Angle(),
		Filter: physics.Filter{
			Category: physics.CatProjectile,
			Mask:     mask,
			Group:    uint64(owner.ID),
		},
		Owner: uint64(id),
	})
	m.reg.AddProjectile(p)
	return p
}

// stepProjectiles runs per-tick ordinance behavior before the physics step:
// lifetime/fuse countdown, homing steering, grenade drag, mine arming.
func (m *Match) stepProjectiles() {
	for _, p := range m.reg.Projectiles {
		if m.reg.Deferred(p.ID) {
			continue
		}
		p.LifeLeft--
		if p.FuseLeft > 0 {
			p.FuseLeft--
		}

		switch {
		case p.FuseLeft == 0:
			if p.Kind == OrdMine {
				// The fuse is the arming delay: the mine becomes a
				// proximity field effect and the round goes away.
				p.Armed = true
				m.spawnEffect(EffectProximityMine, m.world.Position(p.Body), p.Splash, p.LifeLeft, p.Owner, p.OwnerTeam, p.Damage)
				m.reg.Defer(p.ID)
			} else {
				// Fused ordinance detonates in place.
				m.explodeProjectile(p, m.world.Position(p.Body))
			}
			continue
		case p.LifeLeft <= 0:
			if p.Effects.Has(FxExplosive) && p.Kind != OrdMine {
				m.explodeProjectile(p, m.world.Position(p.Body))
			} else {
				m.reg.Defer(p.ID)
			}
			continue
		}

		if p.Kind == OrdGrenade {
			// Grenades lose speed so they come to rest before the fuse.
			v := m.world.Velocity(p.Body)
			m.world.SetVelocity(p.Body, v.Scale(0.96))
		}

		if p.Effects.Has(FxHoming) {
			m.steerHoming(p)
		}
	}
}

// homingCone is the half-angle within which a homing round acquires targets.
const homingCone = math.Pi / 3

// homingTurnRate is radians per tick of course correction.
const homingTurnRate = 0.08

// steerHoming bends the round toward the nearest enemy inside its cone.
func (m *Match) steerHoming(p *Projectile) {
	pos := m.world.Position(p.Body)
	vel := m.world.Velocity(p.Body)
	speed := vel.Len()
	if speed == 0 {
		return
	}
	heading := vel.Scale(1 / speed)

	var target *Player
	best := math.MaxFloat64
	for _, pl := range m.reg.Players {
		if !pl.Alive() || pl.ID == p.Owner {
			continue
		}
		if p.OwnerTeam != 0 && pl.Team == p.OwnerTeam {
			continue
		}
		to := m.world.Position(pl.Body).Sub(pos)
		d := to.Len()
		if d == 0 || d >= best {
			continue
		}
		if heading.Dot(to.Scale(1/d)) < math.Cos(homingCone) {
			continue
		}
		best = d
		target = pl
	}
	if target == nil {
		return
	}

	want := m.world.Position(target.Body).Sub(pos).Angle()
	have := heading.Angle()
	diff := math.Mod(want-have+3*math.Pi, 2*math.Pi) - math.Pi
	turn := math.Max(-homingTurnRate, math.Min(homingTurnRate, diff))
	newAngle := have + turn
	m.world.SetVelocity(p.Body, physics.FromAngle(newAngle).Scale(speed))
	m.world.SetAngle(p.Body, newAngle)
}

// explodeProjectile replaces a round with an explosion field effect and
// marks the round for removal.
func (m *Match) explodeProjectile(p *Projectile, at physics.Vec2) {
	radius := p.Splash
	if radius <= 0 {
		radius = 60
	}
	m.spawnEffect(EffectExplosion, at, radius, m.secondsToTicks(0.4), p.Owner, p.OwnerTeam, p.Damage)
	if p.Effects.Has(FxFragmenting) {
		m.spawnEffect(EffectFragmentation, at, radius*1.4, m.secondsToTicks(0.3), p.Owner, p.OwnerTeam, p.Damage*0.4)
	}
	m.reg.Defer(p.ID)
}
