package game

import (
	"math"

	"arena/internal/game/physics"
)

// Turret is a deployed auto-firing gun. It acquires the nearest visible
// enemy of its owner and fires bullets at a fixed cadence.
type Turret struct {
	ID        EntityID
	Owner     EntityID
	OwnerTeam int
	Body      physics.BodyID
	Health    float64
	MaxHealth float64
	Aim       float64 // radians
	Range     float64
	Damage    float64
	FireEvery int64 // ticks between shots
	NextFire  int64
	ExpiresAt int64
}

// TeleportPad is one half of a linked pair. A player standing on a charged
// pad is moved to the linked pad; the pair then recharges.
type TeleportPad struct {
	ID        EntityID
	Owner     EntityID
	Linked    EntityID
	Body      physics.BodyID
	Pos       physics.Vec2
	ReadyAt   int64 // tick when the pad can fire again
	ExpiresAt int64
}

// DefenseLaser sweeps a rotating beam around its anchor, damaging enemies
// the beam crosses.
type DefenseLaser struct {
	ID        EntityID
	Owner     EntityID
	OwnerTeam int
	Pos       physics.Vec2
	Angle     float64
	SpinRate  float64 // radians per tick
	Length    float64
	Damage    float64 // per second
	ExpiresAt int64
}

// PickupType is what a power-up grants on touch.
type PickupType string

const (
	PickupHealth PickupType = "health"
	PickupSpeed  PickupType = "speed"
	PickupDamage PickupType = "damage"
	PickupShield PickupType = "shield"
	PickupAmmo   PickupType = "ammo"
)

// Pickup is a touchable power-up, usually produced by a workshop.
type Pickup struct {
	ID       EntityID
	Type     PickupType
	Body     physics.BodyID
	Pos      physics.Vec2
	Workshop EntityID // producing workshop, or zero
}

const (
	turretRadius  = 14.0
	padRadius     = 24.0
	pickupRadius  = 12.0
	turretHealth  = 60.0
	turretRange   = 420.0
	turretDamage  = 6.0
	padCooldown   = 2.0 // seconds between teleports
	laserSpin     = 0.02
	laserLength   = 320.0
	laserDamage   = 30.0
	pickupModTime = 8.0 // seconds a pickup buff lasts
)

// deployTurret places a turret in front of the owner.
func (m *Match) deployTurret(owner *Player, at physics.Vec2, lifetime int64) *Turret {
	if m.reg.Count() >= m.cfg.Limits.MaxEntitiesPerMatch {
		return nil
	}
	id := m.reg.NewID()
	t := &Turret{
		ID:        id,
		Owner:     owner.ID,
		OwnerTeam: owner.Team,
		Health:    turretHealth,
		MaxHealth: turretHealth,
		Range:     turretRange,
		Damage:    turretDamage * m.cfg.Game.WeaponDamageMult,
		FireEvery: m.secondsToTicks(0.5),
		ExpiresAt: m.tick + lifetime,
	}
	t.Body = m.world.AddBody(physics.BodySpec{
		Kind:  physics.Static,
		Shape: physics.Circle{R: turretRadius},
		Pos:   at,
		Filter: physics.Filter{
			Category: physics.CatUtility,
			Mask:     physics.CatProjectile | physics.CatPlayer,
		},
		Owner: uint64(id),
	})
	m.reg.AddTurret(t)
	return t
}

// deployPadPair places two linked teleport pads: one at the owner's feet and
// one at the aim point.
func (m *Match) deployPadPair(owner *Player, from, to physics.Vec2, lifetime int64) (*TeleportPad, *TeleportPad) {
	if m.reg.Count()+1 >= m.cfg.Limits.MaxEntitiesPerMatch {
		return nil, nil
	}
	a := m.newPad(owner, from, lifetime)
	b := m.newPad(owner, to, lifetime)
	a.Linked, b.Linked = b.ID, a.ID
	return a, b
}

func (m *Match) newPad(owner *Player, at physics.Vec2, lifetime int64) *TeleportPad {
	id := m.reg.NewID()
	p := &TeleportPad{
		ID:        id,
		Owner:     owner.ID,
		Pos:       at,
		ReadyAt:   m.tick + m.secondsToTicks(1),
		ExpiresAt: m.tick + lifetime,
	}
	p.Body = m.world.AddBody(physics.BodySpec{
		Kind:   physics.Sensor,
		Shape:  physics.Circle{R: padRadius},
		Pos:    at,
		Filter: physics.Filter{Category: physics.CatUtility, Mask: physics.CatPlayer},
		Owner:  uint64(id),
	})
	m.reg.AddPad(p)
	return p
}

// deployLaser anchors a rotating defense laser at the given point.
func (m *Match) deployLaser(owner *Player, at physics.Vec2, lifetime int64) *DefenseLaser {
	if m.reg.Count() >= m.cfg.Limits.MaxEntitiesPerMatch {
		return nil
	}
	l := &DefenseLaser{
		ID:        m.reg.NewID(),
		Owner:     owner.ID,
		OwnerTeam: owner.Team,
		Pos:       at,
		SpinRate:  laserSpin,
		Length:    laserLength,
		Damage:    laserDamage * m.cfg.Game.WeaponDamageMult,
		ExpiresAt: m.tick + lifetime,
	}
	m.reg.AddLaser(l)
	return l
}

// spawnPickup drops a power-up at a position.
func (m *Match) spawnPickup(t PickupType, at physics.Vec2, workshop EntityID) *Pickup {
	if m.reg.Count() >= m.cfg.Limits.MaxEntitiesPerMatch {
		return nil
	}
	id := m.reg.NewID()
	p := &Pickup{ID: id, Type: t, Pos: at, Workshop: workshop}
	p.Body = m.world.AddBody(physics.BodySpec{
		Kind:   physics.Sensor,
		Shape:  physics.Circle{R: pickupRadius},
		Pos:    at,
		Filter: physics.Filter{Category: physics.CatPickup, Mask: physics.CatPlayer},
		Owner:  uint64(id),
	})
	m.reg.AddPickup(p)
	return p
}

// stepUtilities advances turret fire, laser sweep, and expiries. Runs
// pre-physics so spawned rounds integrate this tick.
func (m *Match) stepUtilities() {
	for _, t := range m.reg.Turrets {
		if m.reg.Deferred(t.ID) {
			continue
		}
		if m.tick >= t.ExpiresAt || t.Health <= 0 {
			m.reg.Defer(t.ID)
			continue
		}
		m.stepTurret(t)
	}
	for _, p := range m.reg.Pads {
		if m.tick >= p.ExpiresAt {
			m.reg.Defer(p.ID)
		}
	}
	for _, l := range m.reg.Lasers {
		if m.reg.Deferred(l.ID) {
			continue
		}
		if m.tick >= l.ExpiresAt {
			m.reg.Defer(l.ID)
			continue
		}
		m.stepLaser(l)
	}
}

// stepTurret aims at the nearest visible enemy and fires on cadence.
func (m *Match) stepTurret(t *Turret) {
	pos := m.world.Position(t.Body)
	var target *Player
	best := t.Range
	for _, pl := range m.reg.Players {
		if !pl.Alive() || pl.ID == t.Owner {
			continue
		}
		if t.OwnerTeam != 0 && pl.Team == t.OwnerTeam {
			continue
		}
		d := m.world.Position(pl.Body).DistanceTo(pos)
		if d >= best {
			continue
		}
		// Line of sight.
		if hit, ok := m.world.Raycast(pos, m.world.Position(pl.Body), physics.CatObstacle, 0); ok && hit.Fraction < 1 {
			continue
		}
		best = d
		target = pl
	}
	if target == nil {
		return
	}
	t.Aim = m.world.Position(target.Body).Sub(pos).Angle()
	if m.tick < t.NextFire {
		return
	}
	t.NextFire = m.tick + t.FireEvery

	owner := m.reg.Players[t.Owner]
	if owner == nil {
		return
	}
	w := GetWeapon("pistol")
	w.Damage = t.Damage
	dir := physics.FromAngle(t.Aim)
	m.spawnProjectile(owner, w, pos.Add(dir.Scale(turretRadius+ProjectileRadius+1)), dir)
}

// stepLaser advances the sweep and damages the first enemy on the beam.
func (m *Match) stepLaser(l *DefenseLaser) {
	l.Angle = math.Mod(l.Angle+l.SpinRate, 2*math.Pi)
	end := l.Pos.Add(physics.FromAngle(l.Angle).Scale(l.Length))
	hit, ok := m.world.Raycast(l.Pos, end, physics.CatPlayer|physics.CatObstacle, uint64(l.Owner))
	if !ok {
		return
	}
	pl, isP := m.reg.Players[EntityID(hit.Owner)]
	if !isP || !pl.Alive() {
		return
	}
	if l.OwnerTeam != 0 && pl.Team == l.OwnerTeam {
		return
	}
	dt := 1.0 / float64(m.cfg.Game.TickRate)
	m.damagePlayer(pl, l.Damage*dt, l.Owner)
}

// applyPickup grants a power-up to the toucher and removes it.
func (m *Match) applyPickup(p *Pickup, pl *Player) {
	dur := m.secondsToTicks(pickupModTime)
	src := "pickup:" + string(p.Type)
	switch p.Type {
	case PickupHealth:
		pl.Health = min(pl.MaxHealth, pl.Health+40)
	case PickupSpeed:
		pl.RefreshMod(Modification{Attr: AttrMoveSpeed, Op: OpMul, Value: 1.4, ExpiresAt: m.tick + dur, Source: src})
	case PickupDamage:
		pl.RefreshMod(Modification{Attr: AttrDamageMult, Op: OpMul, Value: 1.5, ExpiresAt: m.tick + dur, Source: src})
	case PickupShield:
		pl.RefreshMod(Modification{Attr: AttrInvulnerable, Op: OpSet, Value: 1, ExpiresAt: m.tick + m.secondsToTicks(3), Source: src})
	case PickupAmmo:
		pl.Primary.Magazine = pl.Primary.Weapon.MagazineSize
		pl.Utility.Magazine = pl.Utility.Weapon.MagazineSize
	}
	if ws, ok := m.reg.Workshops[p.Workshop]; ok && ws.LivePickups > 0 {
		ws.LivePickups--
	}
	m.reg.Defer(p.ID)
}
