package game

import (
	"arena/internal/game/physics"
)

// BeamMode is how a beam applies damage.
type BeamMode string

const (
	// BeamInstant deals full damage once, on its first tick.
	BeamInstant BeamMode = "instant"
	// BeamDOT deals Damage per second while the beam is alive.
	BeamDOT BeamMode = "dot"
	// BeamBurst accumulates damage and releases it when the beam expires.
	BeamBurst BeamMode = "burst"
)

// Beam is a line entity. The endpoint is recomputed every tick against
// current obstacles and players, so a target stepping out of the line stops
// taking damage.
type Beam struct {
	ID        EntityID
	Owner     EntityID
	OwnerTeam int
	Mode      BeamMode
	Start     physics.Vec2
	Aim       physics.Vec2 // desired far endpoint
	End       physics.Vec2 // effective endpoint after the cast
	Damage    float64
	Pierce    bool
	DurLeft   int64
	charged   float64 // burst accumulator
}

// spawnBeam creates a beam from a player's position toward dir.
func (m *Match) spawnBeam(owner *Player, w Weapon, from physics.Vec2, dir physics.Vec2) *Beam {
	if m.reg.Count() >= m.cfg.Limits.MaxEntitiesPerMatch {
		return nil
	}
	mode := w.Beam
	if mode == "" {
		mode = BeamInstant
	}
	b := &Beam{
		ID:        m.reg.NewID(),
		Owner:     owner.ID,
		OwnerTeam: owner.Team,
		Mode:      mode,
		Start:     from,
		Aim:       from.Add(dir.Scale(w.Range)),
		End:       from.Add(dir.Scale(w.Range)),
		Damage:    w.Damage * m.cfg.Game.WeaponDamageMult * owner.Effective().DamageMult,
		Pierce:    w.Effects.Has(FxPiercing),
		DurLeft:   m.secondsToTicks(w.Lifetime),
	}
	if b.DurLeft < 1 {
		b.DurLeft = 1
	}
	m.reg.AddBeam(b)
	return b
}

// stepBeams recomputes each beam's endpoint and applies its damage model.
func (m *Match) stepBeams() {
	dt := 1.0 / float64(m.cfg.Game.TickRate)
	for _, b := range m.reg.Beams {
		if m.reg.Deferred(b.ID) {
			continue
		}
		// Beams attached to a live owner follow the owner's muzzle.
		if owner, ok := m.reg.Players[b.Owner]; ok && owner.Alive() {
			from := m.world.Position(owner.Body)
			dir := b.Aim.Sub(b.Start)
			if dir.LenSq() > 0 {
				b.Aim = from.Add(dir.Normalize().Scale(dir.Len()))
			}
			b.Start = from
		}

		victim := m.castBeam(b)
		if victim != nil && b.OwnerTeam != 0 && victim.Team == b.OwnerTeam {
			// Teammates clip the beam but never take its damage.
			victim = nil
		}
		switch b.Mode {
		case BeamInstant:
			if victim != nil && b.charged == 0 {
				m.damagePlayer(victim, b.Damage, b.Owner)
				b.charged = 1 // applied marker
			}
		case BeamDOT:
			if victim != nil {
				m.damagePlayer(victim, b.Damage*dt, b.Owner)
			}
		case BeamBurst:
			if victim != nil {
				b.charged += b.Damage * dt
			}
		}

		b.DurLeft--
		if b.DurLeft <= 0 {
			if b.Mode == BeamBurst && b.charged > 0 {
				if victim != nil {
					m.damagePlayer(victim, b.charged, b.Owner)
				}
			}
			m.reg.Defer(b.ID)
		}
	}
}

// castBeam raycasts from Start toward Aim, clipping End at the first solid
// hit, and returns the player struck, if any. Piercing beams pass through
// players and clip only on obstacles.
func (m *Match) castBeam(b *Beam) *Player {
	mask := physics.CatObstacle | physics.CatPlayer
	if b.Pierce {
		mask = physics.CatObstacle
	}
	b.End = b.Aim

	hit, ok := m.world.Raycast(b.Start, b.Aim, mask, uint64(b.Owner))
	var victim *Player
	if ok {
		b.End = hit.Point
		if pl, isP := m.reg.Players[EntityID(hit.Owner)]; isP && pl.Alive() {
			victim = pl
		}
	}
	if b.Pierce {
		// Find the nearest player along the clipped segment separately.
		if phit, pok := m.world.Raycast(b.Start, b.End, physics.CatPlayer, uint64(b.Owner)); pok {
			if pl, isP := m.reg.Players[EntityID(phit.Owner)]; isP && pl.Alive() {
				victim = pl
			}
		}
	}
	return victim
}
