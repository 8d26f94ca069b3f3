package game

import (
	"arena/internal/game/physics"
)

// PlayerRadius is the circle radius of a player body in world units.
const PlayerRadius = 16.0

// WeaponSlot selects the active weapon.
type WeaponSlot uint8

const (
	SlotPrimary WeaponSlot = iota
	SlotUtility
)

// Player is a human or AI participant in one match. Exactly one physics
// body exists while the player is active; between death and respawn the
// player is physically absent and Body is zero.
type Player struct {
	ID   EntityID
	Name string
	Team int // 0 = FFA
	IsAI bool

	Body physics.BodyID // zero while dead

	Health     float64
	MaxHealth  float64
	Lives      int // <0 = unlimited
	Eliminated bool

	Primary    WeaponState
	Utility    WeaponState
	ActiveSlot WeaponSlot

	Kills    int
	Deaths   int
	Captures int
	Score    int

	// RespawnAt is the tick at which the player re-enters the world;
	// zero when alive or eliminated.
	RespawnAt int64

	ProtectedUntil int64 // spawn protection expiry tick

	Mods []Modification
	Base Attributes

	// CarriedFlag is the id of the flag this player carries, or zero.
	CarriedFlag EntityID

	// Aim is the last world-space cursor position.
	Aim      physics.Vec2
	Rotation float64

	mailbox Mailbox
	// intent is the input applied this tick (human mailbox or AI).
	intent Input

	ai *aiController // nil for humans
}

// Alive reports whether the player currently has a body in the world.
func (p *Player) Alive() bool { return p.Body != 0 && !p.Eliminated }

// Effective returns the player's attributes after modifications.
func (p *Player) Effective() Attributes {
	if len(p.Mods) == 0 {
		return p.Base
	}
	return Compose(p.Base, p.Mods)
}

// AddMod attaches a modification. Mutated only inside the match tick.
func (p *Player) AddMod(m Modification) {
	p.Mods = append(p.Mods, m)
}

// RemoveModsFrom drops all modifications with the given source.
func (p *Player) RemoveModsFrom(source string) {
	n := 0
	for _, m := range p.Mods {
		if m.Source == source {
			continue
		}
		p.Mods[n] = m
		n++
	}
	p.Mods = p.Mods[:n]
}

// RefreshMod replaces any modification with the same attribute and source,
// or appends. Used by field effects that re-apply their status every tick.
func (p *Player) RefreshMod(m Modification) {
	for i := range p.Mods {
		if p.Mods[i].Attr == m.Attr && p.Mods[i].Source == m.Source {
			p.Mods[i] = m
			return
		}
	}
	p.Mods = append(p.Mods, m)
}

// ActiveWeapon returns the weapon state for the selected slot.
func (p *Player) ActiveWeapon() *WeaponState {
	if p.ActiveSlot == SlotUtility {
		return &p.Utility
	}
	return &p.Primary
}

// SubmitInput stores intent in the player's mailbox. Safe to call from the
// session goroutine while the tick runs.
func (p *Player) SubmitInput(in Input) {
	p.mailbox.Put(in)
}

// PlayerMeta is what a session supplies when joining a match.
type PlayerMeta struct {
	Name          string
	Team          int
	IsAI          bool
	WeaponConfig  WeaponKind
	UtilityWeapon WeaponKind
}
