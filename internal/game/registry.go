package game

// EntityID identifies any entity within one match. Zero is reserved and
// never assigned; ids are monotone for the lifetime of the match.
type EntityID uint64

// EntityKind tags the typed collection an id lives in.
type EntityKind uint8

const (
	KindNone EntityKind = iota
	KindPlayer
	KindProjectile
	KindObstacle
	KindBeam
	KindEffect
	KindTurret
	KindPad
	KindLaser
	KindPickup
	KindFlag
	KindZone
	KindWorkshop
	KindHQ
)

// Registry holds every live entity of a match in typed maps, with a
// cross-kind index so contacts can be resolved from owner ids alone.
// All mutation happens on the match tick goroutine. Removals requested
// mid-tick are deferred and flushed at the documented point so iteration
// stays safe.
type Registry struct {
	Players     map[EntityID]*Player
	Projectiles map[EntityID]*Projectile
	Obstacles   map[EntityID]*Obstacle
	Beams       map[EntityID]*Beam
	Effects     map[EntityID]*FieldEffect
	Turrets     map[EntityID]*Turret
	Pads        map[EntityID]*TeleportPad
	Lasers      map[EntityID]*DefenseLaser
	Pickups     map[EntityID]*Pickup
	Flags       map[EntityID]*Flag
	Zones       map[EntityID]*Zone
	Workshops   map[EntityID]*Workshop
	HQs         map[EntityID]*Headquarters

	kinds   map[EntityID]EntityKind
	nextID  EntityID
	pending map[EntityID]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Players:     make(map[EntityID]*Player),
		Projectiles: make(map[EntityID]*Projectile),
		Obstacles:   make(map[EntityID]*Obstacle),
		Beams:       make(map[EntityID]*Beam),
		Effects:     make(map[EntityID]*FieldEffect),
		Turrets:     make(map[EntityID]*Turret),
		Pads:        make(map[EntityID]*TeleportPad),
		Lasers:      make(map[EntityID]*DefenseLaser),
		Pickups:     make(map[EntityID]*Pickup),
		Flags:       make(map[EntityID]*Flag),
		Zones:       make(map[EntityID]*Zone),
		Workshops:   make(map[EntityID]*Workshop),
		HQs:         make(map[EntityID]*Headquarters),
		kinds:       make(map[EntityID]EntityKind),
		pending:     make(map[EntityID]struct{}),
	}
}

// NewID allocates a fresh id. Never returns zero.
func (r *Registry) NewID() EntityID {
	r.nextID++
	return r.nextID
}

// Kind returns the kind of an id, or KindNone for unknown ids.
func (r *Registry) Kind(id EntityID) EntityKind { return r.kinds[id] }

// Count returns the number of live entities across all kinds.
func (r *Registry) Count() int { return len(r.kinds) }

func (r *Registry) AddPlayer(p *Player) {
	r.Players[p.ID] = p
	r.kinds[p.ID] = KindPlayer
}

func (r *Registry) AddProjectile(p *Projectile) {
	r.Projectiles[p.ID] = p
	r.kinds[p.ID] = KindProjectile
}

func (r *Registry) AddObstacle(o *Obstacle) {
	r.Obstacles[o.ID] = o
	r.kinds[o.ID] = KindObstacle
}

func (r *Registry) AddBeam(b *Beam) {
	r.Beams[b.ID] = b
	r.kinds[b.ID] = KindBeam
}

func (r *Registry) AddEffect(e *FieldEffect) {
	r.Effects[e.ID] = e
	r.kinds[e.ID] = KindEffect
}

func (r *Registry) AddTurret(t *Turret) {
	r.Turrets[t.ID] = t
	r.kinds[t.ID] = KindTurret
}

func (r *Registry) AddPad(p *TeleportPad) {
	r.Pads[p.ID] = p
	r.kinds[p.ID] = KindPad
}

func (r *Registry) AddLaser(l *DefenseLaser) {
	r.Lasers[l.ID] = l
	r.kinds[l.ID] = KindLaser
}

func (r *Registry) AddPickup(p *Pickup) {
	r.Pickups[p.ID] = p
	r.kinds[p.ID] = KindPickup
}

func (r *Registry) AddFlag(f *Flag) {
	r.Flags[f.ID] = f
	r.kinds[f.ID] = KindFlag
}

func (r *Registry) AddZone(z *Zone) {
	r.Zones[z.ID] = z
	r.kinds[z.ID] = KindZone
}

func (r *Registry) AddWorkshop(w *Workshop) {
	r.Workshops[w.ID] = w
	r.kinds[w.ID] = KindWorkshop
}

func (r *Registry) AddHQ(h *Headquarters) {
	r.HQs[h.ID] = h
	r.kinds[h.ID] = KindHQ
}

// Defer marks an entity for removal at the next Flush. Safe to call while
// iterating any typed map; repeated calls are idempotent.
func (r *Registry) Defer(id EntityID) {
	if _, ok := r.kinds[id]; ok {
		r.pending[id] = struct{}{}
	}
}

// Deferred reports whether an id is already marked for removal.
func (r *Registry) Deferred(id EntityID) bool {
	_, ok := r.pending[id]
	return ok
}

// Flush drops every deferred entity from its typed map and invokes release
// for each so the caller can free physics handles. Returns the number of
// entities removed.
func (r *Registry) Flush(release func(kind EntityKind, id EntityID)) int {
	n := len(r.pending)
	for id := range r.pending {
		kind := r.kinds[id]
		if release != nil {
			release(kind, id)
		}
		r.remove(kind, id)
		delete(r.pending, id)
	}
	return n
}

// Remove drops an entity immediately. Only safe outside typed-map iteration;
// inside the tick use Defer.
func (r *Registry) Remove(id EntityID) {
	kind, ok := r.kinds[id]
	if !ok {
		return
	}
	r.remove(kind, id)
	delete(r.pending, id)
}

func (r *Registry) remove(kind EntityKind, id EntityID) {
	switch kind {
	case KindPlayer:
		delete(r.Players, id)
	case KindProjectile:
		delete(r.Projectiles, id)
	case KindObstacle:
		delete(r.Obstacles, id)
	case KindBeam:
		delete(r.Beams, id)
	case KindEffect:
		delete(r.Effects, id)
	case KindTurret:
		delete(r.Turrets, id)
	case KindPad:
		delete(r.Pads, id)
	case KindLaser:
		delete(r.Lasers, id)
	case KindPickup:
		delete(r.Pickups, id)
	case KindFlag:
		delete(r.Flags, id)
	case KindZone:
		delete(r.Zones, id)
	case KindWorkshop:
		delete(r.Workshops, id)
	case KindHQ:
		delete(r.HQs, id)
	}
	delete(r.kinds, id)
}
