// Package physics owns the per-match 2D rigid body world: kinematic circles
// for players/projectiles/pickups, static rects/circles/polygons for
// obstacles, and sensor volumes for zones and triggers. Broadphase is a
// uniform grid; narrowphase is circle-vs-shape. All mutation happens between
// steps on the match tick goroutine, so the world is not locked.
package physics

import "math"

// BodyID is a handle into the world. Zero is never assigned.
type BodyID uint32

// BodyKind determines how a body participates in the step.
type BodyKind uint8

const (
	// Static bodies never move and collide with kinematic bodies.
	Static BodyKind = iota
	// Kinematic bodies integrate velocity each step and collide.
	Kinematic
	// Sensor bodies report overlap but impose no positional correction.
	Sensor
)

// Category is a collision category bit. A pair collides when each body's
// mask includes the other's category.
type Category uint16

const (
	CatPlayer Category = 1 << iota
	CatProjectile
	CatObstacle
	CatZone
	CatPickup
	CatUtility

	CatAll Category = 0xffff
)

// Filter controls which body pairs may collide. Bodies sharing the same
// nonzero Group never collide; the engine sets Group to the owning player id
// so a player's own projectiles pass through them.
type Filter struct {
	Category Category
	Mask     Category
	Group    uint64
}

// BodySpec describes a body to add to the world.
type BodySpec struct {
	Kind   BodyKind
	Shape  Shape
	Pos    Vec2
	Vel    Vec2
	Angle  float64
	Filter Filter
	// Owner is the entity id this body belongs to. Contacts and query
	// results carry it back to the engine; the world never dereferences it.
	Owner uint64
}

type body struct {
	id     BodyID
	kind   BodyKind
	shape  Shape
	pos    Vec2
	vel    Vec2
	angle  float64
	filter Filter
	owner  uint64
	alive  bool
}

// Contact is a collision reported by Step. Contacts are buffered and
// consumed exactly once per tick via DrainContacts.
type Contact struct {
	A, B           BodyID
	OwnerA, OwnerB uint64
	Point          Vec2
	Normal         Vec2 // from A into B
	Sensor         bool // at least one body is a sensor
}

// Hit is the nearest raycast result.
type Hit struct {
	Body     BodyID
	Owner    uint64
	Point    Vec2
	Normal   Vec2
	Fraction float64
}

// World is a 2D physics world over a centered rectangle
// [-W/2, W/2] x [-H/2, H/2], Y-up.
type World struct {
	width, height float64
	bodies        map[BodyID]*body
	list          []*body // insertion order, for deterministic iteration
	nextID        BodyID
	broadphase    *grid
	contacts      []Contact
	pairSeen      map[uint64]struct{}
}

// Broadphase cell size. Matches the largest common query radius so most
// queries touch a handful of cells.
const defaultCellSize = 128.0

// NewWorld creates an empty world with the given dimensions in world units.
func NewWorld(width, height float64) *World {
	return &World{
		width:      width,
		height:     height,
		bodies:     make(map[BodyID]*body, 256),
		list:       make([]*body, 0, 256),
		broadphase: newGrid(width, height, defaultCellSize),
		contacts:   make([]Contact, 0, 128),
		pairSeen:   make(map[uint64]struct{}, 128),
	}
}

// Size returns the world dimensions.
func (w *World) Size() (width, height float64) { return w.width, w.height }

// AddBody inserts a body and returns its handle.
func (w *World) AddBody(spec BodySpec) BodyID {
	w.nextID++
	b := &body{
		id:     w.nextID,
		kind:   spec.Kind,
		shape:  spec.Shape,
		pos:    spec.Pos,
		vel:    spec.Vel,
		angle:  spec.Angle,
		filter: spec.Filter,
		owner:  spec.Owner,
		alive:  true,
	}
	w.bodies[b.id] = b
	w.list = append(w.list, b)
	// Insert immediately so queries work before the first Step; the grid is
	// rebuilt from scratch each Step anyway.
	hw, hh := b.shape.halfExtents()
	w.broadphase.insert(b.id, b.pos, hw, hh)
	return b.id
}

// RemoveBody releases a body. Safe to call with a stale handle.
func (w *World) RemoveBody(id BodyID) {
	if b, ok := w.bodies[id]; ok {
		b.alive = false
		delete(w.bodies, id)
	}
}

// Count returns the number of live bodies.
func (w *World) Count() int { return len(w.bodies) }

// Alive reports whether the handle refers to a live body.
func (w *World) Alive(id BodyID) bool {
	_, ok := w.bodies[id]
	return ok
}

// Position returns a body's position, or the zero vector for a stale handle.
func (w *World) Position(id BodyID) Vec2 {
	if b, ok := w.bodies[id]; ok {
		return b.pos
	}
	return Vec2{}
}

// SetPosition teleports a body.
func (w *World) SetPosition(id BodyID, p Vec2) {
	if b, ok := w.bodies[id]; ok {
		b.pos = p
	}
}

// Velocity returns a body's linear velocity.
func (w *World) Velocity(id BodyID) Vec2 {
	if b, ok := w.bodies[id]; ok {
		return b.vel
	}
	return Vec2{}
}

// SetVelocity sets a body's linear velocity.
func (w *World) SetVelocity(id BodyID, v Vec2) {
	if b, ok := w.bodies[id]; ok {
		b.vel = v
	}
}

// Angle returns a body's rotation in radians.
func (w *World) Angle(id BodyID) float64 {
	if b, ok := w.bodies[id]; ok {
		return b.angle
	}
	return 0
}

// SetAngle sets a body's rotation.
func (w *World) SetAngle(id BodyID, a float64) {
	if b, ok := w.bodies[id]; ok {
		b.angle = a
	}
}

// Owner returns the entity id attached to a body, or zero.
func (w *World) Owner(id BodyID) uint64 {
	if b, ok := w.bodies[id]; ok {
		return b.owner
	}
	return 0
}

// Step advances all kinematic bodies by dt seconds, rebuilds the broadphase
// and collects contacts. Positional overlap between solid pairs is resolved
// by pushing bodies apart (statics never move).
func (w *World) Step(dt float64) {
	w.compact()

	// Integrate.
	for _, b := range w.list {
		if b.kind != Kinematic {
			continue
		}
		b.pos = b.pos.Add(b.vel.Scale(dt))
		w.clampToBounds(b)
	}

	// Rebuild broadphase.
	w.broadphase.clear()
	for _, b := range w.list {
		hw, hh := b.shape.halfExtents()
		w.broadphase.insert(b.id, b.pos, hw, hh)
	}

	// Narrowphase: moving circles against everything their filter allows.
	clear(w.pairSeen)
	for _, a := range w.list {
		if a.kind == Static {
			continue
		}
		ca, okA := a.shape.(Circle)
		if !okA {
			continue // moving bodies are circles; sensor polys are tested from the circle side
		}
		hw, hh := a.shape.halfExtents()
		min := Vec2{a.pos.X - hw, a.pos.Y - hh}
		max := Vec2{a.pos.X + hw, a.pos.Y + hh}
		for _, bid := range w.broadphase.queryAABB(min, max) {
			if bid == a.id {
				continue
			}
			b, ok := w.bodies[bid]
			if !ok {
				continue
			}
			if !pairAllowed(a.filter, b.filter) {
				continue
			}
			key := pairKey(a.id, b.id)
			if _, seen := w.pairSeen[key]; seen {
				continue
			}
			w.pairSeen[key] = struct{}{}

			depth, normal, point, hit := w.testCircle(a.pos, ca.R, b)
			if !hit {
				continue
			}
			sensor := a.kind == Sensor || b.kind == Sensor
			w.contacts = append(w.contacts, Contact{
				A: a.id, B: b.id,
				OwnerA: a.owner, OwnerB: b.owner,
				Point:  point,
				Normal: normal,
				Sensor: sensor,
			})
			if sensor {
				continue
			}
			w.separate(a, b, depth, normal)
		}
	}
}

// DrainContacts returns the contacts gathered by the last Step and clears
// the buffer. The returned slice is valid until the next Step.
func (w *World) DrainContacts() []Contact {
	out := w.contacts
	w.contacts = w.contacts[len(w.contacts):]
	if cap(w.contacts) == 0 {
		w.contacts = make([]Contact, 0, 128)
	}
	return out
}

// Raycast finds the nearest hit along segment a->b among bodies whose
// category is in mask. Bodies whose filter group equals exclude are skipped.
func (w *World) Raycast(a, b Vec2, mask Category, exclude uint64) (Hit, bool) {
	min := Vec2{math.Min(a.X, b.X), math.Min(a.Y, b.Y)}
	max := Vec2{math.Max(a.X, b.X), math.Max(a.Y, b.Y)}

	best := Hit{Fraction: math.MaxFloat64}
	found := false
	for _, bid := range w.broadphase.queryAABB(min, max) {
		bd, ok := w.bodies[bid]
		if !ok || bd.filter.Category&mask == 0 {
			continue
		}
		if exclude != 0 && bd.filter.Group == exclude {
			continue
		}
		var frac float64
		var normal Vec2
		var hit bool
		switch s := bd.shape.(type) {
		case Circle:
			frac, normal, hit = rayVsCircle(a, b, bd.pos, s.R)
		case Rect:
			frac, normal, hit = rayVsRect(a, b, bd.pos, s.HalfW, s.HalfH)
		case Polygon:
			frac, normal, hit = rayVsPolygon(a, b, bd.pos, s)
		}
		if hit && frac < best.Fraction {
			best = Hit{
				Body:     bd.id,
				Owner:    bd.owner,
				Point:    a.Add(b.Sub(a).Scale(frac)),
				Normal:   normal,
				Fraction: frac,
			}
			found = true
		}
	}
	return best, found
}

// OverlapCircle returns the bodies whose shapes intersect the circle (p, r)
// and whose category is in mask. Results are in insertion order.
func (w *World) OverlapCircle(p Vec2, r float64, mask Category) []BodyID {
	min := Vec2{p.X - r, p.Y - r}
	max := Vec2{p.X + r, p.Y + r}

	var out []BodyID
	seen := make(map[BodyID]struct{}, 8)
	for _, bid := range w.broadphase.queryAABB(min, max) {
		if _, dup := seen[bid]; dup {
			continue
		}
		seen[bid] = struct{}{}
		b, ok := w.bodies[bid]
		if !ok || b.filter.Category&mask == 0 {
			continue
		}
		if _, _, _, hit := w.testCircle(p, r, b); hit {
			out = append(out, bid)
		}
	}
	return out
}

// testCircle runs the narrowphase for a circle at pos against body b.
func (w *World) testCircle(pos Vec2, r float64, b *body) (depth float64, normal Vec2, point Vec2, hit bool) {
	switch s := b.shape.(type) {
	case Circle:
		return circleVsCircle(pos, r, b.pos, s.R)
	case Rect:
		return circleVsRect(pos, r, b.pos, s.HalfW, s.HalfH)
	case Polygon:
		return circleVsPolygon(pos, r, b.pos, s)
	}
	return 0, Vec2{}, Vec2{}, false
}

// separate pushes overlapping solid bodies apart. Statics hold their ground.
func (w *World) separate(a, b *body, depth float64, normal Vec2) {
	if b.kind == Static {
		a.pos = a.pos.Sub(normal.Scale(depth))
		w.clampToBounds(a)
		return
	}
	half := normal.Scale(depth * 0.5)
	a.pos = a.pos.Sub(half)
	b.pos = b.pos.Add(half)
	w.clampToBounds(a)
	w.clampToBounds(b)
}

func (w *World) clampToBounds(b *body) {
	hw, hh := b.shape.halfExtents()
	b.pos = b.pos.Clamp(
		Vec2{-w.width/2 + hw, -w.height/2 + hh},
		Vec2{w.width/2 - hw, w.height/2 - hh},
	)
}

// compact drops removed bodies from the iteration list.
func (w *World) compact() {
	n := 0
	for _, b := range w.list {
		if b.alive {
			w.list[n] = b
			n++
		}
	}
	w.list = w.list[:n]
}

func pairAllowed(a, b Filter) bool {
	if a.Group != 0 && a.Group == b.Group {
		return false
	}
	return a.Mask&b.Category != 0 && b.Mask&a.Category != 0
}

func pairKey(a, b BodyID) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}
