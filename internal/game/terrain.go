package game

import (
	"math"
	"math/rand"

	"arena/internal/game/physics"
)

// ObstacleShape is the wire-visible shape category.
type ObstacleShape string

const (
	ObstacleCircle   ObstacleShape = "circle"
	ObstacleRect     ObstacleShape = "rect"
	ObstacleTriangle ObstacleShape = "triangle"
	ObstacleCompound ObstacleShape = "compound"
)

// Obstacle is static terrain or a player-placed barrier. Compound obstacles
// own extra physics bodies beyond Body.
type Obstacle struct {
	ID           EntityID
	Shape        ObstacleShape
	Pos          physics.Vec2
	W, H         float64 // rect full extents, or 2R for circles
	Destructible bool
	Health       float64
	MaxHealth    float64
	Owner        EntityID // placing player for barriers; zero for terrain
	ExpiresAt    int64    // barrier timer; 0 = never
	Body         physics.BodyID
	extraBodies  []physics.BodyID
}

// Biome names the generated map flavor, carried in initial state so the
// client can theme the floor.
type Biome string

var biomes = []Biome{"grass", "desert", "snow", "volcanic"}

// Terrain is the pre-match seeding output: biome plus obstacle layout.
type Terrain struct {
	Seed  int64
	Biome Biome
}

// valueNoise2D is deterministic hash noise in [0,1) for obstacle placement.
func valueNoise2D(seed int64, x, y int) float64 {
	h := uint64(seed) ^ uint64(x)*0x9e3779b97f4a7c15 ^ uint64(y)*0xc2b2ae3d27d4eb4f
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return float64(h%10000) / 10000
}

// generateTerrain seeds the world's obstacle set. Placement samples value
// noise on a coarse lattice so layouts are reproducible from the seed alone;
// the center and team spawn areas are kept clear.
func (m *Match) generateTerrain(seed int64) Terrain {
	rng := rand.New(rand.NewSource(seed))
	t := Terrain{Seed: seed, Biome: biomes[rng.Intn(len(biomes))]}

	w, h := m.world.Size()
	const cell = 200.0
	nx := int(w / cell)
	ny := int(h / cell)

	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			n := valueNoise2D(seed, ix, iy)
			if n < 0.62 {
				continue
			}
			pos := physics.Vec(
				-w/2+cell*(float64(ix)+0.5)+(-0.5+rng.Float64())*cell*0.4,
				-h/2+cell*(float64(iy)+0.5)+(-0.5+rng.Float64())*cell*0.4,
			)
			// Keep the arena center and the spawn margins open.
			if pos.Len() < 220 || math.Abs(pos.X) > w/2-160 {
				continue
			}
			switch {
			case n > 0.9:
				m.addCompoundObstacle(pos, rng)
			case n > 0.8:
				m.addObstacle(ObstacleCircle, pos, 30+rng.Float64()*30, 0, rng.Float64() < 0.3)
			case n > 0.7:
				m.addObstacle(ObstacleRect, pos, 50+rng.Float64()*70, 40+rng.Float64()*50, rng.Float64() < 0.3)
			default:
				m.addObstacle(ObstacleTriangle, pos, 50+rng.Float64()*40, 50+rng.Float64()*40, false)
			}
		}
	}
	return t
}

const destructibleHealth = 80.0

// addObstacle places one static obstacle. Circles use W as diameter.
func (m *Match) addObstacle(shape ObstacleShape, pos physics.Vec2, w, h float64, destructible bool) *Obstacle {
	o := &Obstacle{
		ID:           m.reg.NewID(),
		Shape:        shape,
		Pos:          pos,
		W:            w,
		H:            h,
		Destructible: destructible,
	}
	if destructible {
		o.Health = destructibleHealth
		o.MaxHealth = destructibleHealth
	}
	var s physics.Shape
	switch shape {
	case ObstacleCircle:
		s = physics.Circle{R: w / 2}
	case ObstacleTriangle:
		s = physics.Triangle(w, h)
	default:
		s = physics.Rect{HalfW: w / 2, HalfH: h / 2}
	}
	o.Body = m.world.AddBody(physics.BodySpec{
		Kind:   physics.Static,
		Shape:  s,
		Pos:    pos,
		Filter: physics.Filter{Category: physics.CatObstacle, Mask: physics.CatAll},
		Owner:  uint64(o.ID),
	})
	m.reg.AddObstacle(o)
	return o
}

// addCompoundObstacle builds an L-shaped wall from two rect bodies sharing
// one obstacle id.
func (m *Match) addCompoundObstacle(pos physics.Vec2, rng *rand.Rand) *Obstacle {
	long := 120 + rng.Float64()*80
	thick := 30.0
	o := m.addObstacle(ObstacleCompound, pos, long, thick, false)
	arm := m.world.AddBody(physics.BodySpec{
		Kind:   physics.Static,
		Shape:  physics.Rect{HalfW: thick / 2, HalfH: long / 2},
		Pos:    pos.Add(physics.Vec(long/2-thick/2, long/2)),
		Filter: physics.Filter{Category: physics.CatObstacle, Mask: physics.CatAll},
		Owner:  uint64(o.ID),
	})
	o.extraBodies = append(o.extraBodies, arm)
	return o
}

// placeBarrier deploys a destructible player barrier in front of the owner.
func (m *Match) placeBarrier(owner *Player, at physics.Vec2, lifetime int64) *Obstacle {
	if m.reg.Count() >= m.cfg.Limits.MaxEntitiesPerMatch {
		return nil
	}
	o := m.addObstacle(ObstacleRect, at, 70, 18, true)
	o.Owner = owner.ID
	o.ExpiresAt = m.tick + lifetime
	m.world.SetAngle(o.Body, owner.Rotation)
	return o
}

// damageObstacle applies damage to a destructible obstacle.
func (m *Match) damageObstacle(o *Obstacle, dmg float64) {
	if !o.Destructible || m.reg.Deferred(o.ID) {
		return
	}
	o.Health -= dmg
	if o.Health <= 0 {
		o.Health = 0
		m.reg.Defer(o.ID)
	}
}

// stepObstacles expires timed barriers.
func (m *Match) stepObstacles() {
	for _, o := range m.reg.Obstacles {
		if o.ExpiresAt != 0 && m.tick >= o.ExpiresAt {
			m.reg.Defer(o.ID)
		}
	}
}
