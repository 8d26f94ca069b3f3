package physics

import "math"

// Shape is a collision volume attached to a body. Moving bodies are always
// circles; static geometry may be circles, axis-aligned rects or convex
// polygons. Compound obstacles are expressed as multiple bodies sharing an
// owner id.
type Shape interface {
	// halfExtents returns the half width/height of the axis-aligned
	// bounding box, used by the broadphase grid.
	halfExtents() (hw, hh float64)
}

// Circle is a circular shape with radius R.
type Circle struct {
	R float64
}

func (c Circle) halfExtents() (float64, float64) { return c.R, c.R }

// Rect is an axis-aligned rectangle with the given half extents.
type Rect struct {
	HalfW float64
	HalfH float64
}

func (r Rect) halfExtents() (float64, float64) { return r.HalfW, r.HalfH }

// Polygon is a convex polygon with counter-clockwise vertices relative to
// the body position.
type Polygon struct {
	Verts []Vec2
}

func (p Polygon) halfExtents() (float64, float64) {
	var hw, hh float64
	for _, v := range p.Verts {
		hw = math.Max(hw, math.Abs(v.X))
		hh = math.Max(hh, math.Abs(v.Y))
	}
	return hw, hh
}

// Triangle builds a polygon for an isoceles triangle pointing along +Y.
func Triangle(base, height float64) Polygon {
	return Polygon{Verts: []Vec2{
		{-base / 2, -height / 2},
		{base / 2, -height / 2},
		{0, height / 2},
	}}
}

// circleVsCircle returns penetration depth and normal from a into b when the
// two circles overlap.
func circleVsCircle(pa Vec2, ra float64, pb Vec2, rb float64) (depth float64, normal Vec2, point Vec2, hit bool) {
	d := pb.Sub(pa)
	distSq := d.LenSq()
	rsum := ra + rb
	if distSq >= rsum*rsum {
		return 0, Vec2{}, Vec2{}, false
	}
	dist := math.Sqrt(distSq)
	if dist == 0 {
		// Coincident centers: pick an arbitrary separation axis.
		return rsum, Vec2{1, 0}, pa, true
	}
	normal = d.Scale(1 / dist)
	point = pa.Add(normal.Scale(ra))
	return rsum - dist, normal, point, true
}

// circleVsRect tests a circle at pc against an axis-aligned rect centered at pr.
func circleVsRect(pc Vec2, r float64, pr Vec2, hw, hh float64) (depth float64, normal Vec2, point Vec2, hit bool) {
	// Closest point on the rect to the circle center.
	closest := Vec2{
		X: math.Max(pr.X-hw, math.Min(pr.X+hw, pc.X)),
		Y: math.Max(pr.Y-hh, math.Min(pr.Y+hh, pc.Y)),
	}
	d := closest.Sub(pc)
	distSq := d.LenSq()
	if distSq >= r*r {
		return 0, Vec2{}, Vec2{}, false
	}
	if distSq > 0 {
		dist := math.Sqrt(distSq)
		return r - dist, d.Scale(1 / dist), closest, true
	}
	// Center inside the rect: push out along the axis of least penetration.
	// The normal points from the circle into the rect, so separation moves
	// the circle out through the nearest face.
	dx := hw - math.Abs(pc.X-pr.X)
	dy := hh - math.Abs(pc.Y-pr.Y)
	if dx < dy {
		n := Vec2{-1, 0}
		if pc.X < pr.X {
			n.X = 1
		}
		return r + dx, n, pc, true
	}
	n := Vec2{0, -1}
	if pc.Y < pr.Y {
		n.Y = 1
	}
	return r + dy, n, pc, true
}

// circleVsPolygon tests a circle against a convex polygon at position pp.
func circleVsPolygon(pc Vec2, r float64, pp Vec2, poly Polygon) (depth float64, normal Vec2, point Vec2, hit bool) {
	n := len(poly.Verts)
	if n < 3 {
		return 0, Vec2{}, Vec2{}, false
	}
	// Find the closest point on the polygon boundary and whether the center
	// is inside.
	inside := true
	bestDistSq := math.MaxFloat64
	var bestPoint Vec2
	for i := 0; i < n; i++ {
		a := pp.Add(poly.Verts[i])
		b := pp.Add(poly.Verts[(i+1)%n])
		edge := b.Sub(a)
		toC := pc.Sub(a)
		if edge.Cross(toC) < 0 {
			inside = false
		}
		t := 0.0
		lenSq := edge.LenSq()
		if lenSq > 0 {
			t = math.Max(0, math.Min(1, toC.Dot(edge)/lenSq))
		}
		p := a.Add(edge.Scale(t))
		dSq := p.Sub(pc).LenSq()
		if dSq < bestDistSq {
			bestDistSq = dSq
			bestPoint = p
		}
	}
	dist := math.Sqrt(bestDistSq)
	if inside {
		// Normal from circle into the polygon; separation pushes the
		// circle out through the nearest edge.
		return r + dist, pc.Sub(bestPoint).Normalize(), bestPoint, true
	}
	if dist >= r {
		return 0, Vec2{}, Vec2{}, false
	}
	return r - dist, bestPoint.Sub(pc).Normalize(), bestPoint, true
}

// rayVsCircle intersects segment a->b with a circle. Returns the entry
// fraction along the segment.
func rayVsCircle(a, b Vec2, center Vec2, r float64) (frac float64, normal Vec2, hit bool) {
	d := b.Sub(a)
	f := a.Sub(center)
	A := d.LenSq()
	if A == 0 {
		return 0, Vec2{}, false
	}
	B := 2 * f.Dot(d)
	C := f.LenSq() - r*r
	disc := B*B - 4*A*C
	if disc < 0 {
		return 0, Vec2{}, false
	}
	sq := math.Sqrt(disc)
	t := (-B - sq) / (2 * A)
	if t < 0 || t > 1 {
		return 0, Vec2{}, false
	}
	p := a.Add(d.Scale(t))
	return t, p.Sub(center).Normalize(), true
}

// rayVsRect intersects segment a->b with an axis-aligned rect (slab method).
func rayVsRect(a, b Vec2, center Vec2, hw, hh float64) (frac float64, normal Vec2, hit bool) {
	d := b.Sub(a)
	tmin, tmax := 0.0, 1.0
	n := Vec2{}

	for axis := 0; axis < 2; axis++ {
		var origin, dir, lo, hi float64
		if axis == 0 {
			origin, dir, lo, hi = a.X, d.X, center.X-hw, center.X+hw
		} else {
			origin, dir, lo, hi = a.Y, d.Y, center.Y-hh, center.Y+hh
		}
		if dir == 0 {
			if origin < lo || origin > hi {
				return 0, Vec2{}, false
			}
			continue
		}
		t1 := (lo - origin) / dir
		t2 := (hi - origin) / dir
		sign := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1.0
		}
		if t1 > tmin {
			tmin = t1
			if axis == 0 {
				n = Vec2{sign, 0}
			} else {
				n = Vec2{0, sign}
			}
		}
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, Vec2{}, false
		}
	}
	if tmin <= 0 {
		// Segment starts inside the rect.
		return 0, Vec2{}, false
	}
	return tmin, n, true
}

// rayVsPolygon intersects segment a->b with a convex polygon at position pp.
func rayVsPolygon(a, b Vec2, pp Vec2, poly Polygon) (frac float64, normal Vec2, hit bool) {
	n := len(poly.Verts)
	best := math.MaxFloat64
	var bestN Vec2
	d := b.Sub(a)
	for i := 0; i < n; i++ {
		va := pp.Add(poly.Verts[i])
		vb := pp.Add(poly.Verts[(i+1)%n])
		edge := vb.Sub(va)
		denom := d.Cross(edge)
		if denom == 0 {
			continue
		}
		t := va.Sub(a).Cross(edge) / denom
		u := va.Sub(a).Cross(d) / denom
		if t < 0 || t > 1 || u < 0 || u > 1 {
			continue
		}
		if t < best {
			best = t
			en := edge.Perp().Normalize()
			// Face the normal against the ray.
			if en.Dot(d) > 0 {
				en = en.Scale(-1)
			}
			bestN = en
		}
	}
	if best == math.MaxFloat64 {
		return 0, Vec2{}, false
	}
	return best, bestN, true
}
