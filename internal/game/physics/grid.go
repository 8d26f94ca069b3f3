// Broadphase grid: fixed-size cells over the world rectangle, preallocated
// slices of body handles (not pointers) to keep GC pressure low. The world
// is centered on the origin, so coordinates are offset before indexing.
package physics

import "math"

type grid struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	originX     float64 // world-space position of cell (0,0)
	originY     float64
	cells       [][]BodyID
	scratch     []BodyID
}

func newGrid(worldWidth, worldHeight, cellSize float64) *grid {
	cols := int(math.Ceil(worldWidth / cellSize))
	rows := int(math.Ceil(worldHeight / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]BodyID, cols*rows)
	for i := range cells {
		cells[i] = make([]BodyID, 0, 8)
	}

	return &grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		originX:     -worldWidth / 2,
		originY:     -worldHeight / 2,
		cells:       cells,
		scratch:     make([]BodyID, 0, 64),
	}
}

// clear resets all cells, keeping capacity.
func (g *grid) clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *grid) cellAt(x, y float64) (col, row int) {
	col = int((x - g.originX) * g.invCellSize)
	row = int((y - g.originY) * g.invCellSize)
	if col < 0 {
		col = 0
	}
	if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// insert adds a body over the cell range covered by its AABB. Bodies larger
// than one cell land in every cell they touch, so queries stay exact.
func (g *grid) insert(id BodyID, pos Vec2, hw, hh float64) {
	c0, r0 := g.cellAt(pos.X-hw, pos.Y-hh)
	c1, r1 := g.cellAt(pos.X+hw, pos.Y+hh)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			idx := row*g.cols + col
			g.cells[idx] = append(g.cells[idx], id)
		}
	}
}

// queryAABB returns candidate body handles whose cells intersect the AABB.
// The result is a reused scratch buffer, valid until the next query; it may
// contain duplicates for multi-cell bodies.
func (g *grid) queryAABB(min, max Vec2) []BodyID {
	g.scratch = g.scratch[:0]
	c0, r0 := g.cellAt(min.X, min.Y)
	c1, r1 := g.cellAt(max.X, max.Y)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}
