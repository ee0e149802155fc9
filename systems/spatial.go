package systems

import "math"

// Neighbor is one agent found within a query radius, along with the
// kinematic state the force model reads. DX and DY point from the query
// position toward the neighbor, along the shortest path in wrap mode.
type Neighbor struct {
	Index  int32
	DX     float32
	DY     float32
	DistSq float32
	VX     float32
	VY     float32
	Panic  float32
}

// gridEntry is one inserted agent. Entries copy the state neighbors
// need so query results never touch shared component storage.
type gridEntry struct {
	index int32
	x, y  float32
	vx    float32
	vy    float32
	panic float32
}

// SpatialGrid is a uniform grid over agent indices, cleared and fully
// rebuilt every substep. Queries return supersets of cells followed by
// an exact squared-distance filter, so results match a brute-force scan.
type SpatialGrid struct {
	cellSize float32
	cols     int
	rows     int
	width    float32
	height   float32
	wrap     bool
	cells    [][]gridEntry
}

// NewSpatialGrid creates a grid covering width x height. Cell size
// should match the perception radius so queries touch at most nine
// cells in the common case.
func NewSpatialGrid(width, height, cellSize float32, wrap bool) *SpatialGrid {
	g := &SpatialGrid{wrap: wrap}
	g.Resize(width, height, cellSize)
	return g
}

// Resize reallocates the bucket array for new world dimensions or a new
// cell size. Existing entries are discarded; the grid is rebuilt next
// substep anyway. The last cell on each axis absorbs any remainder, so
// every cell spans at least cellSize and the column count maps cleanly
// onto the world in wrap mode.
func (g *SpatialGrid) Resize(width, height, cellSize float32) {
	if cellSize <= 0 {
		cellSize = 1
	}
	g.cellSize = cellSize
	g.width = width
	g.height = height
	g.cols = int(width / cellSize)
	g.rows = int(height / cellSize)
	if g.cols < 1 {
		g.cols = 1
	}
	if g.rows < 1 {
		g.rows = 1
	}
	g.cells = make([][]gridEntry, g.cols*g.rows)
}

// CellSize returns the current cell edge length.
func (g *SpatialGrid) CellSize() float32 {
	return g.cellSize
}

// SetWrap switches between toroidal and bounded query semantics.
func (g *SpatialGrid) SetWrap(wrap bool) {
	g.wrap = wrap
}

// Clear empties all buckets, retaining capacity for the next rebuild.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert appends an agent to the bucket for its position. Out-of-range
// positions clamp to the border cell.
func (g *SpatialGrid) Insert(index int32, x, y, vx, vy, panicLevel float32) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], gridEntry{
		index: index,
		x:     x,
		y:     y,
		vx:    vx,
		vy:    vy,
		panic: panicLevel,
	})
}

// cellIndex maps a position to a bucket, clamping to the grid edges.
func (g *SpatialGrid) cellIndex(x, y float32) int {
	col := int(x / g.cellSize)
	row := int(y / g.cellSize)
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return row*g.cols + col
}

// CandidatesInto appends to dst the indices of every agent in cells
// intersecting the radius around (x, y). This is a superset of the
// agents actually in range; dst is reused to avoid allocation.
func (g *SpatialGrid) CandidatesInto(dst []int32, x, y, radius float32) []int32 {
	if radius <= 0 {
		return dst
	}
	spanC, spanR, startC, startR := g.querySpan(x, y, radius)
	for i := 0; i < spanC; i++ {
		col, ok := g.wrapCol(startC + i)
		if !ok {
			continue
		}
		for j := 0; j < spanR; j++ {
			row, ok := g.wrapRow(startR + j)
			if !ok {
				continue
			}
			cell := g.cells[row*g.cols+col]
			for k := range cell {
				dst = append(dst, cell[k].index)
			}
		}
	}
	return dst
}

// QueryRadiusInto appends to dst every agent within radius of (x, y),
// excluding the given index, filtered by exact squared distance. dst is
// caller-owned scratch reused across calls.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float32, exclude int32) []Neighbor {
	if radius <= 0 {
		return dst
	}
	radiusSq := radius * radius
	spanC, spanR, startC, startR := g.querySpan(x, y, radius)

	for i := 0; i < spanC; i++ {
		col, ok := g.wrapCol(startC + i)
		if !ok {
			continue
		}
		for j := 0; j < spanR; j++ {
			row, ok := g.wrapRow(startR + j)
			if !ok {
				continue
			}
			cell := g.cells[row*g.cols+col]
			for k := range cell {
				e := &cell[k]
				if e.index == exclude {
					continue
				}
				dx := e.x - x
				dy := e.y - y
				if g.wrap {
					dx = ToroidalDelta(dx, g.width)
					dy = ToroidalDelta(dy, g.height)
				}
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{
						Index:  e.index,
						DX:     dx,
						DY:     dy,
						DistSq: distSq,
						VX:     e.vx,
						VY:     e.vy,
						Panic:  e.panic,
					})
				}
			}
		}
	}
	return dst
}

// querySpan computes the cell range to visit per axis. The query center
// clamps onto the grid first, so border and out-of-range positions
// search from the border cell. In wrap mode the span is symmetric and
// capped at the grid dimensions, so no cell is visited twice even when
// the radius spans the whole world. In bounded mode the range clamps at
// the grid edges per side; re-centering a clamped span would cut off
// cells on the far side.
func (g *SpatialGrid) querySpan(x, y, radius float32) (spanC, spanR, startC, startR int) {
	cellRadius := int(radius/g.cellSize) + 1

	centerCol := int(math.Floor(float64(x / g.cellSize)))
	centerRow := int(math.Floor(float64(y / g.cellSize)))
	if centerCol < 0 {
		centerCol = 0
	} else if centerCol >= g.cols {
		centerCol = g.cols - 1
	}
	if centerRow < 0 {
		centerRow = 0
	} else if centerRow >= g.rows {
		centerRow = g.rows - 1
	}

	if g.wrap {
		spanC = 2*cellRadius + 1
		if spanC > g.cols {
			spanC = g.cols
		}
		spanR = 2*cellRadius + 1
		if spanR > g.rows {
			spanR = g.rows
		}
		startC = centerCol - spanC/2
		startR = centerRow - spanR/2
		return spanC, spanR, startC, startR
	}

	startC = centerCol - cellRadius
	if startC < 0 {
		startC = 0
	}
	endC := centerCol + cellRadius
	if endC > g.cols-1 {
		endC = g.cols - 1
	}
	startR = centerRow - cellRadius
	if startR < 0 {
		startR = 0
	}
	endR := centerRow + cellRadius
	if endR > g.rows-1 {
		endR = g.rows - 1
	}
	return endC - startC + 1, endR - startR + 1, startC, startR
}

// wrapCol maps a column onto the grid. In wrap mode it wraps modulo the
// column count; in bounded mode out-of-range columns are skipped.
func (g *SpatialGrid) wrapCol(col int) (int, bool) {
	if g.wrap {
		col %= g.cols
		if col < 0 {
			col += g.cols
		}
		return col, true
	}
	if col < 0 || col >= g.cols {
		return 0, false
	}
	return col, true
}

func (g *SpatialGrid) wrapRow(row int) (int, bool) {
	if g.wrap {
		row %= g.rows
		if row < 0 {
			row += g.rows
		}
		return row, true
	}
	if row < 0 || row >= g.rows {
		return 0, false
	}
	return row, true
}

// FilterFOV drops neighbors outside the field of view centered on the
// given heading. The slice is filtered in place and the shortened slice
// returned. fov is the full view angle in radians; values covering the
// whole circle keep everything.
func FilterFOV(neighbors []Neighbor, heading, fov float32) []Neighbor {
	if fov <= 0 || fov >= 2*math.Pi {
		return neighbors
	}
	half := fov * 0.5
	kept := neighbors[:0]
	for i := range neighbors {
		n := neighbors[i]
		bearing := float32(math.Atan2(float64(n.DY), float64(n.DX)))
		if absf(normalizeAngle(bearing-heading)) <= half {
			kept = append(kept, n)
		}
	}
	return kept
}

// ToroidalDelta returns the shortest signed distance between two points
// on a wrapping axis of the given size.
func ToroidalDelta(delta, size float32) float32 {
	if delta > size/2 {
		delta -= size
	} else if delta < -size/2 {
		delta += size
	}
	return delta
}
