package nav

import "math"

// CellSize is the edge length of one grid cell in world units.
const CellSize = 50.0

// GridNode is a quantized grid cell.
type GridNode struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point is a position in world coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned obstacle in world coordinates (top-left origin).
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the world point lies inside r (edges inclusive).
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IntersectsSegment reports whether the segment a-b touches r (Liang-Barsky clip).
func (r Rect) IntersectsSegment(a, b Point) bool {
	dx, dy := b.X-a.X, b.Y-a.Y
	t0, t1 := 0.0, 1.0
	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return false
			}
			if t < t1 {
				t1 = t
			}
		}
		return true
	}
	return clip(-dx, a.X-r.X) && clip(dx, r.X+r.Width-a.X) &&
		clip(-dy, a.Y-r.Y) && clip(dy, r.Y+r.Height-a.Y)
}

// Quantize maps a world coordinate to its grid cell by flooring worldCoord / CellSize.
func Quantize(x, y float64) GridNode {
	return GridNode{
		X: int(math.Floor(x / CellSize)),
		Y: int(math.Floor(y / CellSize)),
	}
}

// Center returns the world-space center of the cell.
func (n GridNode) Center() Point {
	return Point{
		X: (float64(n.X) + 0.5) * CellSize,
		Y: (float64(n.Y) + 0.5) * CellSize,
	}
}

// CellsForRect returns every cell the rectangle overlaps.
// A rectangle with no area blocks only the cell holding its origin.
func CellsForRect(r Rect) []GridNode {
	origin := Quantize(r.X, r.Y)
	if r.Width <= 0 || r.Height <= 0 {
		return []GridNode{origin}
	}
	maxX := int(math.Ceil((r.X+r.Width)/CellSize)) - 1
	maxY := int(math.Ceil((r.Y+r.Height)/CellSize)) - 1
	if maxX < origin.X {
		maxX = origin.X
	}
	if maxY < origin.Y {
		maxY = origin.Y
	}
	cells := make([]GridNode, 0, (maxX-origin.X+1)*(maxY-origin.Y+1))
	for y := origin.Y; y <= maxY; y++ {
		for x := origin.X; x <= maxX; x++ {
			cells = append(cells, GridNode{X: x, Y: y})
		}
	}
	return cells
}

// BlockedSet quantizes obstacle rectangles into a set of blocked cells.
// It is rebuilt for every request because obstacles move between calls.
func BlockedSet(obstacles []Rect) map[GridNode]struct{} {
	blocked := make(map[GridNode]struct{}, len(obstacles))
	for _, r := range obstacles {
		for _, c := range CellsForRect(r) {
			blocked[c] = struct{}{}
		}
	}
	return blocked
}

// Grid describes the traversable extent of a level in cells.
type Grid struct {
	Cols, Rows int
}

// NewGrid sizes a grid to cover a world of the given dimensions.
func NewGrid(worldWidth, worldHeight float64) Grid {
	cols := int(math.Ceil(worldWidth / CellSize))
	rows := int(math.Ceil(worldHeight / CellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return Grid{Cols: cols, Rows: rows}
}

// InBounds reports whether n lies inside the grid.
func (g Grid) InBounds(n GridNode) bool {
	return n.X >= 0 && n.Y >= 0 && n.X < g.Cols && n.Y < g.Rows
}
