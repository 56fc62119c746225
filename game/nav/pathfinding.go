package nav

import (
	"container/heap"
	"math"
)

// Expansion order for 4-connected neighbors: right, left, down, up.
var neighborOffsets = [...]GridNode{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// Pathfinder runs A* over a fixed-size grid. It holds no per-request state
// and is safe to share.
type Pathfinder struct {
	grid Grid
}

// NewPathfinder creates a Pathfinder covering a world of the given size.
func NewPathfinder(worldWidth, worldHeight float64) *Pathfinder {
	return &Pathfinder{grid: NewGrid(worldWidth, worldHeight)}
}

// Grid returns the grid the pathfinder searches.
func (p *Pathfinder) Grid() Grid { return p.grid }

// FindPath finds a path between two world positions around the given obstacle
// rectangles. The result excludes the start cell and includes the goal cell.
// An empty result means no plan is available.
func (p *Pathfinder) FindPath(start, end Point, obstacles []Rect) []GridNode {
	return p.FindCells(Quantize(start.X, start.Y), Quantize(end.X, end.Y), BlockedSet(obstacles))
}

// FindPath is the stateless form of Pathfinder.FindPath for callers that do not
// keep a Pathfinder around.
func FindPath(worldWidth, worldHeight float64, start, end Point, obstacles []Rect) []GridNode {
	return NewPathfinder(worldWidth, worldHeight).FindPath(start, end, obstacles)
}

// FindCells runs A* between two cells. Neighbors outside the grid or in
// blocked are skipped. Ties on f are broken by lower h, then by insertion
// order, so identical inputs always yield identical paths.
func (p *Pathfinder) FindCells(start, goal GridNode, blocked map[GridNode]struct{}) []GridNode {
	if !p.grid.InBounds(start) || !p.grid.InBounds(goal) {
		return nil
	}
	if _, ok := blocked[goal]; ok {
		return nil
	}
	if start == goal {
		return []GridNode{}
	}

	open := &pathQueue{}
	heap.Init(open)
	var seq uint64
	push := func(n *pathNode) {
		n.seq = seq
		seq++
		heap.Push(open, n)
	}

	gScore := map[GridNode]float64{start: 0}
	closed := make(map[GridNode]struct{})
	push(&pathNode{cell: start, g: 0, h: manhattan(start, goal), f: manhattan(start, goal)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if _, seen := closed[cur.cell]; seen {
			continue
		}
		closed[cur.cell] = struct{}{}

		if cur.cell == goal {
			return reconstructPath(cur)
		}

		for _, d := range neighborOffsets {
			next := GridNode{X: cur.cell.X + d.X, Y: cur.cell.Y + d.Y}
			if !p.grid.InBounds(next) {
				continue
			}
			if _, ok := blocked[next]; ok {
				continue
			}
			if _, seen := closed[next]; seen {
				continue
			}
			ng := cur.g + stepCost(cur.cell, next)
			if prev, ok := gScore[next]; ok && ng >= prev {
				continue
			}
			gScore[next] = ng
			h := manhattan(next, goal)
			push(&pathNode{cell: next, g: ng, h: h, f: ng + h, parent: cur})
		}
	}

	return nil
}

// manhattan never overestimates under 4-connectivity.
func manhattan(a, b GridNode) float64 {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return float64(dx + dy)
}

func stepCost(a, b GridNode) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func reconstructPath(goal *pathNode) []GridNode {
	var path []GridNode
	for n := goal; n.parent != nil; n = n.parent {
		path = append(path, n.cell)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type pathNode struct {
	cell    GridNode
	g, h, f float64
	seq     uint64
	index   int
	parent  *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.seq < b.seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*pq)
	*pq = append(*pq, n)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	n.index = -1
	*pq = old[:last]
	return n
}
