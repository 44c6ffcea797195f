package render

import (
	"math"
	"slices"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

// gridCellSize is the edge of a grid cell on the XZ plane, in world units.
const gridCellSize = 32.0

type cellKey struct {
	cx int32
	cz int32
}

func toCell(v float64) int32 {
	return int32(math.Floor(v / gridCellSize))
}

func keyOf(pos mgl64.Vec3) cellKey {
	return cellKey{cx: toCell(pos[0]), cz: toCell(pos[2])}
}

// cellGrid buckets model entities by XZ cell so range queries only visit nearby
// cells. Height is ignored.
type cellGrid struct {
	cells map[cellKey]map[ecs.EntityRef]struct{}
	where map[ecs.EntityRef]cellKey
}

func newCellGrid() *cellGrid {
	return &cellGrid{
		cells: make(map[cellKey]map[ecs.EntityRef]struct{}),
		where: make(map[ecs.EntityRef]cellKey),
	}
}

func (g *cellGrid) add(e ecs.EntityRef, pos mgl64.Vec3) {
	k := keyOf(pos)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityRef]struct{})
		g.cells[k] = cell
	}
	cell[e] = struct{}{}
	g.where[e] = k
}

func (g *cellGrid) remove(e ecs.EntityRef) {
	k, ok := g.where[e]
	if !ok {
		return
	}
	delete(g.where, e)
	if cell := g.cells[k]; cell != nil {
		delete(cell, e)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// move re-buckets e; nothing happens while it stays inside its cell.
func (g *cellGrid) move(e ecs.EntityRef, pos mgl64.Vec3) {
	k := keyOf(pos)
	if old, ok := g.where[e]; ok && old == k {
		return
	}
	g.remove(e)
	g.add(e, pos)
}

// near returns the entities of every cell touched by the square of half-size radius
// around pos, in entity order. Callers filter by exact distance.
func (g *cellGrid) near(pos mgl64.Vec3, radius float64) []ecs.EntityRef {
	lo := keyOf(pos.Sub(mgl64.Vec3{radius, 0, radius}))
	hi := keyOf(pos.Add(mgl64.Vec3{radius, 0, radius}))
	var result []ecs.EntityRef
	if int64(hi.cx-lo.cx+1)*int64(hi.cz-lo.cz+1) > int64(len(g.cells)) {
		// the query covers more cells than exist
		for _, cell := range g.cells {
			for e := range cell {
				if k := g.where[e]; k.cx >= lo.cx && k.cx <= hi.cx && k.cz >= lo.cz && k.cz <= hi.cz {
					result = append(result, e)
				}
			}
		}
	} else {
		for cx := lo.cx; cx <= hi.cx; cx++ {
			for cz := lo.cz; cz <= hi.cz; cz++ {
				for e := range g.cells[cellKey{cx: cx, cz: cz}] {
					result = append(result, e)
				}
			}
		}
	}
	slices.Sort(result)
	return result
}

func (g *cellGrid) len() int { return len(g.where) }
