package sim

import (
	"math/rand"

	"github.com/pthm-cable/frogpond/components"
)

// Grid stores the tile map and which character stands on each tile.
// Cells are marked as walls (true) or floor (false).
type Grid struct {
	walls    []bool
	occupant []components.AgentID
	width    int
	height   int
}

// NewGrid creates an open grid of the given size enclosed by border walls.
func NewGrid(width, height int) *Grid {
	g := &Grid{
		walls:    make([]bool, width*height),
		occupant: make([]components.AgentID, width*height),
		width:    width,
		height:   height,
	}
	for x := 0; x < width; x++ {
		g.walls[g.index(components.Position{X: x, Y: 0})] = true
		g.walls[g.index(components.Position{X: x, Y: height - 1})] = true
	}
	for y := 0; y < height; y++ {
		g.walls[g.index(components.Position{X: 0, Y: y})] = true
		g.walls[g.index(components.Position{X: width - 1, Y: y})] = true
	}
	return g
}

// Scatter turns a fraction of the interior floor into walls.
func (g *Grid) Scatter(rng *rand.Rand, density float64) {
	if density <= 0 {
		return
	}
	for y := 1; y < g.height-1; y++ {
		for x := 1; x < g.width-1; x++ {
			if rng.Float64() < density {
				g.walls[g.index(components.Position{X: x, Y: y})] = true
			}
		}
	}
}

func (g *Grid) index(p components.Position) int {
	return p.Y*g.width + p.X
}

// Width returns the grid width in tiles.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height in tiles.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p lies on the grid.
func (g *Grid) InBounds(p components.Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// Wall reports whether p is a wall. Out-of-bounds tiles count as walls.
func (g *Grid) Wall(p components.Position) bool {
	if !g.InBounds(p) {
		return true
	}
	return g.walls[g.index(p)]
}

// SetWall marks or clears a wall at p.
func (g *Grid) SetWall(p components.Position, wall bool) {
	if g.InBounds(p) {
		g.walls[g.index(p)] = wall
	}
}

// Occupant returns the character standing on p, or NoAgent.
func (g *Grid) Occupant(p components.Position) components.AgentID {
	if !g.InBounds(p) {
		return components.NoAgent
	}
	return g.occupant[g.index(p)]
}

// Open reports whether p is floor with nobody on it.
func (g *Grid) Open(p components.Position) bool {
	return !g.Wall(p) && g.Occupant(p) == components.NoAgent
}

func (g *Grid) place(id components.AgentID, p components.Position) {
	g.occupant[g.index(p)] = id
}

func (g *Grid) clear(p components.Position) {
	if g.InBounds(p) {
		g.occupant[g.index(p)] = components.NoAgent
	}
}

// Square calls fn for every occupied tile within Chebyshev distance
// radius of center, clamped to the grid.
func (g *Grid) Square(center components.Position, radius int, fn func(components.AgentID, components.Position)) {
	minX, maxX := max(center.X-radius, 0), min(center.X+radius, g.width-1)
	minY, maxY := max(center.Y-radius, 0), min(center.Y+radius, g.height-1)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := components.Position{X: x, Y: y}
			if id := g.occupant[g.index(p)]; id != components.NoAgent {
				fn(id, p)
			}
		}
	}
}

// OpenTiles counts floor tiles without a character.
func (g *Grid) OpenTiles() int {
	n := 0
	for i, wall := range g.walls {
		if !wall && g.occupant[i] == components.NoAgent {
			n++
		}
	}
	return n
}
