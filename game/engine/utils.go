package engine

import "strconv"

// CountCellType counts the total number of cells of a specific type in the grid
func CountCellType(grid [][]Cell, cellType CellType) int {
	count := 0
	for _, row := range grid {
		for _, cell := range row {
			if cell.Type == cellType {
				count++
			}
		}
	}
	return count
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// FindNearestTreasure finds the closest treasure to the hunter and returns
// its position, value and distance
func FindNearestTreasure(state *GameState) (Position, int, int, bool) {
	if state.HunterPos == nil {
		return Position{}, 0, 0, false
	}

	minDistance := -1
	var nearestPos Position
	var value int
	found := false

	for y := 0; y < len(state.Grid); y++ {
		for x := 0; x < len(state.Grid[y]); x++ {
			cell := state.Grid[y][x]
			if cell.Type != Treasure {
				continue
			}
			pos := Position{X: x, Y: y}
			distance := ManhattanDistance(*state.HunterPos, pos)
			if minDistance == -1 || distance < minDistance {
				minDistance = distance
				nearestPos = pos
				value = cell.Value
				found = true
			}
		}
	}

	return nearestPos, value, minDistance, found
}

// DescribeCell returns a short human-readable description of a cell
func DescribeCell(c Cell) string {
	switch c.Type {
	case Empty:
		return "empty ground"
	case Treasure:
		return "a treasure worth " + strconv.Itoa(c.Value) + " points"
	case Obstacle:
		return "an obstacle (variant " + strconv.Itoa(c.Variant) + ")"
	case Hunter:
		return "the treasure hunter"
	default:
		return "unknown"
	}
}

// CellLegend maps each layout character to its meaning
func CellLegend() map[string]string {
	return map[string]string{
		".": "empty",
		"h": "treasure hunter",
		"o": "obstacle",
		"5": "treasure worth 5",
		"6": "treasure worth 6",
		"7": "treasure worth 7",
		"8": "treasure worth 8",
	}
}

// Reachability walks the board from start through every cell that is not
// an obstacle. It returns the treasures the walk never reaches and the step
// count to the closest reachable treasure, or -1 when none is reachable.
// Obstacles spawned during play are not predicted.
func Reachability(b *Board, start Position) ([]Position, int) {
	dist := map[Position]int{start: 0}
	queue := []Position{start}
	nearest := -1

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		for _, d := range Directions {
			dx, dy, _ := d.Delta()
			next := p.Add(dx, dy)
			if _, seen := dist[next]; seen || !b.InBounds(next.X, next.Y) {
				continue
			}
			cell := b.at(next)
			if cell.Type == Obstacle {
				continue
			}
			dist[next] = dist[p] + 1
			if cell.Type == Treasure && nearest == -1 {
				nearest = dist[next]
			}
			queue = append(queue, next)
		}
	}

	var unreachable []Position
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			p := Position{X: x, Y: y}
			if b.at(p).Type != Treasure {
				continue
			}
			if _, ok := dist[p]; !ok {
				unreachable = append(unreachable, p)
			}
		}
	}
	return unreachable, nearest
}
