package engine

import (
	"fmt"
	"strings"
)

// Board is the W x H grid of cells, stored row-major as cells[y][x].
// It only enforces bounds; occupancy rules belong to the setup and
// movement code.
type Board struct {
	width  int
	height int
	cells  [][]Cell
}

// NewBoard creates an empty board with the given dimensions
func NewBoard(width, height int) (*Board, error) {
	if width < MinBoardSize || width > MaxBoardSize {
		return nil, fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidInput, MinBoardSize, MaxBoardSize, width)
	}
	if height < MinBoardSize || height > MaxBoardSize {
		return nil, fmt.Errorf("%w: height must be between %d and %d, got %d", ErrInvalidInput, MinBoardSize, MaxBoardSize, height)
	}

	b := &Board{width: width, height: height}
	b.cells = make([][]Cell, height)
	for y := range b.cells {
		b.cells[y] = make([]Cell, width)
	}
	return b, nil
}

// NewDefaultBoard creates an empty 10x10 board
func NewDefaultBoard() *Board {
	b, _ := NewBoard(DefaultWidth, DefaultHeight)
	return b
}

func (b *Board) Width() int  { return b.width }
func (b *Board) Height() int { return b.height }

// InBounds reports whether (x, y) lies on the board
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// Get returns the cell at (x, y)
func (b *Board) Get(x, y int) (Cell, error) {
	if !b.InBounds(x, y) {
		return Cell{}, fmt.Errorf("get (%d,%d) on %dx%d board: %w", x, y, b.width, b.height, ErrOutOfBounds)
	}
	return b.cells[y][x], nil
}

// Set overwrites the cell at (x, y)
func (b *Board) Set(x, y int, c Cell) error {
	if !b.InBounds(x, y) {
		return fmt.Errorf("set (%d,%d) on %dx%d board: %w", x, y, b.width, b.height, ErrOutOfBounds)
	}
	b.cells[y][x] = c
	return nil
}

// put writes a cell at a position already known to be in bounds
func (b *Board) put(p Position, c Cell) {
	b.cells[p.Y][p.X] = c
}

func (b *Board) at(p Position) Cell {
	return b.cells[p.Y][p.X]
}

// FindHunter returns the position of the hunter
func (b *Board) FindHunter() (Position, error) {
	for y, row := range b.cells {
		for x, c := range row {
			if c.Type == Hunter {
				return Position{X: x, Y: y}, nil
			}
		}
	}
	return Position{}, ErrHunterNotFound
}

// CountTreasures tallies the treasures on the board by value
func (b *Board) CountTreasures() TreasureCounts {
	var tc TreasureCounts
	for _, row := range b.cells {
		for _, c := range row {
			if c.Type == Treasure {
				tc.add(c.Value, 1)
			}
		}
	}
	return tc
}

// CountObstacles returns the number of obstacle cells
func (b *Board) CountObstacles() int {
	return CountCellType(b.cells, Obstacle)
}

// EmptyCells lists all empty positions in row-major order
func (b *Board) EmptyCells() []Position {
	var out []Position
	for y, row := range b.cells {
		for x, c := range row {
			if c.Type == Empty {
				out = append(out, Position{X: x, Y: y})
			}
		}
	}
	return out
}

// Clear empties every cell
func (b *Board) Clear() {
	for y := range b.cells {
		for x := range b.cells[y] {
			b.cells[y][x] = Cell{}
		}
	}
}

// Snapshot returns a deep copy of the grid
func (b *Board) Snapshot() [][]Cell {
	out := make([][]Cell, b.height)
	for y, row := range b.cells {
		out[y] = make([]Cell, len(row))
		copy(out[y], row)
	}
	return out
}

// Rows renders each row using the layout characters
func (b *Board) Rows() []string {
	rows := make([]string, b.height)
	var sb strings.Builder
	for y, row := range b.cells {
		sb.Reset()
		for _, c := range row {
			sb.WriteString(c.Symbol())
		}
		rows[y] = sb.String()
	}
	return rows
}

// String renders the board as newline separated rows
func (b *Board) String() string {
	return strings.Join(b.Rows(), "\n")
}
