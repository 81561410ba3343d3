package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Setup commands
const (
	CommandHunter   = 'h'
	CommandObstacle = 'o'
)

// ParseCommand converts a one-character string into a setup command rune
func ParseCommand(s string) (rune, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: command must be a single character, got %q", ErrInvalidInput, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// cellForCommand maps a setup command to the cell it places
func (g *Game) cellForCommand(command rune) (Cell, error) {
	switch {
	case command >= '5' && command <= '8':
		return TreasureCell(int(command - '0')), nil
	case command == CommandObstacle:
		return ObstacleCell(randomVariant(g.rng)), nil
	case command == CommandHunter:
		if g.hunterPlaced {
			return Cell{}, ErrHunterAlreadyPlaced
		}
		return HunterCell(), nil
	default:
		return Cell{}, fmt.Errorf("%w: unknown command %q, use '5'-'8', 'o' or 'h'", ErrInvalidInput, command)
	}
}

// PlaceItem places a treasure, obstacle or the hunter on an empty cell
func (g *Game) PlaceItem(x, y int, command rune) (CellChange, error) {
	if g.mode != ModeSetup {
		return CellChange{}, fmt.Errorf("%w: items can only be placed in setup mode, current mode is %s", ErrWrongMode, g.mode)
	}

	current, err := g.board.Get(x, y)
	if err != nil {
		return CellChange{}, err
	}
	if current.Type != Empty {
		return CellChange{}, fmt.Errorf("%w: (%d,%d) holds %s", ErrCellOccupied, x, y, current.Type)
	}

	cell, err := g.cellForCommand(command)
	if err != nil {
		return CellChange{}, err
	}

	pos := Position{X: x, Y: y}
	g.setCell(pos, cell)
	if cell.Type == Hunter {
		g.hunterPlaced = true
	}
	g.message = fmt.Sprintf("Placed %s at %s", cell.Type, pos)

	return CellChange{Position: pos, Cell: cell}, nil
}

// ApplyLayout places every item of a layout. The layout is checked
// against the current board first so that a failure leaves the board
// untouched.
func (g *Game) ApplyLayout(layout *Layout) ([]CellChange, error) {
	if g.mode != ModeSetup {
		return nil, fmt.Errorf("%w: layouts can only be applied in setup mode, current mode is %s", ErrWrongMode, g.mode)
	}
	if err := ValidateLayout(layout); err != nil {
		return nil, err
	}
	if len(layout.Rows) != g.board.Height() {
		return nil, fmt.Errorf("%w: layout has %d rows, board has %d", ErrInvalidInput, len(layout.Rows), g.board.Height())
	}

	type placement struct {
		x, y    int
		command rune
	}
	var plan []placement
	hunter := g.hunterPlaced

	for y, row := range layout.Rows {
		if len(row) != g.board.Width() {
			return nil, fmt.Errorf("%w: layout row %d has %d columns, board has %d", ErrInvalidInput, y, len(row), g.board.Width())
		}
		for x, ch := range row {
			if ch == LayoutEmpty {
				continue
			}
			current, _ := g.board.Get(x, y)
			if current.Type != Empty {
				return nil, fmt.Errorf("%w: layout cell (%d,%d) holds %s", ErrCellOccupied, x, y, current.Type)
			}
			if ch == CommandHunter {
				if hunter {
					return nil, ErrHunterAlreadyPlaced
				}
				hunter = true
			}
			plan = append(plan, placement{x: x, y: y, command: ch})
		}
	}

	changes := make([]CellChange, 0, len(plan))
	for _, p := range plan {
		change, err := g.PlaceItem(p.x, p.y, p.command)
		if err != nil {
			return changes, fmt.Errorf("apply layout %q: %w", layout.Name, err)
		}
		changes = append(changes, change)
	}
	g.message = fmt.Sprintf("Applied layout %q", layout.Name)
	return changes, nil
}
