package engine

import (
	"fmt"
	"strings"
)

// LayoutEmpty marks an empty cell in a layout row
const LayoutEmpty = '.'

// Layout is a predefined board arrangement. Each row uses the setup
// command characters plus '.' for an empty cell.
type Layout struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Rows        []string `json:"rows"`
}

// LayoutStats summarises the content of a layout
type LayoutStats struct {
	Treasures   TreasureCounts `json:"treasures"`
	TotalPoints int            `json:"total_points"`
	Obstacles   int            `json:"obstacles"`
	EmptyCells  int            `json:"empty_cells"`
	HasHunter   bool           `json:"has_hunter"`
	Hunter      *Position      `json:"hunter,omitempty"`
}

// ValidateLayout checks dimensions, characters and the single hunter rule
func ValidateLayout(l *Layout) error {
	if l == nil {
		return fmt.Errorf("%w: layout cannot be nil", ErrInvalidInput)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: layout name is required", ErrInvalidInput)
	}
	if len(l.Rows) != DefaultHeight {
		return fmt.Errorf("%w: layout %q must have %d rows, got %d", ErrInvalidInput, l.Name, DefaultHeight, len(l.Rows))
	}

	hunters := 0
	for y, row := range l.Rows {
		if len(row) != DefaultWidth {
			return fmt.Errorf("%w: layout %q row %d must have %d columns, got %d", ErrInvalidInput, l.Name, y, DefaultWidth, len(row))
		}
		for x, ch := range row {
			switch {
			case ch == LayoutEmpty, ch == CommandObstacle, ch >= '5' && ch <= '8':
			case ch == CommandHunter:
				hunters++
			default:
				return fmt.Errorf("%w: layout %q has invalid character %q at (%d,%d)", ErrInvalidInput, l.Name, ch, x, y)
			}
		}
	}
	if hunters > 1 {
		return fmt.Errorf("%w: layout %q has %d hunters, at most one is allowed", ErrInvalidInput, l.Name, hunters)
	}
	return nil
}

// Stats counts what the layout places. It assumes a valid layout.
func (l *Layout) Stats() LayoutStats {
	var s LayoutStats
	for y, row := range l.Rows {
		for x, ch := range row {
			switch {
			case ch == LayoutEmpty:
				s.EmptyCells++
			case ch == CommandObstacle:
				s.Obstacles++
			case ch == CommandHunter:
				s.HasHunter = true
				s.Hunter = &Position{X: x, Y: y}
			case ch >= '5' && ch <= '8':
				s.Treasures.add(int(ch-'0'), 1)
			}
		}
	}
	s.TotalPoints = s.Treasures.Points()
	return s
}

// DefaultLayout returns the built-in layout used when no layout files exist
func DefaultLayout() *Layout {
	return &Layout{
		Name:        "classic",
		Description: "Hunter in the top-left corner with a handful of treasures",
		Rows: []string{
			"h.........",
			"..5...o...",
			"......6...",
			".o........",
			"....7.....",
			"........o.",
			"..o.......",
			".....8....",
			"...6...o..",
			"........5.",
		},
	}
}
