package engine

import (
	"fmt"
	"strings"
	"time"
)

// CellType represents what occupies a grid cell
type CellType int

const (
	Empty CellType = iota
	Treasure
	Obstacle
	Hunter
)

const (
	DefaultWidth  = 10
	DefaultHeight = 10

	// Validation constants
	MinBoardSize = 3
	MaxBoardSize = 50
	MaxBulkMoves = 50
)

// TreasureValues lists the point values a treasure can carry
var TreasureValues = [...]int{5, 6, 7, 8}

// ObstacleVariants lists the cosmetic obstacle sprites
var ObstacleVariants = [...]int{1, 2, 3}

// String returns the lower-case name of the cell type
func (t CellType) String() string {
	switch t {
	case Empty:
		return "empty"
	case Treasure:
		return "treasure"
	case Obstacle:
		return "obstacle"
	case Hunter:
		return "hunter"
	default:
		return fmt.Sprintf("CellType(%d)", int(t))
	}
}

// MarshalText encodes the cell type by name
func (t CellType) MarshalText() ([]byte, error) {
	switch t {
	case Empty, Treasure, Obstacle, Hunter:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("unknown cell type %d", int(t))
	}
}

// UnmarshalText decodes a cell type name
func (t *CellType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "empty", "":
		*t = Empty
	case "treasure":
		*t = Treasure
	case "obstacle":
		*t = Obstacle
	case "hunter":
		*t = Hunter
	default:
		return fmt.Errorf("unknown cell type %q", string(text))
	}
	return nil
}

// Cell represents a single grid cell. The zero value is an empty cell.
type Cell struct {
	Type    CellType `json:"type"`
	Value   int      `json:"value,omitempty"`   // treasure points
	Variant int      `json:"variant,omitempty"` // obstacle sprite
}

// EmptyCell returns a cell with no occupant
func EmptyCell() Cell { return Cell{} }

// TreasureCell returns a treasure worth value points
func TreasureCell(value int) Cell { return Cell{Type: Treasure, Value: value} }

// ObstacleCell returns an obstacle drawn with the given variant
func ObstacleCell(variant int) Cell { return Cell{Type: Obstacle, Variant: variant} }

// HunterCell returns the hunter token
func HunterCell() Cell { return Cell{Type: Hunter} }

// Validate checks that the cell payload matches its type
func (c Cell) Validate() error {
	switch c.Type {
	case Empty, Hunter:
		return nil
	case Treasure:
		if !IsTreasureValue(c.Value) {
			return fmt.Errorf("%w: treasure value %d", ErrInvalidInput, c.Value)
		}
		return nil
	case Obstacle:
		if c.Variant < ObstacleVariants[0] || c.Variant > ObstacleVariants[len(ObstacleVariants)-1] {
			return fmt.Errorf("%w: obstacle variant %d", ErrInvalidInput, c.Variant)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown cell type %d", ErrInvalidInput, int(c.Type))
	}
}

// Symbol returns the one-character text form of the cell, using the same
// characters as the setup commands and '.' for an empty cell.
func (c Cell) Symbol() string {
	switch c.Type {
	case Empty:
		return "."
	case Treasure:
		return fmt.Sprintf("%d", c.Value)
	case Obstacle:
		return "o"
	case Hunter:
		return "h"
	default:
		return "?"
	}
}

// IsTreasureValue reports whether v is a legal treasure value
func IsTreasureValue(v int) bool {
	for _, tv := range TreasureValues {
		if tv == v {
			return true
		}
	}
	return false
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the position offset by dx, dy
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Direction is one of the four cardinal moves
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists the cardinal directions in the order neighbours are checked
var Directions = []Direction{Right, Left, Down, Up}

// Delta returns the unit vector for the direction
func (d Direction) Delta() (dx, dy int, ok bool) {
	switch d {
	case Up:
		return 0, -1, true
	case Down:
		return 0, 1, true
	case Left:
		return -1, 0, true
	case Right:
		return 1, 0, true
	default:
		return 0, 0, false
	}
}

// DirectionFromDelta maps a unit vector back to its direction
func DirectionFromDelta(dx, dy int) (Direction, bool) {
	for _, d := range Directions {
		ddx, ddy, _ := d.Delta()
		if ddx == dx && ddy == dy {
			return d, true
		}
	}
	return "", false
}

// ParseDirection accepts direction names and the W/A/S/D keys
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "w":
		return Up, nil
	case "down", "s":
		return Down, nil
	case "left", "a":
		return Left, nil
	case "right", "d":
		return Right, nil
	default:
		return "", fmt.Errorf("%w: unknown direction %q, use 'A', 'W', 'S' or 'D' (or left/up/down/right)", ErrInvalidInput, s)
	}
}

// TreasureCounts holds one named counter per treasure value
type TreasureCounts struct {
	Five  int `json:"5"`
	Six   int `json:"6"`
	Seven int `json:"7"`
	Eight int `json:"8"`
}

// Get returns the counter for a treasure value, 0 for unknown values
func (tc TreasureCounts) Get(value int) int {
	switch value {
	case 5:
		return tc.Five
	case 6:
		return tc.Six
	case 7:
		return tc.Seven
	case 8:
		return tc.Eight
	default:
		return 0
	}
}

// Total returns the number of treasures across all values
func (tc TreasureCounts) Total() int {
	return tc.Five + tc.Six + tc.Seven + tc.Eight
}

// Points returns the sum of all treasure values
func (tc TreasureCounts) Points() int {
	return 5*tc.Five + 6*tc.Six + 7*tc.Seven + 8*tc.Eight
}

func (tc *TreasureCounts) add(value, delta int) {
	var counter *int
	switch value {
	case 5:
		counter = &tc.Five
	case 6:
		counter = &tc.Six
	case 7:
		counter = &tc.Seven
	case 8:
		counter = &tc.Eight
	default:
		return
	}
	*counter += delta
	if *counter < 0 {
		*counter = 0
	}
}

// CellChange records the new content of a single cell
type CellChange struct {
	Position Position `json:"position"`
	Cell     Cell     `json:"cell"`
}

// EndReason explains why a game entered the end mode
type EndReason string

const (
	EndAllCollected EndReason = "all_collected"
	EndHunterStuck  EndReason = "hunter_stuck"
	EndByPlayer     EndReason = "ended_by_player"
)

// Summary is computed once when a game enters the end mode
type Summary struct {
	GameID           string    `json:"game_id"`
	Score            int       `json:"score"`
	Rounds           int       `json:"rounds"`
	PerformanceIndex float64   `json:"performance_index"`
	Reason           EndReason `json:"reason"`
	EndedAt          time.Time `json:"ended_at"`
}

// MoveRecord represents a single move attempt in the game history
type MoveRecord struct {
	GameID     string      `json:"game_id"`
	Direction  Direction   `json:"direction"`
	From       Position    `json:"from"`
	To         Position    `json:"to"`
	Success    bool        `json:"success"`
	Blocked    BlockReason `json:"blocked,omitempty"`
	Collected  int         `json:"collected,omitempty"`
	Score      int         `json:"score"`
	Rounds     int         `json:"rounds"`
	Timestamp  int64       `json:"timestamp"`
	MoveNumber int         `json:"move_number"`
}

// GameState is a read-only snapshot for renderers and transports
type GameState struct {
	GameID           string         `json:"game_id"`
	Mode             Mode           `json:"mode"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	Grid             [][]Cell       `json:"grid"`
	Rows             []string       `json:"rows"`
	HunterPos        *Position      `json:"hunter_pos,omitempty"`
	HunterPlaced     bool           `json:"hunter_placed"`
	Score            int            `json:"score"`
	Rounds           int            `json:"rounds"`
	Treasures        TreasureCounts `json:"treasures_remaining"`
	Obstacles        int            `json:"obstacles"`
	PerformanceIndex float64        `json:"performance_index"`
	Summary          *Summary       `json:"summary,omitempty"`
	Message          string         `json:"message"`
	TotalMoves       int            `json:"total_moves"`
	PossibleMoves    []Direction    `json:"possible_moves,omitempty"`
}
