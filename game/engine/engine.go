package engine

import (
	"time"

	"github.com/google/uuid"
)

// Engine is the operation set the service layer drives
type Engine interface {
	// Mode control
	Mode() Mode
	RequestTransition(event Event) (Mode, error)
	Advance() (Mode, error)

	// Setup
	PlaceItem(x, y int, command rune) (CellChange, error)
	ApplyLayout(layout *Layout) ([]CellChange, error)

	// Play
	Move(direction Direction) (MoveOutcome, error)
	MoveHunter(dx, dy int) (MoveOutcome, error)
	PossibleMoves() []Direction

	// End condition
	IsEndGame() bool
	IsStuck() bool

	// Read-only views
	ID() string
	State() *GameState
	Summary() *Summary
	History() []MoveRecord
	LastMove() *MoveRecord
}

// Observer receives notifications as the game changes. Calls are made
// synchronously from within engine operations and must not call back
// into the game.
type Observer interface {
	CellChanged(change CellChange)
	ObstacleBumped(pos Position)
	ModeChanged(from, to Mode)
}

// ObserverFuncs adapts plain functions to the Observer interface. Nil
// fields are skipped.
type ObserverFuncs struct {
	OnCellChanged    func(CellChange)
	OnObstacleBumped func(Position)
	OnModeChanged    func(from, to Mode)
}

func (o ObserverFuncs) CellChanged(c CellChange) {
	if o.OnCellChanged != nil {
		o.OnCellChanged(c)
	}
}

func (o ObserverFuncs) ObstacleBumped(p Position) {
	if o.OnObstacleBumped != nil {
		o.OnObstacleBumped(p)
	}
}

func (o ObserverFuncs) ModeChanged(from, to Mode) {
	if o.OnModeChanged != nil {
		o.OnModeChanged(from, to)
	}
}

// Game is one treasure hunt session: the board, the mode, the tracker and
// everything derived from them.
type Game struct {
	id           string
	board        *Board
	mode         Mode
	tracker      Tracker
	hunterPlaced bool
	remaining    TreasureCounts
	summary      *Summary
	message      string
	history      []MoveRecord

	rng       Randomizer
	now       func() time.Time
	observers []Observer
}

// Option configures a Game
type Option func(*gameOptions)

type gameOptions struct {
	width     int
	height    int
	rng       Randomizer
	now       func() time.Time
	observers []Observer
}

// WithRandomizer replaces the random source used for obstacle spawns
func WithRandomizer(r Randomizer) Option {
	return func(o *gameOptions) { o.rng = r }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *gameOptions) { o.now = now }
}

// WithBoardSize overrides the 10x10 default
func WithBoardSize(width, height int) Option {
	return func(o *gameOptions) {
		o.width = width
		o.height = height
	}
}

// WithObserver registers an observer
func WithObserver(obs Observer) Option {
	return func(o *gameOptions) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// NewGame creates a game in Idle mode with an empty board
func NewGame(opts ...Option) (*Game, error) {
	o := gameOptions{
		width:  DefaultWidth,
		height: DefaultHeight,
		rng:    DefaultRandomizer(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	board, err := NewBoard(o.width, o.height)
	if err != nil {
		return nil, err
	}

	return &Game{
		id:        uuid.NewString(),
		board:     board,
		mode:      ModeIdle,
		rng:       o.rng,
		now:       o.now,
		observers: o.observers,
		message:   "Press start to set up the board",
	}, nil
}

// ID identifies the current play-through; restart assigns a new one
func (g *Game) ID() string { return g.id }

func (g *Game) Mode() Mode { return g.mode }

// Board exposes the board for read access. Callers must not mutate it.
func (g *Game) Board() *Board { return g.board }

func (g *Game) Tracker() Tracker { return g.tracker }

func (g *Game) Score() int { return g.tracker.Score }

func (g *Game) Rounds() int { return g.tracker.Rounds }

func (g *Game) HunterPlaced() bool { return g.hunterPlaced }

// RemainingTreasures returns the per-value counts shown to the player
func (g *Game) RemainingTreasures() TreasureCounts { return g.remaining }

func (g *Game) Message() string { return g.message }

// Summary returns the end-of-game summary, or nil outside End mode
func (g *Game) Summary() *Summary {
	if g.summary == nil {
		return nil
	}
	s := *g.summary
	return &s
}

// History returns a copy of the move history of the current play-through
func (g *Game) History() []MoveRecord {
	out := make([]MoveRecord, len(g.history))
	copy(out, g.history)
	return out
}

// LastMove returns the last move made, or nil if no moves
func (g *Game) LastMove() *MoveRecord {
	if len(g.history) == 0 {
		return nil
	}
	m := g.history[len(g.history)-1]
	return &m
}

// State builds a read-only snapshot of the game
func (g *Game) State() *GameState {
	s := &GameState{
		GameID:           g.id,
		Mode:             g.mode,
		Width:            g.board.Width(),
		Height:           g.board.Height(),
		Grid:             g.board.Snapshot(),
		Rows:             g.board.Rows(),
		HunterPlaced:     g.hunterPlaced,
		Score:            g.tracker.Score,
		Rounds:           g.tracker.Rounds,
		Treasures:        g.remaining,
		Obstacles:        g.board.CountObstacles(),
		PerformanceIndex: g.tracker.PerformanceIndex(),
		Summary:          g.Summary(),
		Message:          g.message,
		TotalMoves:       len(g.history),
	}
	if g.mode == ModeSetup {
		s.Treasures = g.board.CountTreasures()
	}
	if pos, err := g.board.FindHunter(); err == nil {
		s.HunterPos = &pos
	}
	if g.mode == ModePlay {
		s.PossibleMoves = g.PossibleMoves()
	}
	return s
}

func (g *Game) setCell(p Position, c Cell) {
	g.board.put(p, c)
	for _, o := range g.observers {
		o.CellChanged(CellChange{Position: p, Cell: c})
	}
}

func (g *Game) notifyBump(p Position) {
	for _, o := range g.observers {
		o.ObstacleBumped(p)
	}
}

func (g *Game) setMode(m Mode) {
	from := g.mode
	g.mode = m
	if from == m {
		return
	}
	for _, o := range g.observers {
		o.ModeChanged(from, m)
	}
}

var _ Engine = (*Game)(nil)
