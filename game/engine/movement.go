package engine

import "fmt"

// BlockReason says what stopped a move
type BlockReason string

const (
	BlockedBoundary BlockReason = "boundary"
	BlockedObstacle BlockReason = "obstacle"
)

// MoveOutcome describes the result of one move attempt
type MoveOutcome struct {
	Direction       Direction    `json:"direction"`
	From            Position     `json:"from"`
	To              Position     `json:"to"`
	Target          Position     `json:"target"`
	Moved           bool         `json:"moved"`
	Blocked         BlockReason  `json:"blocked,omitempty"`
	Collected       int          `json:"collected,omitempty"`
	SpawnedObstacle *Position    `json:"spawned_obstacle,omitempty"`
	Changes         []CellChange `json:"changes,omitempty"`
	Ended           bool         `json:"ended"`
	EndReason       EndReason    `json:"end_reason,omitempty"`
}

// Move moves the hunter one cell in the given direction
func (g *Game) Move(direction Direction) (MoveOutcome, error) {
	dx, dy, ok := direction.Delta()
	if !ok {
		return MoveOutcome{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, direction)
	}
	return g.MoveHunter(dx, dy)
}

// MoveHunter moves the hunter by a unit cardinal vector. A blocked move
// returns the outcome together with ErrInvalidMove and leaves the board,
// score and rounds untouched.
func (g *Game) MoveHunter(dx, dy int) (MoveOutcome, error) {
	dir, ok := DirectionFromDelta(dx, dy)
	if !ok {
		return MoveOutcome{}, fmt.Errorf("%w: (%d,%d) is not a unit cardinal vector", ErrInvalidInput, dx, dy)
	}
	if g.mode != ModePlay {
		return MoveOutcome{}, fmt.Errorf("%w: the hunter can only move in play mode, current mode is %s", ErrWrongMode, g.mode)
	}

	from, err := g.board.FindHunter()
	if err != nil {
		return MoveOutcome{}, fmt.Errorf("move %s: %w", dir, err)
	}

	target := from.Add(dx, dy)
	out := MoveOutcome{Direction: dir, From: from, To: from, Target: target}

	if !g.board.InBounds(target.X, target.Y) {
		out.Blocked = BlockedBoundary
		g.message = fmt.Sprintf("Can't move %s: board edge at %s", dir, target)
		g.recordMove(out)
		return out, fmt.Errorf("%w: %s is outside the board", ErrInvalidMove, target)
	}

	dest := g.board.at(target)
	switch dest.Type {
	case Obstacle:
		out.Blocked = BlockedObstacle
		g.message = fmt.Sprintf("Can't move %s: obstacle at %s", dir, target)
		g.notifyBump(target)
		g.recordMove(out)
		return out, fmt.Errorf("%w: obstacle at %s", ErrInvalidMove, target)

	case Empty:
		g.tracker.recordStep()
		g.message = fmt.Sprintf("Moved %s to %s", dir, target)

	case Treasure:
		g.tracker.recordTreasure(dest.Value)
		g.remaining.add(dest.Value, -1)
		out.Collected = dest.Value
		g.setCell(target, EmptyCell())
		out.Changes = append(out.Changes, CellChange{Position: target, Cell: EmptyCell()})
		if spawned, ok := g.spawnObstacle(target); ok {
			out.SpawnedObstacle = &spawned
			out.Changes = append(out.Changes, CellChange{Position: spawned, Cell: g.board.at(spawned)})
		}
		g.message = fmt.Sprintf("Collected a %d treasure at %s", dest.Value, target)

	case Hunter:
		return out, fmt.Errorf("%w: second hunter at %s", ErrInvalidMove, target)

	default:
		return out, fmt.Errorf("%w: unknown cell type %d at %s", ErrInvalidMove, int(dest.Type), target)
	}

	g.setCell(from, EmptyCell())
	g.setCell(target, HunterCell())
	out.Changes = append(out.Changes,
		CellChange{Position: from, Cell: EmptyCell()},
		CellChange{Position: target, Cell: HunterCell()},
	)
	out.Moved = true
	out.To = target
	g.recordMove(out)

	if g.IsEndGame() {
		reason := g.endReason()
		g.enterEnd(reason)
		out.Ended = true
		out.EndReason = reason
	}
	return out, nil
}

// spawnObstacle puts a new obstacle on a random empty cell other than
// exclude. It reports false when no such cell exists.
func (g *Game) spawnObstacle(exclude Position) (Position, bool) {
	candidates := g.board.EmptyCells()
	for i, p := range candidates {
		if p == exclude {
			candidates = append(candidates[:i], candidates[i+1:]...)
			break
		}
	}
	if len(candidates) == 0 {
		return Position{}, false
	}
	pos := candidates[g.rng.Intn(len(candidates))]
	g.setCell(pos, ObstacleCell(randomVariant(g.rng)))
	return pos, true
}

// CanMove reports whether a move in the given direction would succeed
func (g *Game) CanMove(direction Direction) bool {
	if g.mode != ModePlay {
		return false
	}
	dx, dy, ok := direction.Delta()
	if !ok {
		return false
	}
	from, err := g.board.FindHunter()
	if err != nil {
		return false
	}
	return !g.blocked(from.Add(dx, dy))
}

// PossibleMoves returns all directions the hunter can currently move
func (g *Game) PossibleMoves() []Direction {
	var possible []Direction
	for _, d := range Directions {
		if g.CanMove(d) {
			possible = append(possible, d)
		}
	}
	return possible
}

func (g *Game) blocked(p Position) bool {
	if !g.board.InBounds(p.X, p.Y) {
		return true
	}
	return g.board.at(p).Type == Obstacle
}

func (g *Game) recordMove(out MoveOutcome) {
	g.history = append(g.history, MoveRecord{
		GameID:     g.id,
		Direction:  out.Direction,
		From:       out.From,
		To:         out.To,
		Success:    out.Blocked == "",
		Blocked:    out.Blocked,
		Collected:  out.Collected,
		Score:      g.tracker.Score,
		Rounds:     g.tracker.Rounds,
		Timestamp:  g.now().Unix(),
		MoveNumber: len(g.history) + 1,
	})
}
