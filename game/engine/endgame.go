package engine

// IsStuck reports whether every neighbour of the hunter is off the board
// or an obstacle. Without a hunter on the board nothing is stuck.
func (g *Game) IsStuck() bool {
	h, err := g.board.FindHunter()
	if err != nil {
		return false
	}
	for _, d := range Directions {
		dx, dy, _ := d.Delta()
		if !g.blocked(h.Add(dx, dy)) {
			return false
		}
	}
	return true
}

// IsEndGame reports whether the game should end: no treasures remain or
// the hunter cannot move.
func (g *Game) IsEndGame() bool {
	return g.remaining.Total() == 0 || g.IsStuck()
}

func (g *Game) endReason() EndReason {
	if g.remaining.Total() == 0 {
		return EndAllCollected
	}
	return EndHunterStuck
}
