package engine

import "github.com/shopspring/decimal"

// Tracker holds the score and round counters of one play-through.
// Only the movement code mutates it.
type Tracker struct {
	Score  int `json:"score"`
	Rounds int `json:"rounds"`
}

func (t *Tracker) recordStep() {
	t.Rounds++
}

func (t *Tracker) recordTreasure(value int) {
	t.Score += value
	t.Rounds++
}

// Reset zeroes both counters
func (t *Tracker) Reset() {
	t.Score = 0
	t.Rounds = 0
}

// PerformanceIndex is score per round rounded to two decimal places,
// or 0 before the first round.
func (t Tracker) PerformanceIndex() float64 {
	if t.Rounds <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(t.Score)).
		Div(decimal.NewFromInt(int64(t.Rounds))).
		Round(2).
		InexactFloat64()
}
