package engine

import "math/rand/v2"

// Randomizer supplies the random choices made by the engine. Intn returns
// a value in [0, n).
type Randomizer interface {
	Intn(n int) int
}

type defaultRandomizer struct{}

func (defaultRandomizer) Intn(n int) int { return rand.IntN(n) }

// DefaultRandomizer returns the process-wide random source
func DefaultRandomizer() Randomizer { return defaultRandomizer{} }

func randomVariant(r Randomizer) int {
	return ObstacleVariants[r.Intn(len(ObstacleVariants))]
}
