// Package engine provides the core game logic for the Treasure Hunt Game.
//
// The engine package implements the game mechanics including:
//   - The 10x10 board model and its single-hunter invariant
//   - The setup/play/end mode state machine
//   - Placement of treasures, obstacles and the hunter during setup
//   - Hunter movement, treasure collection and obstacle spawning
//   - End-of-game detection (no treasures left or hunter stuck)
//   - Score, round and performance index accounting
//
// Core Types:
//
// Game owns one play session: its Board, current Mode, Tracker and history.
// Cell is a tagged union over Empty, Treasure, Obstacle and Hunter. Layout is
// a predefined board arrangement loaded from JSON and applied during setup.
//
// Usage:
//
//	game, err := engine.NewGame()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game.RequestTransition(engine.EventStartSetup)
//	game.PlaceItem(0, 0, 'h')
//	game.PlaceItem(1, 0, '8')
//	game.RequestTransition(engine.EventEndSetup)
//
//	outcome, err := game.Move(engine.Right)
//	state := game.State()
//
// Game Rules:
//
// The hunter moves one cell at a time in the four cardinal directions.
// Obstacles and the board edge block movement without costing a round.
// Stepping on a treasure adds its value to the score and spawns a new
// obstacle on a random empty cell. The game ends when no treasures remain
// or when all four neighbours of the hunter are blocked; the performance
// index is score divided by rounds.
//
// A Game is not safe for concurrent use; callers serialise access.
package engine
