package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Mode is the phase the game is in
type Mode string

const (
	ModeIdle  Mode = "idle"
	ModeSetup Mode = "setup"
	ModePlay  Mode = "play"
	ModeEnd   Mode = "end"
)

// Event requests a mode transition
type Event string

const (
	EventStartSetup Event = "start-setup"
	EventEndSetup   Event = "end-setup"
	EventEndGame    Event = "end-game"
	EventRestart    Event = "restart"
)

var transitions = map[Mode]map[Event]Mode{
	ModeIdle:  {EventStartSetup: ModeSetup},
	ModeSetup: {EventEndSetup: ModePlay},
	ModePlay:  {EventEndGame: ModeEnd},
	ModeEnd:   {EventRestart: ModeSetup},
}

// ParseEvent accepts the event names with '-' or '_' separators
func ParseEvent(s string) (Event, error) {
	ev := Event(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	switch ev {
	case EventStartSetup, EventEndSetup, EventEndGame, EventRestart:
		return ev, nil
	default:
		return "", fmt.Errorf("%w: unknown event %q", ErrInvalidInput, s)
	}
}

// NextEvent returns the event a single control button would fire in mode m
func NextEvent(m Mode) (Event, bool) {
	for ev := range transitions[m] {
		return ev, true
	}
	return "", false
}

// RequestTransition moves the game to its next mode. Ending setup
// requires a placed hunter and may go straight to End when the board
// already satisfies the end condition.
func (g *Game) RequestTransition(ev Event) (Mode, error) {
	next, ok := transitions[g.mode][ev]
	if !ok {
		return g.mode, fmt.Errorf("%w: %q not allowed in %s mode", ErrInvalidTransition, ev, g.mode)
	}

	switch ev {
	case EventStartSetup:
		g.setMode(next)
		g.message = "Place the hunter ('h'), treasures ('5'-'8') and obstacles ('o')"

	case EventEndSetup:
		if !g.hunterPlaced {
			return g.mode, fmt.Errorf("%w: place a treasure hunter before ending setup", ErrInvalidTransition)
		}
		g.remaining = g.board.CountTreasures()
		g.setMode(next)
		g.message = "Move the hunter with W/A/S/D"
		if g.IsEndGame() {
			g.enterEnd(g.endReason())
		}

	case EventEndGame:
		g.enterEnd(EndByPlayer)

	case EventRestart:
		g.board.Clear()
		g.tracker.Reset()
		g.hunterPlaced = false
		g.remaining = TreasureCounts{}
		g.summary = nil
		g.history = nil
		g.id = uuid.NewString()
		g.setMode(next)
		g.message = "Board cleared, set up a new game"
	}

	return g.mode, nil
}

// Advance fires the natural next event for the current mode
func (g *Game) Advance() (Mode, error) {
	ev, ok := NextEvent(g.mode)
	if !ok {
		return g.mode, fmt.Errorf("%w: no transition from %s mode", ErrInvalidTransition, g.mode)
	}
	return g.RequestTransition(ev)
}

func (g *Game) enterEnd(reason EndReason) {
	g.summary = &Summary{
		GameID:           g.id,
		Score:            g.tracker.Score,
		Rounds:           g.tracker.Rounds,
		PerformanceIndex: g.tracker.PerformanceIndex(),
		Reason:           reason,
		EndedAt:          g.now(),
	}
	g.setMode(ModeEnd)

	switch reason {
	case EndAllCollected:
		g.message = fmt.Sprintf("All treasures collected! Score %d in %d rounds", g.tracker.Score, g.tracker.Rounds)
	case EndHunterStuck:
		g.message = fmt.Sprintf("The hunter is stuck! Score %d in %d rounds", g.tracker.Score, g.tracker.Rounds)
	default:
		g.message = fmt.Sprintf("Game ended. Score %d in %d rounds", g.tracker.Score, g.tracker.Rounds)
	}
}
