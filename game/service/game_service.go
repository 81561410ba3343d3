package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/treasurehunt/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, layoutID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Mode control
	Transition(ctx context.Context, sessionID string, event engine.Event) (*TransitionResult, error)
	Advance(ctx context.Context, sessionID string) (*TransitionResult, error)
	DismissSummary(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Setup
	Place(ctx context.Context, sessionID string, x, y int, command rune) (*PlaceResult, error)
	ApplyLayout(ctx context.Context, sessionID, layoutID string) (*PlaceResult, error)

	// Play
	Move(ctx context.Context, sessionID string, direction engine.Direction) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetResults(ctx context.Context, sessionID string) ([]engine.Summary, error)

	// Layouts
	ListLayouts(ctx context.Context) ([]*LayoutInfo, error)
	LoadLayout(ctx context.Context, layoutID string) (*engine.Layout, error)
	SaveLayout(ctx context.Context, layoutID string, layout *engine.Layout) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// LayoutManager handles board layout loading
type LayoutManager interface {
	LoadLayout(name string) (*engine.Layout, error)
	ListLayouts() ([]*LayoutInfo, error)
	GetDefault() *engine.Layout
	SaveLayout(name string, layout *engine.Layout) error
}

// Publisher receives session events for fan-out to renderers. Publish
// must not block.
type Publisher interface {
	Publish(sessionID string, state *engine.GameState, events []GameEvent)
}

// Session represents an active game session
type Session struct {
	ID             string
	Game           *engine.Game
	LayoutID       string
	CreatedAt      time.Time

	// InputSuspended is set while an end-of-game summary is open; only
	// reads and DismissSummary are accepted.
	InputSuspended bool

	// Results holds the summaries of finished play-throughs, oldest first
	Results []engine.Summary

	recorder *eventRecorder

	// lastAccessed is touched by readers holding only the service read lock
	accessMu     sync.Mutex
	lastAccessed time.Time
}

// NewSession creates a session around a fresh game
func NewSession(id string, opts ...engine.Option) (*Session, error) {
	rec := &eventRecorder{now: time.Now}
	game, err := engine.NewGame(append(opts, engine.WithObserver(rec))...)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:           id,
		Game:         game,
		CreatedAt:    now,
		recorder:     rec,
		lastAccessed: now,
	}, nil
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.accessMu.Lock()
	s.lastAccessed = t
	s.accessMu.Unlock()
}

// LastAccessed returns the time of the most recent access
func (s *Session) LastAccessed() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	return s.lastAccessed
}

// drainEvents returns the events recorded since the last drain
func (s *Session) drainEvents() []GameEvent {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.drain()
}

// eventRecorder turns engine notifications into GameEvents
type eventRecorder struct {
	mu     sync.Mutex
	events []GameEvent
	now    func() time.Time
}

func (r *eventRecorder) add(ev GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.Timestamp = r.now()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) drain() []GameEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func (r *eventRecorder) CellChanged(c engine.CellChange) {
	pos, cell := c.Position, c.Cell
	r.add(GameEvent{
		Type:     EventCellChanged,
		Message:  "cell " + pos.String() + " is now " + cell.Type.String(),
		Position: &pos,
		Cell:     &cell,
	})
}

func (r *eventRecorder) ObstacleBumped(p engine.Position) {
	r.add(GameEvent{
		Type:     EventObstacleBumped,
		Message:  "bumped into the obstacle at " + p.String(),
		Position: &p,
	})
}

func (r *eventRecorder) ModeChanged(from, to engine.Mode) {
	r.add(GameEvent{
		Type:    EventModeChanged,
		Message: "mode changed from " + string(from) + " to " + string(to),
		From:    from,
		To:      to,
	})
}
