package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/treasurehunt/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	layouts   LayoutManager
	publisher Publisher
	now       func() time.Time
	mu        sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithPublisher sends state and events to p after every mutation
func WithPublisher(p Publisher) Option {
	return func(s *gameServiceImpl) { s.publisher = p }
}

// WithClock replaces time.Now for event timestamps
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) { s.now = now }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, layouts LayoutManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		layouts:  layouts,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session. With a layout the game starts
// in setup mode with the layout already placed; without one it is idle.
func (s *gameServiceImpl) CreateSession(ctx context.Context, layoutID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var layout *engine.Layout
	if layoutID != "" {
		var err error
		layout, err = s.loadLayout(layoutID)
		if err != nil {
			return nil, err
		}
	}

	sess, err := s.sessions.Create("")
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if layout != nil {
		if _, err := sess.Game.RequestTransition(engine.EventStartSetup); err != nil {
			s.sessions.Delete(sess.ID)
			return nil, fmt.Errorf("start setup: %w", err)
		}
		if _, err := sess.Game.ApplyLayout(layout); err != nil {
			s.sessions.Delete(sess.ID)
			return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
		}
		sess.LayoutID = layoutID
	}
	sess.drainEvents()

	log.WithFields(log.Fields{"session": sess.ID, "layout": layoutID}).Info("session created")
	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	log.WithField("session", sessionID).Info("session deleted")
	return nil
}

// Transition fires a mode transition event
func (s *gameServiceImpl) Transition(ctx context.Context, sessionID string, event engine.Event) (*TransitionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.activeSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.transition(sess, event)
}

// Advance fires the next event of the single control button
func (s *gameServiceImpl) Advance(ctx context.Context, sessionID string) (*TransitionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.activeSession(sessionID)
	if err != nil {
		return nil, err
	}

	ev, ok := engine.NextEvent(sess.Game.Mode())
	if !ok {
		return nil, fmt.Errorf("%w: no transition from %s mode", engine.ErrInvalidTransition, sess.Game.Mode())
	}
	return s.transition(sess, ev)
}

// transition applies event to the session game. Callers hold the write lock.
func (s *gameServiceImpl) transition(sess *Session, event engine.Event) (*TransitionResult, error) {
	from := sess.Game.Mode()
	mode, err := sess.Game.RequestTransition(event)
	if err != nil {
		sess.drainEvents()
		return nil, err
	}
	log.WithFields(log.Fields{"session": sess.ID, "event": event, "from": from, "to": mode}).Debug("transition")

	events := s.finish(sess, nil)
	return &TransitionResult{Mode: sess.Game.Mode(), GameState: sess.Game.State(), Events: events}, nil
}

// DismissSummary closes the end-of-game summary and resumes input
func (s *gameServiceImpl) DismissSummary(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.InputSuspended {
		return nil, ErrNoOpenSummary
	}
	sess.InputSuspended = false

	s.finish(sess, []GameEvent{{
		Type:    EventSummaryDismissed,
		Message: "Summary dismissed, restart to play again",
	}})
	return sess.Game.State(), nil
}

// Place puts a single item on the board during setup
func (s *gameServiceImpl) Place(ctx context.Context, sessionID string, x, y int, command rune) (*PlaceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.activeSession(sessionID)
	if err != nil {
		return nil, err
	}

	change, err := sess.Game.PlaceItem(x, y, command)
	if err != nil {
		sess.drainEvents()
		return nil, err
	}

	events := s.finish(sess, nil)
	return &PlaceResult{
		Changes:   []engine.CellChange{change},
		GameState: sess.Game.State(),
		Events:    events,
	}, nil
}

// ApplyLayout places a stored layout onto the board during setup
func (s *gameServiceImpl) ApplyLayout(ctx context.Context, sessionID, layoutID string) (*PlaceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.activeSession(sessionID)
	if err != nil {
		return nil, err
	}
	layout, err := s.loadLayout(layoutID)
	if err != nil {
		return nil, err
	}

	changes, err := sess.Game.ApplyLayout(layout)
	if err != nil {
		sess.drainEvents()
		return nil, err
	}
	sess.LayoutID = layoutID

	events := s.finish(sess, nil)
	return &PlaceResult{Changes: changes, GameState: sess.Game.State(), Events: events}, nil
}

// Move executes a single move. A blocked move is reported through
// Success=false rather than an error.
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, direction engine.Direction) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.activeSession(sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := sess.Game.Move(direction)
	if err != nil && !errors.Is(err, engine.ErrInvalidMove) {
		sess.drainEvents()
		return nil, err
	}

	events := s.finish(sess, moveEvents(outcome, sess.Game))
	return &MoveResult{
		Success:   outcome.Moved,
		GameState: sess.Game.State(),
		Outcome:   outcome,
		Message:   sess.Game.Message(),
		Events:    events,
	}, nil
}

// BulkMove executes multiple moves in sequence, stopping at the first
// blocked move or when the game ends
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.activeSession(sessionID)
	if err != nil {
		return nil, err
	}
	game := sess.Game
	if game.Mode() != engine.ModePlay {
		return nil, fmt.Errorf("%w: the hunter can only move in play mode, current mode is %s", engine.ErrWrongMode, game.Mode())
	}

	startPos, _ := game.Board().FindHunter()
	startScore, startRounds := game.Score(), game.Rounds()

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Success:        true,
		StartPos:       startPos,
		Events:         []GameEvent{},
	}

	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	var extra []GameEvent
	for i, m := range moves {
		if game.Mode() != engine.ModePlay {
			result.StopReasonCode = StopGameOver
			result.StoppedReason = "game over"
			result.StoppedOnMove = i + 1
			break
		}

		dir, err := engine.ParseDirection(m)
		if err != nil {
			result.Success = false
			result.StopReasonCode = StopInvalidInput
			result.StoppedReason = fmt.Sprintf("move %d: %v", i+1, err)
			result.StoppedOnMove = i + 1
			break
		}

		outcome, err := game.Move(dir)
		if err != nil && !errors.Is(err, engine.ErrInvalidMove) {
			sess.drainEvents()
			return nil, err
		}
		result.Steps = append(result.Steps, outcome)
		extra = append(extra, moveEvents(outcome, game)...)

		if !outcome.Moved {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s by %s at %s", i+1, dir, outcome.Blocked, outcome.Target)
			result.StoppedOnMove = i + 1
			if outcome.Blocked == engine.BlockedObstacle {
				result.StopReasonCode = StopBlockedObstacle
			} else {
				result.StopReasonCode = StopBlockedBoundary
			}
			break
		}
		result.MovesExecuted++

		if outcome.Ended {
			result.StopReasonCode = StopGameOver
			result.StoppedReason = "game over: " + string(outcome.EndReason)
			if i+1 < len(moves) {
				result.StoppedOnMove = i + 1
			}
			break
		}
	}

	result.Events = append(result.Events, s.finish(sess, extra)...)
	result.GameState = game.State()
	if result.GameState.HunterPos != nil {
		result.EndPos = *result.GameState.HunterPos
	}
	result.ScoreDelta = game.Score() - startScore
	result.RoundDelta = game.Rounds() - startRounds
	result.GameOver = game.Mode() == engine.ModeEnd
	result.Summary = game.Summary()
	result.Message = game.Message()

	return result, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Game.State(), nil
}

// GetMoveHistory returns paginated move history of the current play-through
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return paginate(sess.Game.History(), opts), nil
}

// GetResults returns the summaries of the finished play-throughs
func (s *gameServiceImpl) GetResults(ctx context.Context, sessionID string) ([]engine.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Summary, len(sess.Results))
	copy(out, sess.Results)
	return out, nil
}

// ListLayouts returns the default layout followed by the available board
// layouts
func (s *gameServiceImpl) ListLayouts(ctx context.Context) ([]*LayoutInfo, error) {
	layouts, err := s.layouts.ListLayouts()
	if err != nil {
		return nil, err
	}
	def := s.layouts.GetDefault()
	if def == nil {
		return layouts, nil
	}
	return append([]*LayoutInfo{{
		LayoutID:    DefaultLayoutID,
		Name:        def.Name,
		Description: def.Description,
		Stats:       def.Stats(),
		Default:     true,
	}}, layouts...), nil
}

// LoadLayout loads a specific board layout
func (s *gameServiceImpl) LoadLayout(ctx context.Context, layoutID string) (*engine.Layout, error) {
	return s.loadLayout(layoutID)
}

// SaveLayout validates and stores a board layout
func (s *gameServiceImpl) SaveLayout(ctx context.Context, layoutID string, layout *engine.Layout) error {
	if layoutID == "" {
		return fmt.Errorf("%w: layout id is required", ErrInvalidLayout)
	}
	if err := engine.ValidateLayout(layout); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if err := s.layouts.SaveLayout(layoutID, layout); err != nil {
		return err
	}
	log.WithField("layout", layoutID).Info("layout saved")
	return nil
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// activeSession returns a session that accepts input
func (s *gameServiceImpl) activeSession(sessionID string) (*Session, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.InputSuspended {
		return nil, ErrInputSuspended
	}
	return sess, nil
}

func (s *gameServiceImpl) loadLayout(layoutID string) (*engine.Layout, error) {
	if strings.EqualFold(layoutID, DefaultLayoutID) {
		if def := s.layouts.GetDefault(); def != nil {
			return def, nil
		}
		return nil, fmt.Errorf("%w: no default layout configured", ErrLayoutNotFound)
	}

	layout, err := s.layouts.LoadLayout(layoutID)
	if err == nil {
		return layout, nil
	}
	if !errors.Is(err, ErrLayoutNotFound) {
		return nil, fmt.Errorf("failed to load layout %s: %w", layoutID, err)
	}

	available, listErr := s.layouts.ListLayouts()
	if listErr == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, l := range available {
			ids = append(ids, l.LayoutID)
		}
		return nil, fmt.Errorf("%w: '%s', available layouts: %v", ErrLayoutNotFound, layoutID, ids)
	}
	return nil, fmt.Errorf("%w: '%s'", ErrLayoutNotFound, layoutID)
}

// finish collects the engine notifications plus extra events, handles the
// transition into End and publishes the result
func (s *gameServiceImpl) finish(sess *Session, extra []GameEvent) []GameEvent {
	events := append(sess.drainEvents(), extra...)
	now := s.now()
	for i := range events {
		if events[i].Timestamp.IsZero() {
			events[i].Timestamp = now
		}
	}

	if summary := sess.Game.Summary(); summary != nil && !sess.InputSuspended && !hasResult(sess, summary.GameID) {
		sess.InputSuspended = true
		sess.Results = append(sess.Results, *summary)
		events = append(events, GameEvent{
			Type:      EventGameOver,
			Message:   sess.Game.Message(),
			Timestamp: now,
			Summary:   summary,
		})
		log.WithFields(log.Fields{
			"session":     sess.ID,
			"score":       summary.Score,
			"rounds":      summary.Rounds,
			"performance": summary.PerformanceIndex,
			"reason":      summary.Reason,
		}).Info("game over")
	}

	if s.publisher != nil {
		s.publisher.Publish(sess.ID, sess.Game.State(), events)
	}
	return events
}

func hasResult(sess *Session, gameID string) bool {
	for _, r := range sess.Results {
		if r.GameID == gameID {
			return true
		}
	}
	return false
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LayoutID:       sess.LayoutID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		InputSuspended: sess.InputSuspended,
		GamesPlayed:    len(sess.Results),
		GameState:      sess.Game.State(),
	}
}

// moveEvents derives the move level events from an outcome
func moveEvents(out engine.MoveOutcome, game *engine.Game) []GameEvent {
	if out.Direction == "" {
		return nil
	}
	to := out.To
	events := []GameEvent{{
		Type:      EventMove,
		Message:   game.Message(),
		Position:  &to,
		Direction: out.Direction,
		Blocked:   out.Blocked,
	}}
	if out.Collected > 0 {
		target := out.Target
		events = append(events, GameEvent{
			Type:     EventTreasureCollected,
			Message:  fmt.Sprintf("Collected %d points at %s", out.Collected, target),
			Position: &target,
			Value:    out.Collected,
		})
	}
	if out.SpawnedObstacle != nil {
		pos := *out.SpawnedObstacle
		events = append(events, GameEvent{
			Type:     EventObstacleSpawned,
			Message:  "A new obstacle appeared at " + pos.String(),
			Position: &pos,
		})
	}
	return events
}

// paginate slices the history for one page, newest first by default
func paginate(history []engine.MoveRecord, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveRecord{}
	if start < total {
		if opts.Order == "desc" {
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}
