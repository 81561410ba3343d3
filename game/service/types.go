package service

import (
	"errors"
	"time"

	"github.com/wricardo/mcp-training/treasurehunt/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInputSuspended  = errors.New("input suspended until the summary is dismissed")
	ErrNoOpenSummary   = errors.New("no summary to dismiss")
	ErrLayoutNotFound  = errors.New("layout not found")
	ErrInvalidLayout   = errors.New("invalid layout")
)

// Event types published to renderers
const (
	EventModeChanged       = "mode_changed"
	EventCellChanged       = "cell_changed"
	EventTreasureCollected = "treasure_collected"
	EventObstacleSpawned   = "obstacle_spawned"
	EventObstacleBumped    = "obstacle_bumped"
	EventMove              = "move"
	EventGameOver          = "game_over"
	EventSummaryDismissed  = "summary_dismissed"
)

// DefaultLayoutID names the layout manager's default layout wherever a
// layout id is accepted
const DefaultLayoutID = "default"

// Bulk move stop codes
const (
	StopBlockedBoundary = "blocked_boundary"
	StopBlockedObstacle = "blocked_obstacle"
	StopGameOver        = "game_over"
	StopInvalidInput    = "invalid_input"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	LayoutID       string            `json:"layout_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	InputSuspended bool              `json:"input_suspended"`
	GamesPlayed    int               `json:"games_played"`
	GameState      *engine.GameState `json:"game_state"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string             `json:"type"`
	Message   string             `json:"message"`
	Timestamp time.Time          `json:"timestamp"`
	Position  *engine.Position   `json:"position,omitempty"`
	Cell      *engine.Cell       `json:"cell,omitempty"`
	From      engine.Mode        `json:"from,omitempty"`
	To        engine.Mode        `json:"to,omitempty"`
	Value     int                `json:"value,omitempty"`
	Summary   *engine.Summary    `json:"summary,omitempty"`
	Direction engine.Direction   `json:"direction,omitempty"`
	Blocked   engine.BlockReason `json:"blocked,omitempty"`
}

// TransitionResult is returned by mode transitions
type TransitionResult struct {
	Mode      engine.Mode       `json:"mode"`
	GameState *engine.GameState `json:"game_state"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// PlaceResult is returned by item placement and layout application
type PlaceResult struct {
	Changes   []engine.CellChange `json:"changes"`
	GameState *engine.GameState   `json:"game_state"`
	Events    []GameEvent         `json:"events,omitempty"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool               `json:"success"`
	GameState *engine.GameState  `json:"game_state"`
	Outcome   engine.MoveOutcome `json:"outcome"`
	Message   string             `json:"message"`
	Events    []GameEvent        `json:"events,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int                  `json:"moves_executed"`
	RequestedMoves int                  `json:"requested_moves"`
	Success        bool                 `json:"success"`
	GameState      *engine.GameState    `json:"game_state"`
	Events         []GameEvent          `json:"events"`
	Steps          []engine.MoveOutcome `json:"steps,omitempty"`
	StoppedReason  string               `json:"stopped_reason,omitempty"`
	StopReasonCode string               `json:"stop_reason_code,omitempty"`
	StoppedOnMove  int                  `json:"stopped_on_move,omitempty"`
	Truncated      bool                 `json:"truncated,omitempty"`
	Limit          int                  `json:"limit,omitempty"`

	StartPos   engine.Position `json:"start_pos"`
	EndPos     engine.Position `json:"end_pos"`
	ScoreDelta int             `json:"score_delta"`
	RoundDelta int             `json:"round_delta"`

	GameOver bool            `json:"game_over"`
	Summary  *engine.Summary `json:"summary,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveRecord `json:"moves"`
	TotalMoves  int                 `json:"total_moves"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// LayoutInfo provides information about a board layout
type LayoutInfo struct {
	Filename    string             `json:"filename"`
	LayoutID    string             `json:"layout_id"` // The identifier to use for session creation
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Stats       engine.LayoutStats `json:"stats"`
	Default     bool               `json:"default,omitempty"`
}
