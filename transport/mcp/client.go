package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/treasurehunt/game/engine"
	"github.com/wricardo/mcp-training/treasurehunt/game/service"
)

// ServerName and ServerVersion identify the MCP server to clients
const (
	ServerName    = "Treasure Hunt Game"
	ServerVersion = "1.0.0"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Treasure Hunt Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Place a treasure hunter (h), treasures (5-8) and obstacles (o) on a 10x10
board, then walk the hunter around to collect every treasure in as few
rounds as possible. Each collected treasure spawns a new obstacle.

FLOW:
create_session -> transition start-setup -> place_item / apply_layout ->
transition end-setup -> move / bulk_move -> game over -> dismiss_summary ->
transition restart

Call game_instructions for the full rules.`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func (c *Client) registerTools() {
	noArgs := mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}}
	sessionOnly := mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{"session_id": sessionProp()},
		Required:   []string{"session_id"},
	}
	directions := []string{"up", "down", "left", "right"}

	// Sessions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session. With layout_id the board is pre-filled and the game waits in setup mode; without it the game is idle.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"layout_id": map[string]interface{}{
					"type":        "string",
					"description": "Layout to place (optional, see list_layouts; \"default\" picks the server default)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: noArgs,
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnly,
	}, c.handleGetSession)

	// Game
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state with the board",
		InputSchema: sessionOnly,
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "transition",
		Description: "Change the game mode. Allowed: idle->setup (start-setup), setup->play (end-setup), play->end (end-game), end->setup (restart).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"event": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"start-setup", "end-setup", "end-game", "restart"},
					"description": "Transition event",
				},
			},
			Required: []string{"session_id", "event"},
		},
	}, c.handleTransition)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_item",
		Description: "Place an item on an empty cell during setup: '5'-'8' treasure, 'o' obstacle, 'h' the hunter (once)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row (0-based)",
				},
				"command": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"5", "6", "7", "8", "o", "h"},
					"description": "Item to place",
				},
			},
			Required: []string{"session_id", "x", "y", "command"},
		},
	}, c.handlePlaceItem)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "apply_layout",
		Description: "Place every item of a stored layout during setup. Fails without changes if any target cell is taken.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"layout_id": map[string]interface{}{
					"type":        "string",
					"description": "Layout to apply (\"default\" picks the server default)",
				},
			},
			Required: []string{"session_id", "layout_id"},
		},
	}, c.handleApplyLayout)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move the hunter one cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        directions,
					"description": "Direction to move",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d moves in sequence, stopping at the first blocked move or when the game ends", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": directions,
					},
					"description": "Array of moves",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "dismiss_summary",
		Description: "Close the end-of-game summary so input is accepted again",
		InputSchema: sessionOnly,
	}, c.handleDismissSummary)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for the current game of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	// Reference
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_layouts",
		Description: "List available board layouts with their treasure and obstacle counts",
		InputSchema: noArgs,
	}, c.handleListLayouts)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the game rules and command reference",
		InputSchema: noArgs,
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe the content of one board cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row (0-based)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// APIError is a REST error response
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error == "" {
			errResp.Error = fmt.Sprintf("API error: %d", resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Code: errResp.Code, Message: errResp.Error}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	id, _ := args["session_id"].(string)
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]string{}
	if layoutID, _ := args["layout_id"].(string); layoutID != "" {
		body["layout_id"] = layoutID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created session: " + session.ID + "\n\n" + formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		mode := engine.ModeIdle
		score := 0
		if s.GameState != nil {
			mode, score = s.GameState.Mode, s.GameState.Score
		}
		fmt.Fprintf(&b, "- %s (mode: %s, score: %d, games: %d, created: %s)\n",
			s.ID, mode, score, s.GamesPlayed, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleTransition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/transition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	event, _ := args["event"].(string)

	var result service.TransitionResult
	if err := c.apiCall(ctx, http.MethodPost, path, map[string]string{"event": event}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mode is now %s\n", result.Mode)
	writeEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handlePlaceItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/place")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y must be integers"), nil
	}
	command, _ := args["command"].(string)

	var result service.PlaceResult
	body := map[string]interface{}{"x": x, "y": y, "command": command}
	if err := c.apiCall(ctx, http.MethodPost, path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	for _, ch := range result.Changes {
		fmt.Fprintf(&b, "Placed %s at %s\n", engine.DescribeCell(ch.Cell), ch.Position)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleApplyLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/layout")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	layoutID, _ := args["layout_id"].(string)

	var result service.PlaceResult
	if err := c.apiCall(ctx, http.MethodPost, path, map[string]string{"layout_id": layoutID}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Applied layout %s: %d items placed\n\n%s", layoutID, len(result.Changes), formatGameState(result.GameState))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	direction, _ := args["direction"].(string)

	var result service.MoveResult
	if err := c.apiCall(ctx, http.MethodPost, path, map[string]string{"direction": direction}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/bulk-move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, _ := args["moves"].([]interface{})
	moves := make([]string, 0, len(raw))
	for _, m := range raw {
		if move, ok := m.(string); ok {
			moves = append(moves, move)
		}
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, http.MethodPost, path, map[string]interface{}{"moves": moves}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBulkMoveResult(&result)), nil
}

func (c *Client) handleDismissSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/dismiss")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodPost, path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Summary dismissed. Use transition restart to play again.\n\n" + formatGameState(&state)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListLayouts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var layouts []service.LayoutInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/layouts", nil, &layouts); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Layouts:\n\n")
	for _, l := range layouts {
		if l.Default {
			fmt.Fprintf(&b, "• %s (%s) [server default]\n", l.LayoutID, l.Name)
		} else {
			fmt.Fprintf(&b, "• %s (%s)\n", l.LayoutID, l.Name)
		}
		if l.Description != "" {
			fmt.Fprintf(&b, "  %s\n", l.Description)
		}
		hunter := "no hunter"
		if l.Stats.Hunter != nil {
			hunter = "hunter at " + l.Stats.Hunter.String()
		}
		fmt.Fprintf(&b, "  Treasures: %d worth %d points, obstacles: %d, %s\n\n",
			l.Stats.Treasures.Total(), l.Stats.TotalPoints, l.Stats.Obstacles, hunter)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions()), nil
}

// gameInstructions appends the board symbol legend to the rules
func gameInstructions() string {
	legend := engine.CellLegend()
	symbols := make([]string, 0, len(legend))
	for s := range legend {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nBOARD SYMBOLS (game_state):\n")
	for _, s := range symbols {
		fmt.Fprintf(&b, "• %s  %s\n", s, legend[s])
	}
	b.WriteString("\nCoordinates are (x,y) with (0,0) in the top-left corner; y grows downward.")
	return b.String()
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y must be integers"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if y < 0 || y >= len(state.Grid) || x < 0 || x >= len(state.Grid[y]) {
		return mcp.NewToolResultError(fmt.Sprintf("(%d,%d) is outside the %dx%d board", x, y, state.Width, state.Height)), nil
	}

	cell := state.Grid[y][x]
	text := fmt.Sprintf("Cell (%d,%d): %s\nSymbol: %s", x, y, engine.DescribeCell(cell), cell.Symbol())
	if state.HunterPos != nil {
		text += fmt.Sprintf("\nDistance from hunter: %d", engine.ManhattanDistance(*state.HunterPos, engine.Position{X: x, Y: y}))
	}
	return mcp.NewToolResultText(text), nil
}

const instructions = `Treasure Hunt Game - Instructions

MODES:
• idle  - nothing happens until start-setup
• setup - place items on the empty 10x10 board
• play  - move the hunter
• end   - a summary is shown; dismiss it, then restart

TRANSITIONS (transition tool):
• start-setup: idle -> setup
• end-setup:   setup -> play (requires a placed hunter)
• end-game:    play -> end
• restart:     end -> setup with a cleared board

SETUP (place_item tool), only on empty cells:
• 5, 6, 7, 8 - treasure worth that many points
• o          - obstacle
• h          - the treasure hunter, exactly once per game

PLAY (move / bulk_move tools):
• Each successful step costs one round
• Walking onto a treasure adds its value to the score and spawns a new
  obstacle on a random empty cell
• Obstacles and the board edge block a move; a blocked move costs nothing
• The game ends when every treasure is collected or the hunter is boxed in
  on all four sides

SCORING:
• Performance index = score / rounds, rounded to two decimals
  (0 when no rounds were played)`

// Formatters

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	if session.LayoutID != "" {
		fmt.Fprintf(&b, "Layout: %s\n", session.LayoutID)
	}
	fmt.Fprintf(&b, "Games played: %d\n", session.GamesPlayed)
	if session.InputSuspended {
		b.WriteString("Summary open: dismiss it to continue\n")
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(session.GameState))
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mode: %s | Score: %d | Rounds: %d | Performance: %.2f\n",
		state.Mode, state.Score, state.Rounds, state.PerformanceIndex)

	hunter := "not placed"
	if state.HunterPos != nil {
		hunter = state.HunterPos.String()
	}
	fmt.Fprintf(&b, "Hunter: %s | Treasures left: %d (5:%d 6:%d 7:%d 8:%d) | Obstacles: %d\n\n",
		hunter, state.Treasures.Total(),
		state.Treasures.Five, state.Treasures.Six, state.Treasures.Seven, state.Treasures.Eight,
		state.Obstacles)

	for _, row := range state.Rows {
		b.WriteString(row)
		b.WriteString("\n")
	}

	if len(state.PossibleMoves) > 0 {
		moves := make([]string, len(state.PossibleMoves))
		for i, d := range state.PossibleMoves {
			moves[i] = string(d)
		}
		fmt.Fprintf(&b, "\nPossible moves: %s", strings.Join(moves, ", "))
	}

	if state.Mode == engine.ModePlay {
		if pos, value, dist, ok := engine.FindNearestTreasure(state); ok {
			fmt.Fprintf(&b, "\nNearest treasure: %d at %s (%d steps)", value, pos, dist)
		}
	}

	if state.Summary != nil {
		fmt.Fprintf(&b, "\n\nGAME OVER (%s): score %d in %d rounds, performance %.2f",
			state.Summary.Reason, state.Summary.Score, state.Summary.Rounds, state.Summary.PerformanceIndex)
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}
	return b.String()
}

func formatOutcome(out engine.MoveOutcome) string {
	switch {
	case out.Blocked != "":
		return fmt.Sprintf("%s from %s blocked by %s at %s", out.Direction, out.From, out.Blocked, out.Target)
	case out.Collected > 0:
		s := fmt.Sprintf("%s %s -> %s collected %d", out.Direction, out.From, out.To, out.Collected)
		if out.SpawnedObstacle != nil {
			s += fmt.Sprintf(", obstacle spawned at %s", out.SpawnedObstacle)
		}
		return s
	default:
		return fmt.Sprintf("%s %s -> %s", out.Direction, out.From, out.To)
	}
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	status := "OK"
	if !result.Success {
		status = "BLOCKED"
	}
	fmt.Fprintf(&b, "[%s] %s\n", status, formatOutcome(result.Outcome))
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(result *service.BulkMoveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d/%d moves", result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated to %d)", result.Limit)
	}
	b.WriteString("\n")
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s\n", result.StoppedOnMove, result.StoppedReason)
	}
	fmt.Fprintf(&b, "Start %s -> end %s | score +%d | rounds +%d\n",
		result.StartPos, result.EndPos, result.ScoreDelta, result.RoundDelta)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for i, s := range result.Steps {
			fmt.Fprintf(&b, "%2d. %s\n", i+1, formatOutcome(s))
		}
	}

	writeEvents(&b, result.Events)

	if result.GameOver && result.Summary != nil {
		fmt.Fprintf(&b, "\nGame over: dismiss_summary, then transition restart to play again\n")
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func writeEvents(b *strings.Builder, events []service.GameEvent) {
	var notable []service.GameEvent
	for _, ev := range events {
		if ev.Type != service.EventCellChanged {
			notable = append(notable, ev)
		}
	}
	if len(notable) == 0 {
		return
	}
	b.WriteString("\nEvents:\n")
	for _, ev := range notable {
		fmt.Fprintf(b, "- %s: %s\n", ev.Type, ev.Message)
	}
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (page %d of %d, %d moves total):\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, m := range history.Moves {
		status := "ok"
		if !m.Success {
			status = "blocked by " + string(m.Blocked)
		}
		line := fmt.Sprintf("#%d %s %s -> %s (%s) score=%d rounds=%d",
			m.MoveNumber, m.Direction, m.From, m.To, status, m.Score, m.Rounds)
		if m.Collected > 0 {
			line += fmt.Sprintf(" +%d", m.Collected)
		}
		b.WriteString(line + "\n")
	}

	if history.HasNext {
		fmt.Fprintf(&b, "\nMore moves on page %d", history.Page+1)
	}
	return b.String()
}
