package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/mcp-training/treasurehunt/game/engine"
	"github.com/wricardo/mcp-training/treasurehunt/game/service"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

// newAPIServer answers every request with the given status and body and
// records what it received
func newAPIServer(t *testing.T, status int, response interface{}) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Method = r.Method
		rec.Path = r.URL.Path
		rec.Query = r.URL.RawQuery
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			json.Unmarshal(data, &rec.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(server.Close)
	return server, rec
}

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func samplePlayState() *engine.GameState {
	hunter := engine.Position{X: 0, Y: 0}
	rows := []string{"h5........", "..........", "..........", "..........", "..........",
		"..........", "..........", "..........", "..........", ".........8"}
	grid := make([][]engine.Cell, len(rows))
	for y, row := range rows {
		grid[y] = make([]engine.Cell, len(row))
		for x, ch := range row {
			switch {
			case ch == 'h':
				grid[y][x] = engine.HunterCell()
			case ch >= '5' && ch <= '8':
				grid[y][x] = engine.TreasureCell(int(ch - '0'))
			}
		}
	}
	return &engine.GameState{
		Mode:          engine.ModePlay,
		Width:         10,
		Height:        10,
		Grid:          grid,
		Rows:          rows,
		HunterPos:     &hunter,
		HunterPlaced:  true,
		Score:         12,
		Rounds:        5,
		Treasures:     engine.TreasureCounts{Five: 1, Eight: 1},
		PossibleMoves: []engine.Direction{engine.Right, engine.Down},
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClientRegistersTools(t *testing.T) {
	client := NewClient("http://localhost:8080")

	want := []string{
		"create_session", "list_sessions", "get_session", "game_state",
		"transition", "place_item", "apply_layout", "move", "bulk_move",
		"dismiss_summary", "move_history", "list_layouts", "game_instructions",
		"describe_cell",
	}

	message := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	response := client.GetMCPServer().HandleMessage(context.Background(), message)

	data, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("Failed to marshal tools/list response: %v", err)
	}
	var decoded struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode tools/list response: %v", err)
	}

	registered := make(map[string]bool)
	for _, tool := range decoded.Result.Tools {
		registered[tool.Name] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("Tool %s not registered", name)
		}
	}
	if len(registered) != len(want) {
		t.Errorf("Expected %d tools, got %d", len(want), len(registered))
	}
}

func TestClient_apiCallError(t *testing.T) {
	server, _ := newAPIServer(t, http.StatusConflict, map[string]string{
		"error": "an object is already placed here",
		"code":  "CELL_OCCUPIED",
	})
	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), http.MethodPost, "/api/sessions/ab12/place", map[string]int{"x": 1}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Code != "CELL_OCCUPIED" {
		t.Errorf("Unexpected error: %+v", apiErr)
	}
	if !strings.Contains(err.Error(), "CELL_OCCUPIED") {
		t.Errorf("Expected code in error text, got %q", err.Error())
	}
}

func TestClient_apiCallNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewClient(server.URL).apiCall(context.Background(), http.MethodGet, "/", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestHandleCreateSession(t *testing.T) {
	server, rec := newAPIServer(t, http.StatusCreated, service.SessionInfo{
		ID:        "ab12",
		LayoutID:  "classic",
		GameState: &engine.GameState{Mode: engine.ModeSetup},
	})
	client := NewClient(server.URL)

	result, err := client.handleCreateSession(context.Background(), callTool("create_session", map[string]interface{}{
		"layout_id": "classic",
	}))
	if err != nil {
		t.Fatalf("handleCreateSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Created session: ab12") || !strings.Contains(text, "Layout: classic") {
		t.Errorf("Unexpected text: %s", text)
	}
	if rec.Method != http.MethodPost || rec.Path != "/api/sessions" {
		t.Errorf("Unexpected request %s %s", rec.Method, rec.Path)
	}
	if rec.Body["layout_id"] != "classic" {
		t.Errorf("Expected layout_id in body, got %v", rec.Body)
	}
}

func TestToolsRequireSessionID(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"get_session":     client.handleGetSession,
		"game_state":      client.handleGameState,
		"transition":      client.handleTransition,
		"place_item":      client.handlePlaceItem,
		"apply_layout":    client.handleApplyLayout,
		"move":            client.handleMove,
		"bulk_move":       client.handleBulkMove,
		"dismiss_summary": client.handleDismissSummary,
		"move_history":    client.handleMoveHistory,
		"describe_cell":   client.handleDescribeCell,
	}

	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			result, err := handler(context.Background(), callTool(name, map[string]interface{}{}))
			if err != nil {
				t.Fatalf("Expected a tool error result, got %v", err)
			}
			if !result.IsError {
				t.Error("Expected IsError for a missing session_id")
			}
		})
	}
}

func TestToolRequests(t *testing.T) {
	tests := []struct {
		name     string
		handler  func(c *Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args     map[string]interface{}
		response interface{}
		method   string
		path     string
		query    string
		body     map[string]interface{}
		contains string
	}{
		{
			name:     "transition",
			handler:  func(c *Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return c.handleTransition },
			args:     map[string]interface{}{"session_id": "ab12", "event": "end-setup"},
			response: service.TransitionResult{Mode: engine.ModePlay, GameState: samplePlayState()},
			method:   http.MethodPost,
			path:     "/api/sessions/ab12/transition",
			body:     map[string]interface{}{"event": "end-setup"},
			contains: "Mode is now play",
		},
		{
			name:    "place item",
			handler: func(c *Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return c.handlePlaceItem },
			args:    map[string]interface{}{"session_id": "ab12", "x": float64(3), "y": float64(4), "command": "7"},
			response: service.PlaceResult{
				Changes:   []engine.CellChange{{Position: engine.Position{X: 3, Y: 4}, Cell: engine.TreasureCell(7)}},
				GameState: &engine.GameState{Mode: engine.ModeSetup},
			},
			method:   http.MethodPost,
			path:     "/api/sessions/ab12/place",
			body:     map[string]interface{}{"x": float64(3), "y": float64(4), "command": "7"},
			contains: "Placed a treasure worth 7 points at (3,4)",
		},
		{
			name:     "apply layout",
			handler:  func(c *Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return c.handleApplyLayout },
			args:     map[string]interface{}{"session_id": "ab12", "layout_id": "corridor"},
			response: service.PlaceResult{Changes: make([]engine.CellChange, 3), GameState: &engine.GameState{}},
			method:   http.MethodPost,
			path:     "/api/sessions/ab12/layout",
			body:     map[string]interface{}{"layout_id": "corridor"},
			contains: "3 items placed",
		},
		{
			name:    "blocked move",
			handler: func(c *Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return c.handleMove },
			args:    map[string]interface{}{"session_id": "ab12", "direction": "up", "intent": "test the edge"},
			response: service.MoveResult{
				Success:   false,
				GameState: samplePlayState(),
				Outcome: engine.MoveOutcome{
					Direction: engine.Up,
					Target:    engine.Position{X: 0, Y: -1},
					Blocked:   engine.BlockedBoundary,
				},
			},
			method:   http.MethodPost,
			path:     "/api/sessions/ab12/move",
			body:     map[string]interface{}{"direction": "up"},
			contains: "[BLOCKED] up from (0,0) blocked by boundary at (0,-1)",
		},
		{
			name:    "bulk move",
			handler: func(c *Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return c.handleBulkMove },
			args:    map[string]interface{}{"session_id": "ab12", "moves": []interface{}{"right", "right"}},
			response: service.BulkMoveResult{
				MovesExecuted:  1,
				RequestedMoves: 2,
				StoppedReason:  "blocked by obstacle",
				StoppedOnMove:  2,
				ScoreDelta:     5,
				RoundDelta:     1,
				GameState:      samplePlayState(),
			},
			method:   http.MethodPost,
			path:     "/api/sessions/ab12/bulk-move",
			body:     map[string]interface{}{"moves": []interface{}{"right", "right"}},
			contains: "Executed 1/2 moves",
		},
		{
			name:     "dismiss summary",
			handler:  func(c *Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return c.handleDismissSummary },
			args:     map[string]interface{}{"session_id": "ab12"},
			response: engine.GameState{Mode: engine.ModeEnd},
			method:   http.MethodPost,
			path:     "/api/sessions/ab12/dismiss",
			contains: "Summary dismissed",
		},
		{
			name:    "move history with paging",
			handler: func(c *Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return c.handleMoveHistory },
			args:    map[string]interface{}{"session_id": "ab12", "page": float64(2), "limit": float64(5)},
			response: service.HistoryResponse{
				Moves: []engine.MoveRecord{{
					MoveNumber: 6, Direction: engine.Right,
					From: engine.Position{X: 0, Y: 0}, To: engine.Position{X: 1, Y: 0},
					Success: true, Collected: 5, Score: 5, Rounds: 1,
				}},
				TotalMoves: 6, Page: 2, TotalPages: 2,
			},
			method:   http.MethodGet,
			path:     "/api/sessions/ab12/history",
			query:    "limit=5&page=2",
			contains: "#6 right (0,0) -> (1,0) (ok) score=5 rounds=1 +5",
		},
		{
			name:    "list layouts",
			handler: func(c *Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return c.handleListLayouts },
			args:    map[string]interface{}{},
			response: []service.LayoutInfo{{
				LayoutID: "classic", Name: "classic",
				Stats: engine.DefaultLayout().Stats(),
			}},
			method:   http.MethodGet,
			path:     "/api/layouts",
			contains: "hunter at (0,0)",
		},
		{
			name:    "list layouts marks default",
			handler: func(c *Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return c.handleListLayouts },
			args:    map[string]interface{}{},
			response: []service.LayoutInfo{{
				LayoutID: service.DefaultLayoutID, Name: "classic", Default: true,
				Stats: engine.DefaultLayout().Stats(),
			}},
			method:   http.MethodGet,
			path:     "/api/layouts",
			contains: "default (classic) [server default]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, rec := newAPIServer(t, http.StatusOK, tt.response)
			client := NewClient(server.URL)

			result, err := tt.handler(client)(context.Background(), callTool(tt.name, tt.args))
			if err != nil {
				t.Fatalf("Handler failed: %v", err)
			}
			text := resultText(t, result)
			if result.IsError {
				t.Fatalf("Unexpected tool error: %s", text)
			}

			if rec.Method != tt.method || rec.Path != tt.path {
				t.Errorf("Expected %s %s, got %s %s", tt.method, tt.path, rec.Method, rec.Path)
			}
			if rec.Query != tt.query {
				t.Errorf("Expected query %q, got %q", tt.query, rec.Query)
			}
			for k, v := range tt.body {
				got, _ := json.Marshal(rec.Body[k])
				want, _ := json.Marshal(v)
				if string(got) != string(want) {
					t.Errorf("Body field %s: expected %s, got %s", k, want, got)
				}
			}
			if !strings.Contains(text, tt.contains) {
				t.Errorf("Expected %q in output, got:\n%s", tt.contains, text)
			}
		})
	}
}

func TestHandleMoveAPIError(t *testing.T) {
	server, _ := newAPIServer(t, http.StatusLocked, map[string]string{
		"error": "input suspended until the summary is dismissed",
		"code":  "INPUT_SUSPENDED",
	})
	client := NewClient(server.URL)

	result, err := client.handleMove(context.Background(), callTool("move", map[string]interface{}{
		"session_id": "ab12", "direction": "left",
	}))
	if err != nil {
		t.Fatalf("Expected a tool error result, got %v", err)
	}
	if !result.IsError {
		t.Error("Expected IsError")
	}
	if text := resultText(t, result); !strings.Contains(text, "INPUT_SUSPENDED") {
		t.Errorf("Expected error code in text, got %s", text)
	}
}

func TestHandleDescribeCell(t *testing.T) {
	server, rec := newAPIServer(t, http.StatusOK, samplePlayState())
	client := NewClient(server.URL)

	tests := []struct {
		name     string
		x, y     float64
		contains string
		isError  bool
	}{
		{"treasure", 1, 0, "a treasure worth 5 points", false},
		{"hunter", 0, 0, "the treasure hunter", false},
		{"far treasure", 9, 9, "Distance from hunter: 18", false},
		{"empty", 4, 4, "empty ground", false},
		{"outside", 10, 0, "outside the 10x10 board", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := client.handleDescribeCell(context.Background(), callTool("describe_cell", map[string]interface{}{
				"session_id": "ab12", "x": tt.x, "y": tt.y,
			}))
			if err != nil {
				t.Fatalf("handleDescribeCell failed: %v", err)
			}
			if result.IsError != tt.isError {
				t.Errorf("Expected IsError=%v", tt.isError)
			}
			if text := resultText(t, result); !strings.Contains(text, tt.contains) {
				t.Errorf("Expected %q in %q", tt.contains, text)
			}
			if rec.Path != "/api/sessions/ab12/state" {
				t.Errorf("Expected a state request, got %s", rec.Path)
			}
		})
	}
}

func TestHandleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), callTool("game_instructions", nil))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"start-setup", "end-setup", "end-game", "restart", "Performance index"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in instructions", want)
		}
	}
	for symbol, meaning := range engine.CellLegend() {
		if want := "• " + symbol + "  " + meaning; !strings.Contains(text, want) {
			t.Errorf("Expected legend line %q in instructions", want)
		}
	}
}

func TestFormatGameState(t *testing.T) {
	result := formatGameState(samplePlayState())

	for _, want := range []string{
		"Mode: play | Score: 12 | Rounds: 5",
		"Hunter: (0,0)",
		"Treasures left: 2 (5:1 6:0 7:0 8:1)",
		"h5........",
		"Possible moves: right, down",
		"Nearest treasure: 5 at (1,0) (1 steps)",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in formatted output, got:\n%s", want, result)
		}
	}
}

func TestFormatGameState_Summary(t *testing.T) {
	state := &engine.GameState{
		Mode: engine.ModeEnd,
		Summary: &engine.Summary{
			Score:            20,
			Rounds:           3,
			PerformanceIndex: 6.67,
			Reason:           engine.EndAllCollected,
		},
	}

	result := formatGameState(state)
	if !strings.Contains(result, "GAME OVER (all_collected): score 20 in 3 rounds, performance 6.67") {
		t.Errorf("Expected summary line, got:\n%s", result)
	}
	if !strings.Contains(result, "Hunter: not placed") {
		t.Errorf("Expected hunter placeholder, got:\n%s", result)
	}
}

func TestFormatGameState_Nil(t *testing.T) {
	if got := formatGameState(nil); got != "No game state available" {
		t.Errorf("Unexpected output for nil state: %q", got)
	}
}
