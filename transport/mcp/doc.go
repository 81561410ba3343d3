// Package mcp exposes the Treasure Hunt Game to AI agents over the Model
// Context Protocol.
//
// The Client proxies every tool call to the REST API of a running server,
// so an agent talking over stdio sees the same sessions as browsers and the
// WebSocket feed. Tool results are plain text: a board dump, the hunter
// position, treasure counts and the possible moves.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state, describe_cell
//   - transition (start-setup, end-setup, end-game, restart)
//   - place_item, apply_layout
//   - move, bulk_move
//   - dismiss_summary
//   - move_history
//   - list_layouts, game_instructions
//
// Every game tool needs a session_id. REST errors come back as tool errors
// carrying the machine-readable code, for example INPUT_SUSPENDED while an
// end-of-game summary is still open.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
