// Package api provides the HTTP REST API for the Treasure Hunt Game.
//
// Routes are registered on a gorilla/mux router. Every request passes
// through a logging middleware that records method, path, status, bytes
// and duration.
//
// Sessions:
//   - POST   /api/sessions                  create, optional {"layout_id"}
//   - GET    /api/sessions                  list (?sort=created|accessed&order&limit)
//   - GET    /api/sessions/{id}             session info with game state
//   - DELETE /api/sessions/{id}             delete
//
// Game:
//   - GET  /api/sessions/{id}/state         current game state
//   - POST /api/sessions/{id}/transition    {"event": "start-setup|end-setup|end-game|restart"}
//   - POST /api/sessions/{id}/advance       fire the next event for the current mode
//   - POST /api/sessions/{id}/place         {"x", "y", "command": "5-8|o|h"}
//   - POST /api/sessions/{id}/layout        {"layout_id"} placed during setup
//   - POST /api/sessions/{id}/move          {"direction": "up|down|left|right|w|a|s|d"}
//   - POST /api/sessions/{id}/bulk-move     {"moves": [...]}
//   - POST /api/sessions/{id}/dismiss       close the end-of-game summary
//   - GET  /api/sessions/{id}/history       ?page&limit&order
//   - GET  /api/sessions/{id}/results       summaries of finished games
//
// Layouts:
//   - GET  /api/layouts                     list with stats
//   - POST /api/layouts                     save {"name", "description", "rows"}
//   - GET  /api/layouts/{name}              layout with stats
//
// Other:
//   - GET /ws?session={id}                  WebSocket state feed
//   - GET /healthz                          liveness
//
// A blocked move is not an error: the move endpoints answer 200 with
// "success": false and the outcome's "blocked" reason.
//
// Errors are JSON with a machine-readable code:
//
//	{"error": "an object is already placed here", "code": "CELL_OCCUPIED"}
//
// Status mapping: 404 unknown session or layout, 423 while a summary is
// open, 400 bad input or coordinates, 409 occupied cells, duplicate hunters,
// rejected transitions and wrong-mode operations, 422 invalid moves and 500
// otherwise.
package api
