// Package websocket pushes game state to renderers over WebSocket.
//
// A central Hub owns every connection. Clients attach to one session via
// the ?session= query parameter and receive a state_update message after
// each change to that session:
//
//	{"session_id": "abc1", "type": "state_update",
//	 "game_state": {...}, "events": [{"type": "move", ...}]}
//
// The Hub implements service.Publisher. Publish only queues the update;
// the Run goroutine owns the session map and does all fan-out, so callers
// holding service locks never wait on a network write. When the queue or a
// client's buffer is full the update or the client is dropped.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, layouts, service.WithPublisher(hub))
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Inbound frames are read only to service ping/pong and detect closure.
package websocket
