// Package service provides the business logic layer for the Treasure Hunt Game.
//
// The service package implements:
//   - Multi-session game management
//   - Mode transitions, item placement and hunter movement per session
//   - Input suspension while an end-of-game summary is open
//   - Event collection and publishing to renderers
//   - Move history and per-session results
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// LayoutManager loads and stores predefined board layouts.
// Publisher fans state and events out to connected renderers.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine.Game; the service
// serialises every operation so that one input is fully processed before the
// next one starts.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	layoutMgr, _ := config.NewManager("layouts")
//	gameService := service.NewGameService(sessionMgr, layoutMgr, service.WithPublisher(hub))
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameService.Transition(ctx, info.ID, engine.EventEndSetup)
//	result, err := gameService.Move(ctx, info.ID, engine.Right)
//
// Game Over:
//
// When a game enters the end mode its summary is recorded in the session
// results and the session stops accepting input until DismissSummary is
// called. Reads are always allowed.
package service
