// Package session provides session management for the Treasure Hunt Game.
//
// The session package implements:
//   - Thread-safe in-memory session storage and retrieval
//   - Unique session ID generation
//   - Session expiration by last access time
//
// Sessions use 4-character hex IDs for easy reference and are looked up
// case-insensitively. Nothing is persisted: a restart of the server drops
// every session.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//	removed := manager.CleanupExpiredSessions(24 * time.Hour)
package session
