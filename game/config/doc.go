// Package config provides configuration management for the Treasure Hunt Game.
//
// The config package handles:
//   - Loading board layouts from JSON files
//   - Layout validation through the engine rules
//   - Default layout selection and layout discovery
//   - Process settings read from the environment
//
// Layout Format:
//
// Layouts are stored as JSON files in the layouts directory. The file name
// without the .json extension is the layout id used when creating sessions.
//
//	{
//	  "name": "classic",
//	  "description": "Hunter in the top-left corner",
//	  "rows": ["h.........", "..5...o...", ...]
//	}
//
// Each of the 10 rows holds 10 characters: '.' empty, 'h' the hunter,
// 'o' an obstacle and '5'-'8' a treasure of that value. At most one hunter
// is allowed.
//
// Usage:
//
//	manager, err := config.NewManager("layouts")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	layout, err := manager.LoadLayout("classic")
//	layouts, err := manager.ListLayouts()
//
// Settings:
//
// LoadSettings reads HOST, PORT, LAYOUTS_DIR, LOG_LEVEL, LOG_FORMAT,
// SESSION_TTL, SESSION_CLEANUP_INTERVAL and the NGROK_* variables.
package config
