package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/treasurehunt/game/engine"
)

func createTestLayoutDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

func createValidLayout(name string) *engine.Layout {
	return &engine.Layout{
		Name:        name,
		Description: "Test layout",
		Rows: []string{
			"h.........",
			"..5.......",
			"......o...",
			"..........",
			"....8.....",
			"..........",
			"..........",
			"..........",
			"..........",
			".........6",
		},
	}
}

func writeLayoutFile(t *testing.T, dir, filename string, layout *engine.Layout) {
	t.Helper()
	data, err := json.Marshal(layout)
	if err != nil {
		t.Fatalf("Failed to marshal layout: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write layout file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := createTestLayoutDir(t)
		writeLayoutFile(t, dir, "classic.json", createValidLayout("classic"))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault() == nil {
			t.Fatal("Expected default layout to be loaded")
		}
		if manager.GetDefault().Name != "classic" {
			t.Errorf("Expected default layout 'classic', got %q", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in layout", func(t *testing.T) {
		manager, err := NewManager(createTestLayoutDir(t))
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault() == nil {
			t.Fatal("Expected built-in default layout")
		}
		if err := engine.ValidateLayout(manager.GetDefault()); err != nil {
			t.Errorf("Built-in default layout is invalid: %v", err)
		}
	})

	t.Run("first layout used when classic is missing", func(t *testing.T) {
		dir := createTestLayoutDir(t)
		writeLayoutFile(t, dir, "b.json", createValidLayout("bravo"))
		writeLayoutFile(t, dir, "a.json", createValidLayout("alpha"))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "alpha" {
			t.Errorf("Expected default 'alpha', got %q", manager.GetDefault().Name)
		}
	})
}

func TestManager_LoadLayout(t *testing.T) {
	dir := createTestLayoutDir(t)
	writeLayoutFile(t, dir, "test.json", createValidLayout("test"))

	broken := createValidLayout("broken")
	broken.Rows[3] = "hh........"
	writeLayoutFile(t, dir, "broken.json", broken)
	os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{not json"), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{"valid layout", "test", nil},
		{"with json extension", "test.json", nil},
		{"missing layout", "missing", ErrLayoutNotFound},
		{"path traversal", "../test", ErrLayoutNotFound},
		{"empty id", "", ErrLayoutNotFound},
		{"two hunters", "broken", ErrInvalidLayout},
		{"malformed json", "garbage", ErrInvalidLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := manager.LoadLayout(tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to load layout: %v", err)
			}
			if layout.Name != "test" {
				t.Errorf("Expected name 'test', got %q", layout.Name)
			}
		})
	}
}

func TestManager_LoadLayoutCaches(t *testing.T) {
	dir := createTestLayoutDir(t)
	writeLayoutFile(t, dir, "cached.json", createValidLayout("cached"))

	manager, _ := NewManager(dir)
	first, err := manager.LoadLayout("cached")
	if err != nil {
		t.Fatalf("Failed to load layout: %v", err)
	}

	os.Remove(filepath.Join(dir, "cached.json"))

	second, err := manager.LoadLayout("cached")
	if err != nil {
		t.Fatalf("Expected cached layout after file removal: %v", err)
	}
	if first != second {
		t.Error("Expected the same cached layout instance")
	}

	manager.RefreshCache()
	if _, err := manager.LoadLayout("cached"); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("Expected ErrLayoutNotFound after refresh, got %v", err)
	}
}

func TestManager_ListLayouts(t *testing.T) {
	dir := createTestLayoutDir(t)
	writeLayoutFile(t, dir, "zeta.json", createValidLayout("zeta"))
	writeLayoutFile(t, dir, "alpha.json", createValidLayout("alpha"))
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)
	os.WriteFile(filepath.Join(dir, "bad.json"), []byte("[]"), 0644)
	os.Mkdir(filepath.Join(dir, "sub.json"), 0755)

	manager, _ := NewManager(dir)
	layouts, err := manager.ListLayouts()
	if err != nil {
		t.Fatalf("Failed to list layouts: %v", err)
	}

	if len(layouts) != 2 {
		t.Fatalf("Expected 2 layouts, got %d", len(layouts))
	}
	if layouts[0].LayoutID != "alpha" || layouts[1].LayoutID != "zeta" {
		t.Errorf("Expected sorted ids [alpha zeta], got [%s %s]", layouts[0].LayoutID, layouts[1].LayoutID)
	}

	info := layouts[0]
	if info.Filename != "alpha.json" {
		t.Errorf("Expected filename alpha.json, got %s", info.Filename)
	}
	if info.Stats.Treasures.Total() != 3 || info.Stats.TotalPoints != 19 {
		t.Errorf("Expected 3 treasures worth 19, got %d worth %d", info.Stats.Treasures.Total(), info.Stats.TotalPoints)
	}
	if info.Stats.Obstacles != 1 || !info.Stats.HasHunter {
		t.Errorf("Unexpected stats: %+v", info.Stats)
	}
}

func TestManager_SetDefault(t *testing.T) {
	dir := createTestLayoutDir(t)
	writeLayoutFile(t, dir, "classic.json", createValidLayout("classic"))
	writeLayoutFile(t, dir, "other.json", createValidLayout("other"))

	manager, _ := NewManager(dir)

	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault().Name != "other" {
		t.Errorf("Expected default 'other', got %q", manager.GetDefault().Name)
	}

	if err := manager.SetDefault("missing"); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("Expected ErrLayoutNotFound, got %v", err)
	}
	if manager.GetDefault().Name != "other" {
		t.Error("Default should be unchanged after a failed SetDefault")
	}

	writeLayoutFile(t, dir, "other.json", createValidLayout("other-edited"))
	manager.RefreshCache()
	if manager.GetDefault().Name != "other-edited" {
		t.Errorf("Expected the refreshed default 'other-edited', got %q", manager.GetDefault().Name)
	}
}

func TestManager_SaveLayout(t *testing.T) {
	dir := createTestLayoutDir(t)
	manager, _ := NewManager(dir)

	t.Run("save and reload", func(t *testing.T) {
		if err := manager.SaveLayout("saved", createValidLayout("saved")); err != nil {
			t.Fatalf("Failed to save layout: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
			t.Fatalf("Expected layout file on disk: %v", err)
		}

		manager.RefreshCache()
		layout, err := manager.LoadLayout("saved")
		if err != nil {
			t.Fatalf("Failed to reload saved layout: %v", err)
		}
		if layout.Name != "saved" {
			t.Errorf("Expected name 'saved', got %q", layout.Name)
		}
	})

	t.Run("invalid layout", func(t *testing.T) {
		bad := createValidLayout("bad")
		bad.Rows = bad.Rows[:5]
		if err := manager.SaveLayout("bad", bad); !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("Expected ErrInvalidLayout, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(err) {
			t.Error("Invalid layout should not be written")
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		if err := manager.SaveLayout("../escape", createValidLayout("x")); !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("Expected ErrInvalidLayout, got %v", err)
		}
	})
}

func TestManager_ConcurrentLoad(t *testing.T) {
	dir := createTestLayoutDir(t)
	writeLayoutFile(t, dir, "shared.json", createValidLayout("shared"))
	manager, _ := NewManager(dir)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%10 == 0 {
				manager.RefreshCache()
			}
			if _, err := manager.LoadLayout("shared"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent load: %v", err)
	}
}

func TestLoadSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, key := range []string{"HOST", "PORT", "LAYOUTS_DIR", "SESSION_TTL", "SESSION_CLEANUP_INTERVAL", "NGROK_ENABLED"} {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}

		s, err := LoadSettings()
		if err != nil {
			t.Fatalf("Failed to load settings: %v", err)
		}
		if s.Host != "localhost" || s.Port != 8080 {
			t.Errorf("Expected localhost:8080, got %s", s.Addr())
		}
		if s.LayoutsDir != "layouts" {
			t.Errorf("Expected layouts dir 'layouts', got %q", s.LayoutsDir)
		}
		if s.SessionTTL != 24*time.Hour || s.SessionCleanupInterval != time.Hour {
			t.Errorf("Unexpected session timings: ttl=%s interval=%s", s.SessionTTL, s.SessionCleanupInterval)
		}
		if s.NgrokEnabled {
			t.Error("Expected ngrok disabled by default")
		}
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv("HOST", "0.0.0.0")
		t.Setenv("PORT", "9090")
		t.Setenv("SESSION_TTL", "30m")
		t.Setenv("NGROK_ENABLED", "true")
		t.Setenv("NGROK_DOMAIN", "hunt.example.com")

		s, err := LoadSettings()
		if err != nil {
			t.Fatalf("Failed to load settings: %v", err)
		}
		if s.Addr() != "0.0.0.0:9090" {
			t.Errorf("Expected 0.0.0.0:9090, got %s", s.Addr())
		}
		if s.SessionTTL != 30*time.Minute {
			t.Errorf("Expected 30m TTL, got %s", s.SessionTTL)
		}
		if !s.NgrokEnabled || s.NgrokDomain != "hunt.example.com" {
			t.Errorf("Unexpected ngrok settings: %+v", s)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		tests := []struct {
			key, value string
		}{
			{"PORT", "abc"},
			{"PORT", "70000"},
			{"SESSION_TTL", "forever"},
			{"SESSION_CLEANUP_INTERVAL", "0s"},
		}
		for _, tt := range tests {
			t.Run(tt.key+"="+tt.value, func(t *testing.T) {
				t.Setenv(tt.key, tt.value)
				if _, err := LoadSettings(); err == nil {
					t.Errorf("Expected error for %s=%s", tt.key, tt.value)
				}
			})
		}
	})
}
