package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/treasurehunt/game/engine"
	"github.com/wricardo/mcp-training/treasurehunt/game/service"
)

var (
	ErrLayoutNotFound = service.ErrLayoutNotFound
	ErrInvalidLayout  = service.ErrInvalidLayout
)

// PreferredDefaultID is loaded as the default layout when present and no
// other default was chosen
const PreferredDefaultID = "classic"

// Manager handles board layout loading and caching
type Manager struct {
	layoutDir     string
	defaultID     string
	defaultLayout *engine.Layout
	layouts       map[string]*engine.Layout
	mu            sync.RWMutex
}

// NewManager creates a new layout manager
func NewManager(layoutDir string) (*Manager, error) {
	if _, err := os.Stat(layoutDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("layout directory does not exist: %s", layoutDir)
	}

	m := &Manager{
		layoutDir: layoutDir,
		defaultID: PreferredDefaultID,
		layouts:   make(map[string]*engine.Layout),
	}
	m.loadDefaultLayout()
	return m, nil
}

// LoadLayout loads a layout by id, the file name without .json
func (m *Manager) LoadLayout(name string) (*engine.Layout, error) {
	id := layoutID(name)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrLayoutNotFound, name)
	}

	m.mu.RLock()
	if layout, exists := m.layouts[id]; exists {
		m.mu.RUnlock()
		return layout, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if layout, exists := m.layouts[id]; exists {
		return layout, nil
	}

	data, err := os.ReadFile(filepath.Join(m.layoutDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrLayoutNotFound, id)
		}
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	layout, err := ParseLayout(data)
	if err != nil {
		return nil, err
	}

	m.layouts[id] = layout
	return layout, nil
}

// ParseLayout decodes and validates layout JSON
func ParseLayout(data []byte) (*engine.Layout, error) {
	var layout engine.Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("%w: failed to parse layout: %v", ErrInvalidLayout, err)
	}
	if err := engine.ValidateLayout(&layout); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	return &layout, nil
}

// ListLayouts returns information about all valid layouts in the directory,
// sorted by id
func (m *Manager) ListLayouts() ([]*service.LayoutInfo, error) {
	entries, err := os.ReadDir(m.layoutDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout directory: %w", err)
	}

	var layouts []*service.LayoutInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := layoutID(entry.Name())
		layout, err := m.LoadLayout(id)
		if err != nil {
			log.WithError(err).WithField("file", entry.Name()).Warn("skipping invalid layout")
			continue
		}

		layouts = append(layouts, &service.LayoutInfo{
			Filename:    entry.Name(),
			LayoutID:    id,
			Name:        layout.Name,
			Description: layout.Description,
			Stats:       layout.Stats(),
		})
	}

	sort.Slice(layouts, func(i, j int) bool { return layouts[i].LayoutID < layouts[j].LayoutID })
	return layouts, nil
}

// GetDefault returns the default layout
func (m *Manager) GetDefault() *engine.Layout {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLayout
}

// SetDefault sets the default layout by id. The choice survives
// RefreshCache.
func (m *Manager) SetDefault(name string) error {
	layout, err := m.LoadLayout(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = layoutID(name)
	m.defaultLayout = layout
	return nil
}

// RefreshCache drops all cached layouts and reloads the default from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.layouts = make(map[string]*engine.Layout)
	m.mu.Unlock()

	m.loadDefaultLayout()
}

// SaveLayout validates a layout and writes it to disk
func (m *Manager) SaveLayout(name string, layout *engine.Layout) error {
	id := layoutID(name)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: invalid layout id %q", ErrInvalidLayout, name)
	}
	if err := engine.ValidateLayout(layout); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.layoutDir, id+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write layout file: %w", err)
	}

	m.mu.Lock()
	m.layouts[id] = layout
	m.mu.Unlock()

	return nil
}

// loadDefaultLayout picks the chosen default, then the first valid layout,
// then the built-in layout
func (m *Manager) loadDefaultLayout() {
	m.mu.RLock()
	id := m.defaultID
	m.mu.RUnlock()

	layout, err := m.LoadLayout(id)
	if err != nil {
		layouts, listErr := m.ListLayouts()
		if listErr == nil && len(layouts) > 0 {
			layout, err = m.LoadLayout(layouts[0].LayoutID)
		}
	}
	if err != nil || layout == nil {
		log.WithField("dir", m.layoutDir).Debug("no layout files found, using the built-in layout")
		layout = engine.DefaultLayout()
	}

	m.mu.Lock()
	m.defaultLayout = layout
	m.mu.Unlock()
}

func layoutID(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ".json")
}
