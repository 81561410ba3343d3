package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings holds the process configuration read from the environment.
// Command line flags override these values.
type Settings struct {
	Host       string `env:"HOST" envDefault:"localhost"`
	Port       int    `env:"PORT" envDefault:"8080"`
	LayoutsDir string `env:"LAYOUTS_DIR" envDefault:"layouts"`

	// DefaultLayout overrides the layout served for the "default" layout id
	DefaultLayout string `env:"DEFAULT_LAYOUT"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	SessionTTL             time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`

	NgrokEnabled   bool   `env:"NGROK_ENABLED" envDefault:"false"`
	NgrokAuthToken string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string `env:"NGROK_DOMAIN"`
}

// LoadSettings parses Settings from environment variables
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return Settings{}, fmt.Errorf("invalid PORT %d", s.Port)
	}
	if s.SessionCleanupInterval <= 0 {
		return Settings{}, fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive, got %s", s.SessionCleanupInterval)
	}
	return s, nil
}

// Addr returns host:port
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
