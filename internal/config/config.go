// Package config loads environment-driven configuration for both binaries.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// App configures the device-side binary.
type App struct {
	// DBPath is the embedded database file. The parent directory is
	// created on first open.
	DBPath string `env:"TOURISM_DB_PATH" envDefault:"data/tourism_app.db"`

	// StatePath is the key-value file holding the session, sync flag and
	// sync token.
	StatePath string `env:"TOURISM_STATE_PATH" envDefault:"data/state.json"`

	SyncURL     string        `env:"TOURISM_SYNC_URL" envDefault:"http://localhost:8080"`
	SyncTimeout time.Duration `env:"TOURISM_SYNC_TIMEOUT" envDefault:"15s"`
}

// Syncd configures the sync server.
type Syncd struct {
	Port   int    `env:"SYNCD_PORT" envDefault:"8080"`
	DBPath string `env:"SYNCD_DB_PATH" envDefault:"data/tourism_app_shared.db"`

	// JWTSecret signs the sync-API tokens. No default on purpose: the
	// server refuses to start without one.
	JWTSecret string `env:"SYNCD_JWT_SECRET"`
}

// LoadApp parses the device configuration from the environment.
func LoadApp() (App, error) {
	var cfg App
	if err := env.Parse(&cfg); err != nil {
		return App{}, fmt.Errorf("config: parsing app environment: %w", err)
	}
	return cfg, nil
}

// LoadSyncd parses the sync-server configuration from the environment.
func LoadSyncd() (Syncd, error) {
	var cfg Syncd
	if err := env.Parse(&cfg); err != nil {
		return Syncd{}, fmt.Errorf("config: parsing syncd environment: %w", err)
	}
	return cfg, nil
}
