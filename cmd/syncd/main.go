// Command syncd runs the optional sync service devices mirror their data to.
// A device that never reaches it loses nothing but cross-device sync.
package main

import (
	"os"
	"path/filepath"

	"github.com/raducm/tourism-app/internal/config"
	"github.com/raducm/tourism-app/internal/logger"
	"github.com/raducm/tourism-app/internal/server"
)

func main() {
	log := logger.New("syncd")

	cfg, err := config.LoadSyncd()
	if err != nil {
		log.Error().Err(err).Msg("loading configuration")
		os.Exit(1)
	}

	// Refusing to start beats silently minting forgeable tokens.
	if cfg.JWTSecret == "" {
		log.Error().Msg("SYNCD_JWT_SECRET is required")
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("creating data directory")
		os.Exit(1)
	}

	srv, err := server.New(server.Config{
		Port:      cfg.Port,
		DBPath:    cfg.DBPath,
		JWTSecret: cfg.JWTSecret,
	}, log)
	if err != nil {
		log.Error().Err(err).Msg("creating server")
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
