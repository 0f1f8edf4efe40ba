package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// setupLogging configures the global zerolog logger. An unknown level keeps
// the default and is reported once the logger is ready.
func setupLogging(cfg *Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	}

	lvl, err := zerolog.ParseLevel(cfg.logLevel)
	if err != nil || lvl == zerolog.NoLevel {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Str("level", cfg.logLevel).Msg("unknown log level, using info")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
