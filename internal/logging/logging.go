// Package logging builds the engine's zap logger. CineVault logs via the
// standard library (log.Printf("operation: detail", ...)); the rest of the
// example pack (GoonHub, imlargo-go-api) reaches for go.uber.org/zap for
// anything beyond a throwaway CLI, so this engine adopts zap and keeps
// CineVault's terse, operation-prefixed message register ("upsert failed",
// "frame extraction skipped") rather than full sentences.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger for the given level ("debug", "info", "warn",
// "error") and format ("json" or "console"). Unknown values fall back to
// info/console.
func New(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if format != "json" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// Nop returns a logger that discards everything, for tests and defaults.
func Nop() *zap.Logger { return zap.NewNop() }
