package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/richblaalid/chuckbox/internal/config"
)

// ParseLevel maps a config level name, defaulting to info / Convertit un niveau, info par défaut
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New builds the logger described by cfg; the returned func flushes Loki
// Construit le logger décrit par cfg ; la fonction retournée vide Loki
func New(cfg config.LoggingConfig, production bool, out io.Writer) (*slog.Logger, func() error) {
	level := ParseLevel(cfg.Level)

	var console slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		console = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level, AddSource: production})
	} else {
		console = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}

	if !cfg.LokiEnabled {
		return slog.New(console), func() error { return nil }
	}

	loki := NewLokiHandler(LokiOptions{
		URL:       cfg.LokiURL,
		Labels:    cfg.LokiLabels,
		BatchSize: cfg.LokiBatchSize,
		Level:     level,
	})
	return slog.New(NewFanout(console, loki)), loki.Close
}
