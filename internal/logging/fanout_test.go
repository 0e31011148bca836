package logging_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/logging"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestFanout(t *testing.T) {
	var info, errs bytes.Buffer
	f := logging.NewFanout(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		nil,
		slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	assert.Len(t, f, 2)
	assert.False(t, f.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(f).With("unit_id", 42)
	logger.Info("billing created")
	logger.Error("reconcile mismatch")

	assert.Contains(t, info.String(), "billing created")
	assert.Contains(t, info.String(), "reconcile mismatch")
	assert.Contains(t, info.String(), "unit_id=42")
	assert.NotContains(t, errs.String(), "billing created")
	assert.Contains(t, errs.String(), "reconcile mismatch")
}

func TestFanout_JoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, nil)
	f := logging.NewFanout(failingHandler{text}, text)

	err := slog.New(f).Handler().Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "hello", 0))
	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "hello", "later handlers still run")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("verbose"))
}

func TestNew_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := logging.New(config.LoggingConfig{Level: "warn", Format: "json"}, false, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "scout_id", 9)
	assert.NoError(t, closeFn())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"scout_id":9`)
}
