package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richblaalid/chuckbox/internal/logging"
)

type pushRequest struct {
	Streams []struct {
		Stream map[string]string `json:"stream"`
		Values [][]string        `json:"values"`
	} `json:"streams"`
}

// fakeLoki records every push it receives.
type fakeLoki struct {
	mu     sync.Mutex
	pushes []pushRequest
	status int
}

func newFakeLoki(t *testing.T, status int) (*fakeLoki, *httptest.Server) {
	f := &fakeLoki{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loki/api/v1/push", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req pushRequest
		require.NoError(t, json.Unmarshal(body, &req))

		f.mu.Lock()
		f.pushes = append(f.pushes, req)
		f.mu.Unlock()
		w.WriteHeader(f.status)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeLoki) lines(t *testing.T) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, p := range f.pushes {
		for _, s := range p.Streams {
			for _, v := range s.Values {
				var line map[string]any
				require.NoError(t, json.Unmarshal([]byte(v[1]), &line))
				line["_level_label"] = s.Stream["level"]
				line["_app"] = s.Stream["app"]
				out = append(out, line)
			}
		}
	}
	return out
}

func TestLokiHandler_BatchesByLevel(t *testing.T) {
	fake, srv := newFakeLoki(t, http.StatusNoContent)
	h := logging.NewLokiHandler(logging.LokiOptions{
		URL:       srv.URL,
		Labels:    map[string]string{"app": "chuckbox"},
		BatchSize: 10,
		Level:     slog.LevelInfo,
	})
	logger := slog.New(h)

	logger.Debug("ignored")
	logger.Info("payment recorded", "unit_id", 42, "gross_cents", 2500)
	logger.Error("square call failed", "err", errors.New("timeout"))
	require.NoError(t, h.Close())

	lines := fake.lines(t)
	require.Len(t, lines, 2)
	byMsg := map[string]map[string]any{}
	for _, l := range lines {
		byMsg[l["msg"].(string)] = l
	}

	info := byMsg["payment recorded"]
	require.NotNil(t, info)
	assert.Equal(t, "info", info["_level_label"])
	assert.Equal(t, "chuckbox", info["_app"])
	assert.Equal(t, float64(42), info["unit_id"])

	failed := byMsg["square call failed"]
	require.NotNil(t, failed)
	assert.Equal(t, "error", failed["_level_label"])
	assert.Equal(t, "timeout", failed["err"])
	assert.Zero(t, h.Dropped())
}

func TestLokiHandler_AttrsAndGroups(t *testing.T) {
	fake, srv := newFakeLoki(t, http.StatusNoContent)
	h := logging.NewLokiHandler(logging.LokiOptions{URL: srv.URL, BatchSize: 0})
	defer h.Close()

	logger := slog.New(h).With("request_id", "abc").WithGroup("sync").With("unit_id", 7)
	logger.Info("roster staged", "added", 3)

	lines := fake.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "abc", lines[0]["request_id"])
	group, ok := lines[0]["sync"].(map[string]any)
	require.True(t, ok, "group is nested: %v", lines[0])
	assert.Equal(t, float64(7), group["unit_id"])
	assert.Equal(t, float64(3), group["added"])
}

func TestLokiHandler_ServerErrorsAreDropped(t *testing.T) {
	_, srv := newFakeLoki(t, http.StatusInternalServerError)
	h := logging.NewLokiHandler(logging.LokiOptions{URL: srv.URL, BatchSize: 5})

	slog.New(h).Warn("first")
	slog.New(h).Warn("second")
	require.NoError(t, h.Flush(context.Background()), "a Loki outage never fails the caller")
	assert.Equal(t, 2, h.Dropped())
	require.NoError(t, h.Close())
}

func TestLokiHandler_Enabled(t *testing.T) {
	h := logging.NewLokiHandler(logging.LokiOptions{URL: "http://127.0.0.1:0", Level: slog.LevelWarn})
	defer h.Close()
	ctx := context.Background()
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}
