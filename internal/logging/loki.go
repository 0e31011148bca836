// Package logging builds the slog handlers used by the server: a console
// handler, an optional Loki push handler, and a fan-out joining the two.
package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	lokiPushPath      = "/loki/api/v1/push"
	lokiFlushInterval = 5 * time.Second
)

// LokiOptions configures a LokiHandler / Configure un LokiHandler
type LokiOptions struct {
	URL       string            // Base URL, e.g. http://localhost:3100
	Labels    map[string]string // Static stream labels
	BatchSize int               // 0 pushes every record immediately
	Level     slog.Leveler
	Client    *http.Client
}

// lokiSink is the batch shared by a handler and its WithAttrs/WithGroup children.
type lokiSink struct {
	url       string
	labels    map[string]string
	client    *http.Client
	batchSize int

	mu      sync.Mutex
	batch   []lokiEntry
	dropped int

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type lokiEntry struct {
	level string
	ts    time.Time
	line  string
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// LokiHandler pushes JSON log lines to Grafana Loki in batches
// Envoie les logs JSON à Loki par lots
//
// Records are grouped into one stream per level so Loki can filter on it.
type LokiHandler struct {
	sink   *lokiSink
	level  slog.Leveler
	attrs  []scopedAttr
	groups []string
}

// scopedAttr remembers the groups open when WithAttrs was called.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

// NewLokiHandler starts the periodic flush loop; Close stops it
// Démarre la boucle de vidage périodique ; Close l'arrête
func NewLokiHandler(opts LokiOptions) *LokiHandler {
	labels := make(map[string]string, len(opts.Labels))
	for k, v := range opts.Labels {
		labels[k] = v
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	s := &lokiSink{
		url:       opts.URL + lokiPushPath,
		labels:    labels,
		client:    client,
		batchSize: opts.BatchSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.loop()
	return &LokiHandler{sink: s, level: level}
}

func (h *LokiHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle encodes the record as one JSON line / Encode l'enregistrement en une ligne JSON
func (h *LokiHandler) Handle(_ context.Context, r slog.Record) error {
	fields := map[string]any{
		"time":  r.Time.Format(time.RFC3339Nano),
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, sa := range h.attrs {
		addAttr(nested(fields, sa.groups), sa.attr)
	}
	target := fields
	if r.NumAttrs() > 0 {
		target = nested(fields, h.groups)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(target, a)
		return true
	})

	line, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal log line: %w", err)
	}
	if h.sink.add(lokiEntry{level: levelLabel(r.Level), ts: r.Time, line: string(line)}) {
		return h.sink.flush(context.Background())
	}
	return nil
}

func (h *LokiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	for _, a := range attrs {
		c.attrs = append(c.attrs, scopedAttr{groups: c.groups, attr: a})
	}
	return c
}

func (h *LokiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groups = append(c.groups, name)
	return c
}

// Flush pushes pending records now / Envoie immédiatement les logs en attente
func (h *LokiHandler) Flush(ctx context.Context) error {
	return h.sink.flush(ctx)
}

// Close stops the flush loop and pushes what is left / Arrête la boucle et vide le lot
func (h *LokiHandler) Close() error {
	h.sink.once.Do(func() { close(h.sink.stop) })
	<-h.sink.done
	return h.sink.flush(context.Background())
}

func (h *LokiHandler) clone() *LokiHandler {
	return &LokiHandler{
		sink:   h.sink,
		level:  h.level,
		attrs:  append([]scopedAttr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

// nested returns the map for a group path, creating it as needed
func nested(m map[string]any, groups []string) map[string]any {
	for _, g := range groups {
		sub, ok := m[g].(map[string]any)
		if !ok {
			sub = map[string]any{}
			m[g] = sub
		}
		m = sub
	}
	return m
}

func addAttr(m map[string]any, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() != slog.KindGroup {
		if err, ok := a.Value.Any().(error); ok {
			m[a.Key] = err.Error()
			return
		}
		m[a.Key] = a.Value.Any()
		return
	}
	group := m
	if a.Key != "" {
		group = nested(m, []string{a.Key})
	}
	for _, ga := range a.Value.Group() {
		addAttr(group, ga)
	}
}

func levelLabel(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	}
	return "debug"
}

// add queues an entry and reports whether the batch is due
func (s *lokiSink) add(e lokiEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = append(s.batch, e)
	return s.batchSize <= 0 || len(s.batch) >= s.batchSize
}

func (s *lokiSink) loop() {
	defer close(s.done)
	ticker := time.NewTicker(lokiFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.flush(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *lokiSink) flush(ctx context.Context) error {
	s.mu.Lock()
	entries := s.batch
	s.batch = nil
	s.mu.Unlock()
	if len(entries) == 0 {
		return nil
	}

	byLevel := map[string]*lokiStream{}
	var streams []*lokiStream
	for _, e := range entries {
		st, ok := byLevel[e.level]
		if !ok {
			labels := make(map[string]string, len(s.labels)+1)
			for k, v := range s.labels {
				labels[k] = v
			}
			labels["level"] = e.level
			st = &lokiStream{Stream: labels}
			byLevel[e.level] = st
			streams = append(streams, st)
		}
		st.Values = append(st.Values, [2]string{strconv.FormatInt(e.ts.UnixNano(), 10), e.line})
	}

	body, err := json.Marshal(map[string]any{"streams": streams})
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// A Loki outage must not fail the request that logged
	resp, err := s.client.Do(req)
	if err != nil {
		s.drop(len(entries))
		return nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		s.drop(len(entries))
	}
	return nil
}

func (s *lokiSink) drop(n int) {
	s.mu.Lock()
	s.dropped += n
	s.mu.Unlock()
}

// Dropped counts lines Loki refused or never received / Lignes perdues
func (h *LokiHandler) Dropped() int {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.dropped
}
