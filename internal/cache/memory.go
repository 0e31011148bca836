package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/richblaalid/chuckbox/internal/ports"
)

var _ ports.Cache = (*Memory)(nil)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a process-local cache / Cache local au processus
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemory creates an empty in-process cache / Crée un cache en mémoire vide
func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem), now: time.Now}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || (!item.expiresAt.IsZero() && !c.now().Before(item.expiresAt)) {
		return nil, ports.ErrCacheMiss
	}
	return append([]byte(nil), item.value...), nil
}

// Set stores a copy of value; ttl <= 0 never expires / Stocke une copie, ttl <= 0 n'expire pas
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

func (c *Memory) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	return nil
}
