package ports

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is absent / Retournée quand la clé est absente
var ErrCacheMiss = errors.New("cache miss")

// Cache stores opaque values / Stocke des valeurs opaques
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix / Supprime les clés par préfixe
	DeletePrefix(ctx context.Context, prefix string) error
}
