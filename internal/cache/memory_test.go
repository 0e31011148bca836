package cache

import (
	"context"
	"testing"
	"time"

	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx, "badges")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "badges", []byte("v1"), time.Minute))
	got, err := c.Get(ctx, "badges")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Returned slices are copies / Les tranches retournées sont des copies
	got[0] = 'x'
	again, _ := c.Get(ctx, "badges")
	assert.Equal(t, []byte("v1"), again)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "badges")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestMemory_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	require.NoError(t, c.Set(ctx, "catalog:list", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "catalog:badge:camping", []byte("b"), 0))
	require.NoError(t, c.Set(ctx, "other", []byte("c"), 0))

	require.NoError(t, c.DeletePrefix(ctx, "catalog:"))

	_, err := c.Get(ctx, "catalog:list")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
	_, err = c.Get(ctx, "catalog:badge:camping")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
	v, err := c.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), v)
}
