package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	_, ok, err := m.Get(ctx, KeyCausae)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, KeyCausae, "list"))
	require.NoError(t, m.Set(ctx, KeyCommissiones, "other"))

	v, ok, err := m.Get(ctx, KeyCausae)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "list", v)

	require.NoError(t, m.Invalidate(ctx, KeyCausae))
	_, ok, _ = m.Get(ctx, KeyCausae)
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, KeyCommissiones)
	assert.True(t, ok, "only the named key is dropped")
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v"))
	now = now.Add(59 * time.Second)
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
}
