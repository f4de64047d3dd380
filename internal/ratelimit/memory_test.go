package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter(2, 50*time.Millisecond)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, retryAfter, err := l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Positive(t, retryAfter)

	// Other keys are unaffected
	ok, _, err = l.Allow(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, ok)

	// Window reset reopens the key
	time.Sleep(60 * time.Millisecond)
	ok, _, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	ok, err := g.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second acquire on the same key fails while held
	ok, err = g.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Independent keys do not contend
	ok, err = g.Acquire(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, ok)

	g.Release(ctx, "s1")
	ok, err = g.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}
