package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	lease, err := l.Obtain(ctx, "edi:sync", time.Minute)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, "edi:sync", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained)

	other, err := l.Obtain(ctx, "edi:other", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	again, err := l.Obtain(ctx, "edi:sync", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := l.Obtain(ctx, "edi:sync", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := l.Obtain(ctx, "edi:sync", time.Minute)
	require.NoError(t, err)

	// Releasing the expired lease must not free the new holder.
	require.NoError(t, stale.Release(ctx))
	_, err = l.Obtain(ctx, "edi:sync", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained)

	require.NoError(t, fresh.Release(ctx))
}
