package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	tokenA, err := store.Create(ctx, 1)
	require.NoError(t, err)
	tokenB, err := store.Create(ctx, 2)
	require.NoError(t, err)
	require.NotEqual(t, tokenA, tokenB)

	userA, err := store.Resolve(ctx, tokenA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), userA)

	userB, err := store.Resolve(ctx, tokenB)
	require.NoError(t, err)
	assert.Equal(t, int64(2), userB)
}

func TestMemoryStoreRevoke(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	token, err := store.Create(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, token))
	_, err = store.Resolve(ctx, token)
	assert.True(t, errors.Is(err, ErrNotFound))

	// revoking twice, or revoking garbage, is a no-op
	assert.NoError(t, store.Revoke(ctx, token))
	assert.NoError(t, store.Revoke(ctx, "does-not-exist"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := NewMemoryStore(0)
	_, err := store.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSkipsCollidingTokens(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	tokens := []string{"same", "same", "other"}
	store.newToken = func() (string, error) {
		tok := tokens[0]
		tokens = tokens[1:]
		return tok, nil
	}

	first, err := store.Create(ctx, 1)
	require.NoError(t, err)
	second, err := store.Create(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, "same", first)
	assert.Equal(t, "other", second)

	owner, err := store.Resolve(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, int64(1), owner)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }

	token, err := store.Create(ctx, 3)
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	userID, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), userID)

	now = now.Add(time.Minute)
	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			token, err := store.Create(ctx, userID)
			if !assert.NoError(t, err) {
				return
			}
			got, err := store.Resolve(ctx, token)
			assert.NoError(t, err)
			assert.Equal(t, userID, got)
			assert.NoError(t, store.Revoke(ctx, token))
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 0, store.Len())
}
