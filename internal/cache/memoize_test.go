package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoizeCachesResult(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	got, err := Memoize(ctx, m, "k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = Memoize(ctx, m, "k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls, "second call must be served from cache")
}

func TestMemoizeDoesNotCacheErrors(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	calls := 0
	fn := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}

	_, err := Memoize(ctx, m, "k", time.Minute, fn)
	require.Error(t, err)

	got, err := Memoize(ctx, m, "k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestMemoizeExpires(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	got, err := Memoize(ctx, m, "k", 10*time.Millisecond, fn)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	time.Sleep(20 * time.Millisecond)
	got, err = Memoize(ctx, m, "k", 10*time.Millisecond, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestMemoizeStructRoundTrip(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	type payload struct {
		Amount string `json:"amount"`
		Flag   *bool  `json:"flag,omitempty"`
	}
	yes := true
	fn := func(context.Context) (payload, error) {
		return payload{Amount: "115792089237316195423570985008687907853269984665640564039457584007913129639935", Flag: &yes}, nil
	}

	_, err := Memoize(ctx, m, "k", time.Minute, fn)
	require.NoError(t, err)

	got, err := Memoize(ctx, m, "k", time.Minute, func(context.Context) (payload, error) {
		t.Fatal("must not be called")
		return payload{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "115792089237316195423570985008687907853269984665640564039457584007913129639935", got.Amount)
	require.NotNil(t, got.Flag)
	assert.True(t, *got.Flag)
}
