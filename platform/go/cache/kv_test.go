package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryKVExpiry(t *testing.T) {
	now := time.Unix(100, 0)
	kv := NewMemoryKV(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, kv.Set(ctx, "forever", []byte("2"), 0))

	got, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "1", string(got))

	now = now.Add(time.Minute)
	_, err = kv.Get(ctx, "a")
	require.ErrorIs(t, err, ErrMiss)

	got, err = kv.Get(ctx, "forever")
	require.NoError(t, err)
	require.Equal(t, "2", string(got))

	require.NoError(t, kv.Delete(ctx, "forever"))
	_, err = kv.Get(ctx, "forever")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKVCopiesValues(t *testing.T) {
	kv := NewMemoryKV(nil)
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
}
