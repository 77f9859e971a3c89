package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_RoundTrip(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "sync_user_info_v3", []byte(`{"name":"A"}`)))

	got, err := kv.Get(ctx, "sync_user_info_v3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"A"}`, string(got))
}

func TestMemoryKV_GetMissing(t *testing.T) {
	kv := NewMemoryKV()

	_, err := kv.Get(context.Background(), "absent")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryKV_Overwrite(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("first")))
	require.NoError(t, kv.Set(ctx, "k", []byte("second")))

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestMemoryKV_Remove(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	require.NoError(t, kv.Remove(ctx, "k"))

	_, err := kv.Get(ctx, "k")
	require.ErrorIs(t, err, ErrKeyNotFound)

	// removing an absent key is not an error
	require.NoError(t, kv.Remove(ctx, "k"))
}

func TestMemoryKV_MultiRemove(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "a", []byte("1")))
	require.NoError(t, kv.Set(ctx, "b", []byte("2")))
	require.NoError(t, kv.Set(ctx, "c", []byte("3")))

	require.NoError(t, kv.MultiRemove(ctx, []string{"a", "c"}))

	_, err := kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = kv.Get(ctx, "c")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	got, err := kv.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}

func TestMemoryKV_ReturnsCopies(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("abc")))

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'X'

	fresh, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), fresh)
}
