package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := Connect(mr.Addr(), "")
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "walk:"), mr
}

func stores(t *testing.T) map[string]Store {
	r, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemory(),
		"redis":  r,
	}
}

func TestStoreStringRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.GetString(ctx, "missing")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.SetString(ctx, "history", `[{"distance":1}]`))
			v, ok, err := s.GetString(ctx, "history")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, `[{"distance":1}]`, v)

			require.NoError(t, s.SetString(ctx, "history", "[]"))
			v, _, err = s.GetString(ctx, "history")
			require.NoError(t, err)
			require.Equal(t, "[]", v)
		})
	}
}

func TestStoreDoubleRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.GetDouble(ctx, "weight_kg")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.SetDouble(ctx, "weight_kg", 72.5))
			v, ok, err := s.GetDouble(ctx, "weight_kg")
			require.NoError(t, err)
			require.True(t, ok)
			require.InDelta(t, 72.5, v, 1e-12)
		})
	}
}

func TestStoreDoubleMalformed(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SetString(ctx, "weight_kg", "heavy"))
			_, ok, err := s.GetDouble(ctx, "weight_kg")
			require.Error(t, err)
			require.True(t, ok)
		})
	}
}

func TestRedisUsesPrefix(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, s.SetDouble(context.Background(), "weight_kg", 65))

	got, err := mr.Get("walk:weight_kg")
	require.NoError(t, err)
	require.Equal(t, "65", got)
}

func TestRedisUnavailable(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	ctx := context.Background()
	require.Error(t, s.SetString(ctx, "history", "[]"))
	_, _, err := s.GetString(ctx, "history")
	require.Error(t, err)
}

func TestConnectEmptyAddr(t *testing.T) {
	require.Nil(t, Connect("", ""))
}

func TestMemoryInjectedErrors(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	errDisk := errors.New("disk full")

	m.WriteErr = errDisk
	require.ErrorIs(t, m.SetString(ctx, "k", "v"), errDisk)
	require.Equal(t, 0, m.Writes)

	m.WriteErr = nil
	require.NoError(t, m.SetString(ctx, "k", "v"))
	require.Equal(t, 1, m.Writes)

	m.ReadErr = errDisk
	_, _, err := m.GetString(ctx, "k")
	require.ErrorIs(t, err, errDisk)
}
