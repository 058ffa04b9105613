package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tblimport/internal/store"
)

func TestCreateAppendClose(t *testing.T) {
	ctx := context.Background()
	s := New()
	lib := s.Library("LIB")

	require.NoError(t, lib.Create(ctx, "T1", []string{"ID"}, []string{"NAME"}, store.CreateNew))
	require.NoError(t, lib.Append(ctx, "T1", map[string]string{"ID": "1", "NAME": "a", "EXTRA": "x"}))
	require.NoError(t, lib.Close(ctx, "T1"))

	rows, ok := s.Rows("LIB", "T1")
	require.True(t, ok)
	require.Equal(t, []map[string]string{{"ID": "1", "NAME": "a"}}, rows)
	require.Equal(t, []string{"create LIB/T1", "append LIB/T1", "close LIB/T1"}, s.Ops())

	require.NoError(t, lib.Open(ctx, "T1", store.OpenRead))
	shape, err := lib.Query(ctx, "T1")
	require.NoError(t, err)
	require.Equal(t, store.Shape{Keys: store.WrapList([]string{"ID"}), Names: store.WrapList([]string{"NAME"}), Rows: 1}, shape)
	require.ErrorIs(t, lib.Append(ctx, "T1", map[string]string{"ID": "2"}), store.ErrNotOpen)
	require.NoError(t, lib.Close(ctx, "T1"))
}

func TestCreateModes(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put("LIB", "T1", []string{"ID"}, []string{"NAME"}, map[string]string{"ID": "1", "NAME": "a"})
	lib := s.Library("LIB")

	require.ErrorIs(t, lib.Create(ctx, "T1", []string{"ID"}, nil, store.CreateNew), store.ErrExists)

	require.NoError(t, lib.Create(ctx, "T1", []string{"ID"}, []string{"NAME"}, store.CreateReplace))
	require.ErrorIs(t, lib.Create(ctx, "T1", []string{"ID"}, nil, store.CreateReplace), store.ErrAlreadyOpen)
	require.NoError(t, lib.Close(ctx, "T1"))

	rows, ok := s.Rows("LIB", "T1")
	require.True(t, ok)
	require.Empty(t, rows)
}

func TestEndDiscards(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put("LIB", "T1", []string{"ID"}, []string{"NAME"}, map[string]string{"ID": "1", "NAME": "a"})
	lib := s.Library("LIB")

	require.NoError(t, lib.Open(ctx, "T1", store.OpenWrite))
	require.NoError(t, lib.Append(ctx, "T1", map[string]string{"ID": "2", "NAME": "b"}))
	require.NoError(t, lib.End(ctx, "T1"))

	rows, _ := s.Rows("LIB", "T1")
	require.Len(t, rows, 1)

	require.NoError(t, lib.Create(ctx, "T2", []string{"ID"}, nil, store.CreateNew))
	require.NoError(t, lib.End(ctx, "T2"))
	_, ok := s.Rows("LIB", "T2")
	require.False(t, ok)
}

func TestDuplicateKey(t *testing.T) {
	ctx := context.Background()
	lib := New().Library("LIB")
	require.NoError(t, lib.Create(ctx, "T1", []string{"A", "B"}, []string{"V"}, store.CreateNew))
	require.NoError(t, lib.Append(ctx, "T1", map[string]string{"A": "1", "B": "2", "V": "x"}))
	require.NoError(t, lib.Append(ctx, "T1", map[string]string{"A": "1", "B": "3", "V": "x"}))
	require.ErrorIs(t, lib.Append(ctx, "T1", map[string]string{"A": "1", "B": "2", "V": "y"}), store.ErrDuplicateKey)
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	lib := New().Library("LIB")
	require.ErrorIs(t, lib.Open(ctx, "T1", store.OpenRead), store.ErrNotExist)
	require.ErrorIs(t, lib.Close(ctx, "T1"), store.ErrNotOpen)

	require.NoError(t, lib.Create(ctx, "T1", []string{"ID"}, nil, store.CreateNew))
	require.NoError(t, lib.Release())
	require.ErrorIs(t, lib.End(ctx, "T1"), store.ErrNotOpen)
	require.ErrorIs(t, lib.Create(ctx, "T1", []string{"ID"}, nil, store.CreateNew), store.ErrReleased)
}
