package pagestate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type row struct {
	ID     string
	Active bool
}

func rowID(r row) string { return r.ID }

func TestListHelpersDoNotMutateInput(t *testing.T) {
	items := []row{{ID: "a"}, {ID: "b"}}

	toggled, ok := UpdateBy(items, "b", rowID, func(r row) row { r.Active = true; return r })
	require.True(t, ok)
	require.True(t, toggled[1].Active)
	require.False(t, items[1].Active)

	removed, ok := RemoveBy(items, "a", rowID)
	require.True(t, ok)
	require.Equal(t, []row{{ID: "b"}}, removed)
	require.Len(t, items, 2)

	_, ok = RemoveBy(items, "zzz", rowID)
	require.False(t, ok)

	replaced, ok := ReplaceBy(items, "a", rowID, row{ID: "a", Active: true})
	require.True(t, ok)
	require.True(t, replaced[0].Active)

	got, ok := Find(Prepend(items, row{ID: "c"}), "c", rowID)
	require.True(t, ok)
	require.Equal(t, "c", got.ID)
}

func TestBoundaryRecoversPanics(t *testing.T) {
	logger := zaptest.NewLogger(t)

	v, err := Boundary(logger, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	require.Equal(t, 7, v)

	_, err = Boundary(logger, func() (int, error) {
		var m map[string]int
		m["x"] = 1
		return 0, nil
	})
	require.ErrorIs(t, err, ErrRenderFailed)

	_, err = Boundary(logger, func() (int, error) { return 0, errors.New("plain") })
	require.EqualError(t, err, "plain")
}
