package pagestate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaginationClamps(t *testing.T) {
	p := NewPagination(25).WithTotal(57)
	require.Equal(t, 3, p.TotalPages())

	p = p.To(5)
	require.Equal(t, 2, p.Page)
	require.False(t, p.HasNext())
	require.True(t, p.HasPrev())
	require.Equal(t, 3, p.DisplayPage())
	require.Equal(t, 50, p.Offset())

	p = p.To(-4)
	require.Equal(t, 0, p.Page)
	require.False(t, p.HasPrev())
	require.True(t, p.HasNext())

	p = p.To(2).WithTotal(10)
	require.Equal(t, 0, p.Page, "shrinking total re-clamps the page")
}

func TestPaginationEmpty(t *testing.T) {
	p := NewPagination(12)
	require.Equal(t, 0, p.TotalPages())
	require.Equal(t, 0, p.To(3).Page)
	require.False(t, p.HasNext())
	require.Equal(t, 1, p.DisplayPage())
}

func TestPaginationRejectsZeroPageSize(t *testing.T) {
	require.Panics(t, func() { NewPagination(0) })
}
