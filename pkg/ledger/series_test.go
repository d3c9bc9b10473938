package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aboutcircles/circles-engine/pkg/ledger"
	"github.com/aboutcircles/circles-engine/pkg/model"
)

func TestSeriesAppend(t *testing.T) {
	series := ledger.NewSeries[string]()

	_, _, exists := series.Latest()
	require.False(t, exists)

	require.NoError(t, series.Append(1, "a"))
	require.NoError(t, series.Append(5, "b"))

	latest, value, exists := series.Latest()
	require.True(t, exists)
	require.EqualValues(t, 5, latest)
	require.Equal(t, "b", value)

	// writes into the past are rejected
	err := series.Append(3, "c")
	require.ErrorIs(t, err, ledger.ErrTemporalOrder)
	require.Equal(t, 2, series.Len())

	// writes at the latest time replace the entry
	require.NoError(t, series.Append(5, "d"))
	require.Equal(t, 2, series.Len())
	_, value, _ = series.Latest()
	require.Equal(t, "d", value)
}

func TestSeriesLookup(t *testing.T) {
	series := ledger.NewSeries[int]()
	require.NoError(t, series.Append(0, 10))
	require.NoError(t, series.Append(24, 20))
	require.NoError(t, series.Append(48, 30))

	value, exists := series.At(24)
	require.True(t, exists)
	require.Equal(t, 20, value)

	_, exists = series.At(25)
	require.False(t, exists)

	require.Equal(t, []model.Tick{0, 24, 48}, series.Times())

	var visited []int
	series.ForEach(func(_ model.Tick, value int) bool {
		visited = append(visited, value)

		return len(visited) < 2
	})
	require.Equal(t, []int{10, 20}, visited)
}
