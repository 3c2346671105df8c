package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safih1/policedispatch/core/geo"
	"github.com/safih1/policedispatch/core/model"
)

// offsetLat returns a point km kilometres north of origin.
func offsetLat(origin model.Coordinates, km float64) *model.Coordinates {
	return &model.Coordinates{Lat: origin.Lat + km/111.195, Lng: origin.Lng}
}

func TestSelectNearestPicksShortestDistance(t *testing.T) {
	target := model.Coordinates{Lat: 34.0, Lng: 73.0}
	officers := []model.Officer{
		{ID: 1, Coordinates: offsetLat(target, 5)},
		{ID: 2, Coordinates: offsetLat(target, 2)},
		{ID: 3, Coordinates: offsetLat(target, 8)},
	}
	got, ok := SelectNearest(officers, target)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)
	assert.InDelta(t, 2.0, got.DistanceKm, 0.01)
}

func TestSelectNearestTieKeepsFirst(t *testing.T) {
	target := model.Coordinates{Lat: 10, Lng: 10}
	officers := []model.Officer{
		{ID: 7, Coordinates: offsetLat(target, 1)},
		{ID: 8, Coordinates: offsetLat(target, 1)},
	}
	got, ok := SelectNearest(officers, target)
	require.True(t, ok)
	assert.Equal(t, int64(7), got.ID)
}

func TestSelectNearestSkipsMissingCoordinates(t *testing.T) {
	target := model.Coordinates{Lat: 10, Lng: 10}
	_, ok := SelectNearest([]model.Officer{{ID: 1}}, target)
	assert.False(t, ok)
	_, ok = SelectNearest(nil, target)
	assert.False(t, ok)
}

func TestRankSortsStable(t *testing.T) {
	target := model.Coordinates{Lat: 0, Lng: 0}
	officers := []model.Officer{
		{ID: 1, Coordinates: offsetLat(target, 3)},
		{ID: 2},
		{ID: 3, Coordinates: offsetLat(target, 1)},
		{ID: 4, Coordinates: offsetLat(target, 3)},
	}
	ranked := Rank(officers, target)
	require.Len(t, ranked, 3)
	assert.Equal(t, []int64{3, 1, 4}, []int64{ranked[0].ID, ranked[1].ID, ranked[2].ID})
	assert.InDelta(t, geo.Distance(target, *officers[2].Coordinates), ranked[0].DistanceKm, 1e-9)
}
