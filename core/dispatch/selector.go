package dispatch

import (
	"sort"

	"github.com/safih1/policedispatch/core/geo"
	"github.com/safih1/policedispatch/core/model"
)

// SelectNearest returns the officer closest to target. Officers without
// coordinates are ignored. Equal distances keep the first officer in input
// order.
func SelectNearest(officers []model.Officer, target model.Coordinates) (model.Officer, bool) {
	var (
		best  model.Officer
		found bool
	)
	for _, o := range officers {
		if o.Coordinates == nil {
			continue
		}
		d := geo.Distance(target, *o.Coordinates)
		if !found || d < best.DistanceKm {
			best = o
			best.DistanceKm = d
			found = true
		}
	}
	return best, found
}

// Rank returns the officers with a known position sorted by distance to
// target, ties in input order.
func Rank(officers []model.Officer, target model.Coordinates) []model.Officer {
	ranked := make([]model.Officer, 0, len(officers))
	for _, o := range officers {
		if o.Coordinates == nil {
			continue
		}
		o.DistanceKm = geo.Distance(target, *o.Coordinates)
		ranked = append(ranked, o)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].DistanceKm < ranked[j].DistanceKm })
	return ranked
}
