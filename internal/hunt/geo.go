package hunt

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// earthRadiusMeters is the mean Earth radius.
const earthRadiusMeters = 6371008.8

// Distance returns the great-circle distance between a and b in metres.
func Distance(a, b Coordinate) float64 {
	pa := s2.LatLngFromDegrees(a.Lat, a.Long)
	pb := s2.LatLngFromDegrees(b.Lat, b.Long)
	return pa.Distance(pb).Radians() * earthRadiusMeters
}

// Nearest returns the candidate closest to point. On equal distances the
// earliest candidate wins.
func Nearest(point Coordinate, candidates []PrizeLocation) (PrizeLocation, error) {
	if len(candidates) == 0 {
		return PrizeLocation{}, fmt.Errorf("nearest to %v: %w", point, ErrEmptyCandidateSet)
	}

	best := 0
	bestDist := Distance(point, candidates[0].Coordinates)
	for i := 1; i < len(candidates); i++ {
		if d := Distance(point, candidates[i].Coordinates); d < bestDist {
			best, bestDist = i, d
		}
	}
	return candidates[best], nil
}
