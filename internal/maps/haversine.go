package maps

import (
	"context"
	"math"
	"time"

	"partner/internal/types"
)

const (
	earthRadiusKm = 6371.0
	// road distance is longer than the great circle in a city grid
	detourFactor = 1.3
)

// HaversineQuoter estimates routes offline from straight-line distance and an average speed.
type HaversineQuoter struct {
	SpeedKmh float64
}

func (q HaversineQuoter) Quote(_ context.Context, from, to types.Point) (float64, time.Duration, error) {
	speed := q.SpeedKmh
	if speed <= 0 {
		speed = 20
	}
	km := HaversineKm(from, to) * detourFactor
	return km, time.Duration(km / speed * float64(time.Hour)), nil
}

// HaversineKm returns the great-circle distance in kilometres between two points.
func HaversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
