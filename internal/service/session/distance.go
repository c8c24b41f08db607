package session

import (
	"math"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
)

const EarthRadiusMeters = 6371000.0

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// HaversineDistance calculates the great-circle distance in metres between two points given in degrees.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := degreesToRadians(lat1)
	lat2Rad := degreesToRadians(lat2)

	deltaLat := lat2Rad - lat1Rad
	deltaLon := degreesToRadians(lon2 - lon1)

	a := math.Pow(math.Sin(deltaLat/2), 2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Pow(math.Sin(deltaLon/2), 2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Distance returns the distance in metres between two micro-degree positions.
func Distance(a, b models.Position) float64 {
	lat1, lon1 := a.Degrees()
	lat2, lon2 := b.Degrees()
	return HaversineDistance(lat1, lon1, lat2, lon2)
}
