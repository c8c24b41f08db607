package models

import (
	"fmt"
	"math"
)

// Position is a geographic coordinate in micro-degrees (degrees * 1e6).
type Position struct {
	Lat int `json:"latitude"`
	Lon int `json:"longitude"`
}

// NewPositionFromDegrees converts decimal degrees into a micro-degree Position,
// rounding to the nearest micro-degree.
func NewPositionFromDegrees(lat, lon float64) Position {
	return Position{
		Lat: int(math.Round(lat * 1e6)),
		Lon: int(math.Round(lon * 1e6)),
	}
}

// Degrees returns the coordinate in decimal degrees.
func (p Position) Degrees() (lat, lon float64) {
	return float64(p.Lat) / 1e6, float64(p.Lon) / 1e6
}

func (p Position) String() string {
	lat, lon := p.Degrees()
	return fmt.Sprintf("(%.6f, %.6f)", lat, lon)
}
