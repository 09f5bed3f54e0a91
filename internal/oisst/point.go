package oisst

import (
	"errors"
	"math"
	"strconv"
)

// ErrOutOfRange is returned when a grid index falls outside the dataset.
var ErrOutOfRange = errors.New("index out of range")

// Point is a single grid cell reading at a given time step.
type Point struct {
	// Indices
	TimeIdx int
	LatIdx  int
	LonIdx  int

	// Coordinates, longitude on (-180, 180]
	Latitude  float64
	Longitude float64

	// Unpacked measurement, NaN when the file marks it missing.
	Value float64
}

// Key returns the id of the database record holding this cell.
func (p Point) Key() string {
	return Key(p.Longitude, p.Latitude)
}

// TidyLon maps a longitude on [0, 360) to (-180, 180], the convention used by
// the geolocation index.
func TidyLon(lon float64) float64 {
	if lon <= 180 {
		return lon
	}
	return lon - 360
}

// Key builds a grid point id as "<lon>_<lat>" using the shortest decimal
// representation of each coordinate.
func Key(lon, lat float64) string {
	return strconv.FormatFloat(lon, 'f', -1, 64) + "_" + strconv.FormatFloat(lat, 'f', -1, 64)
}

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
