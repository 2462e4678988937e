package ftdf

import (
	"errors"
	"math"
)

const earthRadiusMeters = 6371000.0

// Location is a GeoJSON point - Coordinates are longitude, latitude order
type Location struct {
	Type        string    `json:"type" groups:"basic"`
	Coordinates []float64 `json:"coordinates" groups:"basic"`
}

func NewLocation(latitude float64, longitude float64) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
	}
}

func (l *Location) Longitude() float64 {
	if len(l.Coordinates) < 2 {
		return 0
	}
	return l.Coordinates[0]
}

func (l *Location) Latitude() float64 {
	if len(l.Coordinates) < 2 {
		return 0
	}
	return l.Coordinates[1]
}

func (l *Location) Validate() error {
	if len(l.Coordinates) != 2 {
		return errors.New("location must contain exactly longitude & latitude")
	}
	if l.Latitude() < -90 || l.Latitude() > 90 {
		return errors.New("latitude must be between -90 & 90")
	}
	if l.Longitude() < -180 || l.Longitude() > 180 {
		return errors.New("longitude must be between -180 & 180")
	}

	return nil
}

// Distance returns the great-circle (haversine) distance to the other location in meters
func (l *Location) Distance(other *Location) float64 {
	lat1 := l.Latitude() * math.Pi / 180
	lat2 := other.Latitude() * math.Pi / 180
	deltaLat := (other.Latitude() - l.Latitude()) * math.Pi / 180
	deltaLon := (other.Longitude() - l.Longitude()) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
