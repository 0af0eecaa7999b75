package geo

import (
	"errors"
	"math"
)

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
	ErrInvalidHeading   = errors.New("heading must be between 0 and 360")
	ErrNegativeSpeed    = errors.New("speed cannot be negative")
)

// Coordinate is a single device position sample. Heading and Speed are
// optional: nil means "unknown", which is distinct from zero.
type Coordinate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"` // degrees, 0..360
	Speed     *float64 `json:"speed,omitempty"`   // meters per second
}

// NewCoordinate constructs a validated Coordinate without heading/speed.
func NewCoordinate(latitude, longitude float64) (Coordinate, error) {
	c := Coordinate{Latitude: latitude, Longitude: longitude}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks invariants of the Coordinate.
func (c Coordinate) Validate() error {
	if !isFinite(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return ErrInvalidLatitude
	}
	if !isFinite(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidLongitude
	}
	if c.Heading != nil && (!isFinite(*c.Heading) || *c.Heading < 0 || *c.Heading > 360) {
		return ErrInvalidHeading
	}
	if c.Speed != nil && (!isFinite(*c.Speed) || *c.Speed < 0) {
		return ErrNegativeSpeed
	}
	return nil
}

// SpeedKnown reports whether the sample carries a usable speed reading.
func (c Coordinate) SpeedKnown() bool {
	return c.Speed != nil && isFinite(*c.Speed)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
