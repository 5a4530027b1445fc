// Package geo provides great-circle distance helpers for the vendor search.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadiusMiles is the mean earth radius used by HaversineMiles
const EarthRadiusMiles = 3958.8

// ErrInvalidPoint is returned for unparsable or out-of-range coordinates
var ErrInvalidPoint = errors.New("invalid coordinates")

// Point is a latitude/longitude pair in degrees
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the point is finite and within range
func (p Point) Valid() bool {
	return ValidCoords(p.Lat, p.Lng)
}

// ValidCoords reports whether lat is in [-90, 90] and lng in [-180, 180]
func ValidCoords(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// HaversineMiles returns the great-circle distance between two points in miles
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// Distance returns the miles between p and q
func (p Point) Distance(q Point) float64 {
	return HaversineMiles(p.Lat, p.Lng, q.Lat, q.Lng)
}

// ParseLatLng parses "lat,lng"
func ParseLatLng(raw string) (Point, error) {
	latRaw, lngRaw, ok := strings.Cut(raw, ",")
	if !ok {
		return Point{}, fmt.Errorf("%w: %q", ErrInvalidPoint, raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %q", ErrInvalidPoint, raw)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %q", ErrInvalidPoint, raw)
	}
	p := Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return Point{}, fmt.Errorf("%w: %q", ErrInvalidPoint, raw)
	}
	return p, nil
}
