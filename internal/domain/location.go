package domain

import (
	"strconv"
	"strings"
)

// Coordinates 经纬度（度）
type Coordinates struct {
	Lat float64
	Lng float64
}

// ParseCoordinates parses a stored position such as "35.6812,139.7671" or
// "35.6812 139.7671". The second return value is false when the string does
// not hold exactly two numbers.
func ParseCoordinates(s string) (Coordinates, bool) {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	if len(fields) != 2 {
		return Coordinates{}, false
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Coordinates{}, false
	}
	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}
