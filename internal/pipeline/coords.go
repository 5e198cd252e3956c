package pipeline

import (
	"regexp"
	"strconv"
)

// coordsRe matches the "@lat,lng" fragment of a resolved Google Maps URL.
// Both numbers are signed decimals; anything after the second number (zoom,
// tile parameters) is ignored.
var coordsRe = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)

// ExtractCoords parses latitude and longitude out of a resolved map URL.
// Returns ok=false when no coordinate pair is present.
func ExtractCoords(url string) (lat, lng float64, ok bool) {
	m := coordsRe.FindStringSubmatch(url)
	if m == nil {
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
