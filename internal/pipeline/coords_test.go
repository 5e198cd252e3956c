package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCoords(t *testing.T) {
	tests := []struct {
		name string
		url  string
		lat  float64
		lng  float64
		ok   bool
	}{
		{
			"standard maps url",
			"https://www.google.com/maps/place/Cafe+Xoho/@32.0853,34.7818,15z",
			32.0853, 34.7818, true,
		},
		{
			"negative coordinates",
			"https://www.google.com/maps/@-33.8688,151.2093,12z",
			-33.8688, 151.2093, true,
		},
		{
			"integer coordinates",
			"https://www.google.com/maps/@32,34,10z",
			32, 34, true,
		},
		{"no coordinates", "https://www.google.com/maps/place/Somewhere", 0, 0, false},
		{"empty url", "", 0, 0, false},
		{"at sign without numbers", "https://example.com/@user", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lng, ok := ExtractCoords(tt.url)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.lat, lat, 0.00001)
				assert.InDelta(t, tt.lng, lng, 0.00001)
			}
		})
	}
}
