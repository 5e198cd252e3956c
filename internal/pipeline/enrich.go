package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/triptomat/trip-analyzer/internal/model"
)

// Enrich walks the payload's recommendations in array order and resolves
// each one's location. The payload is mutated in place and returned.
//
// Per item, two rules in a fixed order:
//
//  1. Manual override: the first recommendation (index 0) gets the job's
//     manual coordinates when both are present and non-zero. Only the
//     coordinate fields are overwritten, the address and every other item
//     are untouched, and the specific/general branch is skipped. A map
//     link's confirmed pin outranks model-guessed geocoding for that item.
//  2. Otherwise, "specific" items are geocoded with the query
//     "<name>, <site hierarchy>" and their whole location replaced by the
//     lookup result. "general" items keep whatever location the model
//     produced.
//
// Lookup failures never abort enrichment; the geocoder's zero-value
// fallback lands in the item's location.
func Enrich(ctx context.Context, payload *model.AnalysisPayload, geocoder Geocoder, manualLat, manualLng float64) *model.AnalysisPayload {
	hasManual := manualLat != 0 && manualLng != 0

	for i := range payload.Recommendations {
		item := &payload.Recommendations[i]

		if i == 0 && hasManual {
			item.Location.Coordinates.Lat = manualLat
			item.Location.Coordinates.Lng = manualLng
			continue
		}

		if item.LocationType != model.LocationSpecific {
			continue
		}

		hierarchy := SiteHierarchy(item.Site, payload.SitesList)
		query := strings.Trim(item.Name+", "+hierarchy, ", ")

		zap.L().Debug("enrich: geocoding", zap.String("query", query))

		loc, err := geocoder.Geocode(ctx, query)
		if err != nil {
			zap.L().Warn("enrich: geocode failed, using empty location",
				zap.String("query", query),
				zap.Error(err),
			)
		}
		item.Location = loc
	}

	return payload
}
