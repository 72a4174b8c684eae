package domain

import (
	"context"
	"log/slog"
)

// BackfillCoordinates returns a copy of countries where identified records at
// (0,0) get coordinates from the geocoder. A nil geocoder returns the input
// unchanged. Failures are logged and leave the record as it was.
func BackfillCoordinates(ctx context.Context, countries []CountrySummary, geocoder Geocoder, logger *slog.Logger) []CountrySummary {
	if geocoder == nil {
		return countries
	}

	out := make([]CountrySummary, len(countries))
	copy(out, countries)

	for i := range out {
		c := &out[i]
		if !c.Identified() || !c.Coordinates.IsZero() {
			continue
		}
		if ctx.Err() != nil {
			return out
		}

		result, err := geocoder.ForwardGeocode(ctx, c.Name)
		if err != nil {
			logger.Warn("coordinate backfill failed",
				"country", c.Name,
				"iso", c.ISOCode,
				"error", err,
			)
			continue
		}
		if result.Lat == 0 && result.Lon == 0 {
			continue
		}
		c.Coordinates = Coordinates{Lat: result.Lat, Lng: result.Lon}
		logger.Debug("coordinates backfilled",
			"country", c.Name,
			"lat", result.Lat,
			"lng", result.Lon,
			"confidence", result.Confidence,
		)
	}
	return out
}
