package airport

import (
	"strconv"
	"strings"
)

const (
	notAvailable = "N/A"
	unknown      = "Unknown"
)

// Summarize renders the fixed five-line summary of rec. Absent fields are
// shown as N/A or Unknown; the line order and labels are stable.
func Summarize(rec Record) string {
	var location string
	if rec.City != nil {
		location = *rec.City + ", "
	}
	location += orText(rec.Country, unknown)

	elevation := notAvailable
	if rec.Elevation != nil {
		elevation = strconv.FormatFloat(*rec.Elevation, 'f', -1, 64) + " ft"
	}

	lines := []string{
		"✈️ " + rec.Name + " (" + orText(rec.IATA, notAvailable) + " / " + orText(rec.ICAO, notAvailable) + ")",
		"📍 " + location,
		"🕐 Timezone: " + orText(rec.Timezone, unknown),
		"🌐 Coordinates: " + coordinate(rec.Latitude) + ", " + coordinate(rec.Longitude),
		"⛰️ Elevation: " + elevation,
	}
	return strings.Join(lines, "\n")
}

func orText(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func coordinate(f *float64) string {
	if f == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}
