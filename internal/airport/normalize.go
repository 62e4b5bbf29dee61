package airport

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// fieldMap lists, per canonical field, the provider paths to try in order.
// The first present and coercible value wins.
type fieldMap struct {
	placeholder string

	name      []string
	city      []string
	country   []string
	iata      []string
	icao      []string
	latitude  []string
	longitude []string
	timezone  []string
	elevation []string
}

var fieldMaps = map[string]fieldMap{
	SourceAirportDB: {
		placeholder: "Unknown Airport",
		name:        []string{"name"},
		city:        []string{"city", "municipality"},
		country:     []string{"country.name", "country", "country_name"},
		iata:        []string{"iata", "iata_code"},
		icao:        []string{"icao", "icao_code", "ident"},
		latitude:    []string{"latitude", "latitude_deg"},
		longitude:   []string{"longitude", "longitude_deg"},
		timezone:    []string{"timezone", "time_zone"},
		elevation:   []string{"elevation_feet", "elevation_ft"},
	},
	SourceAviationstack: {
		placeholder: "Unknown",
		name:        []string{"airport_name"},
		city:        []string{"city_name", "city"},
		country:     []string{"country_name"},
		iata:        []string{"iata_code"},
		icao:        []string{"icao_code"},
		latitude:    []string{"latitude"},
		longitude:   []string{"longitude"},
		timezone:    []string{"timezone"},
		elevation:   []string{"elevation_feet"},
	},
}

// Normalize maps a provider payload onto the canonical Record. Missing,
// empty or mistyped fields become absent; an unparseable body yields a
// record holding only the placeholder name. Unknown sources use the
// airportdb mapping.
func Normalize(raw RawRecord) Record {
	m, ok := fieldMaps[raw.Source]
	if !ok {
		m = fieldMaps[SourceAirportDB]
	}

	var doc gjson.Result
	if gjson.ValidBytes(raw.Body) {
		doc = gjson.ParseBytes(raw.Body)
	}

	rec := Record{
		City:      stringField(doc, m.city),
		Country:   stringField(doc, m.country),
		IATA:      stringField(doc, m.iata),
		ICAO:      stringField(doc, m.icao),
		Latitude:  numberField(doc, m.latitude),
		Longitude: numberField(doc, m.longitude),
		Timezone:  stringField(doc, m.timezone),
		Elevation: numberField(doc, m.elevation),
	}
	if name := stringField(doc, m.name); name != nil {
		rec.Name = *name
	} else {
		rec.Name = m.placeholder
	}
	return rec
}

func stringField(doc gjson.Result, paths []string) *string {
	for _, path := range paths {
		v := doc.Get(path)
		if v.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(v.Str); s != "" {
			return &s
		}
	}
	return nil
}

func numberField(doc gjson.Result, paths []string) *float64 {
	for _, path := range paths {
		v := doc.Get(path)
		var f float64
		switch v.Type {
		case gjson.Number:
			f = v.Num
		case gjson.String:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
			if err != nil {
				continue
			}
			f = parsed
		default:
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return &f
	}
	return nil
}
