// Package airport resolves free-text airport queries into canonical airport
// records, a fixed-format summary and, optionally, a streamed narrative.
//
// Two pipelines are exposed by Pipeline: Lookup (lookup strategy, then
// normalization and summary) and Brief (lookup strategy and normalization,
// then a narrative from the registered agent).
package airport

// Provider names, also used as RawRecord.Source.
const (
	SourceAirportDB     = "airportdb"
	SourceAviationstack = "aviationstack"
)

// RawRecord is a provider payload before normalization.
type RawRecord struct {
	Source string `json:"source"`
	Query  string `json:"query"`
	Code   string `json:"code,omitempty"`
	Body   []byte `json:"-"`
}

// Record is the canonical airport shape. Name is always set; every other
// field is independently optional.
type Record struct {
	Name      string   `json:"name"`
	City      *string  `json:"city"`
	Country   *string  `json:"country"`
	IATA      *string  `json:"iata"`
	ICAO      *string  `json:"icao"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timezone  *string  `json:"timezone"`
	Elevation *float64 `json:"elevation"`
}

// Result is the output of the lookup pipeline.
type Result struct {
	Record
	Summary string `json:"summary"`
}

// Briefing is the output of the briefing pipeline.
type Briefing struct {
	Record    Record `json:"record"`
	Narrative string `json:"summary"`
}
