package airport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dotcommander/airport/internal/errs"
)

// DefaultAirportDBURL is the AirportDB API root.
const DefaultAirportDBURL = "https://airportdb.io/api/v1"

// CodeFetcher retrieves the raw record for an airport code.
type CodeFetcher interface {
	Fetch(ctx context.Context, code string) (RawRecord, error)
}

var _ CodeFetcher = &AirportDB{}

// AirportDB fetches airports by code from airportdb.io.
type AirportDB struct {
	httpProvider
}

// NewAirportDB returns an AirportDB client.
func NewAirportDB(cfg ProviderConfig) *AirportDB {
	return &AirportDB{newHTTPProvider(SourceAirportDB, DefaultAirportDBURL, cfg)}
}

// Fetch implements CodeFetcher. A 2xx response is returned as-is, even
// when the body is empty or not JSON.
func (a *AirportDB) Fetch(ctx context.Context, code string) (RawRecord, error) {
	u := fmt.Sprintf("%s/airport/%s?apiToken=%s",
		strings.TrimSuffix(a.baseURL, "/"),
		url.PathEscape(code),
		url.QueryEscape(a.apiKey),
	)
	status, body, err := a.get(ctx, u)
	if err != nil {
		return RawRecord{}, err
	}
	if !isSuccess(status) {
		return RawRecord{}, &errs.ProviderError{Provider: a.name, Status: status, Code: code}
	}
	return RawRecord{Source: SourceAirportDB, Code: code, Body: body}, nil
}
