package airport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dotcommander/airport/internal/errs"
	"github.com/tidwall/gjson"
)

// DefaultAviationstackURL is the Aviationstack API root.
const DefaultAviationstackURL = "http://api.aviationstack.com/v1"

// Searcher runs a free-text airport search and returns every candidate in
// provider order.
type Searcher interface {
	Search(ctx context.Context, query string) ([]RawRecord, error)
}

var _ Searcher = &Aviationstack{}

// Aviationstack searches airports by free text on aviationstack.com.
type Aviationstack struct {
	httpProvider
}

// NewAviationstack returns an Aviationstack client.
func NewAviationstack(cfg ProviderConfig) *Aviationstack {
	return &Aviationstack{newHTTPProvider(SourceAviationstack, DefaultAviationstackURL, cfg)}
}

// Search implements Searcher. A response without a data array yields no
// candidates.
func (a *Aviationstack) Search(ctx context.Context, query string) ([]RawRecord, error) {
	v := url.Values{}
	v.Set("access_key", a.apiKey)
	v.Set("search", query)
	u := fmt.Sprintf("%s/airports?%s", strings.TrimSuffix(a.baseURL, "/"), v.Encode())

	status, body, err := a.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &errs.ProviderError{Provider: a.name, Status: status, Query: query}
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, nil
	}
	var candidates []RawRecord
	for _, item := range data.Array() {
		candidates = append(candidates, RawRecord{
			Source: SourceAviationstack,
			Query:  query,
			Body:   []byte(item.Raw),
		})
	}
	return candidates, nil
}
