package airport

import (
	"context"
	"fmt"
	"strings"

	"github.com/dotcommander/airport/internal/errs"
)

// Strategy names a lookup strategy.
type Strategy string

// Lookup strategies.
const (
	// StrategyCode resolves the query to a code, then fetches by code.
	StrategyCode Strategy = "code"
	// StrategySearch runs the provider's free-text search.
	StrategySearch Strategy = "search"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyCode, StrategySearch:
		return st, nil
	default:
		return "", errs.Wrap(
			fmt.Errorf("unknown strategy %q", s),
			fmt.Sprintf("Strategy must be %q or %q.", StrategyCode, StrategySearch),
		)
	}
}

// Lookup turns a query into a single raw provider record.
type Lookup interface {
	Lookup(ctx context.Context, query string) (RawRecord, error)
}

var (
	_ Lookup = &CodeLookup{}
	_ Lookup = &SearchLookup{}
)

// CodeLookup resolves a code for the query and fetches that code.
type CodeLookup struct {
	resolver CodeResolver
	fetcher  CodeFetcher
}

// NewCodeLookup returns a CodeLookup.
func NewCodeLookup(resolver CodeResolver, fetcher CodeFetcher) *CodeLookup {
	return &CodeLookup{resolver: resolver, fetcher: fetcher}
}

// Lookup implements Lookup.
func (l *CodeLookup) Lookup(ctx context.Context, query string) (RawRecord, error) {
	code, err := l.resolver.Resolve(ctx, query)
	if err != nil {
		return RawRecord{}, err
	}
	rec, err := l.fetcher.Fetch(ctx, code)
	if err != nil {
		return RawRecord{}, err
	}
	rec.Query = strings.TrimSpace(query)
	rec.Code = code
	return rec, nil
}

// SelectPolicy picks one record out of a non-empty candidate list.
type SelectPolicy func(query string, candidates []RawRecord) (RawRecord, error)

// FirstMatch selects the first candidate as returned by the provider. No
// ranking is applied.
func FirstMatch(_ string, candidates []RawRecord) (RawRecord, error) {
	return candidates[0], nil
}

// SearchLookup runs a provider search and selects one candidate.
type SearchLookup struct {
	searcher Searcher
	sel      SelectPolicy
}

// SearchOption customizes a SearchLookup.
type SearchOption func(*SearchLookup)

// WithSelectPolicy overrides the FirstMatch default.
func WithSelectPolicy(p SelectPolicy) SearchOption {
	return func(l *SearchLookup) {
		if p != nil {
			l.sel = p
		}
	}
}

// NewSearchLookup returns a SearchLookup using FirstMatch unless
// overridden.
func NewSearchLookup(searcher Searcher, opts ...SearchOption) *SearchLookup {
	l := &SearchLookup{searcher: searcher, sel: FirstMatch}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lookup implements Lookup.
func (l *SearchLookup) Lookup(ctx context.Context, query string) (RawRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return RawRecord{}, &errs.InputError{}
	}
	candidates, err := l.searcher.Search(ctx, query)
	if err != nil {
		return RawRecord{}, err
	}
	if len(candidates) == 0 {
		return RawRecord{}, &errs.NotFoundError{Query: query}
	}
	rec, err := l.sel(query, candidates)
	if err != nil {
		return RawRecord{}, err
	}
	rec.Query = query
	return rec, nil
}
