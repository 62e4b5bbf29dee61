package airport

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/stream/streamtest"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	completer     *stubCompleter
	airportdb     *atomic.Int32
	aviationstack *atomic.Int32
	agent         *stubAgent
	pipeline      *Pipeline
}

func newFixture(t *testing.T, dbHandler, searchHandler http.HandlerFunc) *fixture {
	t.Helper()
	if dbHandler == nil {
		dbHandler = func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(heathrowJSON)) }
	}
	if searchHandler == nil {
		searchHandler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"airport_name":"Heathrow","iata_code":"LHR","icao_code":"EGLL","country_name":"United Kingdom"}]}`))
		}
	}
	dbSrv, dbCalls := countingServer(t, dbHandler)
	searchSrv, searchCalls := countingServer(t, searchHandler)

	f := &fixture{
		completer:     &stubCompleter{reply: "EGLL"},
		airportdb:     dbCalls,
		aviationstack: searchCalls,
		agent:         &stubAgent{stream: streamtest.New("Heathrow is ", "a major hub.")},
	}
	tool := NewCodeLookup(
		NewResolver(f.completer, nil),
		NewAirportDB(ProviderConfig{BaseURL: dbSrv.URL, APIKey: "db"}),
	)
	workflow := NewSearchLookup(NewAviationstack(ProviderConfig{BaseURL: searchSrv.URL, APIKey: "as"}))
	f.pipeline = NewPipeline(tool, workflow, NewNarrator(registry{DefaultAgentName: f.agent}), nil)
	return f
}

func (f *fixture) networkCalls() int32 {
	return f.completer.calls.Load() + f.airportdb.Load() + f.aviationstack.Load()
}

func TestLookupHeathrow(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/airport/EGLL", r.URL.Path)
		_, _ = w.Write([]byte(heathrowJSON))
	}, nil)

	res, err := f.pipeline.Lookup(context.Background(), "Heathrow")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Summary, "✈️ Heathrow Airport (LHR / EGLL)"))
	require.Contains(t, res.Summary, "📍 London, United Kingdom")
	require.Contains(t, res.Summary, "🕐 Timezone: Europe/London")
	require.Contains(t, res.Summary, "🌐 Coordinates: 51.47, -0.46")
	require.Contains(t, res.Summary, "⛰️ Elevation: 83 ft")
	require.Equal(t, "Heathrow Airport", res.Name)
	require.EqualValues(t, 1, f.completer.calls.Load())
	require.EqualValues(t, 1, f.airportdb.Load())
	require.Zero(t, f.aviationstack.Load())
}

func TestLookupFlatCountry(t *testing.T) {
	const flat = `{"name":"Heathrow Airport","iata":"LHR","icao":"EGLL","city":"London","country":"United Kingdom","timezone":"Europe/London","latitude":51.4706,"longitude":-0.461941,"elevation_feet":83}`
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(flat))
	}, nil)

	res, err := f.pipeline.Lookup(context.Background(), "Heathrow")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Summary, "✈️ Heathrow Airport (LHR / EGLL)"))
	require.Contains(t, res.Summary, "📍 London, United Kingdom")
	require.Contains(t, res.Summary, "🕐 Timezone: Europe/London")
	require.Contains(t, res.Summary, "🌐 Coordinates: 51.47, -0.46")
	require.Contains(t, res.Summary, "⛰️ Elevation: 83 ft")
}

func TestEmptyQueryMakesNoNetworkCalls(t *testing.T) {
	f := newFixture(t, nil, nil)

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := f.pipeline.Lookup(context.Background(), query)
		var inErr *errs.InputError
		require.ErrorAs(t, err, &inErr)

		_, err = f.pipeline.Brief(context.Background(), query)
		require.ErrorAs(t, err, &inErr)
	}
	require.Zero(t, f.networkCalls())
	require.Empty(t, f.agent.prompts)
}

func TestLookupProviderNotFound(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	_, err := f.pipeline.Lookup(context.Background(), "Heathrow")
	var pErr *errs.ProviderError
	require.ErrorAs(t, err, &pErr)
	require.Equal(t, http.StatusNotFound, pErr.Status)
	require.Equal(t, "EGLL", pErr.Code)
}

func TestBriefNoMatches(t *testing.T) {
	f := newFixture(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := f.pipeline.Brief(context.Background(), "atlantis")
	var nfErr *errs.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	require.Equal(t, "atlantis", nfErr.Query)
	require.Empty(t, f.agent.prompts)
}

func TestBrief(t *testing.T) {
	f := newFixture(t, nil, nil)

	var fragments []string
	b, err := f.pipeline.Brief(context.Background(), "heathrow", WithFragmentHook(func(s string) {
		fragments = append(fragments, s)
	}))
	require.NoError(t, err)
	require.Equal(t, "Heathrow is a major hub.", b.Narrative)
	require.Equal(t, "Heathrow", b.Record.Name)
	require.Equal(t, "EGLL", *b.Record.ICAO)
	require.Equal(t, []string{"Heathrow is ", "a major hub."}, fragments)
	require.Zero(t, f.completer.calls.Load())
	require.Zero(t, f.airportdb.Load())
}

func TestBriefEmptyNarrativeIsInvalid(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.agent.stream = streamtest.New()

	_, err := f.pipeline.Brief(context.Background(), "heathrow")
	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, StageSummarize, vErr.Stage)
}

type lookupFunc func(context.Context, string) (RawRecord, error)

func (fn lookupFunc) Lookup(ctx context.Context, q string) (RawRecord, error) { return fn(ctx, q) }

func TestLookupInvalidRawRecord(t *testing.T) {
	p := NewPipeline(lookupFunc(func(context.Context, string) (RawRecord, error) {
		return RawRecord{Query: "x"}, nil
	}), nil, nil, nil)

	_, err := p.Lookup(context.Background(), "x")
	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, StageResolve, vErr.Stage)
}

func TestBriefWithoutNarrator(t *testing.T) {
	p := NewPipeline(nil, lookupFunc(func(context.Context, string) (RawRecord, error) {
		return RawRecord{Source: SourceAviationstack, Query: "x", Body: []byte(`{}`)}, nil
	}), nil, nil)

	_, err := p.Brief(context.Background(), "x")
	var aErr *errs.AgentUnavailableError
	require.ErrorAs(t, err, &aErr)
}

func TestStateTransitions(t *testing.T) {
	type transition struct {
		state State
		stage string
	}
	record := func(into *[]transition) RunOption {
		return WithStateHook(func(s State, stage string) {
			*into = append(*into, transition{s, stage})
		})
	}

	t.Run("done", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		var got []transition
		_, err := f.pipeline.Lookup(context.Background(), "Heathrow", record(&got))
		require.NoError(t, err)
		require.Equal(t, []transition{
			{Stage1Running, StageResolve},
			{Stage1Complete, StageResolve},
			{Stage2Running, StageNormalize},
			{Done, StageNormalize},
		}, got)
	})

	t.Run("aborted in stage one", func(t *testing.T) {
		f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, nil)
		var got []transition
		_, err := f.pipeline.Lookup(context.Background(), "Heathrow", record(&got))
		require.Error(t, err)
		require.Equal(t, []transition{
			{Stage1Running, StageResolve},
			{Aborted, StageResolve},
		}, got)
	})

	t.Run("aborted in stage two", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		f.agent.stream = streamtest.New()
		var got []transition
		_, err := f.pipeline.Brief(context.Background(), "heathrow", record(&got))
		require.Error(t, err)
		require.Equal(t, []transition{
			{Stage1Running, StageFetch},
			{Stage1Complete, StageFetch},
			{Stage2Running, StageSummarize},
			{Aborted, StageSummarize},
		}, got)
	})
}

func TestConcurrentInvocations(t *testing.T) {
	f := newFixture(t, nil, nil)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	errList := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errList[i] = f.pipeline.Lookup(context.Background(), "Heathrow")
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errList[i])
		require.Equal(t, results[0].Summary, results[i].Summary)
	}
	require.EqualValues(t, 8, f.airportdb.Load())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "stage1-running", Stage1Running.String())
	require.Equal(t, "aborted", Aborted.String())
	require.Equal(t, "unknown", State(42).String())
}
