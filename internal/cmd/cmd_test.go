package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/fantasybridge"
	"github.com/dotcommander/airport/internal/proto"
	"github.com/dotcommander/airport/internal/storage"
	"github.com/dotcommander/airport/internal/stream"
	"github.com/dotcommander/airport/internal/stream/streamtest"
)

const heathrowBody = `{
  "ident": "EGLL",
  "name": "London Heathrow Airport",
  "iata_code": "LHR",
  "icao_code": "EGLL",
  "municipality": "London",
  "country": {"name": "United Kingdom"},
  "latitude_deg": 51.4706,
  "longitude_deg": -0.461941,
  "elevation_ft": 83
}`

const kennedyBody = `{
  "ident": "KJFK",
  "name": "John F Kennedy International Airport",
  "iata_code": "JFK",
  "icao_code": "KJFK",
  "municipality": "New York",
  "country": {"name": "United States"}
}`

type reply struct {
	match string
	text  string
}

// modelClient answers every request with the first reply whose match is
// found in the last message.
type modelClient struct {
	replies []reply
	calls   atomic.Int32
}

func (c *modelClient) Request(_ context.Context, req proto.Request) stream.Stream {
	c.calls.Add(1)
	prompt := req.Messages[len(req.Messages)-1].Content
	for _, r := range c.replies {
		if strings.Contains(prompt, r.match) {
			return streamtest.New(strings.SplitAfter(r.text, " ")...)
		}
	}
	return streamtest.New()
}

type fixture struct {
	rt     *runtime
	model  *modelClient
	dbHits atomic.Int32
	asHits atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{model: &modelClient{replies: []reply{
		{match: `Query: "Heathrow"`, text: "EGLL"},
		{match: `Query: "Kennedy"`, text: "KJFK"},
		{match: "Summarize this airport", text: "Heathrow is London's main hub."},
	}}}

	airportDB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.dbHits.Add(1)
		switch r.URL.Path {
		case "/airport/EGLL":
			_, _ = w.Write([]byte(heathrowBody))
		case "/airport/KJFK":
			_, _ = w.Write([]byte(kennedyBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(airportDB.Close)

	aviationstack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.asHits.Add(1)
		if r.URL.Query().Get("search") == "atlantis" {
			_, _ = w.Write([]byte(`{"data": []}`))
			return
		}
		_, _ = w.Write([]byte(`{"data": [{"airport_name": "Heathrow", "iata_code": "LHR", "icao_code": "EGLL", "country_name": "United Kingdom", "timezone": "Europe/London"}]}`))
	}))
	t.Cleanup(aviationstack.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.SettingsPath = filepath.Join(dir, "airport.yml")
	cfg.CachePath = filepath.Join(dir, "history")
	cfg.Persona = "You describe airports."
	cfg.APIs[0].APIKey = "google-key"
	cfg.AirportDB = config.Provider{Credentials: config.Credentials{APIKey: "db-key"}, BaseURL: airportDB.URL}
	cfg.Aviationstack = config.Provider{Credentials: config.Credentials{APIKey: "as-key"}, BaseURL: aviationstack.URL}
	cfg.RequestTimeout = 5 * time.Second
	cfg.LogLevel = "error"
	cfg.Quiet = true

	f.rt = &runtime{
		build: BuildInfo{Version: "test"},
		cfg:   cfg,
		newClient: func(fantasybridge.Config) (stream.Client, error) {
			return f.model, nil
		},
	}
	return f
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(f.rt)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (f *fixture) history(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(f.rt.cfg.CachePath, historyDir))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
