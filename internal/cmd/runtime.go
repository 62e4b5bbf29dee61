package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/dotcommander/airport/internal/agent"
	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/logging"
	"github.com/dotcommander/airport/internal/storage"
	"github.com/dotcommander/airport/internal/storage/cache"
)

const (
	airportDBDocs     = "https://airportdb.io/#pricing"
	aviationstackDocs = "https://aviationstack.com/signup/free"

	// historyDir holds the history index, under the cache path.
	historyDir = "index"
)

type runtime struct {
	build  BuildInfo
	cfg    config.Config
	cfgErr error

	// newClient replaces the fantasy client, if set.
	newClient agent.ClientFactory
}

// services is everything a pipeline command needs, built from the
// configuration.
type services struct {
	logger   *log.Logger
	agents   *agent.Service
	pipeline *airport.Pipeline
}

// buildServices wires the agent service and a pipeline. A nil strategy
// leaves the matching pipeline unconfigured, so its keys are not required.
func (rt *runtime) buildServices(ctx context.Context, tool, workflow *airport.Strategy) (*services, error) {
	cfg := &rt.cfg
	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, errs.Wrap(err, "Invalid log level.")
	}

	agents := agent.New(cfg, logger, rt.newClient)
	if err := agents.Register(cfg.Agent, cfg.Persona); err != nil {
		return nil, err
	}

	var toolLookup, workflowLookup airport.Lookup
	if tool != nil {
		if toolLookup, err = rt.newLookup(ctx, *tool, agents, logger); err != nil {
			return nil, err
		}
	}
	if workflow != nil {
		if workflowLookup, err = rt.newLookup(ctx, *workflow, agents, logger); err != nil {
			return nil, err
		}
	}

	narrator := airport.NewNarrator(agents,
		airport.WithAgentName(cfg.Agent),
		airport.WithNarrativeTimeout(cfg.NarrativeTimeout),
		airport.WithNarratorLogger(logger),
	)
	return &services{
		logger:   logger,
		agents:   agents,
		pipeline: airport.NewPipeline(toolLookup, workflowLookup, narrator, logger),
	}, nil
}

func (rt *runtime) newLookup(ctx context.Context, s airport.Strategy, completer airport.Completer, logger *log.Logger) (airport.Lookup, error) {
	cfg := &rt.cfg
	client := &http.Client{Timeout: cfg.RequestTimeout}

	switch s {
	case airport.StrategyCode:
		key, err := agent.ResolveKey(ctx, cfg.AirportDB.Credentials, config.AirportDBKeyEnv, airportDBDocs)
		if err != nil {
			return nil, err
		}
		fetcher := airport.NewAirportDB(airport.ProviderConfig{
			BaseURL:    cfg.AirportDB.BaseURL,
			APIKey:     key,
			HTTPClient: client,
			Logger:     logger,
		})
		return airport.NewCodeLookup(airport.NewResolver(completer, logger), fetcher), nil
	case airport.StrategySearch:
		key, err := agent.ResolveKey(ctx, cfg.Aviationstack.Credentials, config.AviationstackKeyEnv, aviationstackDocs)
		if err != nil {
			return nil, err
		}
		searcher := airport.NewAviationstack(airport.ProviderConfig{
			BaseURL:    cfg.Aviationstack.BaseURL,
			APIKey:     key,
			HTTPClient: client,
			Logger:     logger,
		})
		return airport.NewSearchLookup(searcher), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", s)
}

// strategy parses the configured strategy, letting --strategy win.
func (rt *runtime) strategy(configured string) (airport.Strategy, error) {
	if rt.cfg.Strategy != "" {
		configured = rt.cfg.Strategy
	}
	return airport.ParseStrategy(configured)
}

// store is the lookup history: the index plus the cached reports.
type store struct {
	db      *storage.DB
	reports *cache.Reports
}

func openStore(cachePath string) (*store, error) {
	reports, err := cache.NewReports(cachePath)
	if err != nil {
		return nil, fmt.Errorf("open report cache: %w", err)
	}
	db, err := storage.Open(filepath.Join(cachePath, historyDir))
	if err != nil {
		return nil, fmt.Errorf("open history index: %w", err)
	}
	return &store{db: db, reports: reports}, nil
}

func (s *store) Close() error {
	return s.db.Close()
}
