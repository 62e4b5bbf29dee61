package agent

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/fantasybridge"
	"github.com/dotcommander/airport/internal/logging"
	"github.com/dotcommander/airport/internal/proto"
	"github.com/dotcommander/airport/internal/stream"
)

var (
	_ airport.Completer     = &Service{}
	_ airport.AgentRegistry = &Service{}
	_ airport.Agent         = &Agent{}
)

// ClientFactory creates the streaming client for a provider configuration.
type ClientFactory func(fantasybridge.Config) (stream.Client, error)

// Service starts text-generation streams for the configured model.
//
// It is UI-agnostic and safe for concurrent use; the CLI, the TUI and the
// MCP server share one instance.
type Service struct {
	cfg       *config.Config
	newClient ClientFactory
	logger    *log.Logger

	mu     sync.RWMutex
	agents map[string]*Agent
}

// New creates an agent service. The optional factory replaces the default
// fantasy-backed client.
func New(cfg *config.Config, logger *log.Logger, factory ...ClientFactory) *Service {
	newClient := NewFantasyClient
	if len(factory) > 0 && factory[0] != nil {
		newClient = factory[0]
	}
	return &Service{
		cfg:       cfg,
		newClient: newClient,
		logger:    logging.OrDiscard(logger),
		agents:    map[string]*Agent{},
	}
}

// Agent is a registered conversational capability: a persona answering
// through the service's model.
type Agent struct {
	Name    string
	persona string
	svc     *Service
}

// Stream implements airport.Agent.
func (a *Agent) Stream(ctx context.Context, prompt string) (stream.Stream, error) {
	messages := make([]proto.Message, 0, 2)
	if a.persona != "" {
		messages = append(messages, proto.Message{Role: proto.RoleSystem, Content: a.persona})
	}
	messages = append(messages, proto.Message{Role: proto.RoleUser, Content: prompt})
	return a.svc.stream(ctx, messages)
}

// Register adds (or replaces) an agent. persona is loaded with
// config.LoadMsg, so it may be raw text, a file:// path or a URL.
func (s *Service) Register(name, persona string) error {
	if name == "" {
		return errs.Error{Reason: "Agent name is required."}
	}
	content, err := config.LoadMsg(persona)
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not load the agent persona."}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[name] = &Agent{Name: name, persona: strings.TrimSpace(content), svc: s}
	s.logger.Debug("registered agent", "agent", name)
	return nil
}

// Agent implements airport.AgentRegistry.
func (s *Service) Agent(name string) (airport.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[name]
	if !ok {
		return nil, false
	}
	return a, true
}

// Complete implements airport.Completer. It sends prompt without a persona
// and drains the reply.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	st, err := s.stream(ctx, []proto.Message{{Role: proto.RoleUser, Content: prompt}})
	if err != nil {
		return "", err
	}
	text, err := stream.Collect(ctx, st, nil)
	s.logWarnings(st)
	if err != nil {
		return "", providerError(s.cfg.API, err)
	}
	return text, nil
}

func (s *Service) stream(ctx context.Context, messages []proto.Message) (stream.Stream, error) {
	cfg := s.cfg

	api, mod, err := resolveModel(cfg)
	if err != nil {
		return nil, err
	}

	providerCfg, err := prepareProviderConfig(ctx, mod, api)
	if err != nil {
		return nil, err
	}
	if err := ApplyProxyConfig(cfg.HTTPProxy, &providerCfg); err != nil {
		return nil, err
	}

	request := proto.Request{
		Messages: messages,
		API:      mod.API,
		Model:    mod.Name,
		User:     cfg.User,
	}
	if api.User != "" {
		request.User = api.User
	}
	if cfg.Temperature >= 0 {
		v := cfg.Temperature
		request.Temperature = &v
	}
	if cfg.MaxTokens > 0 {
		v := cfg.MaxTokens
		request.MaxTokens = &v
	}

	client, err := s.newClient(providerCfg)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("starting stream", "api", mod.API, "model", mod.Name)
	st := client.Request(ctx, request)
	if err := st.Err(); err != nil {
		_ = st.Close()
		return nil, providerError(mod.API, err)
	}
	return st, nil
}

func (s *Service) logWarnings(st stream.Stream) {
	for _, w := range st.DrainWarnings() {
		s.logger.Warn("provider warning", "warning", w)
	}
}

// resolveModel finds the configured API and model. It does not modify cfg.
func resolveModel(cfg *config.Config) (config.API, config.Model, error) {
	for _, api := range cfg.APIs {
		if api.Name != cfg.API && cfg.API != "" {
			continue
		}
		name := cfg.Model
		for candidate, mod := range api.Models {
			if candidate == cfg.Model || slices.Contains(mod.Aliases, cfg.Model) {
				name = candidate
				break
			}
		}
		mod, ok := api.Models[name]
		if ok {
			mod.Name = name
			mod.API = api.Name
			return api, mod, nil
		}
		if cfg.API != "" {
			available := make([]string, 0, len(api.Models))
			for name := range api.Models {
				available = append(available, name)
			}
			slices.Sort(available)
			return config.API{}, config.Model{}, errs.Error{
				Err:    errs.UserErrorf("Available models are: %s", strings.Join(available, ", ")),
				Reason: fmt.Sprintf("The API endpoint %s does not contain the model %s", cfg.API, cfg.Model),
			}
		}
	}

	return config.API{}, config.Model{}, errs.Error{
		Reason: fmt.Sprintf("Model %s is not in the settings file.", cfg.Model),
		Err:    errs.UserErrorf("Please configure the model in the settings: airport config edit"),
	}
}

func prepareProviderConfig(ctx context.Context, mod config.Model, api config.API) (fantasybridge.Config, error) {
	switch mod.API {
	case "google":
		key, err := ensureKey(ctx, api.Credentials, config.GoogleKeyEnv, "https://aistudio.google.com/app/apikey")
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "Google authentication failed"}
		}
		return fantasybridge.Config{API: mod.API, APIKey: key, BaseURL: api.BaseURL, ThinkingBudget: mod.ThinkingBudget}, nil
	case "openrouter":
		key, err := ensureKey(ctx, api.Credentials, "OPENROUTER_API_KEY", "https://openrouter.ai/keys")
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "OpenRouter authentication failed"}
		}
		return fantasybridge.Config{API: mod.API, APIKey: key, BaseURL: api.BaseURL}, nil
	case "vercel":
		key, err := ensureKey(ctx, api.Credentials, "VERCEL_API_KEY", "https://vercel.com/dashboard/tokens")
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "Vercel AI Gateway authentication failed"}
		}
		return fantasybridge.Config{API: mod.API, APIKey: key, BaseURL: api.BaseURL}, nil
	case "bedrock":
		key, err := lookupKey(ctx, api.Credentials)
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "Bedrock authentication failed"}
		}
		return fantasybridge.Config{API: mod.API, APIKey: key, BaseURL: api.BaseURL}, nil
	case "ollama":
		baseURL := api.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		return fantasybridge.Config{API: mod.API, BaseURL: baseURL}, nil
	case "azure", "azure-ad":
		key, err := ensureKey(ctx, api.Credentials, "AZURE_OPENAI_KEY", "https://aka.ms/oai/access")
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "Azure authentication failed"}
		}
		return fantasybridge.Config{API: "azure", APIKey: key, BaseURL: api.BaseURL}, nil
	case "anthropic":
		key, err := ensureKey(ctx, api.Credentials, "ANTHROPIC_API_KEY", "https://console.anthropic.com/settings/keys")
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "Anthropic authentication failed"}
		}
		return fantasybridge.Config{API: mod.API, APIKey: key, BaseURL: api.BaseURL}, nil
	default:
		key, err := ensureKey(ctx, api.Credentials, "OPENAI_API_KEY", "https://platform.openai.com/account/api-keys")
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "OpenAI authentication failed"}
		}
		return fantasybridge.Config{API: mod.API, APIKey: key, BaseURL: api.BaseURL}, nil
	}
}

// ApplyProxyConfig configures the provider HTTP client to use an HTTP proxy.
func ApplyProxyConfig(httpProxy string, providerCfg *fantasybridge.Config) error {
	if httpProxy == "" {
		return nil
	}
	proxyURL, err := url.Parse(httpProxy)
	if err != nil {
		return errs.Error{Err: err, Reason: "There was an error parsing your proxy URL."}
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return errs.Error{Err: fmt.Errorf("default transport is not *http.Transport"), Reason: "Could not configure proxy."}
	}
	tr := base.Clone()
	tr.Proxy = http.ProxyURL(proxyURL)
	tr.DialContext = (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 30 * time.Second
	tr.IdleConnTimeout = 90 * time.Second
	tr.ExpectContinueTimeout = 1 * time.Second
	providerCfg.HTTPClient = &http.Client{Transport: tr}
	return nil
}

// NewFantasyClient creates the fantasy bridge client.
func NewFantasyClient(cfg fantasybridge.Config) (stream.Client, error) {
	if cfg.API == "" {
		return nil, errs.Error{Reason: "missing fantasy provider configuration"}
	}
	client, err := fantasybridge.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("new fantasy bridge client: %w", err)
	}
	return client, nil
}
