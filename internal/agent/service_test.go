package agent

import (
	"context"
	"errors"
	"testing"

	"charm.land/fantasy"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/fantasybridge"
	"github.com/dotcommander/airport/internal/proto"
	"github.com/dotcommander/airport/internal/stream"
	"github.com/dotcommander/airport/internal/stream/streamtest"
)

func TestNewFantasyClientRouting(t *testing.T) {
	for name, cfg := range map[string]fantasybridge.Config{
		"azure":             {API: "azure", APIKey: "token", BaseURL: "https://example.openai.azure.com"},
		"openai":            {API: "openai"},
		"openai-compatible": {API: "deepseek", BaseURL: "https://api.deepseek.com"},
		"openrouter":        {API: "openrouter", APIKey: "token"},
		"vercel":            {API: "vercel", APIKey: "token"},
		"ollama":            {API: "ollama", BaseURL: "http://localhost:11434/v1"},
	} {
		t.Run(name, func(t *testing.T) {
			client, err := NewFantasyClient(cfg)
			require.NoError(t, err)
			require.NotNil(t, client)
		})
	}

	t.Run("missing provider config returns error", func(t *testing.T) {
		client, err := NewFantasyClient(fantasybridge.Config{})
		require.Error(t, err)
		require.Nil(t, client)
	})
}

func TestApplyProxyConfig(t *testing.T) {
	providerCfg := fantasybridge.Config{}
	require.NoError(t, ApplyProxyConfig("http://127.0.0.1:8080", &providerCfg))
	require.NotNil(t, providerCfg.HTTPClient)

	providerCfg = fantasybridge.Config{}
	require.NoError(t, ApplyProxyConfig("", &providerCfg))
	require.Nil(t, providerCfg.HTTPClient)
}

func testConfig() *config.Config {
	return &config.Config{
		Settings: config.Settings{
			API:         "openai",
			Model:       "mini",
			Temperature: -1,
			APIs: config.APIs{
				{
					Name:        "openai",
					Credentials: config.Credentials{APIKey: "test-key"},
					Models: map[string]config.Model{
						"gpt-4o-mini": {Aliases: []string{"mini"}},
					},
				},
			},
		},
	}
}

// recordingFactory returns a factory handing out client and remembering the
// provider configuration it was asked for.
func recordingFactory(client stream.Client, seen *fantasybridge.Config) ClientFactory {
	return func(cfg fantasybridge.Config) (stream.Client, error) {
		*seen = cfg
		return client, nil
	}
}

func TestComplete(t *testing.T) {
	client := &streamtest.Client{Stream: streamtest.New("EG", "LL")}
	var seen fantasybridge.Config
	svc := New(testConfig(), nil, recordingFactory(client, &seen))

	text, err := svc.Complete(context.Background(), "Heathrow?")
	require.NoError(t, err)
	require.Equal(t, "EGLL", text)

	require.Equal(t, "openai", seen.API)
	require.Equal(t, "test-key", seen.APIKey)
	require.Len(t, client.Requests, 1)
	req := client.Requests[0]
	require.Equal(t, "gpt-4o-mini", req.Model)
	require.Nil(t, req.Temperature)
	require.Equal(t, []proto.Message{{Role: proto.RoleUser, Content: "Heathrow?"}}, req.Messages)
}

func TestCompleteProviderErrorIsUnusable(t *testing.T) {
	s := streamtest.New()
	s.Fail = &fantasy.ProviderError{StatusCode: 503, Message: "overloaded"}
	svc := New(testConfig(), nil, recordingFactory(&streamtest.Client{Stream: s}, &fantasybridge.Config{}))

	_, err := svc.Complete(context.Background(), "Heathrow?")
	require.ErrorIs(t, err, airport.ErrUnusableReply)
	require.NotEmpty(t, errs.ReasonOf(err))
}

func TestCompleteTransportErrorPropagates(t *testing.T) {
	s := streamtest.New()
	s.Fail = errors.New("dial tcp: connection refused")
	svc := New(testConfig(), nil, recordingFactory(&streamtest.Client{Stream: s}, &fantasybridge.Config{}))

	_, err := svc.Complete(context.Background(), "Heathrow?")
	require.EqualError(t, err, "dial tcp: connection refused")
	require.NotErrorIs(t, err, airport.ErrUnusableReply)
}

func TestRegisteredAgentUsesPersona(t *testing.T) {
	client := &streamtest.Client{Stream: streamtest.New("A ", "hub.")}
	svc := New(testConfig(), nil, recordingFactory(client, &fantasybridge.Config{}))
	require.NoError(t, svc.Register(airport.DefaultAgentName, "  You are an aviation assistant.\n"))

	_, ok := svc.Agent("someoneElse")
	require.False(t, ok)

	agent, ok := svc.Agent(airport.DefaultAgentName)
	require.True(t, ok)
	st, err := agent.Stream(context.Background(), "Summarize EGLL")
	require.NoError(t, err)
	text, err := stream.Collect(context.Background(), st, nil)
	require.NoError(t, err)
	require.Equal(t, "A hub.", text)

	require.Equal(t, []proto.Message{
		{Role: proto.RoleSystem, Content: "You are an aviation assistant."},
		{Role: proto.RoleUser, Content: "Summarize EGLL"},
	}, client.Requests[0].Messages)
}

func TestRegisterRequiresName(t *testing.T) {
	err := New(testConfig(), nil).Register("", "persona")
	require.Error(t, err)
	require.Equal(t, "Agent name is required.", errs.ReasonOf(err))
}

func TestResolveModel(t *testing.T) {
	t.Run("alias", func(t *testing.T) {
		api, mod, err := resolveModel(testConfig())
		require.NoError(t, err)
		require.Equal(t, "openai", api.Name)
		require.Equal(t, "gpt-4o-mini", mod.Name)
		require.Equal(t, "openai", mod.API)
	})

	t.Run("does not modify config", func(t *testing.T) {
		cfg := testConfig()
		_, _, err := resolveModel(cfg)
		require.NoError(t, err)
		require.Equal(t, "mini", cfg.Model)
	})

	t.Run("unknown model for api", func(t *testing.T) {
		cfg := testConfig()
		cfg.Model = "gpt-9"
		_, _, err := resolveModel(cfg)
		require.Error(t, err)
		require.Equal(t, "The API endpoint openai does not contain the model gpt-9", errs.ReasonOf(err))
	})

	t.Run("any api", func(t *testing.T) {
		cfg := testConfig()
		cfg.API = ""
		cfg.Model = "gpt-4o-mini"
		_, mod, err := resolveModel(cfg)
		require.NoError(t, err)
		require.Equal(t, "openai", mod.API)
	})

	t.Run("unknown model anywhere", func(t *testing.T) {
		cfg := testConfig()
		cfg.API = ""
		cfg.Model = "nope"
		_, _, err := resolveModel(cfg)
		require.Equal(t, "Model nope is not in the settings file.", errs.ReasonOf(err))
	})
}
