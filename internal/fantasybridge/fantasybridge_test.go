//go:build !airport_small

package fantasybridge

import (
	"context"
	"errors"
	"testing"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/google"
	fopenai "charm.land/fantasy/providers/openai"
	fopenaicompat "charm.land/fantasy/providers/openaicompat"
	"github.com/dotcommander/airport/internal/proto"
	"github.com/dotcommander/airport/internal/stream"
	"github.com/stretchr/testify/require"
)

func TestBuildCallGoogleThinkingBudget(t *testing.T) {
	s := &Stream{
		api:     APIGoogle,
		config:  Config{ThinkingBudget: 256},
		request: proto.Request{},
	}

	call := s.buildCall()

	v, ok := call.ProviderOptions[google.Name]
	require.True(t, ok)
	opts, ok := v.(*google.ProviderOptions)
	require.True(t, ok)
	require.NotNil(t, opts.ThinkingConfig)
	require.NotNil(t, opts.ThinkingConfig.ThinkingBudget)
	require.EqualValues(t, 256, *opts.ThinkingConfig.ThinkingBudget)
}

func TestBuildCallNonGoogleNoThinkingBudgetOption(t *testing.T) {
	s := &Stream{
		api:     "openai",
		config:  Config{ThinkingBudget: 512},
		request: proto.Request{},
	}

	call := s.buildCall()
	require.Empty(t, call.ProviderOptions)
}

func TestBuildCallCarriesPromptAndSampling(t *testing.T) {
	temp := 0.2
	tokens := int64(64)
	s := &Stream{
		api: APIGoogle,
		request: proto.Request{
			Messages: []proto.Message{
				{Role: proto.RoleSystem, Content: "be brief"},
				{Role: proto.RoleUser, Content: "Heathrow"},
			},
			Temperature: &temp,
			MaxTokens:   &tokens,
		},
	}

	call := s.buildCall()
	require.Len(t, call.Prompt, 2)
	require.Equal(t, &temp, call.Temperature)
	require.Equal(t, &tokens, call.MaxOutputTokens)
}

func TestBuildCallUserProviderOptions(t *testing.T) {
	t.Run("openai user propagates to openai provider options", func(t *testing.T) {
		s := &Stream{api: "openai", request: proto.Request{User: "alice"}}

		call := s.buildCall()
		v, ok := call.ProviderOptions[fopenai.Name]
		require.True(t, ok)
		opts, ok := v.(*fopenai.ProviderOptions)
		require.True(t, ok)
		require.Equal(t, "alice", *opts.User)
	})

	t.Run("custom openai-compatible user propagates to compat options", func(t *testing.T) {
		s := &Stream{api: "deepseek", request: proto.Request{User: "bob"}}

		call := s.buildCall()
		v, ok := call.ProviderOptions[fopenaicompat.Name]
		require.True(t, ok)
		opts, ok := v.(*fopenaicompat.ProviderOptions)
		require.True(t, ok)
		require.Equal(t, "bob", *opts.User)
	})

	t.Run("google does not attach user provider option", func(t *testing.T) {
		s := &Stream{api: APIGoogle, request: proto.Request{User: "carol"}}

		call := s.buildCall()
		_, hasOpenAI := call.ProviderOptions[fopenai.Name]
		_, hasCompat := call.ProviderOptions[fopenaicompat.Name]
		require.False(t, hasOpenAI)
		require.False(t, hasCompat)
	})
}

func TestNewProviders(t *testing.T) {
	for _, cfg := range []Config{
		{API: "openai", APIKey: "token"},
		{API: "azure-ad", APIKey: "token", BaseURL: "https://example.openai.azure.com"},
		{API: "ollama", BaseURL: "http://localhost:11434/v1"},
	} {
		t.Run(cfg.API, func(t *testing.T) {
			client, err := New(cfg)
			require.NoError(t, err)
			require.NotNil(t, client)
		})
	}
}

func TestStreamYieldsTextDeltas(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Stream{ctx: ctx, cancel: cancel, partCh: make(chan fantasy.StreamPart, 4), warningSeen: map[string]struct{}{}}
	s.partCh <- fantasy.StreamPart{Type: fantasy.StreamPartTypeTextStart}
	s.partCh <- fantasy.StreamPart{Type: fantasy.StreamPartTypeTextDelta, Delta: "EG"}
	s.partCh <- fantasy.StreamPart{Type: fantasy.StreamPartTypeTextDelta, Delta: "LL"}
	close(s.partCh)

	text, err := stream.Collect(context.Background(), s, nil)
	require.NoError(t, err)
	require.Equal(t, "EGLL", text)
}

func TestStreamErrorPart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Stream{ctx: ctx, cancel: cancel, partCh: make(chan fantasy.StreamPart, 2), warningSeen: map[string]struct{}{}}
	s.partCh <- fantasy.StreamPart{Type: fantasy.StreamPartTypeError, Error: errors.New("quota exceeded")}
	close(s.partCh)

	require.True(t, s.Next())
	_, err := s.Current()
	require.EqualError(t, err, "quota exceeded")
	require.False(t, s.Next())
	require.EqualError(t, s.Err(), "quota exceeded")
}

func TestDrainWarningsDeduplicates(t *testing.T) {
	s := &Stream{warningSeen: map[string]struct{}{}}

	s.consumePart(fantasy.StreamPart{
		Type: fantasy.StreamPartTypeWarnings,
		Warnings: []fantasy.CallWarning{
			{Type: fantasy.CallWarningTypeUnsupportedSetting, Setting: "top_k", Message: "unsupported setting: top_k"},
			{Type: fantasy.CallWarningTypeUnsupportedSetting, Setting: "top_k", Message: "unsupported setting: top_k"},
		},
	})

	warnings := s.DrainWarnings()
	require.Equal(t, []string{"unsupported setting: top_k"}, warnings)
	require.Empty(t, s.DrainWarnings())
}
