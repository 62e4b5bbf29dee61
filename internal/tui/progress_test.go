package tui

import (
	"context"
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/errs"
)

func newTestProgress(t *testing.T, cfg config.Settings, job Job) *Progress {
	t.Helper()
	if job == nil {
		job = func(context.Context, ...airport.RunOption) (string, error) { return "", nil }
	}
	m := NewProgress(context.Background(), lipgloss.NewRenderer(io.Discard), &config.Config{Settings: cfg}, "Heathrow", job)
	t.Cleanup(m.cancel)
	return m
}

func TestStageUpdatesView(t *testing.T) {
	m := newTestProgress(t, config.Settings{}, nil)
	require.Contains(t, m.View(), "Starting")

	_, cmd := m.Update(stageMsg{state: airport.Stage1Running, stage: airport.StageResolve})
	require.NotNil(t, cmd)
	require.Equal(t, requestState, m.state)
	require.Contains(t, m.View(), "Resolving airport code")
	require.Contains(t, m.View(), "Heathrow")

	_, _ = m.Update(stageMsg{state: airport.Stage2Running, stage: airport.StageNormalize})
	require.Contains(t, m.View(), "Normalizing record")
}

func TestQuietHidesSpinner(t *testing.T) {
	m := newTestProgress(t, config.Settings{Quiet: true}, nil)
	_, _ = m.Update(stageMsg{state: airport.Stage1Running, stage: airport.StageFetch})
	require.Empty(t, m.View())
}

func TestFragmentsRender(t *testing.T) {
	t.Run("formatted", func(t *testing.T) {
		m := newTestProgress(t, config.Settings{WordWrap: 80}, nil)
		_, _ = m.Update(fragmentMsg("Heathrow is "))
		_, _ = m.Update(fragmentMsg("a hub."))
		require.Equal(t, responseState, m.state)
		require.True(t, m.renderScheduled)

		_, _ = m.Update(renderOutputMsg{})
		require.False(t, m.dirtyOutput)
		require.Contains(t, m.View(), "Heathrow")
		require.Contains(t, m.View(), "hub.")
	})

	t.Run("raw", func(t *testing.T) {
		m := newTestProgress(t, config.Settings{Raw: true}, nil)
		_, _ = m.Update(fragmentMsg("Heathrow"))
		require.False(t, m.renderScheduled)
		require.Empty(t, m.View())
	})
}

func TestJobDone(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := newTestProgress(t, config.Settings{}, nil)
		_, cmd := m.Update(jobDoneMsg{output: "✈️ Heathrow Airport"})
		require.NotNil(t, cmd)
		require.Equal(t, doneState, m.state)
		require.Equal(t, "✈️ Heathrow Airport", m.Output)
		require.Nil(t, m.Error)
		require.Empty(t, m.View())
	})

	t.Run("domain error gets a reason", func(t *testing.T) {
		m := newTestProgress(t, config.Settings{}, nil)
		_, _ = m.Update(jobDoneMsg{err: &errs.NotFoundError{Query: "atlantis"}})
		require.Equal(t, errorState, m.state)
		require.NotNil(t, m.Error)
		require.Equal(t, `No airport found for "atlantis".`, m.Error.ReasonText())
	})

	t.Run("wrapped error keeps its reason", func(t *testing.T) {
		m := newTestProgress(t, config.Settings{}, nil)
		_, _ = m.Update(jobDoneMsg{err: errs.Wrap(errors.New("boom"), "custom")})
		require.Equal(t, "custom", m.Error.ReasonText())
	})
}

func TestInterrupt(t *testing.T) {
	m := newTestProgress(t, config.Settings{}, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.Equal(t, errorState, m.state)
	require.ErrorIs(t, m.Error, context.Canceled)
	require.Error(t, m.ctx.Err())
}

type stubLookup struct{}

func (stubLookup) Lookup(_ context.Context, query string) (airport.RawRecord, error) {
	return airport.RawRecord{
		Source: airport.SourceAirportDB,
		Query:  query,
		Code:   "EGLL",
		Body:   []byte(`{"name":"Heathrow Airport","iata_code":"LHR","icao_code":"EGLL"}`),
	}, nil
}

func TestRunJobForwardsHooks(t *testing.T) {
	p := airport.NewPipeline(stubLookup{}, stubLookup{}, nil, nil)
	m := newTestProgress(t, config.Settings{}, func(ctx context.Context, opts ...airport.RunOption) (string, error) {
		res, err := p.Lookup(ctx, "Heathrow", opts...)
		return res.Name, err
	})

	done := make(chan tea.Msg, 1)
	go func() { done <- m.runJobCmd() }()

	var got []tea.Msg
	for {
		msg := m.waitForEventCmd()
		if msg == nil {
			break
		}
		got = append(got, msg)
	}
	require.Equal(t, []tea.Msg{
		stageMsg{state: airport.Stage1Running, stage: airport.StageResolve},
		stageMsg{state: airport.Stage1Complete, stage: airport.StageResolve},
		stageMsg{state: airport.Stage2Running, stage: airport.StageNormalize},
		stageMsg{state: airport.Done, stage: airport.StageNormalize},
	}, got)
	require.Equal(t, jobDoneMsg{output: "Heathrow Airport"}, <-done)
}
