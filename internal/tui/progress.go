package tui

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/present"
)

type state int

const (
	startState state = iota
	requestState
	responseState
	doneState
	errorState
)

// Job runs one pipeline invocation with the given observers and returns the
// text to print once it finishes.
type Job func(ctx context.Context, opts ...airport.RunOption) (string, error)

// Progress is the Bubble Tea model that shows a spinner with the current
// pipeline stage while a job runs, and the narrative as it streams in.
type Progress struct {
	// Output is populated at the end of a successful run.
	Output string
	Query  string
	Styles present.Styles
	Error  *errs.Error

	state        state
	stage        string
	renderer     *lipgloss.Renderer
	spinner      spinner.Model
	glam         *glamour.TermRenderer
	glamViewport viewport.Model
	glamOutput   string
	glamHeight   int
	width        int
	height       int

	cfg    *config.Config
	job    Job
	events chan tea.Msg
	ctx    context.Context
	cancel context.CancelFunc

	outputBuf       strings.Builder
	renderScheduled bool
	dirtyOutput     bool
}

// NewProgress creates the model for one job. The job is started by Init.
func NewProgress(
	ctx context.Context,
	r *lipgloss.Renderer,
	cfg *config.Config,
	query string,
	job Job,
) *Progress {
	gr, _ := glamour.NewTermRenderer(
		glamour.WithEnvironmentConfig(),
		glamour.WithWordWrap(cfg.WordWrap),
	)
	vp := viewport.New(0, 0)
	vp.GotoBottom()

	styles := present.MakeStyles(r)
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styles.Spinner))

	ctx, cancel := context.WithCancel(ctx)
	return &Progress{
		Query:        query,
		Styles:       styles,
		state:        startState,
		renderer:     r,
		spinner:      sp,
		glam:         gr,
		glamViewport: vp,
		cfg:          cfg,
		job:          job,
		events:       make(chan tea.Msg, 64),
		ctx:          ctx,
		cancel:       cancel,
	}
}

type stageMsg struct {
	state airport.State
	stage string
}

type fragmentMsg string

type jobDoneMsg struct {
	output string
	err    error
}

type renderOutputMsg struct{}

// Init implements tea.Model.
func (m *Progress) Init() tea.Cmd {
	cmds := []tea.Cmd{m.runJobCmd, m.waitForEventCmd}
	if !m.cfg.Quiet {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case stageMsg:
		m.stage = msg.stage
		if m.state == startState {
			m.state = requestState
		}
		return m, m.waitForEventCmd

	case fragmentMsg:
		m.outputBuf.WriteString(string(msg))
		m.state = responseState
		m.dirtyOutput = true
		cmds = append(cmds, m.waitForEventCmd)
		if m.shouldRenderFormattedOutput() && !m.renderScheduled {
			m.renderScheduled = true
			cmds = append(cmds, m.renderOutputCmd())
		}
		return m, tea.Batch(cmds...)

	case renderOutputMsg:
		m.renderScheduled = false
		if m.dirtyOutput {
			m.renderFormattedOutput()
		}
		return m, nil

	case jobDoneMsg:
		m.cancel()
		if msg.err != nil {
			m.fail(msg.err)
			return m, tea.Quit
		}
		m.Output = msg.output
		m.state = doneState
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.glamViewport.Width = m.width
		m.glamViewport.Height = m.height
		if m.shouldRenderFormattedOutput() && m.outputBuf.Len() > 0 {
			m.renderFormattedOutput()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			m.fail(errs.Error{Err: context.Canceled, Reason: "Interrupted."})
			return m, tea.Quit
		}
	}

	if !m.cfg.Quiet && m.state < responseState {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.viewportNeeded() {
		var cmd tea.Cmd
		m.glamViewport, cmd = m.glamViewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Progress) fail(err error) {
	var e errs.Error
	if !errors.As(err, &e) {
		e = errs.Error{Err: err, Reason: errs.ReasonOf(err)}
	}
	m.Error = &e
	m.state = errorState
}

func (m *Progress) viewportNeeded() bool {
	return m.height > 0 && m.glamHeight > m.height
}

// View implements tea.Model.
func (m *Progress) View() string {
	//nolint:exhaustive
	switch m.state {
	case startState, requestState:
		if m.cfg.Quiet {
			return ""
		}
		return m.spinner.View() + " " + m.Styles.Stage.Render(stageLabel(m.stage)) +
			m.Styles.Comment.Render(" "+m.Query) + "\n"
	case responseState:
		if !m.shouldRenderFormattedOutput() {
			return ""
		}
		if m.viewportNeeded() {
			return m.glamViewport.View()
		}
		return m.glamOutput
	}
	return ""
}

func (m *Progress) runJobCmd() tea.Msg {
	defer close(m.events)
	out, err := m.job(m.ctx,
		airport.WithStateHook(func(s airport.State, stage string) {
			m.send(stageMsg{state: s, stage: stage})
		}),
		airport.WithFragmentHook(func(f string) {
			m.send(fragmentMsg(f))
		}),
	)
	return jobDoneMsg{output: out, err: err}
}

// send delivers msg unless the run was cancelled.
func (m *Progress) send(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

func (m *Progress) waitForEventCmd() tea.Msg {
	msg, ok := <-m.events
	if !ok {
		return nil
	}
	return msg
}

func stageLabel(stage string) string {
	switch stage {
	case airport.StageResolve:
		return "Resolving airport code"
	case airport.StageFetch:
		return "Fetching airport data"
	case airport.StageNormalize:
		return "Normalizing record"
	case airport.StageSummarize:
		return "Writing briefing"
	default:
		return "Starting"
	}
}

const tabWidth = 4

func (m *Progress) shouldRenderFormattedOutput() bool {
	return !m.cfg.Raw && !m.cfg.Quiet
}

func (m *Progress) renderOutputCmd() tea.Cmd {
	const renderInterval = 33 * time.Millisecond
	return tea.Tick(renderInterval, func(time.Time) tea.Msg {
		return renderOutputMsg{}
	})
}

func (m *Progress) renderFormattedOutput() {
	wasAtBottom := m.glamViewport.ScrollPercent() == 1.0
	oldHeight := m.glamHeight
	out := m.outputBuf.String()
	if m.glam != nil {
		if rendered, err := m.glam.Render(out); err == nil {
			out = rendered
		}
	}
	out = strings.TrimRightFunc(out, unicode.IsSpace)
	out = strings.ReplaceAll(out, "\t", strings.Repeat(" ", tabWidth))
	m.glamHeight = lipgloss.Height(out)
	m.glamOutput = out + "\n"
	style := m.renderer.NewStyle()
	if m.width > 0 {
		style = style.MaxWidth(m.width)
	}
	m.glamViewport.SetContent(style.Render(m.glamOutput))
	if oldHeight < m.glamHeight && wasAtBottom {
		m.glamViewport.GotoBottom()
	}
	m.dirtyOutput = false
}
