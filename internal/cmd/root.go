package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	glamour "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/present"
	"github.com/dotcommander/airport/internal/tui"
)

// NewRootCmd constructs the Cobra root command.
func NewRootCmd(build BuildInfo, cfg config.Config, cfgErr error) *cobra.Command {
	return newRootCmd(&runtime{build: normalizeBuildInfo(build), cfg: cfg, cfgErr: cfgErr})
}

func newRootCmd(rt *runtime) *cobra.Command {
	// XXX: unset error styles in Glamour dark and light styles.
	glamour.DarkStyleConfig.CodeBlock.Chroma.Error.BackgroundColor = new(string)
	glamour.LightStyleConfig.CodeBlock.Chroma.Error.BackgroundColor = new(string)

	rootCmd := &cobra.Command{
		Use:           "airport [query...]",
		Short:         "Airport information on the command line.",
		Long:          "Look up airports by name, city or IATA/ICAO code, or ask for a traveler-friendly briefing.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       randomExample(),
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runLookup(cmd, args)
		},
	}

	rootCmd.SetUsageFunc(usageFunc)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newFlagParseError(err)
	})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.Version = rt.build.Version
	rootCmd.SetVersionTemplate(versionTemplate(rt.build))

	initFlags(rootCmd, &rt.cfg)

	rootCmd.AddCommand(newLookupCmd(rt))
	rootCmd.AddCommand(newBriefCmd(rt))
	rootCmd.AddCommand(newHistoryCmd(rt))
	rootCmd.AddCommand(newConfigCmd(rt))
	rootCmd.AddCommand(newMCPCmd(rt))
	rootCmd.AddCommand(newManCmd(rootCmd))
	rootCmd.AddCommand(newUpgradeCmd(rt))

	rootCmd.InitDefaultCompletionCmd()

	return rootCmd
}

// signalContext cancels the command context on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// runWithProgress runs job, showing its progress on stderr when stderr is a
// terminal. Otherwise job runs directly.
func (rt *runtime) runWithProgress(ctx context.Context, query string, job tui.Job) (string, error) {
	if rt.cfg.Quiet || rt.cfg.Raw || !present.IsErrorTTY() {
		return job(ctx)
	}

	opts := []tea.ProgramOption{tea.WithOutput(os.Stderr), tea.WithContext(ctx)}
	if !present.IsInputTTY() {
		opts = append(opts, tea.WithInput(nil))
	}
	m := tui.NewProgress(ctx, present.StderrRenderer(), &rt.cfg, query, job)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", errs.Error{Err: ctx.Err(), Reason: "Interrupted."}
		}
		return "", errs.Error{Err: err, Reason: "Couldn't start Bubble Tea program."}
	}
	m = final.(*tui.Progress)
	if m.Error != nil {
		return "", *m.Error
	}
	return m.Output, nil
}

// askQuery prompts for a single query.
func askQuery(theme string) (string, error) {
	var query string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Which airport?").
				Placeholder("Heathrow, LHR, EGLL, London...").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("enter an airport name, city or code")
					}
					return nil
				}).
				Value(&query),
		),
	).
		WithTheme(themeFrom(theme)).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", errs.Error{Err: err, Reason: "User canceled."}
	}
	if err != nil {
		return "", errs.Error{Err: fmt.Errorf("prompt form: %w", err), Reason: "Prompt failed."}
	}
	return strings.TrimSpace(query), nil
}

func themeFrom(theme string) *huh.Theme {
	switch theme {
	case "dracula":
		return huh.ThemeDracula()
	case "catppuccin":
		return huh.ThemeCatppuccin()
	case "base16":
		return huh.ThemeBase16()
	default:
		return huh.ThemeCharm()
	}
}
