package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/present"
	"github.com/dotcommander/airport/internal/storage"
)

var helpText = map[string]string{
	"api":               "OpenAI compatible REST API (google, openai, anthropic, ollama, etc.)",
	"model":             "Default model used to resolve codes and write briefings",
	"http-proxy":        "HTTP proxy to use for text-generation requests",
	"strategy":          "Lookup strategy: code (resolve, then fetch from AirportDB) or search (Aviationstack)",
	"json":              "Print results as JSON",
	"copy":              "Copy the output to the clipboard",
	"raw":               "Print plain output, without formatting or progress",
	"quiet":             "Quiet mode (hide the spinner while running)",
	"no-history":        "Don't record the lookup in the history",
	"parallelism":       "Maximum concurrent lookups",
	"request-timeout":   "Timeout for a single airport data request (e.g. 30s)",
	"narrative-timeout": "Timeout for the briefing narrative (e.g. 2m)",
	"word-wrap":         "Wrap formatted output at a specific width",
	"theme":             "Theme to use in the forms; valid choices are charm, catppuccin, dracula, and base16",
	"log-level":         "Log level: debug, info, warn or error",
}

func flagDesc(name string) string {
	return present.StdoutStyles().FlagDesc.Render(helpText[name])
}

func initFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&cfg.Strategy, "strategy", "s", cfg.Strategy, flagDesc("strategy"))
	flags.BoolVarP(&cfg.JSON, "json", "j", cfg.JSON, flagDesc("json"))
	flags.BoolVarP(&cfg.Copy, "copy", "c", cfg.Copy, flagDesc("copy"))
	flags.BoolVarP(&cfg.Raw, "raw", "r", cfg.Raw, flagDesc("raw"))
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, flagDesc("quiet"))
	flags.BoolVar(&cfg.NoHistory, "no-history", cfg.NoHistory, flagDesc("no-history"))
	flags.IntVarP(&cfg.Parallelism, "parallelism", "p", cfg.Parallelism, flagDesc("parallelism"))
	flags.StringVarP(&cfg.Model, "model", "m", cfg.Model, flagDesc("model"))
	flags.StringVarP(&cfg.API, "api", "a", cfg.API, flagDesc("api"))
	flags.StringVarP(&cfg.HTTPProxy, "http-proxy", "x", cfg.HTTPProxy, flagDesc("http-proxy"))
	flags.Var(newDurationFlag(cfg.RequestTimeout, &cfg.RequestTimeout), "request-timeout", flagDesc("request-timeout"))
	flags.Var(newDurationFlag(cfg.NarrativeTimeout, &cfg.NarrativeTimeout), "narrative-timeout", flagDesc("narrative-timeout"))
	flags.IntVar(&cfg.WordWrap, "word-wrap", cfg.WordWrap, flagDesc("word-wrap"))
	flags.StringVar(&cfg.Theme, "theme", "charm", flagDesc("theme"))
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, flagDesc("log-level"))
	flags.SortFlags = false

	_ = cmd.RegisterFlagCompletionFunc("strategy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(airport.StrategyCode), string(airport.StrategySearch)}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("api", func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, api := range cfg.APIs {
			if strings.HasPrefix(api.Name, toComplete) {
				names = append(names, api.Name)
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// historyCompletion completes history IDs and queries. The index is opened
// lazily.
func historyCompletion(cfg *config.Config) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if cfg.CachePath == "" {
			return nil, cobra.ShellCompDirectiveDefault
		}
		db, err := storage.Open(filepath.Join(cfg.CachePath, historyDir))
		if err != nil {
			return nil, cobra.ShellCompDirectiveDefault
		}
		defer db.Close() //nolint:errcheck
		return db.Completions(toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}
