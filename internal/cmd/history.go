package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	timeago "github.com/caarlos0/timea.go"
	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/present"
	"github.com/dotcommander/airport/internal/storage"
	"github.com/dotcommander/airport/internal/storage/cache"
)

func newHistoryCmd(rt *runtime) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Manage past lookups and briefings",
	}

	historyCmd.AddCommand(newHistoryListCmd(rt))
	historyCmd.AddCommand(newHistoryShowCmd(rt))
	historyCmd.AddCommand(newHistoryDeleteCmd(rt))
	historyCmd.AddCommand(newHistoryPruneCmd(rt))

	return historyCmd
}

func newHistoryListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List past lookups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return listHistory(&rt.cfg, cmd.OutOrStdout())
		},
	}
}

func newHistoryShowCmd(rt *runtime) *cobra.Command {
	var last bool
	showCmd := &cobra.Command{
		Use:               "show [id-or-query]",
		Short:             "Show a past lookup or briefing",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: historyCompletion(&rt.cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			drainStdin()
			in := ""
			if len(args) == 1 {
				in = args[0]
			}
			if in == "" && !last {
				return errs.Wrap(errs.UserErrorf("pass an ID or query, or --last"), "Nothing to show.")
			}
			return showHistory(&rt.cfg, cmd.OutOrStdout(), in)
		},
	}
	showCmd.Flags().BoolVarP(&last, "last", "l", false, "Show the most recent entry")
	return showCmd
}

func newHistoryDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:               "delete <id-or-query> [more...]",
		Short:             "Delete past lookups",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: historyCompletion(&rt.cfg),
		RunE: func(_ *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return deleteHistory(&rt.cfg, args)
		},
	}
}

func newHistoryPruneCmd(rt *runtime) *cobra.Command {
	var olderThan time.Duration
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete lookups older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return pruneHistory(&rt.cfg, cmd.OutOrStdout(), olderThan)
		},
	}
	pruneCmd.Flags().Var(newDurationFlag(0, &olderThan), "older-than", "Age of the entries to delete; e.g. 24h, 7d")
	return pruneCmd
}

// remember records an invocation in the history: the index entry and the
// rendered report.
func (rt *runtime) remember(kind, query string, rec airport.Record, text string) error {
	s, err := openStore(rt.cfg.CachePath)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	query = strings.TrimSpace(query)
	id := storage.IDFor(kind, query)
	if err := s.reports.Write(id, cache.Report{
		Kind:      kind,
		Query:     query,
		Record:    rec,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if err := s.db.Save(storage.Entry{
		ID:    id,
		Kind:  kind,
		Query: query,
		Code:  recordCode(rec),
		Name:  rec.Name,
	}); err != nil {
		return fmt.Errorf("save history entry: %w", err)
	}
	return nil
}

func recordCode(rec airport.Record) string {
	switch {
	case rec.IATA != nil:
		return *rec.IATA
	case rec.ICAO != nil:
		return *rec.ICAO
	}
	return ""
}

func listHistory(cfg *config.Config, w io.Writer) error {
	s, err := openStore(cfg.CachePath)
	if err != nil {
		return errs.Wrap(err, "Could not open the history.")
	}
	defer s.Close() //nolint:errcheck

	entries := s.db.List()
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No lookups found.")
		return nil
	}

	if present.IsInputTTY() && present.IsOutputTTY() && !cfg.Raw {
		selectFromList(cfg, entries)
		return nil
	}
	printList(w, entries)
	return nil
}

func showHistory(cfg *config.Config, w io.Writer, in string) error {
	s, err := openStore(cfg.CachePath)
	if err != nil {
		return errs.Wrap(err, "Could not open the history.")
	}
	defer s.Close() //nolint:errcheck

	var entry *storage.Entry
	if in == "" {
		entry, err = s.db.Latest()
	} else {
		entry, err = s.db.Find(in)
	}
	if err != nil {
		return errs.Wrap(err, "Could not find that lookup.")
	}

	report, err := s.reports.Read(entry.ID)
	if err != nil {
		return errs.Wrap(err, "Could not load the saved report.")
	}

	if cfg.JSON {
		bts, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return errs.Wrap(err, "Could not encode the report.")
		}
		_, err = fmt.Fprintln(w, string(bts))
		return err //nolint:wrapcheck
	}

	out := report.Text + "\n"
	if report.Kind == storage.KindBrief && present.IsOutputTTY() && !cfg.Raw {
		if formatted, err := present.RenderMarkdownForTTY(report.Text, cfg.WordWrap); err == nil {
			out = formatted
		}
	}
	_, err = io.WriteString(w, out)
	return err //nolint:wrapcheck
}

func deleteHistory(cfg *config.Config, targets []string) error {
	s, err := openStore(cfg.CachePath)
	if err != nil {
		return errs.Wrap(err, "Could not open the history.")
	}
	defer s.Close() //nolint:errcheck

	for _, target := range targets {
		entry, err := s.db.Find(target)
		if err != nil {
			return errs.Wrap(err, "Couldn't find the lookup to delete.")
		}
		if err := deleteEntry(cfg, s, entry.ID); err != nil {
			return err
		}
	}
	return nil
}

func deleteEntry(cfg *config.Config, s *store, id string) error {
	if err := s.db.Delete(id); err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	if err := s.reports.Delete(id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(os.Stderr, "Deleted:", id[:storage.IDShort])
	}
	return nil
}

func pruneHistory(cfg *config.Config, w io.Writer, olderThan time.Duration) error {
	if olderThan <= 0 {
		return errs.Wrap(errs.UserErrorf("missing --older-than"), "Could not delete old lookups.")
	}

	s, err := openStore(cfg.CachePath)
	if err != nil {
		return errs.Wrap(err, "Could not open the history.")
	}
	defer s.Close() //nolint:errcheck

	entries := s.db.ListOlderThan(olderThan)
	if len(entries) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(os.Stderr, "No lookups found.")
		}
		return nil
	}

	if !cfg.Quiet {
		printList(w, entries)

		if !present.IsOutputTTY() || !present.IsInputTTY() {
			fmt.Fprintln(os.Stderr)
			//nolint:wrapcheck
			return errs.UserErrorf(
				"To delete the lookups above, run: %s",
				strings.Join(append(os.Args, "--quiet"), " "),
			)
		}
		var confirm bool
		if err := huh.Run(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete lookups older than %s?", olderThan)).
				Description(fmt.Sprintf("This will delete the %d lookups listed above.", len(entries))).
				Value(&confirm),
		); err != nil {
			return errs.Wrap(err, "Couldn't delete old lookups.")
		}
		if !confirm {
			//nolint:wrapcheck
			return errs.UserErrorf("Aborted by user")
		}
	}

	for _, e := range entries {
		if err := deleteEntry(cfg, s, e.ID); err != nil {
			return err
		}
	}
	return nil
}

func makeOptions(entries []storage.Entry) []huh.Option[string] {
	styles := present.StdoutStyles()
	opts := make([]huh.Option[string], 0, len(entries))
	for _, e := range entries {
		left := styles.ID.Render(e.ID[:storage.IDShort])
		right := styles.HistoryList.Render(e.Title(), styles.Timeago.Render(timeago.Of(e.UpdatedAt)))
		right += styles.Comment.Render(" " + e.Kind + ": " + e.Query)
		opts = append(opts, huh.NewOption(left+" "+right, e.ID))
	}
	return opts
}

func selectFromList(cfg *config.Config, entries []storage.Entry) {
	var selected string
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Lookups").
				Value(&selected).
				Options(makeOptions(entries)...),
		),
	).WithTheme(themeFrom(cfg.Theme)).Run(); err != nil {
		if !errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		return
	}

	_ = clipboard.WriteAll(selected)
	termenv.Copy(selected)
	present.PrintConfirmation("COPIED", selected)

	fmt.Println(present.StdoutStyles().Comment.Render("You can use this ID with the following commands:"))
	for _, s := range []string{
		"airport history show " + selected[:storage.IDShort],
		"airport history delete " + selected[:storage.IDShort],
	} {
		fmt.Printf("  %s\n", present.StdoutStyles().InlineCode.Render(s))
	}
}

func printList(w io.Writer, entries []storage.Entry) {
	styles := present.StdoutStyles()
	for _, e := range entries {
		_, _ = fmt.Fprintf(
			w,
			"%s\t%s\t%s\t%s\n",
			styles.ID.Render(e.ID[:storage.IDShort]),
			e.Kind,
			e.Title(),
			styles.Timeago.Render(timeago.Of(e.UpdatedAt)),
		)
	}
}
