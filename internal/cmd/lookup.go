package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/x/exp/ordered"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/present"
	"github.com/dotcommander/airport/internal/storage"
)

func newLookupCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [query...]",
		Short: "Look up airports by name, city or IATA/ICAO code",
		Long:  "Look up airports by name, city or IATA/ICAO code. Each argument is a separate query; queries run concurrently.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runLookup(cmd, args)
		},
	}
}

func (rt *runtime) runLookup(cmd *cobra.Command, args []string) error {
	if rt.cfgErr != nil {
		return rt.cfgErr
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	queries, err := rt.queries(args)
	if err != nil {
		return err
	}
	strategy, err := rt.strategy(rt.cfg.ToolStrategy)
	if err != nil {
		return err
	}
	svc, err := rt.buildServices(ctx, &strategy, nil)
	if err != nil {
		return err
	}

	var results []airport.Result
	if len(queries) == 1 {
		var res airport.Result
		_, err = rt.runWithProgress(ctx, queries[0], func(ctx context.Context, opts ...airport.RunOption) (string, error) {
			r, err := svc.pipeline.Lookup(ctx, queries[0], opts...)
			res = r
			return r.Summary, err
		})
		results = []airport.Result{res}
	} else {
		results, err = lookupAll(ctx, svc.pipeline, queries, rt.cfg.Parallelism)
	}
	if err != nil {
		return err
	}

	out, err := rt.formatResults(results)
	if err != nil {
		return err
	}
	if err := rt.emit(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	if !rt.cfg.NoHistory {
		for i, res := range results {
			if err := rt.remember(storage.KindLookup, queries[i], res.Record, res.Summary); err != nil {
				svc.logger.Warn("could not save history", "query", queries[i], "err", err)
			}
		}
	}
	return nil
}

// lookupAll runs one lookup per query with at most parallelism in flight.
// Results keep the order of queries; the first failure cancels the rest.
func lookupAll(ctx context.Context, p *airport.Pipeline, queries []string, parallelism int) ([]airport.Result, error) {
	results := make([]airport.Result, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ordered.Clamp(parallelism, 1, max(len(queries), 1)))
	for i, q := range queries {
		g.Go(func() error {
			res, err := p.Lookup(ctx, q)
			if err != nil {
				return fmt.Errorf("lookup %q: %w", q, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return results, nil
}

func (rt *runtime) formatResults(results []airport.Result) (string, error) {
	if rt.cfg.JSON {
		var v any = results
		if len(results) == 1 {
			v = results[0]
		}
		bts, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", errs.Wrap(err, "Could not encode the result.")
		}
		return string(bts) + "\n", nil
	}
	summaries := make([]string, 0, len(results))
	for _, res := range results {
		summaries = append(summaries, res.Summary)
	}
	return strings.Join(summaries, "\n\n") + "\n", nil
}

// emit writes out and copies it to the clipboard when asked to.
func (rt *runtime) emit(w io.Writer, out string) error {
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !rt.cfg.Copy {
		return nil
	}
	text := strings.TrimSpace(out)
	if err := clipboard.WriteAll(text); err != nil {
		// Fall back to OSC52, which works over SSH.
		termenv.Copy(text)
	}
	if !rt.cfg.Quiet && present.IsErrorTTY() {
		fmt.Fprintln(os.Stderr, present.StderrStyles().Comment.Render("Copied to clipboard."))
	}
	return nil
}
