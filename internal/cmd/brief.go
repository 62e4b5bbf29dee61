package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/present"
	"github.com/dotcommander/airport/internal/storage"
)

func newBriefCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "brief [query]",
		Short: "Write a traveler-friendly briefing about an airport",
		Long:  "Look up an airport and have the model write a short briefing grounded on the record. All arguments form one query.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runBrief(cmd, args)
		},
	}
}

func (rt *runtime) runBrief(cmd *cobra.Command, args []string) error {
	if rt.cfgErr != nil {
		return rt.cfgErr
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	query := strings.Join(args, " ")
	if len(args) == 0 {
		queries, err := rt.queries(nil)
		if err != nil {
			return err
		}
		query = strings.Join(queries, " ")
	}

	strategy, err := rt.strategy(rt.cfg.WorkflowStrategy)
	if err != nil {
		return err
	}
	svc, err := rt.buildServices(ctx, nil, &strategy)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	formatted := present.IsOutputTTY() && !rt.cfg.Raw && !rt.cfg.JSON

	var b airport.Briefing
	if !formatted && !rt.cfg.JSON {
		// Stream the narrative as it arrives.
		b, err = svc.pipeline.Brief(ctx, query, airport.WithFragmentHook(func(f string) {
			_, _ = io.WriteString(w, f)
		}))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w)
		if rt.cfg.Copy {
			if err := rt.emit(io.Discard, b.Narrative); err != nil {
				return err
			}
		}
	} else {
		_, err = rt.runWithProgress(ctx, query, func(ctx context.Context, opts ...airport.RunOption) (string, error) {
			r, err := svc.pipeline.Brief(ctx, query, opts...)
			b = r
			return r.Narrative, err
		})
		if err != nil {
			return err
		}
		out, err := rt.formatBriefing(b, formatted)
		if err != nil {
			return err
		}
		if err := rt.emit(w, out); err != nil {
			return err
		}
	}

	if !rt.cfg.NoHistory {
		if err := rt.remember(storage.KindBrief, query, b.Record, b.Narrative); err != nil {
			svc.logger.Warn("could not save history", "query", query, "err", err)
		}
	}
	return nil
}

func (rt *runtime) formatBriefing(b airport.Briefing, formatted bool) (string, error) {
	if rt.cfg.JSON {
		bts, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return "", errs.Wrap(err, "Could not encode the briefing.")
		}
		return string(bts) + "\n", nil
	}
	if formatted {
		if out, err := present.RenderMarkdownForTTY(b.Narrative, rt.cfg.WordWrap); err == nil {
			return out, nil
		}
	}
	return b.Narrative + "\n", nil
}
