package cmd

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/present"
)

func drainStdin() {
	if present.IsInputTTY() {
		return
	}
	_, _ = io.Copy(io.Discard, os.Stdin)
}

// readQueries reads one query per non-blank line.
func readQueries(r io.Reader) ([]string, error) {
	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Error{Err: err, Reason: "Unable to read stdin."}
	}
	return queries, nil
}

// queries returns the queries given as arguments, piped through stdin, or
// typed at a prompt, in that order of preference.
func (rt *runtime) queries(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if !present.IsInputTTY() {
		queries, err := readQueries(os.Stdin)
		if err != nil {
			return nil, err
		}
		if len(queries) == 0 {
			return nil, &errs.InputError{}
		}
		return queries, nil
	}
	query, err := askQuery(rt.cfg.Theme)
	if err != nil {
		return nil, err
	}
	return []string{query}, nil
}
