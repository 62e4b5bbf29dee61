package cmd

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/present"
)

func TestWriteError(t *testing.T) {
	styles := present.MakeStyles(lipgloss.NewRenderer(io.Discard))
	render := func(err error) string {
		var buf bytes.Buffer
		writeError(&buf, styles, err)
		return buf.String()
	}

	t.Run("domain error shows reason and details", func(t *testing.T) {
		out := render(&errs.NotFoundError{Query: "atlantis"})
		require.Contains(t, out, "ERROR")
		require.Contains(t, out, `No airport found for "atlantis".`)
		require.Contains(t, out, `no airport found for "atlantis"`)
	})

	t.Run("plain error shows details only", func(t *testing.T) {
		out := render(errors.New("connection refused"))
		require.NotContains(t, out, "ERROR")
		require.Contains(t, out, "connection refused")
	})

	t.Run("flag error points at help", func(t *testing.T) {
		out := render(newFlagParseError(errors.New("unknown flag: --nope")))
		require.Contains(t, out, "airport -h")
		require.Contains(t, out, "--nope")
		require.Contains(t, out, "is missing.")
	})

	t.Run("aborted prompt hides details", func(t *testing.T) {
		out := render(errs.Wrap(huh.ErrUserAborted, "Prompt cancelled."))
		require.Contains(t, out, "Prompt cancelled.")
		require.NotContains(t, out, huh.ErrUserAborted.Error())
	})
}
