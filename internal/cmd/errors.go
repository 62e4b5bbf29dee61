package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/present"
)

func handleError(err error) {
	writeError(os.Stderr, present.StderrStyles(), err)
}

func writeError(w io.Writer, styles present.Styles, err error) {
	format := "\n%s\n\n"

	var ferr flagParseError
	if errors.As(err, &ferr) {
		fmt.Fprintf(w, format+"%s\n\n",
			fmt.Sprintf(
				"Check out %s %s",
				styles.InlineCode.Render("airport -h"),
				styles.Comment.Render("for help."),
			),
			fmt.Sprintf(ferr.ReasonFormat(), styles.InlineCode.Render(ferr.Flag())),
		)
		return
	}

	reason := errs.ReasonOf(err)
	if reason == "" {
		fmt.Fprintf(w, format, styles.ErrPadding.Render(styles.ErrorDetails.Render(err.Error())))
		return
	}

	args := []any{styles.ErrPadding.Render(styles.ErrorHeader.String(), reason)}
	var merr errs.Error
	if !errors.As(err, &merr) || !errors.Is(merr.Err, huh.ErrUserAborted) {
		if details := err.Error(); details != reason {
			format += "%s\n\n"
			args = append(args, styles.ErrPadding.Render(styles.ErrorDetails.Render(details)))
		}
	}
	fmt.Fprintf(w, format, args...)
}
