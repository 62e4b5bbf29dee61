package cmd

import (
	"fmt"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/dotcommander/airport/internal/present"
)

func useLine(cmd *cobra.Command) string {
	appName := cmd.CommandPath()
	if present.StdoutRenderer().ColorProfile() == termenv.TrueColor {
		appName = present.MakeGradientText(present.StdoutStyles().AppName, appName)
	}

	args := "[OPTIONS] [QUERY...]"
	if cmd.HasAvailableSubCommands() && cmd.HasParent() {
		args = "[COMMAND]"
	}
	return fmt.Sprintf("%s %s", appName, present.StdoutStyles().CliArgs.Render(args))
}

func printFlag(f *flag.Flag) {
	styles := present.StdoutStyles()
	if f.Hidden {
		return
	}
	if f.Shorthand == "" {
		fmt.Printf(
			"  %-44s %s\n",
			styles.Flag.Render("--"+f.Name),
			styles.FlagDesc.Render(f.Usage),
		)
		return
	}
	fmt.Printf(
		"  %s%s %-40s %s\n",
		styles.Flag.Render("-"+f.Shorthand),
		styles.FlagComma,
		styles.Flag.Render("--"+f.Name),
		styles.FlagDesc.Render(f.Usage),
	)
}

func usageFunc(cmd *cobra.Command) error {
	styles := present.StdoutStyles()
	fmt.Printf("Usage:\n  %s\n\n", useLine(cmd))

	if cmd.HasAvailableSubCommands() {
		fmt.Println("Commands:")
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() {
				continue
			}
			fmt.Printf("  %-12s %s\n", sub.Name(), styles.Comment.Render(sub.Short))
		}
		fmt.Println()
	}

	fmt.Println("Options:")
	cmd.LocalFlags().VisitAll(printFlag)
	cmd.InheritedFlags().VisitAll(printFlag)

	if cmd.HasExample() {
		fmt.Printf(
			"\nExample:\n  %s\n  %s\n",
			styles.Comment.Render("# "+cmd.Example),
			cheapHighlighting(styles, examples[cmd.Example]),
		)
	}
	return nil
}
