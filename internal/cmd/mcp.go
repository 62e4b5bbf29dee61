package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/airport/internal/airport"
	imcp "github.com/dotcommander/airport/internal/mcp"
	"github.com/dotcommander/airport/internal/present"
)

func newMCPCmd(rt *runtime) *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose airport lookups as MCP tools",
	}

	mcpCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the airport tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			server, err := rt.mcpServer(cmd)
			if err != nil {
				return err
			}
			return server.Serve(ctx, os.Stdin, cmd.OutOrStdout())
		},
	})

	mcpCmd.AddCommand(&cobra.Command{
		Use:   "tools",
		Short: "List the tools served by airport mcp serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, tool := range imcp.New(nil, rt.build.Version, nil).Tools() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(),
					tool.Name+present.StdoutStyles().Timeago.Render(" "+tool.Description))
			}
			return nil
		},
	})

	return mcpCmd
}

func (rt *runtime) mcpServer(cmd *cobra.Command) (*imcp.Server, error) {
	tool, err := rt.strategy(rt.cfg.ToolStrategy)
	if err != nil {
		return nil, err
	}
	workflow, err := airport.ParseStrategy(rt.cfg.WorkflowStrategy)
	if err != nil {
		return nil, err
	}
	svc, err := rt.buildServices(cmd.Context(), &tool, &workflow)
	if err != nil {
		return nil, err
	}
	return imcp.New(svc.pipeline, rt.build.Version, svc.logger), nil
}
