package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/airport/internal/config"
	imcp "github.com/dotcommander/airport/internal/mcp"
)

func TestConfigDirs(t *testing.T) {
	f := newFixture(t)

	t.Run("all", func(t *testing.T) {
		out, err := f.run(t, "config", "dirs")
		require.NoError(t, err)
		require.Contains(t, out, "Configuration: "+filepath.Dir(f.rt.cfg.SettingsPath))
		require.Contains(t, out, "Cache: "+f.rt.cfg.CachePath)
	})

	t.Run("history", func(t *testing.T) {
		out, err := f.run(t, "config", "dirs", "history")
		require.NoError(t, err)
		require.Equal(t, filepath.Join(f.rt.cfg.CachePath, historyDir)+"\n", out)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := f.run(t, "config", "dirs", "logs")
		require.Error(t, err)
	})
}

func TestMCPTools(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "mcp", "tools")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], imcp.ToolAirportInfo), lines[0])
	require.True(t, strings.HasPrefix(lines[1], imcp.ToolBriefing), lines[1])
}

func TestMCPServerNeedsBothKeys(t *testing.T) {
	f := newFixture(t)
	root := newRootCmd(f.rt)
	root.SetContext(context.Background())

	server, err := f.rt.mcpServer(root)
	require.NoError(t, err)
	require.Len(t, server.Tools(), 2)

	t.Setenv(config.AviationstackKeyEnv, "")
	f.rt.cfg.Aviationstack.APIKey = ""
	_, err = f.rt.mcpServer(root)
	require.Error(t, err)
}
