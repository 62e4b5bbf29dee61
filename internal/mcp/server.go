// Package mcp exposes the airport pipeline as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/logging"
)

// Tool names.
const (
	ToolAirportInfo = "get-airport-info"
	ToolBriefing    = "airport-briefing"
)

// Pipeline runs lookups and briefings.
type Pipeline interface {
	Lookup(ctx context.Context, query string, opts ...airport.RunOption) (airport.Result, error)
	Brief(ctx context.Context, query string, opts ...airport.RunOption) (airport.Briefing, error)
}

// Server serves airport tools.
type Server struct {
	pipeline Pipeline
	logger   *log.Logger
	mcp      *server.MCPServer
	tools    []mcp.Tool
}

// New creates a server for p. version is reported to clients.
func New(p Pipeline, version string, logger *log.Logger) *Server {
	s := &Server{
		pipeline: p,
		logger:   logging.OrDiscard(logger),
		mcp:      server.NewMCPServer("airport", version, server.WithToolCapabilities(false)),
	}

	s.add(mcp.NewTool(ToolAirportInfo,
		mcp.WithDescription("Get information about an airport by name, city or IATA/ICAO code. Returns the normalized airport record and a short summary as JSON."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Airport name, city, or IATA/ICAO code"),
		),
	), s.handleAirportInfo)

	s.add(mcp.NewTool(ToolBriefing,
		mcp.WithDescription("Write a traveler-friendly briefing about an airport, grounded on its looked-up record."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Airport name, city, or IATA/ICAO code"),
		),
	), s.handleBriefing)

	return s
}

func (s *Server) add(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.tools = append(s.tools, tool)
	s.mcp.AddTool(tool, handler)
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []mcp.Tool {
	return append([]mcp.Tool(nil), s.tools...)
}

// Serve answers MCP requests read from in until ctx is done or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil {
		return fmt.Errorf("mcp serve: %w", err)
	}
	return nil
}

func (s *Server) handleAirportInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.Debug("tool call", "tool", ToolAirportInfo, "query", query)

	res, err := s.pipeline.Lookup(ctx, query)
	if err != nil {
		return s.toolError(ToolAirportInfo, err), nil
	}
	bts, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(bts)), nil
}

func (s *Server) handleBriefing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.Debug("tool call", "tool", ToolBriefing, "query", query)

	b, err := s.pipeline.Brief(ctx, query)
	if err != nil {
		return s.toolError(ToolBriefing, err), nil
	}
	return mcp.NewToolResultText(b.Narrative), nil
}

// toolError reports err to the client as a failed tool result.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("tool call failed", "tool", tool, "err", err)
	if reason := errs.ReasonOf(err); reason != "" {
		return mcp.NewToolResultError(reason + " " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}
