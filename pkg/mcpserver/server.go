// Package mcpserver exposes the classification engine as an MCP tool.
// Purely additive: it lets an agent invoke a scan over MCP, and does not
// change pkg/engine's semantics.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/apicrafter/metacrafter-go/pkg/connectors/file"
	"github.com/apicrafter/metacrafter-go/pkg/engine"
	"github.com/apicrafter/metacrafter-go/pkg/match"
	"github.com/apicrafter/metacrafter-go/pkg/rules"
)

// Deps holds the dependencies the classify_table tool needs.
type Deps struct {
	RuleSet *rules.RuleSet
	Logger  *zap.Logger
}

// New builds an MCP server exposing classify_table.
func New(version string, deps *Deps) *server.MCPServer {
	s := server.NewMCPServer("metacrafter", version, server.WithToolCapabilities(true))
	registerClassifyTableTool(s, deps)
	return s
}

func registerClassifyTableTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"classify_table",
		mcp.WithDescription(
			"Run a semantic field-type classification scan over a CSV or JSON-lines "+
				"file and return per-column dataclass labels (e.g. email, phone, uuid). "+
				"Example: classify_table(path='/data/customers.csv') scans every column "+
				"of customers.csv against the loaded rule set.",
		),
		mcp.WithString(
			"path",
			mcp.Required(),
			mcp.Description("Path to a .csv or .jsonl file to scan"),
		),
		mcp.WithNumber(
			"sample_limit",
			mcp.Description("Maximum number of values sampled per column (default 1000)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return nil, err
		}
		if path == "" {
			return newErrorResult("invalid_parameters", "parameter 'path' cannot be empty"), nil
		}

		sampleLimit := 1000
		if v, ok := getOptionalFloat(req, "sample_limit"); ok && v > 0 {
			sampleLimit = int(v)
		}

		src, err := file.Open(path)
		if err != nil {
			return newErrorResult("open_failed", fmt.Sprintf("open %s: %v", path, err)), nil
		}
		defer src.Close()

		datePatterns, err := match.DefaultDatePatterns()
		if err != nil {
			return nil, fmt.Errorf("build date patterns: %w", err)
		}

		scanReport, err := engine.Scan(ctx, path, src, deps.RuleSet, engine.ScanOptions{
			SampleLimit:  sampleLimit,
			DatePatterns: datePatterns,
			Logger:       deps.Logger,
		})
		if err != nil && scanReport == nil {
			return newErrorResult("scan_failed", err.Error()), nil
		}

		body, err := json.Marshal(scanReport)
		if err != nil {
			return nil, fmt.Errorf("marshal scan report: %w", err)
		}
		return mcp.NewToolResultText(string(body)), nil
	})
}

// getOptionalFloat extracts an optional numeric argument.
func getOptionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0, false
	}
	val, ok := args[key].(float64)
	return val, ok
}

// errorResult is a structured, machine-readable tool error: returned as a
// tool result (not a Go error) so the calling agent sees actionable detail
// instead of having it swallowed by the MCP client.
type errorResult struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newErrorResult(code, message string) *mcp.CallToolResult {
	body, _ := json.Marshal(errorResult{Error: true, Code: code, Message: message})
	result := mcp.NewToolResultText(string(body))
	result.IsError = true
	return result
}
