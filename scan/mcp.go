package scan

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/glasshouse/capsight/kit"
	"github.com/glasshouse/capsight/probe"
)

// RegisterMCP registers capsight tools on an MCP server.
func (s *Scanner) RegisterMCP(srv *mcp.Server) {
	s.registerDetectTool(srv)
	s.registerScanTool(srv)
	s.registerAuditTool(srv)
	s.registerReportsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// --- detect (offline) ---

type detectReq struct {
	UserAgent string             `json:"user_agent"`
	Supports  probe.QueryResults `json:"supports"`
}

func (s *Scanner) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "capsight_detect",
		Description: "Classify an environment from a user-agent string and recorded feature-query results, without touching a browser.",
		InputSchema: inputSchema(map[string]any{
			"user_agent": map[string]any{"type": "string", "description": "Environment identification string (may be empty)"},
			"supports": map[string]any{
				"type":        "object",
				"description": "Recorded CSS feature-query answers",
				"properties": map[string]any{
					"backdrop_blur":          map[string]any{"type": "boolean"},
					"prefixed_backdrop_blur": map[string]any{"type": "boolean"},
					"blur_saturate":          map[string]any{"type": "boolean"},
					"brightness":             map[string]any{"type": "boolean"},
				},
			},
		}, nil),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*detectReq)
		snap := probe.Detect(probe.Env{Supports: r.Supports.Query, UserAgent: r.UserAgent})
		return map[string]any{
			"snapshot": snap,
			"engine":   probe.EngineLabel(snap),
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r detectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- scan (live) ---

func (s *Scanner) registerScanTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "capsight_scan",
		Description: "Run live capability detection in the managed headless browser and persist the report.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Scan(ctx)
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- audit ---

type auditReq struct {
	URL string `json:"url"`
}

func (s *Scanner) registerAuditTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "capsight_audit",
		Description: "Audit a page's backdrop-filter usage against the browser's detected capabilities.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page URL to audit"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*auditReq)
		return s.AuditPage(ctx, r.URL)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r auditReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- reports ---

type reportsReq struct {
	Limit int `json:"limit"`
}

func (s *Scanner) registerReportsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "capsight_reports",
		Description: "List recent scan reports, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum number of reports (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*reportsReq)
		reports, err := s.Reports(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"reports": reports}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r reportsReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
