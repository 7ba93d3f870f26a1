package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bictech/transcheck/catalog"
)

// RegisterMCP registers the checker's tools on an MCP server so agents
// can query the catalog and re-check saved pages.
func (c *Checker) RegisterMCP(srv *mcp.Server) {
	c.registerLookupTool(srv)
	c.registerCheckHTMLTool(srv)
	c.registerLastRunTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		var res mcp.CallToolResult
		res.SetError(fmt.Errorf("marshal: %w", err))
		return &res, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errResult(err error) (*mcp.CallToolResult, error) {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res, nil
}

// --- lookup ---

type lookupReq struct {
	Key      string `json:"key,omitempty"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
}

func (c *Checker) registerLookupTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "transcheck_lookup",
		Description: "Look up a reference translation entry by key, or by text in a given language (en/kh/cn).",
		InputSchema: inputSchema(map[string]any{
			"key":      map[string]any{"type": "string", "description": "Translation key"},
			"text":     map[string]any{"type": "string", "description": "On-screen text to look up"},
			"language": map[string]any{"type": "string", "description": "Language code for text lookup, default en"},
		}, nil),
	}

	srv.AddTool(tool, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r lookupReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return errResult(fmt.Errorf("invalid arguments: %w", err))
		}

		var entry *catalog.Entry
		var ok bool
		switch {
		case r.Key != "":
			entry, ok = c.cat.ByKey(r.Key)
		case r.Text != "":
			lang := catalog.English
			if r.Language != "" {
				var err error
				if lang, err = catalog.ParseLanguage(r.Language); err != nil {
					return errResult(err)
				}
			}
			entry, ok = c.cat.ByText(r.Text, lang)
		default:
			return errResult(fmt.Errorf("either key or text is required"))
		}

		if !ok {
			return jsonResult(map[string]any{"found": false})
		}
		return jsonResult(map[string]any{
			"found":        true,
			"key":          entry.Key,
			"original_en":  entry.OriginalEN,
			"original_kh":  entry.OriginalKH,
			"original_cn":  entry.OriginalCN,
			"confirmed_kh": entry.ConfirmedKH,
			"confirmed_cn": entry.ConfirmedCN,
		})
	})
}

// --- check_html ---

type checkHTMLReq struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Page     string `json:"page,omitempty"`
}

func (c *Checker) registerCheckHTMLTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "transcheck_check_html",
		Description: "Verify a saved HTML page against the reference catalog without a browser.",
		InputSchema: inputSchema(map[string]any{
			"path":     map[string]any{"type": "string", "description": "Path to the saved HTML file"},
			"language": map[string]any{"type": "string", "description": "Language the page was rendered in (en/kh/cn)"},
			"page":     map[string]any{"type": "string", "description": "Page name for the report, default the file name"},
		}, []string{"path", "language"}),
	}

	srv.AddTool(tool, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r checkHTMLReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return errResult(fmt.Errorf("invalid arguments: %w", err))
		}
		lang, err := catalog.ParseLanguage(r.Language)
		if err != nil {
			return errResult(err)
		}
		data, err := os.ReadFile(r.Path)
		if err != nil {
			return errResult(err)
		}
		page := r.Page
		if page == "" {
			page = r.Path
		}

		stats, err := c.CheckHTML(data, lang, page)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(stats)
	})
}

// --- last_run ---

func (c *Checker) registerLastRunTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "transcheck_last_run",
		Description: "Return the most recent verification run with its mismatch records.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		run, ok, err := c.st.LastRun(ctx)
		if err != nil {
			return errResult(err)
		}
		if !ok {
			return jsonResult(map[string]any{"found": false})
		}
		return jsonResult(run)
	})
}
