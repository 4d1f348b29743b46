package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleLoadFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	path := getStringArg(args, "path")
	if path == "" {
		return errResult("path is required"), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errResult(fmt.Sprintf("invalid path: %v", err)), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if events := getStringArg(args, "events"); events != "" {
		f, openErr := os.Open(events)
		if openErr != nil {
			return errResult(fmt.Sprintf("open events: %v", openErr)), nil
		}
		n, err = s.session.LoadEvents(ctx, absPath, f)
		f.Close()
	} else {
		n, err = s.session.Load(ctx, absPath)
	}
	if err != nil {
		return errResult(err.Error()), nil
	}

	return jsonResult(map[string]any{
		"path":    absPath,
		"widgets": n,
		"sibling": s.session.SiblingPath(),
		"state":   s.session.State().String(),
	}), nil
}

func (s *Server) handleLoadSource(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	name := getStringArg(args, "name")
	if name == "" {
		return errResult("name is required"), nil
	}
	source, ok := args["source"].(string)
	if !ok {
		return errResult("source is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.session.LoadSource(ctx, name, []byte(source))
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"name":    name,
		"widgets": n,
		"state":   s.session.State().String(),
	}), nil
}

func (s *Server) handleSave(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.session.Save(ctx)
	if err != nil {
		return errResult(fmt.Sprintf("save failed: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleRender(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.session.Render(ctx)
	if err != nil {
		return errResult(fmt.Sprintf("render failed: %v", err)), nil
	}
	return textResult(string(out)), nil
}

func (s *Server) handleDiff(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.session.Diff(ctx)
	if err != nil {
		return errResult(fmt.Sprintf("diff failed: %v", err)), nil
	}
	if d == "" {
		return textResult("no changes"), nil
	}
	return textResult(d), nil
}
