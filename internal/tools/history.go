package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/DeusData/designer-mcp/internal/journal"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleSaveHistory(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.journal == nil {
		return errResult("save journal is disabled"), nil
	}
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	limit := getIntArg(args, "limit", 20)
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	var saves []*journal.Save
	if path := getStringArg(args, "path"); path != "" {
		absPath, absErr := filepath.Abs(path)
		if absErr != nil {
			return errResult(fmt.Sprintf("invalid path: %v", absErr)), nil
		}
		saves, err = s.journal.ForSource(absPath)
		if len(saves) > limit {
			saves = saves[len(saves)-limit:]
		}
	} else {
		saves, err = s.journal.List(limit)
	}
	if err != nil {
		return errResult(fmt.Sprintf("read journal: %v", err)), nil
	}
	if saves == nil {
		saves = []*journal.Save{}
	}

	return jsonResult(map[string]any{
		"saves": saves,
		"total": len(saves),
	}), nil
}
