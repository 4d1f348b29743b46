package tools

import (
	"context"
	"fmt"

	"github.com/DeusData/designer-mcp/internal/metadata"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleGetMetadata(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	s.mu.Lock()
	snap := s.session.Metadata()
	s.mu.Unlock()

	if t := getStringArg(args, "widget_type"); t != "" {
		if !metadata.WidgetType(t).Valid() {
			return errResult(fmt.Sprintf("unknown widget type: %s", t)), nil
		}
		entries := snap.Filter(func(e metadata.Entry) bool {
			return e.Widget.WidgetType == metadata.WidgetType(t)
		})
		if entries == nil {
			entries = []metadata.Entry{}
		}
		snap = metadata.Snapshot{Widgets: entries}
	}
	return jsonResult(snap), nil
}

func (s *Server) handleGetWidget(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	id := getStringArg(args, "id")
	widgetID := getStringArg(args, "widget_id")
	if id == "" && widgetID == "" {
		return errResult("id or widget_id is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.session.Store()
	if id != "" {
		w, ok := store.Get(id)
		if !ok {
			return errResult(fmt.Sprintf("widget not found: %s", id)), nil
		}
		return jsonResult(metadata.Entry{ID: id, Widget: w.Clone()}), nil
	}
	key, w, ok := store.FindByWidgetID(widgetID)
	if !ok {
		return errResult(fmt.Sprintf("widget id not found: %s", widgetID)), nil
	}
	return jsonResult(metadata.Entry{ID: key, Widget: w.Clone()}), nil
}

func (s *Server) handleGetChildren(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	id := getStringArg(args, "id")
	if id == "" {
		return errResult("id is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.session.Store()
	parent, ok := store.Get(id)
	if !ok {
		return errResult(fmt.Sprintf("widget not found: %s", id)), nil
	}
	children := make([]metadata.Entry, 0, len(parent.Children))
	for _, cid := range parent.Children {
		if w, ok := store.Get(cid); ok {
			children = append(children, metadata.Entry{ID: cid, Widget: w.Clone()})
		}
	}
	return jsonResult(map[string]any{
		"parent":   id,
		"children": children,
	}), nil
}

// treeNode is the compact hierarchy returned by get_tree.
type treeNode struct {
	ID       string                  `json:"id"`
	Type     metadata.WidgetType     `json:"widgetType"`
	WidgetID string                  `json:"widgetId,omitempty"`
	Location metadata.SourceLocation `json:"sourceLocation"`
	Children []*treeNode             `json:"children,omitempty"`
}

func buildTree(store *metadata.Store, id string, depth, maxDepth int) *treeNode {
	w, ok := store.Get(id)
	if !ok {
		return nil
	}
	n := &treeNode{ID: id, Type: w.WidgetType, WidgetID: w.WidgetID, Location: w.SourceLocation}
	if maxDepth > 0 && depth >= maxDepth {
		return n
	}
	for _, cid := range w.Children {
		if c := buildTree(store, cid, depth+1, maxDepth); c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

func (s *Server) handleGetTree(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	maxDepth := getIntArg(args, "max_depth", 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.session.Store()
	roots := []*treeNode{}
	for _, id := range store.IDs() {
		w, _ := store.Get(id)
		if w.Parent != "" {
			continue
		}
		if n := buildTree(store, id, 0, maxDepth); n != nil {
			roots = append(roots, n)
		}
	}
	return jsonResult(map[string]any{
		"path":  s.session.Path(),
		"state": s.session.State().String(),
		"roots": roots,
	}), nil
}

func (s *Server) handleUpdateWidgetID(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	id := getStringArg(args, "id")
	if id == "" {
		return errResult("id is required"), nil
	}
	oldID := getStringArg(args, "old_id")
	newID := getStringArg(args, "new_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.session.UpdateWidgetID(id, oldID, newID)
	if err != nil {
		return errResult(fmt.Sprintf("update failed: %v", err)), nil
	}

	result := map[string]any{
		"state":   s.session.State().String(),
		"pending": len(s.session.Pending()),
	}
	if m.Kind != "" {
		result["mutation"] = m
	} else {
		result["mutation"] = nil
	}
	return jsonResult(result), nil
}
