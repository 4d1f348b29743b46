package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/DeusData/designer-mcp/internal/journal"
	"github.com/DeusData/designer-mcp/internal/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported in the MCP implementation info.
var Version = "dev"

// Server wraps the MCP server with tool handlers. All tools share one
// designer session; calls touching it are serialized.
type Server struct {
	mcp     *mcp.Server
	mu      sync.Mutex
	session *session.Session
	journal *journal.Journal
}

// NewServer creates a new MCP server with all tools registered. j may be
// nil, in which case save_history reports the journal as disabled.
func NewServer(sess *session.Session, j *journal.Journal) *Server {
	srv := &Server{
		session: sess,
		journal: j,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "designer-mcp",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	// 1. load_file
	s.mcp.AddTool(&mcp.Tool{
		Name:        "load_file",
		Description: "Load a UI description file (.ts, .tsx, .js). Evaluates every widget-construction call and records widget metadata with exact source positions. Replaces any previously loaded file and discards its pending edits.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Path of the file to load"
				},
				"events": {
					"type": "string",
					"description": "Optional path of a JSON-lines construction event stream recorded by an instrumented run of the file. When set, metadata comes from the stream instead of static evaluation."
				}
			},
			"required": ["path"]
		}`),
	}, s.handleLoadFile)

	// 2. load_source
	s.mcp.AddTool(&mcp.Tool{
		Name:        "load_source",
		Description: "Load UI description source text held in memory. Saves return the edited text instead of writing a file.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {
					"type": "string",
					"description": "File name used for locations and language detection (e.g. 'app.ts')"
				},
				"source": {
					"type": "string",
					"description": "Full source text"
				}
			},
			"required": ["name", "source"]
		}`),
	}, s.handleLoadSource)

	// 3. get_metadata
	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_metadata",
		Description: "Return the metadata of every widget of the loaded file: {widgets: [{id, widgetType, widgetId, sourceLocation, properties, eventHandlers, mouseEventHandlers, children, parent}]}. Optionally filtered by widget type.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"widget_type": {
					"type": "string",
					"description": "Only return widgets of this type (e.g. 'button', 'grid')"
				}
			}
		}`),
	}, s.handleGetMetadata)

	// 4. get_widget
	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_widget",
		Description: "Return one widget by internal id (e.g. 'widget-3') or by its user-facing widget id.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {
					"type": "string",
					"description": "Internal id of the widget"
				},
				"widget_id": {
					"type": "string",
					"description": "User-facing widget id assigned with withId"
				}
			}
		}`),
	}, s.handleGetWidget)

	// 5. get_children
	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_children",
		Description: "Return the direct children of a widget in construction order.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {
					"type": "string",
					"description": "Internal id of the parent widget"
				}
			},
			"required": ["id"]
		}`),
	}, s.handleGetChildren)

	// 6. get_tree
	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_tree",
		Description: "Return the widget hierarchy as nested nodes with type, ids and location. Event handler bodies and properties are omitted.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"max_depth": {
					"type": "integer",
					"description": "Maximum depth to expand (default unlimited)"
				}
			}
		}`),
	}, s.handleGetTree)

	// 7. update_widget_id
	s.mcp.AddTool(&mcp.Tool{
		Name:        "update_widget_id",
		Description: "Add, rename or remove the withId('...') identifier of a widget. Empty old_id adds, empty new_id removes. old_id must match the current widget id. The change is applied to the metadata immediately and written by the next save.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {
					"type": "string",
					"description": "Internal id of the widget"
				},
				"old_id": {
					"type": "string",
					"description": "Current widget id, empty if the widget has none"
				},
				"new_id": {
					"type": "string",
					"description": "New widget id, empty to remove it"
				}
			},
			"required": ["id"]
		}`),
	}, s.handleUpdateWidgetID)

	// 8. save
	s.mcp.AddTool(&mcp.Tool{
		Name:        "save",
		Description: "Apply all pending identifier edits and write the result to the sibling file (name.edited.ext). Only the edited spans differ from the source. In-memory sources return the edited text instead.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleSave)

	// 9. render
	s.mcp.AddTool(&mcp.Tool{
		Name:        "render",
		Description: "Return the text the next save would write, without writing anything.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleRender)

	// 10. diff
	s.mcp.AddTool(&mcp.Tool{
		Name:        "diff",
		Description: "Return a unified diff between the loaded source and the text the next save would write.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleDiff)

	// 11. save_history
	s.mcp.AddTool(&mcp.Tool{
		Name:        "save_history",
		Description: "List recorded saves with their digests and applied edits, newest first. Optionally restricted to one source file.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Only saves of this source file (oldest first)"
				},
				"limit": {
					"type": "integer",
					"description": "Max saves (default 20, max 200)"
				}
			}
		}`),
	}, s.handleSaveHistory)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// textResult returns plain text as tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}
