// Package evaluate is the static execution layer: it walks the syntax tree
// of a UI-description source file and reports every widget-construction call
// to a capture.Recorder, as if the builders had run.
package evaluate

import (
	"context"
	"errors"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/designer-mcp/internal/capture"
	"github.com/DeusData/designer-mcp/internal/lang"
	"github.com/DeusData/designer-mcp/internal/metadata"
	"github.com/DeusData/designer-mcp/internal/parser"
)

// ErrSyntax reports a source file that does not parse cleanly.
var ErrSyntax = errors.New("syntax error")

// Evaluator walks one source file.
type Evaluator struct {
	file    string
	source  []byte
	lines   *parser.LineIndex
	matcher *Matcher
	rec     *capture.Recorder
	count   int
}

// Run parses source as language l and records every construction call.
// file is the path reported in source locations. It returns the number of
// widgets recorded.
func Run(ctx context.Context, l lang.Language, file string, source []byte, rec *capture.Recorder) (int, error) {
	tree, err := parser.Parse(l, source)
	if err != nil {
		return 0, err
	}
	defer tree.Close()

	lines := parser.NewLineIndex(source)
	root := tree.RootNode()
	if bad := parser.FirstError(root); bad != nil {
		line, col := lines.Position(int(bad.StartByte()))
		what := "unexpected input"
		if bad.IsMissing() {
			what = fmt.Sprintf("missing %s", bad.Kind())
		}
		return 0, fmt.Errorf("%w: %s:%d:%d: %s", ErrSyntax, file, line, col, what)
	}

	e := &Evaluator{
		file:    file,
		source:  source,
		lines:   lines,
		matcher: NewMatcher(l, source),
		rec:     rec,
	}
	if err := e.walk(ctx, root, ""); err != nil {
		return e.count, err
	}
	return e.count, nil
}

func (e *Evaluator) walk(ctx context.Context, n *tree_sitter.Node, parent string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if call, ok := e.matcher.Outermost(n); ok {
		return e.construct(ctx, call, parent)
	}
	for _, c := range parser.NamedChildren(n) {
		if err := e.walk(ctx, c, parent); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) construct(ctx context.Context, call *Call, parent string) error {
	line, col := e.lines.Position(int(call.Callee.StartByte()))
	ev := capture.Event{
		Type:               string(call.Kind.Type),
		Parent:             parent,
		Location:           &metadata.SourceLocation{File: e.file, Line: line, Column: col},
		Properties:         map[string]any{},
		EventHandlers:      map[string]string{},
		MouseEventHandlers: map[string]string{},
	}

	var builders []*tree_sitter.Node
	for i, p := range call.Kind.Params {
		if i >= len(call.Args) {
			break
		}
		arg := call.Args[i]
		switch p.Kind {
		case metadata.ArgProperty:
			ev.Properties[p.Name] = literal(arg, e.source)
		case metadata.ArgHandler:
			ev.EventHandlers[p.Name] = e.text(arg)
		case metadata.ArgBuilder:
			builders = append(builders, arg)
		case metadata.ArgConfig:
			builders = append(builders, e.config(p.Name, arg, &ev)...)
		}
	}

	for _, l := range call.Chain {
		switch {
		case l.Name == WithIDMethod:
			if len(l.Args) > 0 && l.Args[0].Kind() == "string" {
				ev.WidgetID = StringValue(l.Args[0], e.source)
			}
		case l.Name == "ngShow":
			if len(l.Args) > 0 {
				ev.Properties["ngShow"] = e.text(l.Args[0])
			}
		case IsMouseHandler(l.Name):
			if len(l.Args) > 0 {
				ev.MouseEventHandlers[l.Name] = e.text(l.Args[0])
			}
		case IsHandlerName(l.Name):
			if len(l.Args) > 0 {
				ev.EventHandlers[l.Name] = e.text(l.Args[0])
			}
		}
	}

	id, err := e.rec.Record(ev)
	if err != nil {
		return err
	}
	e.count++

	for _, b := range builders {
		if err := e.walk(ctx, b, id); err != nil {
			return err
		}
	}
	return nil
}

// config decodes an options object or an array of item objects. Plain
// values become properties, onXxx functions become handlers and any other
// function value is returned as a builder.
func (e *Evaluator) config(name string, arg *tree_sitter.Node, ev *capture.Event) []*tree_sitter.Node {
	var builders []*tree_sitter.Node
	switch arg.Kind() {
	case "object":
		for k, v := range e.object(arg, ev, &builders) {
			ev.Properties[k] = v
		}
	case "array":
		items := make([]any, 0, arg.NamedChildCount())
		for _, el := range parser.NamedChildren(arg) {
			switch {
			case el.Kind() == "object":
				items = append(items, e.object(el, ev, &builders))
			case e.matcher.spec.IsFunction(el.Kind()):
				builders = append(builders, el)
			default:
				items = append(items, literal(el, e.source))
			}
		}
		ev.Properties[name] = items
	default:
		if e.matcher.spec.IsFunction(arg.Kind()) {
			builders = append(builders, arg)
		} else {
			ev.Properties[name] = literal(arg, e.source)
		}
	}
	return builders
}

func (e *Evaluator) object(n *tree_sitter.Node, ev *capture.Event, builders *[]*tree_sitter.Node) map[string]any {
	out := make(map[string]any)
	for _, p := range parser.NamedChildren(n) {
		switch p.Kind() {
		case "pair":
			key := PropertyKey(p.ChildByFieldName("key"), e.source)
			v := p.ChildByFieldName("value")
			if v == nil {
				continue
			}
			switch {
			case !e.matcher.spec.IsFunction(v.Kind()):
				out[key] = literal(v, e.source)
			case IsHandlerName(key):
				ev.EventHandlers[key] = e.text(v)
			default:
				*builders = append(*builders, v)
			}
		case "method_definition":
			nameNode := p.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			key := PropertyKey(nameNode, e.source)
			if IsHandlerName(key) {
				ev.EventHandlers[key] = e.text(p)
			} else if body := p.ChildByFieldName("body"); body != nil {
				*builders = append(*builders, body)
			}
		case "shorthand_property_identifier":
			name := e.text(p)
			out[name] = name
		}
	}
	return out
}

func (e *Evaluator) text(n *tree_sitter.Node) string {
	return parser.NodeText(n, e.source)
}
