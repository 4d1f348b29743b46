package evaluate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/DeusData/designer-mcp/internal/capture"
	"github.com/DeusData/designer-mcp/internal/lang"
	"github.com/DeusData/designer-mcp/internal/metadata"
	"github.com/DeusData/designer-mcp/internal/parser"
)

const helloSource = `import { app } from './tsyne';

app({ title: 'Hello' }, (a) => {
  a.window({ title: 'Hello', width: 400 }, (win) => {
    win.setContent(() => {
      a.vbox(() => {
        a.label('Hello World');
        a.button('Click', () => {
          a.label('never built');
        }).withId('btn');
      });
    });
    win.show();
  });
});
`

const gridSource = `app({ title: 'Grids' }, (a) => {
  a.window({ title: 'Grids' }, (win) => {
    win.setContent(() => {
      a.vbox(() => {
        a.grid(2, () => {
          a.label('A');
          a.label('B');
        });
        a.grid(3, () => {
          a.label('C');
          a.label('D');
          a.label('E');
        });
      });
    });
  });
});
`

func evaluate(t *testing.T, l lang.Language, src string) *metadata.Store {
	t.Helper()
	store := metadata.NewStore()
	rec := capture.NewRecorder(store, &capture.IDAllocator{})
	if _, err := Run(context.Background(), l, "app.ts", []byte(src), rec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := store.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return store
}

func TestRunBuildsTree(t *testing.T) {
	store := evaluate(t, lang.TypeScript, helloSource)

	want := []struct {
		id, typ, parent string
		line, col       int
	}{
		{"widget-0", "app", "", 3, 1},
		{"widget-1", "window", "widget-0", 4, 5},
		{"widget-2", "vbox", "widget-1", 6, 9},
		{"widget-3", "label", "widget-2", 7, 11},
		{"widget-4", "button", "widget-2", 8, 11},
	}
	if store.Len() != len(want) {
		t.Fatalf("recorded %d widgets, want %d: %v", store.Len(), len(want), store.IDs())
	}
	for _, tt := range want {
		w, ok := store.Get(tt.id)
		if !ok {
			t.Fatalf("%s missing", tt.id)
		}
		if string(w.WidgetType) != tt.typ || w.Parent != tt.parent {
			t.Errorf("%s = %s parent %q, want %s parent %q", tt.id, w.WidgetType, w.Parent, tt.typ, tt.parent)
		}
		if w.SourceLocation.Line != tt.line || w.SourceLocation.Column != tt.col {
			t.Errorf("%s at %s, want %d:%d", tt.id, w.SourceLocation, tt.line, tt.col)
		}
	}

	win, _ := store.Get("widget-1")
	if diff := cmp.Diff(map[string]any{"title": "Hello", "width": 400}, win.Properties); diff != "" {
		t.Errorf("window properties (-want +got):\n%s", diff)
	}
	btn, _ := store.Get("widget-4")
	if btn.WidgetID != "btn" {
		t.Errorf("button widgetId = %q", btn.WidgetID)
	}
	if btn.Properties["text"] != "Click" {
		t.Errorf("button text = %v", btn.Properties["text"])
	}
	if h := btn.EventHandlers["onClick"]; !strings.HasPrefix(h, "() => {") {
		t.Errorf("onClick = %q", h)
	}
}

func TestRunGridColumns(t *testing.T) {
	store := evaluate(t, lang.TypeScript, gridSource)

	var cols []any
	var sizes []int
	grids := store.ToJSON().Filter(func(e metadata.Entry) bool { return e.Widget.WidgetType == metadata.Grid })
	for _, e := range grids {
		cols = append(cols, e.Widget.Properties["columns"])
		sizes = append(sizes, len(e.Widget.Children))
	}
	if diff := cmp.Diff([]any{2, 3}, cols); diff != "" {
		t.Errorf("grid columns (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3}, sizes); diff != "" {
		t.Errorf("grid children (-want +got):\n%s", diff)
	}
}

func TestRunConfigBuilders(t *testing.T) {
	src := `app({}, (a) => {
  a.border({
    top: () => a.label('top'),
    center: () => {
      a.tabs([
        { title: 'One', builder: () => a.label('one') },
        { title: 'Two', builder: () => a.label('two') },
      ], 'bottom');
    },
    onResize: () => a.label('later'),
  });
});
`
	store := evaluate(t, lang.TypeScript, src)

	var types []string
	for _, w := range store.All() {
		types = append(types, string(w.WidgetType))
	}
	if diff := cmp.Diff([]string{"app", "border", "label", "tabs", "label", "label"}, types); diff != "" {
		t.Fatalf("types (-want +got):\n%s", diff)
	}

	border, _ := store.Get("widget-1")
	if len(border.Children) != 2 {
		t.Errorf("border children = %v", border.Children)
	}
	if _, ok := border.EventHandlers["onResize"]; !ok {
		t.Errorf("border handlers = %v", border.EventHandlers)
	}
	tabs, _ := store.Get("widget-3")
	wantTabs := []any{map[string]any{"title": "One"}, map[string]any{"title": "Two"}}
	if diff := cmp.Diff(wantTabs, tabs.Properties["tabs"]); diff != "" {
		t.Errorf("tabs (-want +got):\n%s", diff)
	}
	if tabs.Properties["location"] != "bottom" {
		t.Errorf("location = %v", tabs.Properties["location"])
	}
	if tabs.Parent != "widget-1" {
		t.Errorf("tabs parent = %s", tabs.Parent)
	}
}

func TestRunChainedCalls(t *testing.T) {
	src := `app({}, (a) => {
  a.label('x')
    .ngShow(() => state.visible)
    .onMouseIn((e) => hover(e))
    .withId('status');
  a.image('/img.png', 'contain', () => open()).onMouseOut(leave);
});
`
	store := evaluate(t, lang.TypeScript, src)

	label, _ := store.Get("widget-1")
	if label.WidgetID != "status" {
		t.Errorf("widgetId = %q", label.WidgetID)
	}
	if label.Properties["ngShow"] != "() => state.visible" {
		t.Errorf("ngShow = %v", label.Properties["ngShow"])
	}
	if label.MouseEventHandlers["onMouseIn"] != "(e) => hover(e)" {
		t.Errorf("mouse handlers = %v", label.MouseEventHandlers)
	}

	img, _ := store.Get("widget-2")
	want := map[string]any{"path": "/img.png", "fillMode": "contain"}
	if diff := cmp.Diff(want, img.Properties); diff != "" {
		t.Errorf("image properties (-want +got):\n%s", diff)
	}
	if img.EventHandlers["onClick"] != "() => open()" || img.MouseEventHandlers["onMouseOut"] != "leave" {
		t.Errorf("image handlers = %v %v", img.EventHandlers, img.MouseEventHandlers)
	}
}

func TestRunBareCallsJavaScript(t *testing.T) {
	src := "const { vbox, label, separator } = tsyne;\n\nvbox(() => {\n  label('Images');\n  separator();\n});\n"
	store := evaluate(t, lang.JavaScript, src)

	roots := store.Tree()
	if len(roots) != 1 || roots[0].WidgetType != metadata.VBox {
		t.Fatalf("roots = %+v", roots)
	}
	if got := len(roots[0].Children); got != 2 {
		t.Errorf("vbox children = %d, want 2", got)
	}
	sep, _ := store.Get("widget-2")
	if sep.SourceLocation.Line != 5 || sep.SourceLocation.Column != 3 {
		t.Errorf("separator at %s", sep.SourceLocation)
	}
}

func TestRunRuneColumns(t *testing.T) {
	src := "app({}, (a) => {\n  const s = 'héllo'; a.label(s);\n});\n"
	store := evaluate(t, lang.TypeScript, src)

	label, _ := store.Get("widget-1")
	// "  const s = 'héllo'; a." is 23 characters but 24 bytes.
	if label.SourceLocation.Column != 24 {
		t.Errorf("column = %d, want 24", label.SourceLocation.Column)
	}
	if label.Properties["text"] != "s" {
		t.Errorf("non-literal text = %v", label.Properties["text"])
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"syntax", "app({}, (a) => {\n  a.label('x'\n});\n", ErrSyntax},
		{"duplicate widget id", "app({}, (a) => {\n  a.label('x').withId('d');\n  a.label('y').withId('d');\n});\n", capture.ErrInvalidEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := capture.NewRecorder(metadata.NewStore(), &capture.IDAllocator{})
			_, err := Run(context.Background(), lang.TypeScript, "app.ts", []byte(tt.src), rec)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := capture.NewRecorder(metadata.NewStore(), &capture.IDAllocator{})
	if _, err := Run(ctx, lang.TypeScript, "app.ts", []byte(helloSource), rec); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{`'plain'`, "plain"},
		{`"it\'s\n"`, "it's\n"},
		{`'A\u{1F600}'`, "A\U0001F600"},
		{"`tmpl`", "tmpl"},
		{"`x${y}`", "`x${y}`"},
		{`42`, 42},
		{`0x10`, 16},
		{`1_000`, 1000},
		{`2.0`, 2},
		{`2.5`, 2.5},
		{`-3`, -3},
		{`true`, true},
		{`null`, nil},
		{`undefined`, nil},
		{`[1, 'a']`, []any{1, "a"}},
		{`{ a: 1, 'b': 'c' }`, map[string]any{"a": 1, "b": "c"}},
		{`count + 1`, "count + 1"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			src := []byte("x(" + tt.expr + ");\n")
			tree, err := parser.Parse(lang.TypeScript, src)
			if err != nil {
				t.Fatal(err)
			}
			defer tree.Close()
			call := tree.RootNode().NamedChild(0).NamedChild(0)
			arg := parser.NamedChildren(call.ChildByFieldName("arguments"))[0]
			if diff := cmp.Diff(tt.want, literal(arg, src)); diff != "" {
				t.Errorf("literal(%s) (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestMatcherAt(t *testing.T) {
	src := []byte(helloSource)
	tree, err := parser.Parse(lang.TypeScript, src)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	lines := parser.NewLineIndex(src)
	off, err := lines.Offset(8, 11)
	if err != nil {
		t.Fatal(err)
	}
	m := NewMatcher(lang.TypeScript, src)
	call, ok := m.At(tree.RootNode(), uint(off))
	if !ok {
		t.Fatal("button call not found")
	}
	if call.Kind.Type != metadata.Button {
		t.Errorf("type = %s", call.Kind.Type)
	}
	links := call.Links(WithIDMethod)
	if len(links) != 1 || parser.NodeText(links[0].Args[0], src) != "'btn'" {
		t.Fatalf("withId links = %+v", links)
	}
	if got := string(src[call.End()-1]); got != ")" {
		t.Errorf("chain ends with %q", got)
	}

	if _, ok := m.At(tree.RootNode(), uint(off+1)); ok {
		t.Error("offset inside callee name should not match")
	}
}

func TestIsHandlerName(t *testing.T) {
	for name, want := range map[string]bool{
		"onClick": true, "onMouseIn": true, "on": false, "once": false, "builder": false,
	} {
		if got := IsHandlerName(name); got != want {
			t.Errorf("IsHandlerName(%q) = %v", name, got)
		}
	}
}
