package parser

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/designer-mcp/internal/lang"
)

func TestParseTypeScript(t *testing.T) {
	source := []byte(`import { app } from '../src';

app({ title: 'Hello' }, (a) => {
  a.window({ title: 'Hello' }, (win) => {
    win.setContent(() => {
      a.vbox(() => {
        a.label('Hello World');
        a.button('Click', () => {}).withId('btn');
      });
    });
    win.show();
  });
});
`)
	tree, err := Parse(lang.TypeScript, source)
	if err != nil {
		t.Fatalf("Parse TypeScript: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		t.Fatal("root node is nil")
	}
	if FirstError(root) != nil {
		t.Fatalf("unexpected syntax error in %s", root.ToSexp())
	}

	var calls, arrows int
	Walk(root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "call_expression":
			calls++
		case "arrow_function":
			arrows++
		}
		return true
	})
	// app, window, setContent, vbox, label, button, withId, show
	if calls != 8 {
		t.Errorf("expected 8 call_expressions, got %d", calls)
	}
	if arrows != 5 {
		t.Errorf("expected 5 arrow_functions, got %d", arrows)
	}
}

func TestParseJavaScript(t *testing.T) {
	source := []byte("const { app } = require('tsyne');\napp({ title: 'x' }, function (a) { a.label('hi'); });\n")
	tree, err := Parse(lang.JavaScript, source)
	if err != nil {
		t.Fatalf("Parse JavaScript: %v", err)
	}
	defer tree.Close()
	if FirstError(tree.RootNode()) != nil {
		t.Fatal("unexpected syntax error")
	}
}

func TestParseTSX(t *testing.T) {
	source := []byte("app({ title: 'x' }, (a: App) => { a.label(<b>hi</b> as any); });\n")
	tree, err := Parse(lang.TSX, source)
	if err != nil {
		t.Fatalf("Parse TSX: %v", err)
	}
	defer tree.Close()
}

func TestFirstError(t *testing.T) {
	source := []byte("app({ title: 'x' }, (a) => {\n  a.label('unterminated';\n});\n")
	tree, err := Parse(lang.TypeScript, source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()
	errNode := FirstError(tree.RootNode())
	if errNode == nil {
		t.Fatal("expected a syntax error node")
	}
	if row := errNode.StartPosition().Row; row > 2 {
		t.Errorf("error reported on row %d, want <= 2", row)
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	if _, err := Parse(lang.Language("cobol"), []byte("x")); err == nil {
		t.Fatal("expected error for unsupported language")
	}
	if _, err := GetLanguage(lang.Language("cobol")); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestNamedChildrenSkipsComments(t *testing.T) {
	source := []byte("f(1, /* two */ 2, 3);\n")
	tree, err := Parse(lang.TypeScript, source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	var args *tree_sitter.Node
	Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() == "arguments" {
			args = n
			return false
		}
		return true
	})
	if args == nil {
		t.Fatal("arguments node not found")
	}
	got := NamedChildren(args)
	if len(got) != 3 {
		t.Fatalf("expected 3 argument nodes, got %d", len(got))
	}
	if NodeText(got[1], source) != "2" {
		t.Errorf("second argument = %q, want 2", NodeText(got[1], source))
	}
}
