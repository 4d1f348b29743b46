package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/DeusData/designer-mcp/internal/evaluate"
	"github.com/DeusData/designer-mcp/internal/lang"
	"github.com/DeusData/designer-mcp/internal/parser"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func printAST(m *evaluate.Matcher, node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)
	parentKind := "nil"
	if node.Parent() != nil {
		parentKind = node.Parent().Kind()
	}
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	pos := node.StartPosition()
	mark := ""
	if call, ok := m.Match(node); ok {
		var chain []string
		for _, l := range call.Chain {
			chain = append(chain, l.Name)
		}
		mark = fmt.Sprintf(" <%s chain=%v>", call.Kind.Type, chain)
	}
	fmt.Printf("%s%s %d:%d (parent=%s) %q%s\n", prefix, node.Kind(), pos.Row+1, pos.Column+1, parentKind, text, mark)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(m, node.Child(i), source, indent+1)
	}
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: ast_debug FILE")
		os.Exit(2)
	}
	path := os.Args[1]
	l, ok := lang.LanguageForPath(path)
	if !ok {
		fmt.Fprintf(os.Stderr, "unsupported file type: %s\n", path)
		os.Exit(2)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	fmt.Printf("=== %s AST ===\n", strings.ToUpper(string(l)))
	tree, err := parser.Parse(l, source)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer tree.Close()

	root := tree.RootNode()
	printAST(evaluate.NewMatcher(l, source), root, source, 0)
	if bad := parser.FirstError(root); bad != nil {
		pos := bad.StartPosition()
		fmt.Printf("\nfirst syntax error at %d:%d (%s)\n", pos.Row+1, pos.Column+1, bad.Kind())
	}
}
