package evaluate

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/designer-mcp/internal/parser"
)

// literal decodes a constant expression into a JSON-compatible value.
// Anything that is not a literal is returned as its source text.
func literal(n *tree_sitter.Node, src []byte) any {
	switch n.Kind() {
	case "string":
		return StringValue(n, src)
	case "template_string":
		if s, ok := plainTemplate(n, src); ok {
			return s
		}
	case "number":
		if v, ok := number(parser.NodeText(n, src)); ok {
			return v
		}
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	case "undefined":
		return nil
	case "identifier":
		if parser.NodeText(n, src) == "undefined" {
			return nil
		}
	case "parenthesized_expression":
		if inner := parser.NamedChildren(n); len(inner) == 1 {
			return literal(inner[0], src)
		}
	case "unary_expression":
		if v, ok := negative(n, src); ok {
			return v
		}
	case "array":
		out := make([]any, 0, n.NamedChildCount())
		for _, el := range parser.NamedChildren(n) {
			out = append(out, literal(el, src))
		}
		return out
	case "object":
		out := make(map[string]any)
		for _, p := range parser.NamedChildren(n) {
			switch p.Kind() {
			case "pair":
				key := PropertyKey(p.ChildByFieldName("key"), src)
				if v := p.ChildByFieldName("value"); v != nil {
					out[key] = literal(v, src)
				}
			case "shorthand_property_identifier":
				name := parser.NodeText(p, src)
				out[name] = name
			}
		}
		return out
	}
	return parser.NodeText(n, src)
}

// StringValue returns the decoded contents of a string literal node.
func StringValue(n *tree_sitter.Node, src []byte) string {
	var b strings.Builder
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "string_fragment":
			b.WriteString(parser.NodeText(c, src))
		case "escape_sequence":
			b.WriteString(unescape(parser.NodeText(c, src)))
		}
	}
	return b.String()
}

// PropertyKey returns the name of an object key node.
func PropertyKey(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	if n.Kind() == "string" {
		return StringValue(n, src)
	}
	return parser.NodeText(n, src)
}

func plainTemplate(n *tree_sitter.Node, src []byte) (string, bool) {
	var b strings.Builder
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "string_fragment":
			b.WriteString(parser.NodeText(c, src))
		case "escape_sequence":
			b.WriteString(unescape(parser.NodeText(c, src)))
		default:
			return "", false
		}
	}
	return b.String(), true
}

func negative(n *tree_sitter.Node, src []byte) (any, bool) {
	op := n.ChildByFieldName("operator")
	arg := n.ChildByFieldName("argument")
	if op == nil || arg == nil || arg.Kind() != "number" {
		return nil, false
	}
	if parser.NodeText(op, src) != "-" {
		return nil, false
	}
	switch v := literal(arg, src).(type) {
	case int:
		return -v, true
	case float64:
		return -v, true
	}
	return nil, false
}

// number parses a numeric literal; integral values become int.
func number(text string) (any, bool) {
	text = strings.ReplaceAll(text, "_", "")
	if i, err := strconv.ParseInt(text, 0, 64); err == nil {
		return int(i), true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f), true
	}
	return f, true
}

func unescape(seq string) string {
	if len(seq) < 2 || seq[0] != '\\' {
		return seq
	}
	switch seq[1] {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case '0':
		if len(seq) == 2 {
			return "\x00"
		}
	case '\n':
		return ""
	case 'x', 'u':
		if s, err := strconv.Unquote(`"` + braceless(seq) + `"`); err == nil {
			return s
		}
		return seq
	}
	r, _ := utf8.DecodeRuneInString(seq[1:])
	return string(r)
}

// braceless rewrites \u{XXXX} into \UXXXXXXXX for strconv.
func braceless(seq string) string {
	if !strings.HasPrefix(seq, `\u{`) || !strings.HasSuffix(seq, "}") {
		return seq
	}
	hex := seq[3 : len(seq)-1]
	if len(hex) > 8 {
		return seq
	}
	return `\U` + strings.Repeat("0", 8-len(hex)) + hex
}
