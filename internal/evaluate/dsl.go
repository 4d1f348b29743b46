package evaluate

import (
	"strings"
	"unicode"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/designer-mcp/internal/lang"
	"github.com/DeusData/designer-mcp/internal/metadata"
	"github.com/DeusData/designer-mcp/internal/parser"
)

// WithIDMethod is the chained call that assigns a widget identifier.
const WithIDMethod = "withId"

// Link is one call chained onto a construction call, e.g. .withId('x').
type Link struct {
	Name string
	// Member is the member_expression whose object is the previous call.
	Member *tree_sitter.Node
	// Call is the call_expression invoking Member.
	Call *tree_sitter.Node
	Args []*tree_sitter.Node
}

// Call is a recognized widget-construction call and its chained calls.
type Call struct {
	Node   *tree_sitter.Node
	Kind   metadata.Kind
	Callee *tree_sitter.Node
	Args   []*tree_sitter.Node
	Chain  []Link
}

// End returns the byte offset just past the outermost chained call.
func (c *Call) End() uint {
	if len(c.Chain) == 0 {
		return c.Node.EndByte()
	}
	return c.Chain[len(c.Chain)-1].Call.EndByte()
}

// Links returns every chained call named name, in chain order.
func (c *Call) Links(name string) []Link {
	var out []Link
	for _, l := range c.Chain {
		if l.Name == name {
			out = append(out, l)
		}
	}
	return out
}

// Matcher recognizes construction calls in one parsed source.
type Matcher struct {
	spec   *lang.LanguageSpec
	source []byte
}

// NewMatcher returns a Matcher for source parsed with the grammar of l.
func NewMatcher(l lang.Language, source []byte) *Matcher {
	return &Matcher{spec: lang.ForLanguage(l), source: source}
}

// Match reports whether n is a construction call and collects its chain.
func (m *Matcher) Match(n *tree_sitter.Node) (*Call, bool) {
	if n == nil || !m.spec.IsCall(n.Kind()) {
		return nil, false
	}
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return nil, false
	}

	var callee *tree_sitter.Node
	var kind metadata.Kind
	var ok bool
	switch {
	case fn.Kind() == "identifier":
		callee = fn
		kind, ok = metadata.LookupKind(parser.NodeText(fn, m.source))
	case m.spec.IsMember(fn.Kind()):
		callee = fn.ChildByFieldName("property")
		if callee == nil {
			return nil, false
		}
		kind, ok = metadata.LookupKind(parser.NodeText(callee, m.source))
		if ok && kind.Root {
			ok = false
		}
	}
	if !ok {
		return nil, false
	}

	return &Call{
		Node:   n,
		Kind:   kind,
		Callee: callee,
		Args:   m.arguments(n),
		Chain:  m.chain(n),
	}, true
}

// Outermost walks down the function/object spine of a call chain starting
// at n and returns the construction call at its root, if any.
func (m *Matcher) Outermost(n *tree_sitter.Node) (*Call, bool) {
	cur := n
	for cur != nil && m.spec.IsCall(cur.Kind()) {
		if c, ok := m.Match(cur); ok {
			return c, true
		}
		fn := cur.ChildByFieldName("function")
		if fn == nil || !m.spec.IsMember(fn.Kind()) {
			return nil, false
		}
		cur = fn.ChildByFieldName("object")
	}
	return nil, false
}

// At returns the construction call whose callee name starts at offset.
func (m *Matcher) At(root *tree_sitter.Node, offset uint) (*Call, bool) {
	var found *Call
	parser.Walk(root, func(n *tree_sitter.Node) bool {
		if found != nil || n.EndByte() <= offset || n.StartByte() > offset {
			return false
		}
		if c, ok := m.Match(n); ok && c.Callee.StartByte() == offset {
			found = c
			return false
		}
		return true
	})
	return found, found != nil
}

// Signature identifies c by its callee and arguments. Function arguments
// are reduced to a placeholder so edits inside builders and handlers do not
// change it.
func (m *Matcher) Signature(c *Call) string {
	var b strings.Builder
	b.WriteString(parser.NodeText(c.Callee, m.source))
	b.WriteByte('(')
	for i, arg := range c.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		if m.spec.IsFunction(arg.Kind()) {
			b.WriteString("fn")
			continue
		}
		b.WriteString(parser.NodeText(arg, m.source))
	}
	b.WriteByte(')')
	return b.String()
}

func (m *Matcher) chain(n *tree_sitter.Node) []Link {
	var links []Link
	cur := n
	for {
		member := cur.Parent()
		if member == nil || !m.spec.IsMember(member.Kind()) {
			return links
		}
		obj := member.ChildByFieldName("object")
		if obj == nil || obj.Id() != cur.Id() {
			return links
		}
		call := member.Parent()
		if call == nil || !m.spec.IsCall(call.Kind()) {
			return links
		}
		fn := call.ChildByFieldName("function")
		if fn == nil || fn.Id() != member.Id() {
			return links
		}
		prop := member.ChildByFieldName("property")
		if prop == nil {
			return links
		}
		links = append(links, Link{
			Name:   parser.NodeText(prop, m.source),
			Member: member,
			Call:   call,
			Args:   m.arguments(call),
		})
		cur = call
	}
}

func (m *Matcher) arguments(call *tree_sitter.Node) []*tree_sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	return parser.NamedChildren(args)
}

var mouseHandlers = map[string]bool{
	"onMouseIn":    true,
	"onMouseOut":   true,
	"onMouseMoved": true,
	"onMouseDown":  true,
	"onMouseUp":    true,
}

// IsMouseHandler reports whether a chained method registers a mouse handler.
func IsMouseHandler(name string) bool { return mouseHandlers[name] }

// IsHandlerName reports whether name follows the onXxx callback convention.
func IsHandlerName(name string) bool {
	rest, ok := strings.CutPrefix(name, "on")
	if !ok || rest == "" {
		return false
	}
	r := []rune(rest)[0]
	return unicode.IsUpper(r)
}
