// Package patch materializes widget-identifier mutations as minimal text
// edits on the original source, leaving every other byte untouched.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/designer-mcp/internal/evaluate"
	"github.com/DeusData/designer-mcp/internal/lang"
	"github.com/DeusData/designer-mcp/internal/mutation"
	"github.com/DeusData/designer-mcp/internal/parser"
)

var (
	// ErrSourceMismatch reports a recorded call or fragment that is not
	// present in the source being patched.
	ErrSourceMismatch = errors.New("source mismatch")
	// ErrOverlap reports two edits whose spans intersect.
	ErrOverlap = errors.New("overlapping edits")
)

// Edit replaces source[Start:End] with Text.
type Edit struct {
	Start, End int
	Text       string
	Mutation   mutation.Mutation
}

// Options controls how new text is written.
type Options struct {
	Quote QuoteStyle
}

// Plan resolves each mutation to a text edit against the unmodified source.
func Plan(l lang.Language, source []byte, muts []mutation.Mutation, opts Options) ([]Edit, error) {
	if len(muts) == 0 {
		return nil, nil
	}
	tree, err := parser.Parse(l, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	p := &planner{
		source:  source,
		root:    tree.RootNode(),
		lines:   parser.NewLineIndex(source),
		matcher: evaluate.NewMatcher(l, source),
		quote:   opts.Quote.resolve(l, source),
	}
	edits := make([]Edit, 0, len(muts))
	for _, m := range muts {
		e, err := p.plan(m)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	return edits, nil
}

// Anchor returns copies of muts carrying the signature of each widget's
// construction call in source, the text the mutations were recorded
// against. Plan then rejects a call whose signature differs, so edits never
// land on a different widget after the file changed.
func Anchor(l lang.Language, source []byte, muts []mutation.Mutation) ([]mutation.Mutation, error) {
	if len(muts) == 0 {
		return nil, nil
	}
	tree, err := parser.Parse(l, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	p := &planner{
		source:  source,
		root:    tree.RootNode(),
		lines:   parser.NewLineIndex(source),
		matcher: evaluate.NewMatcher(l, source),
	}
	out := make([]mutation.Mutation, len(muts))
	for i, m := range muts {
		call, err := p.call(m)
		if err != nil {
			return nil, err
		}
		m.Call = p.matcher.Signature(call)
		out[i] = m
	}
	return out, nil
}

// Apply plans muts against source and returns the patched text.
func Apply(l lang.Language, source []byte, muts []mutation.Mutation, opts Options) ([]byte, error) {
	edits, err := Plan(l, source, muts, opts)
	if err != nil {
		return nil, err
	}
	return Splice(source, edits)
}

// Splice applies edits in descending offset order so no edit shifts the
// coordinates of another. Overlapping edits are rejected.
func Splice(source []byte, edits []Edit) ([]byte, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})
	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(source) {
			return nil, fmt.Errorf("%w: edit span %d-%d outside source", ErrSourceMismatch, e.Start, e.End)
		}
		if i > 0 {
			prev := sorted[i-1]
			if prev.End > e.Start || prev.Start == e.Start {
				return nil, fmt.Errorf("%w: %s and %s", ErrOverlap, prev.Mutation, e.Mutation)
			}
		}
	}

	out := bytes.Clone(source)
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		out = append(out[:e.Start], append([]byte(e.Text), out[e.End:]...)...)
	}
	return out, nil
}

type planner struct {
	source  []byte
	root    *tree_sitter.Node
	lines   *parser.LineIndex
	matcher *evaluate.Matcher
	quote   byte
}

// call finds the construction call at m's location and checks that it is
// the widget m was recorded for.
func (p *planner) call(m mutation.Mutation) (*evaluate.Call, error) {
	off, err := p.lines.Offset(m.Location.Line, m.Location.Column)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceMismatch, m, err)
	}
	call, ok := p.matcher.At(p.root, uint(off))
	if !ok {
		return nil, fmt.Errorf("%w: %s: no construction call at %d:%d", ErrSourceMismatch, m, m.Location.Line, m.Location.Column)
	}
	if m.WidgetType != "" && call.Kind.Type != m.WidgetType {
		return nil, fmt.Errorf("%w: %s: found %s, want %s", ErrSourceMismatch, m, call.Kind.Type, m.WidgetType)
	}
	if m.Call != "" {
		if sig := p.matcher.Signature(call); sig != m.Call {
			return nil, fmt.Errorf("%w: %s: found %s, want %s", ErrSourceMismatch, m, sig, m.Call)
		}
	}
	return call, nil
}

func (p *planner) plan(m mutation.Mutation) (Edit, error) {
	call, err := p.call(m)
	if err != nil {
		return Edit{}, err
	}

	switch m.Kind {
	case mutation.Add:
		if links := call.Links(evaluate.WithIDMethod); len(links) > 0 {
			return Edit{}, fmt.Errorf("%w: %s: call already has %s", ErrSourceMismatch, m, parser.NodeText(links[0].Call, p.source))
		}
		end := int(call.End())
		return Edit{Start: end, End: end, Text: p.withID(m.New), Mutation: m}, nil

	case mutation.Rename:
		lit, err := p.literal(call, m)
		if err != nil {
			return Edit{}, err
		}
		return Edit{Start: int(lit.StartByte()) + 1, End: int(lit.EndByte()) - 1, Text: m.New, Mutation: m}, nil

	case mutation.Remove:
		if _, err := p.literal(call, m); err != nil {
			return Edit{}, err
		}
		link := p.lastWithID(call)
		start := int(call.Node.EndByte())
		if recv := link.Member.ChildByFieldName("object"); recv != nil {
			start = int(recv.EndByte())
		}
		if dot := accessor(link.Member); dot != nil {
			gap := string(p.source[start:dot.StartByte()])
			if strings.Contains(gap, "//") || strings.Contains(gap, "/*") {
				start = int(dot.StartByte())
			}
		}
		return Edit{Start: start, End: int(link.Call.EndByte()), Mutation: m}, nil
	}
	return Edit{}, fmt.Errorf("unknown mutation kind %q", m.Kind)
}

// literal returns the string argument of the last withId call on call,
// verifying that it holds the expected old value.
func (p *planner) literal(call *evaluate.Call, m mutation.Mutation) (*tree_sitter.Node, error) {
	link := p.lastWithID(call)
	if link == nil {
		return nil, fmt.Errorf("%w: %s: no %s call", ErrSourceMismatch, m, evaluate.WithIDMethod)
	}
	if len(link.Args) != 1 || link.Args[0].Kind() != "string" {
		return nil, fmt.Errorf("%w: %s: %s is not a string literal", ErrSourceMismatch, m, parser.NodeText(link.Call, p.source))
	}
	lit := link.Args[0]
	if got := evaluate.StringValue(lit, p.source); got != m.Old {
		return nil, fmt.Errorf("%w: %s: found %q", ErrSourceMismatch, m, got)
	}
	return lit, nil
}

func (p *planner) lastWithID(call *evaluate.Call) *evaluate.Link {
	links := call.Links(evaluate.WithIDMethod)
	if len(links) == 0 {
		return nil
	}
	return &links[len(links)-1]
}

func (p *planner) withID(name string) string {
	q := string(p.quote)
	return "." + evaluate.WithIDMethod + "(" + q + name + q + ")"
}

// accessor returns the "." or "?." token of a member expression.
func accessor(member *tree_sitter.Node) *tree_sitter.Node {
	for i := uint(0); i < member.ChildCount(); i++ {
		c := member.Child(i)
		if c == nil {
			continue
		}
		if k := c.Kind(); k == "." || k == "?." || k == "optional_chain" {
			return c
		}
	}
	return nil
}
