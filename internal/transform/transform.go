// Package transform post-processes patched source text before it is written.
// The default NoOp keeps the patcher's byte-for-byte guarantees; the other
// transformers are opt-in through configuration.
package transform

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/DeusData/designer-mcp/internal/metadata"
	"github.com/DeusData/designer-mcp/internal/mutation"
)

// Context is the input of a transformation.
type Context struct {
	// Original is the text as loaded.
	Original []byte
	// Candidate is the patched text produced so far.
	Candidate []byte
	Path      string
	Metadata  metadata.Snapshot
	Edits     []mutation.Mutation
}

// Result is the output of a transformation.
type Result struct {
	Source      []byte
	Warnings    []string
	Transformed bool
}

// Transformer rewrites a candidate source.
type Transformer interface {
	Name() string
	Transform(ctx context.Context, in Context) (Result, error)
}

// NoOp returns the candidate unchanged.
type NoOp struct{}

func (NoOp) Name() string { return "noop" }

func (NoOp) Transform(_ context.Context, in Context) (Result, error) {
	return Result{Source: in.Candidate}, nil
}

// Composite runs transformers in order, feeding each the previous output.
type Composite []Transformer

func (c Composite) Name() string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.Name()
	}
	return strings.Join(names, "+")
}

func (c Composite) Transform(ctx context.Context, in Context) (Result, error) {
	out := Result{Source: in.Candidate}
	for _, t := range c {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		in.Candidate = out.Source
		r, err := t.Transform(ctx, in)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", t.Name(), err)
		}
		out.Source = r.Source
		out.Warnings = append(out.Warnings, r.Warnings...)
		out.Transformed = out.Transformed || r.Transformed
	}
	return out, nil
}

var registry = map[string]func() Transformer{
	"noop":                  func() Transformer { return NoOp{} },
	"whitespace_normalizer": func() Transformer { return WhitespaceNormalizer{} },
	"comment_preserver":     func() Transformer { return CommentPreserver{} },
	"edit_banner":           func() Transformer { return EditBanner{} },
}

// Names lists the registered transformer names.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// FromNames builds the pipeline for a configured name list. An empty list
// yields NoOp.
func FromNames(names []string) (Transformer, error) {
	if len(names) == 0 {
		return NoOp{}, nil
	}
	c := make(Composite, 0, len(names))
	for _, n := range names {
		mk, ok := registry[n]
		if !ok {
			return nil, fmt.Errorf("unknown transformer %q (known: %s)", n, strings.Join(Names(), ", "))
		}
		c = append(c, mk())
	}
	if len(c) == 1 {
		return c[0], nil
	}
	return c, nil
}

// lineEnding returns "\r\n" if src uses CRLF line endings, else "\n".
func lineEnding(src []byte) string {
	if i := strings.IndexByte(string(src), '\n'); i > 0 && src[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
