package transform

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/designer-mcp/internal/lang"
	"github.com/DeusData/designer-mcp/internal/parser"
)

// BannerPrefix starts the line EditBanner writes.
const BannerPrefix = "// Modified by designer:"

var bannerRe = regexp.MustCompile(`^// Modified by designer: \d+ edits? applied\r?\n`)

// EditBanner prepends a comment line counting the applied edits. An
// existing banner is replaced rather than stacked.
type EditBanner struct{}

func (EditBanner) Name() string { return "edit_banner" }

func (EditBanner) Transform(_ context.Context, in Context) (Result, error) {
	if len(in.Edits) == 0 {
		return Result{Source: in.Candidate}, nil
	}
	noun := "edits"
	if len(in.Edits) == 1 {
		noun = "edit"
	}
	banner := fmt.Sprintf("%s %d %s applied%s", BannerPrefix, len(in.Edits), noun, lineEnding(in.Candidate))

	src := in.Candidate
	var head []byte
	if bytes.HasPrefix(src, []byte("#!")) {
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			head, src = src[:i+1], src[i+1:]
		}
	}
	if loc := bannerRe.FindIndex(src); loc != nil {
		src = src[loc[1]:]
	}

	out := make([]byte, 0, len(in.Candidate)+len(banner))
	out = append(out, head...)
	out = append(out, banner...)
	out = append(out, src...)
	return Result{Source: out, Transformed: true}, nil
}

// CommentPreserver restores trailing // comments of the original that the
// candidate no longer contains, appending each to the candidate line with
// the same code. Comments it cannot place are reported as warnings.
type CommentPreserver struct{}

func (CommentPreserver) Name() string { return "comment_preserver" }

func (CommentPreserver) Transform(_ context.Context, in Context) (Result, error) {
	l, ok := lang.LanguageForPath(in.Path)
	if !ok {
		return Result{Source: in.Candidate}, nil
	}
	comments, err := trailingComments(l, in.Original)
	if err != nil {
		return Result{}, err
	}

	lines := strings.SplitAfter(string(in.Candidate), "\n")
	var res Result
	for _, c := range comments {
		if strings.Contains(string(in.Candidate), c.text) {
			continue
		}
		placed := false
		for i, line := range lines {
			body, eol := splitEOL(line)
			if strings.TrimSpace(body) == c.code {
				lines[i] = body + c.gap + c.text + eol
				placed = true
				break
			}
		}
		if placed {
			res.Transformed = true
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf("comment %q from line %d could not be restored", c.text, c.line))
		}
	}
	res.Source = []byte(strings.Join(lines, ""))
	return res, nil
}

type trailingComment struct {
	line int
	code string
	gap  string
	text string
}

// trailingComments returns the // comments that follow code on their line.
func trailingComments(l lang.Language, src []byte) ([]trailingComment, error) {
	tree, err := parser.Parse(l, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []trailingComment
	parser.Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() != "comment" {
			return true
		}
		text := parser.NodeText(n, src)
		if !strings.HasPrefix(text, "//") {
			return false
		}
		start := int(n.StartByte())
		lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
		before := string(src[lineStart:start])
		code := strings.TrimSpace(before)
		if code == "" {
			return false
		}
		out = append(out, trailingComment{
			line: int(n.StartPosition().Row) + 1,
			code: code,
			gap:  before[len(strings.TrimRight(before, " \t")):],
			text: text,
		})
		return false
	})
	return out, nil
}

func splitEOL(line string) (body, eol string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

// WhitespaceNormalizer re-indents the candidate to the original's indent
// unit when the two differ.
type WhitespaceNormalizer struct{}

func (WhitespaceNormalizer) Name() string { return "whitespace_normalizer" }

func (WhitespaceNormalizer) Transform(_ context.Context, in Context) (Result, error) {
	want := indentUnit(in.Original)
	have := indentUnit(in.Candidate)
	if want == "" || have == "" || want == have {
		return Result{Source: in.Candidate}, nil
	}

	lines := strings.SplitAfter(string(in.Candidate), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		lead := line[:len(line)-len(trimmed)]
		if lead == "" || strings.TrimSpace(trimmed) == "" {
			continue
		}
		levels := len(lead) / len(have)
		rest := lead[levels*len(have):]
		lines[i] = strings.Repeat(want, levels) + rest + trimmed
	}
	return Result{Source: []byte(strings.Join(lines, "")), Transformed: true}, nil
}

// indentUnit guesses the indentation unit of src: a tab, or the smallest
// non-zero run of leading spaces.
func indentUnit(src []byte) string {
	tabs, spaces, smallest := 0, 0, 0
	for _, line := range strings.Split(string(src), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "\t"):
			tabs++
		case strings.HasPrefix(line, " "):
			spaces++
			n := len(line) - len(strings.TrimLeft(line, " "))
			if smallest == 0 || n < smallest {
				smallest = n
			}
		}
	}
	switch {
	case tabs == 0 && spaces == 0:
		return ""
	case tabs >= spaces:
		return "\t"
	}
	return strings.Repeat(" ", smallest)
}
