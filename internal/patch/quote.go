package patch

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/designer-mcp/internal/lang"
	"github.com/DeusData/designer-mcp/internal/parser"
)

// QuoteStyle selects the quote character of inserted string literals.
type QuoteStyle string

const (
	QuoteSingle QuoteStyle = "single"
	QuoteDouble QuoteStyle = "double"
	// QuoteAuto follows the file's dominant style, single on a tie.
	QuoteAuto QuoteStyle = "auto"
)

// ParseQuoteStyle validates a configured quote style. Empty means auto.
func ParseQuoteStyle(s string) (QuoteStyle, error) {
	switch QuoteStyle(s) {
	case "", QuoteAuto:
		return QuoteAuto, nil
	case QuoteSingle, QuoteDouble:
		return QuoteStyle(s), nil
	}
	return "", fmt.Errorf("unknown quote style %q (want single, double or auto)", s)
}

func (q QuoteStyle) resolve(l lang.Language, source []byte) byte {
	switch q {
	case QuoteSingle:
		return '\''
	case QuoteDouble:
		return '"'
	}
	return DominantQuote(l, source)
}

// DominantQuote returns the quote character used by most string literals in
// source: '"' only when double quotes strictly outnumber single quotes.
func DominantQuote(l lang.Language, source []byte) byte {
	tree, err := parser.Parse(l, source)
	if err != nil {
		return '\''
	}
	defer tree.Close()

	var single, double int
	parser.Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() != "string" || n.EndByte() == n.StartByte() {
			return true
		}
		switch source[n.StartByte()] {
		case '\'':
			single++
		case '"':
			double++
		}
		return false
	})
	if double > single {
		return '"'
	}
	return '\''
}
