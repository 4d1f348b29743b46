package session

import (
	"context"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff between the current source and the text the
// next save would produce. It is empty when nothing would change.
func (s *Session) Diff(ctx context.Context) (string, error) {
	r, err := s.render(ctx)
	if err != nil {
		return "", err
	}
	to := s.SiblingPath()
	if to == "" {
		to = s.path + " (edited)"
	}
	return UnifiedDiff(s.path, to, r.base, r.output)
}

// UnifiedDiff renders a three-line-context unified diff of a and b.
func UnifiedDiff(fromFile, toFile string, a, b []byte) (string, error) {
	if string(a) == string(b) {
		return "", nil
	}
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}
	return out, nil
}
