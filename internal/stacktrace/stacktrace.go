// Package stacktrace recovers the source position of a widget-construction
// call from a textual call-stack trace.
//
// This is the legacy correlation path used by external instrumented runners.
// The static evaluator takes positions straight from syntax-tree nodes and
// never goes through here.
package stacktrace

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/DeusData/designer-mcp/internal/metadata"
)

// DefaultInternalSegments are path fragments identifying frames inside the
// instrumentation boundary or vendored runtime code.
var DefaultInternalSegments = []string{
	"node_modules/",
	"/designer/server.",
	"/designer/src/",
	"/designer/dist/",
	"node:internal/",
	"internal/modules/",
}

// frameRe matches "at name (file:line:col)" and "at file:line:col".
// The file group is lazy so Windows drive letters ("C:\x.ts:1:2") survive.
var frameRe = regexp.MustCompile(`^\s*(?:at\s+)?(?:(?:async\s+)?(?:new\s+)?\S.*?\s+\()?([^()\s][^()]*?):(\d+):(\d+)\)?\s*$`)

// Frame is one parsed stack frame.
type Frame struct {
	File   string
	Line   int
	Column int
}

// Correlator maps traces to source locations.
type Correlator struct {
	// Internal lists path fragments whose frames are skipped.
	Internal []string
}

// New returns a Correlator skipping DefaultInternalSegments plus extra.
func New(extra ...string) *Correlator {
	internal := make([]string, 0, len(DefaultInternalSegments)+len(extra))
	internal = append(internal, DefaultInternalSegments...)
	internal = append(internal, extra...)
	return &Correlator{Internal: internal}
}

var defaultCorrelator = New()

// ParseStackTrace parses a newline-separated trace with the default
// internal-path set. See Correlator.Parse.
func ParseStackTrace(trace string, skipFrames int) (metadata.SourceLocation, bool) {
	return defaultCorrelator.Parse(trace, skipFrames)
}

// Parse skips the first skipFrames entries of trace (a header line such as
// "Error" counts as an entry) and returns the first remaining frame whose
// file is not internal.
func (c *Correlator) Parse(trace string, skipFrames int) (metadata.SourceLocation, bool) {
	trace = strings.ReplaceAll(trace, "\r\n", "\n")
	return c.ParseFrames(strings.Split(trace, "\n"), skipFrames)
}

// ParseFrames is Parse over pre-split entries.
func (c *Correlator) ParseFrames(entries []string, skipFrames int) (metadata.SourceLocation, bool) {
	if skipFrames < 0 {
		skipFrames = 0
	}
	for i := skipFrames; i < len(entries); i++ {
		f, ok := ParseFrame(entries[i])
		if !ok || c.isInternal(f.File) {
			continue
		}
		return metadata.SourceLocation{File: f.File, Line: f.Line, Column: f.Column}, true
	}
	return metadata.SourceLocation{}, false
}

// ParseFrame parses a single frame in either textual encoding.
func ParseFrame(entry string) (Frame, bool) {
	m := frameRe.FindStringSubmatch(entry)
	if m == nil {
		return Frame{}, false
	}
	line, err := strconv.Atoi(m[2])
	if err != nil || line <= 0 {
		return Frame{}, false
	}
	col, err := strconv.Atoi(m[3])
	if err != nil || col <= 0 {
		return Frame{}, false
	}
	file := strings.TrimPrefix(m[1], "file://")
	return Frame{File: file, Line: line, Column: col}, true
}

func (c *Correlator) isInternal(file string) bool {
	norm := filepath.ToSlash(strings.ReplaceAll(file, `\`, "/"))
	for _, seg := range c.Internal {
		if strings.Contains(norm, seg) {
			return true
		}
	}
	return false
}

// GetRelativePath returns path relative to baseDir when path lies under it,
// and the final path segment otherwise.
func GetRelativePath(path, baseDir string) string {
	norm := strings.ReplaceAll(path, `\`, "/")
	if baseDir != "" {
		base := strings.TrimRight(strings.ReplaceAll(baseDir, `\`, "/"), "/")
		if strings.HasPrefix(norm, base+"/") {
			return strings.TrimPrefix(norm, base+"/")
		}
	}
	if i := strings.LastIndex(norm, "/"); i >= 0 {
		return norm[i+1:]
	}
	return norm
}
