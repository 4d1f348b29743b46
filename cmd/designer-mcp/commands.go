package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/DeusData/designer-mcp/internal/config"
	"github.com/DeusData/designer-mcp/internal/discover"
	"github.com/DeusData/designer-mcp/internal/journal"
	"github.com/DeusData/designer-mcp/internal/metadata"
	"github.com/DeusData/designer-mcp/internal/session"
	"github.com/DeusData/designer-mcp/internal/watcher"
)

// fail prints err and returns the exit code for a runtime failure.
func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}

// loadFile parses flags for a command taking FILE plus want more positional
// arguments and loads FILE into a configured session.
func loadFile(ctx context.Context, args []string, want int, stderr io.Writer) (*session.Session, *journal.Journal, []string, int) {
	opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return nil, nil, nil, 2
	}
	if len(opts.positional) != want+1 {
		fmt.Fprintf(stderr, usage, version)
		return nil, nil, nil, 2
	}
	path := opts.positional[0]

	cfg, err := loadConfig(opts.config, filepath.Dir(path))
	if err != nil {
		return nil, nil, nil, fail(stderr, err)
	}
	sess, j, err := newSession(cfg)
	if err != nil {
		return nil, nil, nil, fail(stderr, err)
	}

	if opts.events != "" {
		f, openErr := os.Open(opts.events)
		if openErr != nil {
			closeJournal(j)
			return nil, nil, nil, fail(stderr, openErr)
		}
		_, err = sess.LoadEvents(ctx, path, f)
		f.Close()
	} else {
		_, err = sess.Load(ctx, path)
	}
	if err != nil {
		closeJournal(j)
		return nil, nil, nil, fail(stderr, err)
	}
	return sess, j, opts.positional[1:], 0
}

func closeJournal(j *journal.Journal) {
	if j != nil {
		j.Close()
	}
}

func runDump(args []string, stdout, stderr io.Writer) int {
	sess, j, _, code := loadFile(context.Background(), args, 0, stderr)
	if sess == nil {
		return code
	}
	defer closeJournal(j)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sess.Metadata()); err != nil {
		return fail(stderr, err)
	}
	return 0
}

// stage loads FILE and records the id change named by WIDGET and NEW_ID.
func stage(ctx context.Context, args []string, stderr io.Writer) (*session.Session, *journal.Journal, int) {
	sess, j, rest, code := loadFile(ctx, args, 2, stderr)
	if sess == nil {
		return nil, nil, code
	}
	id, current, err := resolveWidget(sess.Store(), rest[0])
	if err != nil {
		closeJournal(j)
		return nil, nil, fail(stderr, err)
	}
	if _, err := sess.UpdateWidgetID(id, current, rest[1]); err != nil {
		closeJournal(j)
		return nil, nil, fail(stderr, err)
	}
	return sess, j, 0
}

func runSetID(args []string, stdout, stderr io.Writer) int {
	ctx := context.Background()
	sess, j, code := stage(ctx, args, stderr)
	if sess == nil {
		return code
	}
	defer closeJournal(j)

	res, err := sess.Save(ctx)
	if err != nil {
		return fail(stderr, err)
	}
	for _, m := range res.Edits {
		fmt.Fprintf(stdout, "%s\n", m)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	fmt.Fprintf(stdout, "wrote %s\n", res.Path)
	return 0
}

func runDiff(args []string, stdout, stderr io.Writer) int {
	ctx := context.Background()
	sess, j, code := stage(ctx, args, stderr)
	if sess == nil {
		return code
	}
	defer closeJournal(j)

	d, err := sess.Diff(ctx)
	if err != nil {
		return fail(stderr, err)
	}
	printDiff(stdout, d)
	return 0
}

var (
	addColor    = color.New(color.FgGreen)
	delColor    = color.New(color.FgRed)
	hunkColor   = color.New(color.FgCyan)
	headerColor = color.New(color.Bold)
)

// printDiff writes a unified diff, colored when stdout is a terminal.
func printDiff(w io.Writer, diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			headerColor.Fprint(w, line)
		case strings.HasPrefix(line, "@@"):
			hunkColor.Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			addColor.Fprint(w, line)
		case strings.HasPrefix(line, "-"):
			delColor.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}

const markerID = "designerRoundtripMarker"

// fileCheck is the roundtrip outcome for one file.
type fileCheck struct {
	rel     string
	widgets int
	err     error
}

// checkFile verifies that a zero-edit save is the identity and that adding
// then removing a widget id restores the original bytes. Transformers are
// not applied.
func checkFile(ctx context.Context, cfg *config.Config, f discover.FileInfo) fileCheck {
	res := fileCheck{rel: f.RelPath}
	opts := []session.Option{session.WithQuoteStyle(cfg.EffectiveQuoteStyle())}

	src, err := os.ReadFile(f.Path)
	if err != nil {
		res.err = err
		return res
	}
	sess := session.New(opts...)
	n, err := sess.Load(ctx, f.Path)
	if err != nil {
		res.err = err
		return res
	}
	res.widgets = n

	out, err := sess.Render(ctx)
	if err != nil {
		res.err = fmt.Errorf("zero-edit render: %w", err)
		return res
	}
	if !bytes.Equal(out, src) {
		res.err = errors.New("zero-edit render differs from source")
		return res
	}

	index, target := -1, ""
	for i, id := range sess.Store().IDs() {
		if w, _ := sess.Store().Get(id); w.WidgetID == "" && w.WidgetType != metadata.App {
			index, target = i, id
			break
		}
	}
	if index < 0 {
		return res
	}
	if _, err := sess.UpdateWidgetID(target, "", markerID); err != nil {
		res.err = fmt.Errorf("marker add: %w", err)
		return res
	}
	added, err := sess.Render(ctx)
	if err != nil {
		res.err = fmt.Errorf("marker add: %w", err)
		return res
	}

	second := session.New(opts...)
	if _, err := second.LoadSource(ctx, f.Path, added); err != nil {
		res.err = fmt.Errorf("reload marker: %w", err)
		return res
	}
	ids := second.Store().IDs()
	if len(ids) != n {
		res.err = fmt.Errorf("reload marker: %d widgets, want %d", len(ids), n)
		return res
	}
	if _, err := second.UpdateWidgetID(ids[index], markerID, ""); err != nil {
		res.err = fmt.Errorf("marker remove: %w", err)
		return res
	}
	restored, err := second.Render(ctx)
	if err != nil {
		res.err = fmt.Errorf("marker remove: %w", err)
		return res
	}
	if !bytes.Equal(restored, src) {
		res.err = errors.New("add then remove did not restore the source")
	}
	return res
}

func runRoundtrip(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if len(opts.positional) != 1 {
		fmt.Fprintf(stderr, usage, version)
		return 2
	}
	root := opts.positional[0]

	cfg, err := loadConfig(opts.config, configDir(root))
	if err != nil {
		return fail(stderr, err)
	}

	ctx := context.Background()
	files, err := discover.Discover(ctx, root, nil)
	if err != nil {
		return fail(stderr, err)
	}

	if failed := verify(ctx, cfg, files, stdout); failed > 0 {
		return 1
	}
	return 0
}

// verify checks files concurrently and prints one line per file plus a
// summary. It returns the number of failed files.
func verify(ctx context.Context, cfg *config.Config, files []discover.FileInfo, stdout io.Writer) int {
	results := make([]fileCheck, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.EffectiveWorkers())
	for i, f := range files {
		g.Go(func() error {
			results[i] = checkFile(gctx, cfg, f)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(stdout, "%s %s: %v\n", delColor.Sprint("FAIL"), r.rel, r.err)
			continue
		}
		fmt.Fprintf(stdout, "%s   %s (%d widgets)\n", addColor.Sprint("ok"), r.rel, r.widgets)
	}
	fmt.Fprintf(stdout, "%d files, %d failed\n", len(results), failed)
	return failed
}

func runWatch(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if len(opts.positional) != 1 {
		fmt.Fprintf(stderr, usage, version)
		return 2
	}
	root := opts.positional[0]
	cfg, err := loadConfig(opts.config, configDir(root))
	if err != nil {
		return fail(stderr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := watcher.New(root, func(ctx context.Context, changed []discover.FileInfo) error {
		verify(ctx, cfg, changed, stdout)
		return nil
	})
	w.Run(ctx)
	return 0
}

// configDir returns the directory whose .designer.yaml applies to root.
func configDir(root string) string {
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return filepath.Dir(root)
	}
	return root
}

func runHistory(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if len(opts.positional) > 1 {
		fmt.Fprintf(stderr, usage, version)
		return 2
	}

	dir := "."
	if len(opts.positional) == 1 {
		dir = filepath.Dir(opts.positional[0])
	}
	cfg, err := loadConfig(opts.config, dir)
	if err != nil {
		return fail(stderr, err)
	}
	j, err := openJournal(cfg)
	if err != nil {
		return fail(stderr, err)
	}
	if j == nil {
		return fail(stderr, errors.New("no journal configured (designer.journal)"))
	}
	defer j.Close()

	var saves []*journal.Save
	if len(opts.positional) == 1 {
		path, absErr := filepath.Abs(opts.positional[0])
		if absErr != nil {
			return fail(stderr, absErr)
		}
		saves, err = j.ForSource(path)
	} else {
		saves, err = j.List(opts.limit)
	}
	if err != nil {
		return fail(stderr, err)
	}

	for _, s := range saves {
		target := s.SiblingPath
		if target == "" {
			target = "(in memory)"
		}
		headerColor.Fprintf(stdout, "#%d %s", s.ID, s.SavedAt)
		fmt.Fprintf(stdout, " %s -> %s [%s -> %s]\n", s.SourcePath, target, s.SourceDigest, s.OutputDigest)
		for _, m := range s.Edits {
			fmt.Fprintf(stdout, "  %s\n", m)
		}
	}
	return 0
}
