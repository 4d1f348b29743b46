package watcher

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/DeusData/designer-mcp/internal/discover"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// ChangeFunc receives the files added or modified since the previous poll.
type ChangeFunc func(ctx context.Context, changed []discover.FileInfo) error

// Watcher polls a tree of UI files and reports changed files.
type Watcher struct {
	root     string
	onChange ChangeFunc

	snapshot map[string]fileSnapshot
	files    map[string]discover.FileInfo
	interval time.Duration
	nextPoll time.Time
}

// New creates a Watcher for root, a directory or a single file.
func New(root string, onChange ChangeFunc) *Watcher {
	return &Watcher{root: root, onChange: onChange}
}

// Run blocks until ctx is cancelled. Ticks at baseInterval, polling only
// when the adaptive interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Now().Before(w.nextPoll) {
				continue
			}
			w.poll(ctx)
		}
	}
}

// poll captures a snapshot of the tree and compares it with the previous one.
// The first poll reports every file so callers can establish a baseline.
func (w *Watcher) poll(ctx context.Context) {
	if _, err := os.Stat(w.root); err != nil {
		slog.Warn("watcher.root_gone", "path", w.root)
		w.nextPoll = time.Now().Add(maxInterval)
		return
	}

	snap, files, err := captureSnapshot(ctx, w.root)
	if err != nil {
		slog.Warn("watcher.snapshot", "path", w.root, "err", err)
		w.nextPoll = time.Now().Add(w.interval)
		return
	}

	interval := pollInterval(len(snap))
	changed := changedFiles(w.snapshot, snap)
	if len(changed) == 0 {
		w.interval = interval
		w.nextPoll = time.Now().Add(interval)
		return
	}

	infos := make([]discover.FileInfo, 0, len(changed))
	for _, rel := range changed {
		infos = append(infos, files[rel])
	}
	slog.Info("watcher.changed", "path", w.root, "files", len(infos))
	if err := w.onChange(ctx, infos); err != nil {
		slog.Warn("watcher.callback", "path", w.root, "err", err)
		// Keep old snapshot so we retry next cycle
		w.nextPoll = time.Now().Add(interval)
		return
	}

	w.snapshot = snap
	w.files = files
	w.interval = interval
	w.nextPoll = time.Now().Add(interval)
}

// captureSnapshot walks the tree using discover.Discover and captures
// mtime+size for each file.
func captureSnapshot(ctx context.Context, root string) (map[string]fileSnapshot, map[string]discover.FileInfo, error) {
	found, err := discover.Discover(ctx, root, nil)
	if err != nil {
		return nil, nil, err
	}

	snap := make(map[string]fileSnapshot, len(found))
	files := make(map[string]discover.FileInfo, len(found))
	for _, f := range found {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.RelPath] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
		}
		files[f.RelPath] = f
	}
	return snap, files, nil
}

// changedFiles returns the sorted paths of b that are new or differ from a
// in mtime or size. Deleted files are not reported.
func changedFiles(a, b map[string]fileSnapshot) []string {
	var out []string
	for path, bSnap := range b {
		aSnap, ok := a[path]
		if !ok || !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// pollInterval computes the adaptive interval from file count.
// 1s base + 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}
