package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DeusData/designer-mcp/internal/discover"
)

func TestChangedFiles(t *testing.T) {
	now := time.Now()

	a := map[string]fileSnapshot{
		"app.ts":    {modTime: now, size: 100},
		"images.ts": {modTime: now, size: 200},
	}
	tests := []struct {
		name string
		b    map[string]fileSnapshot
		want []string
	}{
		{"identical", map[string]fileSnapshot{
			"app.ts":    {modTime: now, size: 100},
			"images.ts": {modTime: now, size: 200},
		}, nil},
		{"size", map[string]fileSnapshot{
			"app.ts":    {modTime: now, size: 101},
			"images.ts": {modTime: now, size: 200},
		}, []string{"app.ts"}},
		{"mtime", map[string]fileSnapshot{
			"app.ts":    {modTime: now, size: 100},
			"images.ts": {modTime: now.Add(time.Second), size: 200},
		}, []string{"images.ts"}},
		{"deleted is not reported", map[string]fileSnapshot{
			"app.ts": {modTime: now, size: 100},
		}, nil},
		{"new file", map[string]fileSnapshot{
			"app.ts":    {modTime: now, size: 100},
			"images.ts": {modTime: now, size: 200},
			"form.tsx":  {modTime: now, size: 50},
		}, []string{"form.tsx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := changedFiles(a, tt.b)
			if len(got) != len(tt.want) {
				t.Fatalf("changedFiles = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("changedFiles = %v, want %v", got, tt.want)
				}
			}
		})
	}

	if got := changedFiles(nil, a); len(got) != 2 || got[0] != "app.ts" {
		t.Errorf("baseline = %v, want every file sorted", got)
	}
}

func TestPollInterval(t *testing.T) {
	tests := []struct {
		files    int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{70, 1 * time.Second},
		{499, 1 * time.Second},
		{500, 2 * time.Second},
		{2000, 5 * time.Second},
		{5000, 11 * time.Second},
		{10000, 21 * time.Second},
		{50000, 60 * time.Second},
		{100000, 60 * time.Second},
	}
	for _, tt := range tests {
		got := pollInterval(tt.files)
		if got != tt.expected {
			t.Errorf("pollInterval(%d) = %v, want %v", tt.files, got, tt.expected)
		}
	}
}

func TestCaptureSnapshot(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "app.ts"), []byte("app({}, () => {});\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "README.md"), []byte("# app\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	snap, files, err := captureSnapshot(context.Background(), tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap) != 1 {
		t.Fatalf("expected 1 file, got %d", len(snap))
	}
	s, ok := snap["app.ts"]
	if !ok {
		t.Fatal("expected app.ts in snapshot")
	}
	if s.size == 0 || s.modTime.IsZero() {
		t.Errorf("snapshot = %+v", s)
	}
	if files["app.ts"].Path != filepath.Join(tmpDir, "app.ts") {
		t.Errorf("file info = %+v", files["app.ts"])
	}
}

// recorder collects the batches passed to a ChangeFunc.
type recorder struct {
	batches [][]string
	err     error
}

func (r *recorder) onChange(_ context.Context, changed []discover.FileInfo) error {
	var rels []string
	for _, f := range changed {
		rels = append(rels, f.RelPath)
	}
	r.batches = append(r.batches, rels)
	return r.err
}

func TestWatcherReportsChanges(t *testing.T) {
	tmpDir := t.TempDir()
	appFile := filepath.Join(tmpDir, "app.ts")
	if err := os.WriteFile(appFile, []byte("app({}, () => {});\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := New(tmpDir, rec.onChange)
	ctx := context.Background()

	// First poll reports the baseline
	w.poll(ctx)
	if len(rec.batches) != 1 || len(rec.batches[0]) != 1 {
		t.Fatalf("baseline batches = %v", rec.batches)
	}

	w.poll(ctx)
	if len(rec.batches) != 1 {
		t.Errorf("no-change poll reported %v", rec.batches[1:])
	}

	now := time.Now().Add(time.Second)
	if err := os.Chtimes(appFile, now, now); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "form.tsx"), []byte("app({}, () => {});\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	w.poll(ctx)
	if len(rec.batches) != 2 {
		t.Fatalf("batches = %v", rec.batches)
	}
	if got := rec.batches[1]; len(got) != 2 || got[0] != "app.ts" || got[1] != "form.tsx" {
		t.Errorf("changed = %v", got)
	}
}

func TestWatcherRetriesFailedCallback(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "app.ts"), []byte("app({}, () => {});\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{err: errors.New("busy")}
	w := New(tmpDir, rec.onChange)
	ctx := context.Background()

	w.poll(ctx)
	rec.err = nil
	w.poll(ctx)
	if len(rec.batches) != 2 || len(rec.batches[1]) != 1 {
		t.Errorf("failed batch not retried: %v", rec.batches)
	}
}

func TestWatcherCancellation(t *testing.T) {
	w := New(t.TempDir(), func(context.Context, []discover.FileInfo) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}

func TestWatcherSkipsMissingRoot(t *testing.T) {
	rec := &recorder{}
	w := New("/nonexistent/path", rec.onChange)

	w.poll(context.Background())
	if len(rec.batches) != 0 {
		t.Errorf("should not report a missing root, got %v", rec.batches)
	}
	if w.nextPoll.Before(time.Now().Add(maxInterval - time.Second)) {
		t.Error("missing root should back off to maxInterval")
	}
}
