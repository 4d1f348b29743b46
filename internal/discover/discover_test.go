package discover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/DeusData/designer-mcp/internal/lang"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("app({}, () => {});\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	sort.Strings(out)
	return out
}

func TestDiscoverBasic(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"app.ts",
		"pages/images.js",
		"pages/form.tsx",
		"app.edited.ts",
		"types.d.ts",
		"main.go",
		"node_modules/tsyne/index.js",
		"generated/out.ts",
	)
	if err := os.WriteFile(filepath.Join(dir, IgnoreFile), []byte("# generated code\ngenerated\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	got := relPaths(files)
	want := []string{"app.ts", "pages/form.tsx", "pages/images.js"}
	if len(got) != len(want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("files = %v, want %v", got, want)
			break
		}
	}
	for _, f := range files {
		if f.RelPath == "pages/form.tsx" && f.Language != lang.TSX {
			t.Errorf("form.tsx language = %s", f.Language)
		}
		if !filepath.IsAbs(f.Path) {
			t.Errorf("path %s is not absolute", f.Path)
		}
	}
}

func TestDiscoverIncludeSiblings(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "app.ts", "app.edited.ts")

	files, err := Discover(context.Background(), dir, &Options{IncludeSiblings: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("files = %v", relPaths(files))
	}
}

func TestDiscoverSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "app.ts", "notes.txt")

	files, err := Discover(context.Background(), filepath.Join(dir, "app.ts"), nil)
	if err != nil || len(files) != 1 || files[0].RelPath != "app.ts" {
		t.Errorf("single file = %v, %v", files, err)
	}
	files, err = Discover(context.Background(), filepath.Join(dir, "notes.txt"), nil)
	if err != nil || len(files) != 0 {
		t.Errorf("unsupported single file = %v, %v", files, err)
	}
}

func TestDiscoverCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "app.ts")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Discover(ctx, dir, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
