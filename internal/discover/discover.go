package discover

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/DeusData/designer-mcp/internal/lang"
	"github.com/DeusData/designer-mcp/internal/patch"
)

// IgnoreFile lists extra directory patterns to skip, one per line.
const IgnoreFile = ".designerignore"

// ignoredDirs are directory names never walked.
var ignoredDirs = map[string]bool{
	".cache": true, ".git": true, ".hg": true, ".idea": true,
	".next": true, ".npm": true, ".nyc_output": true, ".pnpm-store": true,
	".svn": true, ".turbo": true, ".vscode": true, ".yarn": true,
	"bower_components": true, "build": true, "coverage": true,
	"dist": true, "node_modules": true, "out": true, "tmp": true,
	"vendor": true,
}

// ignoredSuffixes are file name endings that are never UI descriptions.
var ignoredSuffixes = []string{
	".d.ts", ".d.mts", ".d.cts", ".min.js", ".map",
}

// FileInfo represents a discovered UI description file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to the walked root, slash separated
	Language lang.Language // grammar used to parse it
}

// Options configures file discovery.
type Options struct {
	// IgnoreFile overrides <root>/.designerignore.
	IgnoreFile string
	// IncludeSiblings also returns *.edited.* files written by earlier saves.
	IncludeSiblings bool
}

func shouldSkipDir(name, rel string, extraIgnore []string) bool {
	if ignoredDirs[name] {
		return true
	}
	for _, pattern := range extraIgnore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func skipFile(name string, opts *Options) bool {
	for _, suffix := range ignoredSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	if (opts == nil || !opts.IncludeSiblings) && patch.IsSibling(name) {
		return true
	}
	return false
}

// Discover walks root and returns every TypeScript or JavaScript file that
// could hold a UI description. A root that is a single file is returned as
// is when its language is supported.
func Discover(ctx context.Context, root string, opts *Options) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		l, ok := lang.LanguageForPath(root)
		if !ok {
			return nil, nil
		}
		return []FileInfo{{Path: root, RelPath: filepath.Base(root), Language: l}}, nil
	}

	ignPath := filepath.Join(root, IgnoreFile)
	if opts != nil && opts.IgnoreFile != "" {
		ignPath = opts.IgnoreFile
	}
	extraIgnore, _ := loadIgnoreFile(ignPath)

	var files []FileInfo
	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(root, path)
		if info.IsDir() {
			if path != root && shouldSkipDir(info.Name(), rel, extraIgnore) {
				return filepath.SkipDir
			}
			return nil
		}
		if skipFile(info.Name(), opts) {
			return nil
		}

		if l, ok := lang.LanguageForPath(path); ok {
			files = append(files, FileInfo{
				Path:     path,
				RelPath:  filepath.ToSlash(rel),
				Language: l,
			})
		}
		return nil
	})

	return files, err
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
