package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DeusData/designer-mcp/internal/config"
	"github.com/DeusData/designer-mcp/internal/journal"
	"github.com/DeusData/designer-mcp/internal/metadata"
	"github.com/DeusData/designer-mcp/internal/session"
	"github.com/DeusData/designer-mcp/internal/stacktrace"
	"github.com/DeusData/designer-mcp/internal/transform"
)

// cliOptions holds the flags shared by the subcommands.
type cliOptions struct {
	config     string
	events     string
	limit      int
	dryRun     bool
	positional []string
}

func parseFlags(args []string) (cliOptions, error) {
	opts := cliOptions{limit: 20}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "--dry-run":
			opts.dryRun = true
		case "--config", "--events", "--limit":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s needs a value", a)
			}
			i++
			switch a {
			case "--config":
				opts.config = args[i]
			case "--events":
				opts.events = args[i]
			default:
				n, err := strconv.Atoi(args[i])
				if err != nil || n <= 0 {
					return opts, fmt.Errorf("invalid --limit %q", args[i])
				}
				opts.limit = n
			}
		default:
			if strings.HasPrefix(a, "--") {
				return opts, fmt.Errorf("unknown flag %s", a)
			}
			opts.positional = append(opts.positional, a)
		}
	}
	return opts, nil
}

// loadConfig reads the explicit config file if given, else .designer.yaml
// from dir.
func loadConfig(explicit, dir string) (*config.Config, error) {
	if explicit != "" {
		return config.LoadFile(explicit)
	}
	return config.Load(dir), nil
}

// openJournal opens the configured journal, or returns nil when disabled.
func openJournal(cfg *config.Config) (*journal.Journal, error) {
	path := cfg.EffectiveJournal()
	if path == "" {
		return nil, nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("home dir: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	return journal.OpenPath(path)
}

// sessionOptions translates the configuration into session options.
func sessionOptions(cfg *config.Config) ([]session.Option, error) {
	t, err := transform.FromNames(cfg.Designer.Transformers)
	if err != nil {
		return nil, err
	}
	return []session.Option{
		session.WithQuoteStyle(cfg.EffectiveQuoteStyle()),
		session.WithTransformer(t),
		session.WithCorrelator(stacktrace.New(cfg.Designer.InternalPaths...), cfg.EffectiveSkipFrames()),
	}, nil
}

// newSession builds a session from cfg with its journal attached. The
// caller closes the journal if it is non-nil.
func newSession(cfg *config.Config) (*session.Session, *journal.Journal, error) {
	opts, err := sessionOptions(cfg)
	if err != nil {
		return nil, nil, err
	}
	j, err := openJournal(cfg)
	if err != nil {
		return nil, nil, err
	}
	if j != nil {
		opts = append(opts, session.WithJournal(j))
	}
	return session.New(opts...), j, nil
}

// resolveWidget finds a widget by internal id or current widget id and
// returns its internal id and widget id.
func resolveWidget(store *metadata.Store, ref string) (string, string, error) {
	if w, ok := store.Get(ref); ok {
		return ref, w.WidgetID, nil
	}
	if id, w, ok := store.FindByWidgetID(ref); ok {
		return id, w.WidgetID, nil
	}
	return "", "", fmt.Errorf("no widget %q", ref)
}
