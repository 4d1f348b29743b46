// Package session ties one loaded source file to its metadata store, its
// identifier edits and the save that materializes them.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/DeusData/designer-mcp/internal/capture"
	"github.com/DeusData/designer-mcp/internal/evaluate"
	"github.com/DeusData/designer-mcp/internal/journal"
	"github.com/DeusData/designer-mcp/internal/lang"
	"github.com/DeusData/designer-mcp/internal/metadata"
	"github.com/DeusData/designer-mcp/internal/mutation"
	"github.com/DeusData/designer-mcp/internal/patch"
	"github.com/DeusData/designer-mcp/internal/stacktrace"
	"github.com/DeusData/designer-mcp/internal/transform"
)

var (
	// ErrLoad reports a source file that could not be loaded.
	ErrLoad = errors.New("load failed")
	// ErrNotLoaded reports an operation that needs a loaded file.
	ErrNotLoaded = errors.New("no file loaded")
)

// State is the lifecycle state of a session.
type State int

const (
	Unloaded State = iota
	Loaded
	Dirty
	Saved
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Dirty:
		return "dirty"
	case Saved:
		return "saved"
	}
	return "unloaded"
}

// Option configures a Session.
type Option func(*Session)

// WithQuoteStyle sets the quote style of inserted widget ids.
func WithQuoteStyle(q patch.QuoteStyle) Option {
	return func(s *Session) { s.quote = q }
}

// WithTransformer sets the post-patch transformer.
func WithTransformer(t transform.Transformer) Option {
	return func(s *Session) { s.transformer = t }
}

// WithJournal records every save in j.
func WithJournal(j *journal.Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithCorrelator sets the stack correlator used by LoadEvents.
func WithCorrelator(c *stacktrace.Correlator, skipFrames int) Option {
	return func(s *Session) {
		s.correlator = c
		s.skipFrames = skipFrames
	}
}

// Session holds at most one loaded file. It is not safe for concurrent use.
type Session struct {
	id          string
	ids         capture.IDAllocator
	quote       patch.QuoteStyle
	transformer transform.Transformer
	journal     *journal.Journal
	correlator  *stacktrace.Correlator
	skipFrames  int

	state  State
	path   string
	memory bool
	lang   lang.Language
	source []byte
	digest string
	store  *metadata.Store
	engine *mutation.Engine
}

// New returns an empty session.
func New(opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		quote:       patch.QuoteAuto,
		transformer: transform.NoOp{},
		correlator:  stacktrace.New(),
		store:       metadata.NewStore(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SaveResult describes a completed save.
type SaveResult struct {
	// Path is the sibling written, empty for in-memory sources.
	Path string `json:"path,omitempty"`
	// Content is the saved text for in-memory sources.
	Content   string              `json:"content,omitempty"`
	Edits     []mutation.Mutation `json:"edits"`
	Warnings  []string            `json:"warnings,omitempty"`
	Drift     bool                `json:"drift,omitempty"`
	JournalID int64               `json:"journalId,omitempty"`
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Path returns the loaded file path or in-memory name.
func (s *Session) Path() string { return s.path }

// Store returns the live metadata store of the current load.
func (s *Session) Store() *metadata.Store { return s.store }

// Metadata returns a snapshot of the current metadata.
func (s *Session) Metadata() metadata.Snapshot { return s.store.ToJSON() }

// History returns every identifier edit since the last load.
func (s *Session) History() []mutation.Mutation {
	if s.engine == nil {
		return nil
	}
	return s.engine.History()
}

// Pending returns the net edits the next save will apply.
func (s *Session) Pending() []mutation.Mutation {
	if s.engine == nil {
		return nil
	}
	return s.engine.Net()
}

// SiblingPath returns the file the next save writes, or "" for in-memory
// sources.
func (s *Session) SiblingPath() string {
	if s.memory || s.path == "" {
		return ""
	}
	return patch.SiblingPath(s.path)
}

// Load reads and evaluates the file at path, replacing any previous load.
// It returns the number of widgets recorded.
func (s *Session) Load(ctx context.Context, path string) (int, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		s.reset()
		return 0, fmt.Errorf("%w: read source: %w", ErrLoad, err)
	}
	return s.load(ctx, path, src, false)
}

// LoadSource evaluates src as if it were the file name. Saves return the
// patched text instead of writing it.
func (s *Session) LoadSource(ctx context.Context, name string, src []byte) (int, error) {
	return s.load(ctx, name, bytes.Clone(src), true)
}

func (s *Session) load(ctx context.Context, path string, src []byte, memory bool) (int, error) {
	l, ok := lang.LanguageForPath(path)
	if !ok {
		s.reset()
		return 0, fmt.Errorf("%w: %s: unsupported file type %q", ErrLoad, path, filepath.Ext(path))
	}

	store := metadata.NewStore()
	rec := capture.NewRecorder(store, &s.ids)
	n, err := evaluate.Run(ctx, l, path, src, rec)
	if err != nil {
		s.reset()
		return 0, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if err := s.commit(path, l, src, memory, store); err != nil {
		return 0, err
	}
	return n, nil
}

// LoadEvents builds the metadata from an event stream produced by an
// external execution layer that ran the file at path. The file itself is
// read so it can be patched on save.
func (s *Session) LoadEvents(ctx context.Context, path string, events io.Reader) (int, error) {
	l, ok := lang.LanguageForPath(path)
	if !ok {
		s.reset()
		return 0, fmt.Errorf("%w: %s: unsupported file type %q", ErrLoad, path, filepath.Ext(path))
	}
	src, err := os.ReadFile(path)
	if err != nil {
		s.reset()
		return 0, fmt.Errorf("%w: read source: %w", ErrLoad, err)
	}
	evs, err := capture.ReadEvents(events)
	if err != nil {
		s.reset()
		return 0, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	store := metadata.NewStore()
	rec := capture.NewRecorder(store, &s.ids,
		capture.WithCorrelator(s.correlator, s.skipFrames),
		capture.WithSource(src))
	if err := rec.Replay(ctx, evs); err != nil {
		s.reset()
		return 0, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if err := s.commit(path, l, src, false, store); err != nil {
		return 0, err
	}
	return store.Len(), nil
}

func (s *Session) commit(path string, l lang.Language, src []byte, memory bool, store *metadata.Store) error {
	if err := store.Validate(); err != nil {
		s.reset()
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	s.state = Loaded
	s.path = path
	s.memory = memory
	s.lang = l
	s.source = src
	s.digest = journal.Digest(src)
	s.store = store
	s.engine = mutation.New(store)
	slog.Info("session.load", "path", path, "widgets", store.Len(), "memory", memory)
	return nil
}

func (s *Session) reset() {
	s.state = Unloaded
	s.path = ""
	s.memory = false
	s.source = nil
	s.digest = ""
	s.store = metadata.NewStore()
	s.engine = nil
}

// UpdateWidgetID changes the widget id of internalID from previous to next;
// "" stands for none.
func (s *Session) UpdateWidgetID(internalID, previous, next string) (mutation.Mutation, error) {
	if s.state == Unloaded {
		return mutation.Mutation{}, ErrNotLoaded
	}
	m, changed, err := s.engine.UpdateWidgetID(internalID, previous, next)
	if err != nil {
		return mutation.Mutation{}, err
	}
	if changed {
		s.state = Dirty
		slog.Info("session.update", "widget", internalID, "kind", m.Kind, "old", previous, "new", next)
	}
	return m, nil
}

type rendered struct {
	base     []byte
	output   []byte
	edits    []mutation.Mutation
	warnings []string
	drift    bool
}

// render patches the current on-disk text (or the in-memory source) with
// the net edits and runs the transformer.
func (s *Session) render(ctx context.Context) (*rendered, error) {
	if s.state == Unloaded {
		return nil, ErrNotLoaded
	}
	r := &rendered{base: s.source, edits: s.engine.Net()}
	if !s.memory {
		cur, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("re-read source: %w", err)
		}
		if journal.Digest(cur) != s.digest {
			slog.Warn("session.drift", "path", s.path)
			anchored, err := patch.Anchor(s.lang, s.source, r.edits)
			if err != nil {
				return nil, err
			}
			r.base, r.edits, r.drift = cur, anchored, true
		}
	}

	out, err := patch.Apply(s.lang, r.base, r.edits, patch.Options{Quote: s.quote})
	if err != nil {
		return nil, err
	}
	res, err := s.transformer.Transform(ctx, transform.Context{
		Original:  r.base,
		Candidate: out,
		Path:      s.path,
		Metadata:  s.store.ToJSON(),
		Edits:     r.edits,
	})
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	r.output = res.Source
	r.warnings = res.Warnings
	return r, nil
}

// Render returns the text the next save would produce, without writing.
func (s *Session) Render(ctx context.Context) ([]byte, error) {
	r, err := s.render(ctx)
	if err != nil {
		return nil, err
	}
	return r.output, nil
}

// Save writes the patched text to the sibling file, or returns it for
// in-memory sources. On failure the state and pending edits are unchanged
// and any previous sibling is left as it was.
func (s *Session) Save(ctx context.Context) (*SaveResult, error) {
	r, err := s.render(ctx)
	if err != nil {
		return nil, err
	}
	res := &SaveResult{Edits: r.edits, Warnings: r.warnings, Drift: r.drift}

	if s.memory {
		res.Content = string(r.output)
	} else {
		target := patch.SiblingPath(s.path)
		info, err := os.Stat(s.path)
		if err != nil {
			return nil, fmt.Errorf("%w: stat source: %v", patch.ErrWrite, err)
		}
		if err := patch.WriteAtomic(target, r.output, info.Mode()); err != nil {
			return nil, err
		}
		res.Path = target
		if target == s.path {
			s.rebase(ctx, r.output)
		}
	}

	if s.journal != nil {
		id, err := s.journal.Record(&journal.Save{
			Session:      s.id,
			SourcePath:   s.path,
			SiblingPath:  res.Path,
			SourceDigest: journal.Digest(r.base),
			OutputDigest: journal.Digest(r.output),
			Edits:        r.edits,
		})
		if err != nil {
			slog.Warn("session.journal.err", "err", err)
		} else {
			res.JournalID = id
		}
	}

	s.state = Saved
	slog.Info("session.save", "path", s.path, "target", res.Path, "edits", len(r.edits), "drift", r.drift)
	return res, nil
}

// rebase makes freshly written text the new baseline after the loaded file
// was overwritten in place. Widget positions are refreshed from a new
// evaluation so later edits resolve against the written text.
func (s *Session) rebase(ctx context.Context, written []byte) {
	fresh := metadata.NewStore()
	var ids capture.IDAllocator
	if _, err := evaluate.Run(ctx, s.lang, s.path, written, capture.NewRecorder(fresh, &ids)); err != nil {
		slog.Warn("session.rebase.err", "path", s.path, "err", err)
		return
	}
	cur := s.store.All()
	next := fresh.All()
	if len(cur) != len(next) {
		slog.Warn("session.rebase.count", "path", s.path, "before", len(cur), "after", len(next))
		return
	}
	for i, w := range cur {
		if w.WidgetType != next[i].WidgetType || w.WidgetID != next[i].WidgetID {
			slog.Warn("session.rebase.mismatch", "path", s.path, "index", i)
			return
		}
	}
	for i, w := range cur {
		w.SourceLocation = next[i].SourceLocation
	}
	s.source = written
	s.digest = journal.Digest(written)
	s.engine.Rebase()
}
