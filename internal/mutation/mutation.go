// Package mutation records widget-identifier edits against a loaded metadata
// store and folds them into the net edits the patcher materializes.
package mutation

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/DeusData/designer-mcp/internal/metadata"
)

var (
	// ErrStateMismatch reports a previous widget id that does not match the
	// stored one, typically an edit computed against a stale snapshot.
	ErrStateMismatch = errors.New("widget id state mismatch")
	// ErrUnknownWidget reports an internal id that is not in the store.
	ErrUnknownWidget = errors.New("unknown widget")
	// ErrDuplicateWidgetID reports a widget id already held by another widget.
	ErrDuplicateWidgetID = errors.New("duplicate widget id")
	// ErrInvalidWidgetID reports a widget id that cannot be written as a
	// plain string literal.
	ErrInvalidWidgetID = errors.New("invalid widget id")
)

// Kind classifies a mutation.
type Kind string

const (
	Add    Kind = "add"
	Rename Kind = "rename"
	Remove Kind = "remove"
)

// Mutation is one recorded identifier edit. Location is the construction
// call of the widget at load time. Call, when set, is the signature of that
// call in the load-time text.
type Mutation struct {
	Kind       Kind                    `json:"kind"`
	Widget     string                  `json:"widget"`
	WidgetType metadata.WidgetType     `json:"widgetType,omitempty"`
	Location   metadata.SourceLocation `json:"location"`
	Call       string                  `json:"call,omitempty"`
	Old        string                  `json:"old,omitempty"`
	New        string                  `json:"new,omitempty"`
}

func (m Mutation) String() string {
	switch m.Kind {
	case Add:
		return fmt.Sprintf("add %q to %s at %s", m.New, m.Widget, m.Location)
	case Rename:
		return fmt.Sprintf("rename %q -> %q on %s at %s", m.Old, m.New, m.Widget, m.Location)
	default:
		return fmt.Sprintf("remove %q from %s at %s", m.Old, m.Widget, m.Location)
	}
}

// Engine applies identifier edits to one store and keeps their history.
// It is not safe for concurrent use; the session serializes access.
type Engine struct {
	store     *metadata.Store
	log       []Mutation
	originals map[string]string
	order     []string
}

// New returns an Engine editing store.
func New(store *metadata.Store) *Engine {
	return &Engine{store: store, originals: make(map[string]string)}
}

// ValidateWidgetID reports whether id can be written as a string literal in
// either quote style without escaping.
func ValidateWidgetID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidWidgetID)
	}
	if strings.ContainsAny(id, "'\"`\\") {
		return fmt.Errorf("%w: %q contains a quote or backslash", ErrInvalidWidgetID, id)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return fmt.Errorf("%w: %q contains whitespace or a control character", ErrInvalidWidgetID, id)
		}
	}
	return nil
}

// UpdateWidgetID changes the widget id of internalID from previous to next.
// An empty string stands for "no widget id". The store is updated at once;
// on error nothing changes. The returned bool is false for a no-op.
func (e *Engine) UpdateWidgetID(internalID, previous, next string) (Mutation, bool, error) {
	w, ok := e.store.Get(internalID)
	if !ok {
		return Mutation{}, false, fmt.Errorf("%w: %s", ErrUnknownWidget, internalID)
	}
	if w.WidgetID != previous {
		return Mutation{}, false, fmt.Errorf("%w: %s has widget id %q, not %q", ErrStateMismatch, internalID, w.WidgetID, previous)
	}
	if previous == next {
		return Mutation{}, false, nil
	}
	if next != "" {
		if err := ValidateWidgetID(next); err != nil {
			return Mutation{}, false, err
		}
		if other, _, taken := e.store.FindByWidgetID(next); taken && other != internalID {
			return Mutation{}, false, fmt.Errorf("%w: %q is held by %s", ErrDuplicateWidgetID, next, other)
		}
	}

	m := Mutation{Widget: internalID, WidgetType: w.WidgetType, Location: w.SourceLocation, Old: previous, New: next}
	switch {
	case previous == "":
		m.Kind = Add
	case next == "":
		m.Kind = Remove
	default:
		m.Kind = Rename
	}

	if _, seen := e.originals[internalID]; !seen {
		e.originals[internalID] = previous
		e.order = append(e.order, internalID)
	}
	w.WidgetID = next
	e.log = append(e.log, m)
	slog.Debug("mutation.record", "kind", m.Kind, "widget", internalID, "old", previous, "new", next)
	return m, true, nil
}

// History returns every recorded mutation in call order.
func (e *Engine) History() []Mutation {
	out := make([]Mutation, len(e.log))
	copy(out, e.log)
	return out
}

// Len returns the number of recorded mutations.
func (e *Engine) Len() int { return len(e.log) }

// Net folds the history into at most one mutation per widget, comparing the
// widget id at load time with the current one. Widgets are listed in the
// order they were first edited.
func (e *Engine) Net() []Mutation {
	var out []Mutation
	for _, id := range e.order {
		orig := e.originals[id]
		w, ok := e.store.Get(id)
		if !ok {
			continue
		}
		cur := w.WidgetID
		m := Mutation{Widget: id, WidgetType: w.WidgetType, Location: w.SourceLocation, Old: orig, New: cur}
		switch {
		case orig == cur:
			continue
		case orig == "":
			m.Kind = Add
		case cur == "":
			m.Kind = Remove
		default:
			m.Kind = Rename
		}
		out = append(out, m)
	}
	return out
}

// Rebase makes the current widget ids the baseline for Net. History is
// kept. It is called after the loaded file itself has been rewritten.
func (e *Engine) Rebase() {
	e.originals = make(map[string]string)
	e.order = nil
}
