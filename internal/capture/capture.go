// Package capture consumes the stream of widget-construction events produced
// by an execution layer and builds the metadata tree from it.
package capture

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/DeusData/designer-mcp/internal/metadata"
	"github.com/DeusData/designer-mcp/internal/parser"
	"github.com/DeusData/designer-mcp/internal/stacktrace"
)

// ErrInvalidEvent reports an event that cannot be recorded.
var ErrInvalidEvent = errors.New("invalid construction event")

// Event is one widget-construction call as reported by an execution layer.
type Event struct {
	Type               string                   `json:"type"`
	ID                 string                   `json:"id,omitempty"`
	Parent             string                   `json:"parent,omitempty"`
	Location           *metadata.SourceLocation `json:"location,omitempty"`
	Stack              string                   `json:"stack,omitempty"`
	Properties         map[string]any           `json:"properties,omitempty"`
	EventHandlers      map[string]string        `json:"eventHandlers,omitempty"`
	MouseEventHandlers map[string]string        `json:"mouseEventHandlers,omitempty"`
	WidgetID           string                   `json:"widgetId,omitempty"`
}

// IDAllocator hands out internal widget ids. It outlives individual loads so
// ids are never reused within a session.
type IDAllocator struct {
	next int
}

// Next returns a fresh "widget-N" id.
func (a *IDAllocator) Next() string {
	id := "widget-" + strconv.Itoa(a.next)
	a.next++
	return id
}

// Recorder writes construction events into a metadata store, maintaining the
// parent/children links and widget-id uniqueness.
type Recorder struct {
	store      *metadata.Store
	ids        *IDAllocator
	correlator *stacktrace.Correlator
	skipFrames int
	lines      *parser.LineIndex
	widgetIDs  map[string]string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithCorrelator sets the correlator and frame skip count used for events
// that carry a stack trace instead of a location.
func WithCorrelator(c *stacktrace.Correlator, skipFrames int) Option {
	return func(r *Recorder) {
		r.correlator = c
		r.skipFrames = skipFrames
	}
}

// WithSource sets the text of the file that was executed. Stack frame
// columns count UTF-16 code units and are converted to character columns
// against it.
func WithSource(src []byte) Option {
	return func(r *Recorder) { r.lines = parser.NewLineIndex(src) }
}

// NewRecorder returns a Recorder populating store.
func NewRecorder(store *metadata.Store, ids *IDAllocator, opts ...Option) *Recorder {
	r := &Recorder{
		store:      store,
		ids:        ids,
		correlator: stacktrace.New(),
		widgetIDs:  make(map[string]string),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Record validates ev and adds it to the store, returning its internal id.
func (r *Recorder) Record(ev Event) (string, error) {
	kind, ok := metadata.LookupKind(ev.Type)
	if !ok {
		return "", fmt.Errorf("%w: unknown widget type %q", ErrInvalidEvent, ev.Type)
	}

	loc, err := r.locate(ev)
	if err != nil {
		return "", err
	}

	var parent *metadata.Widget
	if ev.Parent != "" {
		parent, ok = r.store.Get(ev.Parent)
		if !ok {
			return "", fmt.Errorf("%w: %s at %s: parent %s not recorded", ErrInvalidEvent, ev.Type, loc, ev.Parent)
		}
	}

	id := ev.ID
	if id == "" {
		id = r.nextFree()
	} else if _, dup := r.store.Get(id); dup {
		return "", fmt.Errorf("%w: duplicate internal id %s", ErrInvalidEvent, id)
	}

	if ev.WidgetID != "" {
		if other, dup := r.widgetIDs[ev.WidgetID]; dup {
			return "", fmt.Errorf("%w: widget id %q at %s already used by %s", ErrInvalidEvent, ev.WidgetID, loc, other)
		}
		r.widgetIDs[ev.WidgetID] = id
	}

	w := &metadata.Widget{
		WidgetType:         kind.Type,
		WidgetID:           ev.WidgetID,
		SourceLocation:     loc,
		Properties:         orEmpty(ev.Properties),
		EventHandlers:      orEmptyStrings(ev.EventHandlers),
		MouseEventHandlers: orEmptyStrings(ev.MouseEventHandlers),
		Children:           []string{},
		Parent:             ev.Parent,
	}
	r.store.Set(id, w)
	if parent != nil {
		parent.Children = append(parent.Children, id)
	}
	return id, nil
}

// nextFree allocates ids until one is not already taken by an event that
// carried its own id.
func (r *Recorder) nextFree() string {
	for {
		id := r.ids.Next()
		if _, taken := r.store.Get(id); !taken {
			return id
		}
	}
}

func (r *Recorder) locate(ev Event) (metadata.SourceLocation, error) {
	if ev.Location != nil {
		if !ev.Location.Valid() {
			return metadata.SourceLocation{}, fmt.Errorf("%w: %s: invalid location %+v", ErrInvalidEvent, ev.Type, *ev.Location)
		}
		return *ev.Location, nil
	}
	if ev.Stack == "" {
		return metadata.SourceLocation{}, fmt.Errorf("%w: %s: no location or stack", ErrInvalidEvent, ev.Type)
	}
	loc, ok := r.correlator.Parse(ev.Stack, r.skipFrames)
	if !ok {
		return metadata.SourceLocation{}, fmt.Errorf("%w: %s: no user frame in stack", ErrInvalidEvent, ev.Type)
	}
	if r.lines != nil {
		col, err := r.lines.UTF16Column(loc.Line, loc.Column)
		if err != nil {
			return metadata.SourceLocation{}, fmt.Errorf("%w: %s at %s: %v", ErrInvalidEvent, ev.Type, loc, err)
		}
		loc.Column = col
	}
	return loc, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptyStrings(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
