package metadata

import (
	"errors"
	"fmt"
)

// Store is the in-memory table of widget records for one load. Records keep
// their first insertion position; callers serialise access.
type Store struct {
	order   []string
	widgets map[string]*Widget
}

// NewStore returns an empty store. A session constructs a fresh one per load.
func NewStore() *Store {
	return &Store{widgets: make(map[string]*Widget)}
}

// Set inserts or replaces the record for id.
func (s *Store) Set(id string, w *Widget) {
	if _, ok := s.widgets[id]; !ok {
		s.order = append(s.order, id)
	}
	s.widgets[id] = w
}

// Get returns the record for id.
func (s *Store) Get(id string) (*Widget, bool) {
	w, ok := s.widgets[id]
	return w, ok
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.order) }

// IDs returns all keys in insertion order.
func (s *Store) IDs() []string {
	return append([]string(nil), s.order...)
}

// All returns all records in insertion order.
func (s *Store) All() []*Widget {
	out := make([]*Widget, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.widgets[id])
	}
	return out
}

// Clear empties the store.
func (s *Store) Clear() {
	s.order = nil
	s.widgets = make(map[string]*Widget)
}

// Tree returns the root records (no parent) in insertion order.
func (s *Store) Tree() []*Widget {
	var out []*Widget
	for _, id := range s.order {
		if w := s.widgets[id]; w.Parent == "" {
			out = append(out, w)
		}
	}
	return out
}

// Children returns the records whose parent is id, in insertion order.
func (s *Store) Children(id string) []*Widget {
	var out []*Widget
	for _, cid := range s.order {
		if w := s.widgets[cid]; w.Parent == id {
			out = append(out, w)
		}
	}
	return out
}

// FindByWidgetID returns the key and record carrying the user-facing id.
func (s *Store) FindByWidgetID(widgetID string) (string, *Widget, bool) {
	if widgetID == "" {
		return "", nil, false
	}
	for _, id := range s.order {
		if w := s.widgets[id]; w.WidgetID == widgetID {
			return id, w, true
		}
	}
	return "", nil, false
}

// ToJSON exports every record with its key merged in as "id".
func (s *Store) ToJSON() Snapshot {
	snap := Snapshot{Widgets: make([]Entry, 0, len(s.order))}
	for _, id := range s.order {
		snap.Widgets = append(snap.Widgets, Entry{ID: id, Widget: s.widgets[id].Clone()})
	}
	return snap
}

// Validate checks the forest invariants: every non-root parent exists and
// lists the record exactly once, children point back at their parent,
// widget ids are unique and there are no cycles.
func (s *Store) Validate() error {
	var errs []error
	seenWidgetIDs := make(map[string]string)
	for _, id := range s.order {
		w := s.widgets[id]
		if !w.SourceLocation.Valid() {
			errs = append(errs, fmt.Errorf("%s: invalid source location %q", id, w.SourceLocation))
		}
		if w.WidgetID != "" {
			if other, dup := seenWidgetIDs[w.WidgetID]; dup {
				errs = append(errs, fmt.Errorf("%s: widget id %q already used by %s", id, w.WidgetID, other))
			}
			seenWidgetIDs[w.WidgetID] = id
		}
		if w.Parent != "" {
			p, ok := s.widgets[w.Parent]
			if !ok {
				errs = append(errs, fmt.Errorf("%s: parent %s does not exist", id, w.Parent))
			} else if n := count(p.Children, id); n != 1 {
				errs = append(errs, fmt.Errorf("%s: listed %d times in children of %s", id, n, w.Parent))
			}
		}
		for _, cid := range w.Children {
			c, ok := s.widgets[cid]
			if !ok {
				errs = append(errs, fmt.Errorf("%s: child %s does not exist", id, cid))
			} else if c.Parent != id {
				errs = append(errs, fmt.Errorf("%s: child %s has parent %q", id, cid, c.Parent))
			}
		}
		if s.hasCycle(id) {
			errs = append(errs, fmt.Errorf("%s: parent chain forms a cycle", id))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) hasCycle(id string) bool {
	seen := map[string]bool{id: true}
	for cur := s.widgets[id].Parent; cur != ""; {
		if seen[cur] {
			return true
		}
		seen[cur] = true
		p, ok := s.widgets[cur]
		if !ok {
			return false
		}
		cur = p.Parent
	}
	return false
}

func count(list []string, id string) int {
	n := 0
	for _, v := range list {
		if v == id {
			n++
		}
	}
	return n
}
