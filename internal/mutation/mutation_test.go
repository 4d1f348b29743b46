package mutation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/DeusData/designer-mcp/internal/metadata"
)

func newStore(t *testing.T) *metadata.Store {
	t.Helper()
	s := metadata.NewStore()
	s.Set("widget-0", &metadata.Widget{
		WidgetType:     metadata.VBox,
		SourceLocation: metadata.SourceLocation{File: "app.ts", Line: 1, Column: 3},
		Children:       []string{"widget-1", "widget-2"},
	})
	s.Set("widget-1", &metadata.Widget{
		WidgetType:     metadata.Label,
		SourceLocation: metadata.SourceLocation{File: "app.ts", Line: 2, Column: 5},
		Parent:         "widget-0",
	})
	s.Set("widget-2", &metadata.Widget{
		WidgetType:     metadata.Button,
		WidgetID:       "go",
		SourceLocation: metadata.SourceLocation{File: "app.ts", Line: 3, Column: 5},
		Parent:         "widget-0",
	})
	return s
}

func TestUpdateWidgetIDKinds(t *testing.T) {
	tests := []struct {
		name           string
		id, prev, next string
		want           Kind
	}{
		{"add", "widget-1", "", "title", Add},
		{"rename", "widget-2", "go", "submit", Rename},
		{"remove", "widget-2", "go", "", Remove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			e := New(s)
			m, changed, err := e.UpdateWidgetID(tt.id, tt.prev, tt.next)
			if err != nil {
				t.Fatalf("UpdateWidgetID: %v", err)
			}
			if !changed || m.Kind != tt.want {
				t.Errorf("mutation = %+v changed=%v, want kind %s", m, changed, tt.want)
			}
			w, _ := s.Get(tt.id)
			if w.WidgetID != tt.next {
				t.Errorf("stored widget id = %q, want %q", w.WidgetID, tt.next)
			}
			if m.Location != w.SourceLocation {
				t.Errorf("location = %s", m.Location)
			}
		})
	}
}

func TestUpdateWidgetIDRejects(t *testing.T) {
	tests := []struct {
		name           string
		id, prev, next string
		want           error
	}{
		{"unknown widget", "widget-9", "", "x", ErrUnknownWidget},
		{"add over existing", "widget-2", "", "x", ErrStateMismatch},
		{"stale rename", "widget-2", "old", "x", ErrStateMismatch},
		{"remove missing", "widget-1", "x", "", ErrStateMismatch},
		{"duplicate", "widget-1", "", "go", ErrDuplicateWidgetID},
		{"quote", "widget-1", "", "it's", ErrInvalidWidgetID},
		{"newline", "widget-1", "", "a\nb", ErrInvalidWidgetID},
		{"space", "widget-1", "", "a b", ErrInvalidWidgetID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			e := New(s)
			before := s.ToJSON()
			if _, _, err := e.UpdateWidgetID(tt.id, tt.prev, tt.next); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if diff := cmp.Diff(before, s.ToJSON()); diff != "" {
				t.Errorf("store changed on failure (-before +after):\n%s", diff)
			}
			if e.Len() != 0 {
				t.Errorf("history = %v", e.History())
			}
		})
	}
}

func TestUpdateWidgetIDNoOp(t *testing.T) {
	e := New(newStore(t))
	if _, changed, err := e.UpdateWidgetID("widget-2", "go", "go"); err != nil || changed {
		t.Errorf("same id: changed=%v err=%v", changed, err)
	}
	if _, _, err := e.UpdateWidgetID("widget-2", "nope", "nope"); !errors.Is(err, ErrStateMismatch) {
		t.Errorf("no-op with stale previous: err = %v", err)
	}
	if e.Len() != 0 {
		t.Errorf("history = %v", e.History())
	}
}

func TestNetFolding(t *testing.T) {
	type step struct{ id, prev, next string }
	tests := []struct {
		name  string
		steps []step
		want  []Mutation
	}{
		{
			name:  "add then rename is add",
			steps: []step{{"widget-1", "", "a"}, {"widget-1", "a", "b"}},
			want:  []Mutation{{Kind: Add, Widget: "widget-1", WidgetType: metadata.Label, New: "b"}},
		},
		{
			name:  "add then remove is nothing",
			steps: []step{{"widget-1", "", "a"}, {"widget-1", "a", ""}},
		},
		{
			name:  "rename then remove is remove of original",
			steps: []step{{"widget-2", "go", "x"}, {"widget-2", "x", ""}},
			want:  []Mutation{{Kind: Remove, Widget: "widget-2", WidgetType: metadata.Button, Old: "go"}},
		},
		{
			name:  "remove then add is rename",
			steps: []step{{"widget-2", "go", ""}, {"widget-2", "", "stop"}},
			want:  []Mutation{{Kind: Rename, Widget: "widget-2", WidgetType: metadata.Button, Old: "go", New: "stop"}},
		},
		{
			name:  "independent widgets keep first-edit order",
			steps: []step{{"widget-2", "go", "g"}, {"widget-1", "", "t"}},
			want: []Mutation{
				{Kind: Rename, Widget: "widget-2", WidgetType: metadata.Button, Old: "go", New: "g"},
				{Kind: Add, Widget: "widget-1", WidgetType: metadata.Label, New: "t"},
			},
		},
		{
			name:  "swap through a free name",
			steps: []step{{"widget-2", "go", ""}, {"widget-1", "", "go"}},
			want: []Mutation{
				{Kind: Remove, Widget: "widget-2", WidgetType: metadata.Button, Old: "go"},
				{Kind: Add, Widget: "widget-1", WidgetType: metadata.Label, New: "go"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(newStore(t))
			for _, s := range tt.steps {
				if _, _, err := e.UpdateWidgetID(s.id, s.prev, s.next); err != nil {
					t.Fatalf("UpdateWidgetID(%s, %q, %q): %v", s.id, s.prev, s.next, err)
				}
			}
			if e.Len() != len(tt.steps) {
				t.Errorf("history length = %d", e.Len())
			}
			ignoreLoc := func(ms []Mutation) []Mutation {
				for i := range ms {
					ms[i].Location = metadata.SourceLocation{}
				}
				return ms
			}
			if diff := cmp.Diff(tt.want, ignoreLoc(e.Net())); diff != "" {
				t.Errorf("Net (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRebase(t *testing.T) {
	e := New(newStore(t))
	if _, _, err := e.UpdateWidgetID("widget-1", "", "t"); err != nil {
		t.Fatal(err)
	}
	e.Rebase()
	if net := e.Net(); len(net) != 0 {
		t.Errorf("Net after Rebase = %v", net)
	}
	if _, _, err := e.UpdateWidgetID("widget-1", "t", "u"); err != nil {
		t.Fatal(err)
	}
	net := e.Net()
	if len(net) != 1 || net[0].Kind != Rename || net[0].Old != "t" || net[0].New != "u" {
		t.Errorf("Net = %v", net)
	}
	if e.Len() != 2 {
		t.Errorf("history length = %d, want 2", e.Len())
	}
}
