package metadata

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func button(text string, line int, parent string) *Widget {
	return &Widget{
		WidgetType:     Button,
		SourceLocation: SourceLocation{File: "test.ts", Line: line, Column: 5},
		Properties:     map[string]any{"text": text},
		EventHandlers:  map[string]string{},
		Parent:         parent,
	}
}

func TestStoreSetGet(t *testing.T) {
	s := NewStore()
	w := button("Click Me", 10, "")
	w.WidgetID = "button-1"
	s.Set("widget-1", w)

	got, ok := s.Get("widget-1")
	if !ok {
		t.Fatal("widget-1 not found")
	}
	if diff := cmp.Diff(w, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s.Get("nonexistent"); ok {
		t.Error("expected absent for unknown id")
	}
}

func TestStoreAllKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Set("b", button("B", 2, ""))
	s.Set("a", button("A", 1, ""))
	s.Set("b", button("B2", 3, "")) // upsert keeps position

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	if all[0].Properties["text"] != "B2" || all[1].Properties["text"] != "A" {
		t.Errorf("unexpected order: %v, %v", all[0].Properties, all[1].Properties)
	}
	if diff := cmp.Diff([]string{"b", "a"}, s.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	s.Set("widget-1", button("x", 1, ""))
	s.Clear()
	if s.Len() != 0 || len(s.All()) != 0 {
		t.Fatalf("store not empty after Clear: %d", s.Len())
	}
}

func TestStoreTreeAndChildren(t *testing.T) {
	s := NewStore()
	root := &Widget{
		WidgetType:     VBox,
		SourceLocation: SourceLocation{File: "test.ts", Line: 5, Column: 5},
		Children:       []string{"widget-2", "widget-3"},
	}
	s.Set("widget-1", root)
	s.Set("widget-2", button("one", 6, "widget-1"))
	s.Set("widget-3", button("two", 7, "widget-1"))

	tree := s.Tree()
	if len(tree) != 1 || tree[0] != root {
		t.Fatalf("Tree() = %v, want only the vbox", tree)
	}
	children := s.Children("widget-1")
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].Properties["text"] != "one" || children[1].Properties["text"] != "two" {
		t.Error("children out of construction order")
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestStoreToJSON(t *testing.T) {
	s := NewStore()
	w := button("Click Me", 10, "")
	w.WidgetID = "button-1"
	s.Set("widget-1", w)

	data, err := json.Marshal(s.ToJSON())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc struct {
		Widgets []map[string]any `json:"widgets"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Widgets) != 1 {
		t.Fatalf("expected 1 widget, got %d", len(doc.Widgets))
	}
	got := doc.Widgets[0]
	if got["id"] != "widget-1" || got["widgetId"] != "button-1" || got["widgetType"] != "button" {
		t.Errorf("unexpected export: %v", got)
	}
	if v, ok := got["parent"]; !ok || v != nil {
		t.Errorf("parent should be present and null, got %v (present=%v)", v, ok)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if diff := cmp.Diff(s.ToJSON(), snap); diff != "" {
		t.Errorf("snapshot round trip (-want +got):\n%s", diff)
	}
}

func TestToJSONDoesNotAliasStore(t *testing.T) {
	s := NewStore()
	s.Set("widget-1", button("x", 1, ""))
	snap := s.ToJSON()
	snap.Widgets[0].Widget.Properties["text"] = "changed"
	w, _ := s.Get("widget-1")
	if w.Properties["text"] != "x" {
		t.Fatal("snapshot mutation leaked into the store")
	}
}

func TestFindByWidgetID(t *testing.T) {
	s := NewStore()
	w := button("x", 1, "")
	w.WidgetID = "submit"
	s.Set("widget-1", w)
	s.Set("widget-2", button("y", 2, ""))

	id, got, ok := s.FindByWidgetID("submit")
	if !ok || id != "widget-1" || got != w {
		t.Fatalf("FindByWidgetID = %s, %v, %v", id, got, ok)
	}
	if _, _, ok := s.FindByWidgetID(""); ok {
		t.Error("empty widget id must not match")
	}
}

func TestValidateReportsBrokenInvariants(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Store)
		want  string
	}{
		{"missing parent", func(s *Store) {
			s.Set("widget-1", button("x", 1, "widget-9"))
		}, "parent widget-9 does not exist"},
		{"not listed in parent", func(s *Store) {
			s.Set("widget-1", &Widget{WidgetType: VBox, SourceLocation: SourceLocation{File: "f.ts", Line: 1, Column: 1}})
			s.Set("widget-2", button("x", 2, "widget-1"))
		}, "listed 0 times"},
		{"duplicate widget id", func(s *Store) {
			a, b := button("a", 1, ""), button("b", 2, "")
			a.WidgetID, b.WidgetID = "dup", "dup"
			s.Set("widget-1", a)
			s.Set("widget-2", b)
		}, `widget id "dup" already used`},
		{"cycle", func(s *Store) {
			loc := SourceLocation{File: "f.ts", Line: 1, Column: 1}
			s.Set("widget-1", &Widget{WidgetType: VBox, SourceLocation: loc, Parent: "widget-2", Children: []string{"widget-2"}})
			s.Set("widget-2", &Widget{WidgetType: VBox, SourceLocation: loc, Parent: "widget-1", Children: []string{"widget-1"}})
		}, "cycle"},
		{"bad location", func(s *Store) {
			s.Set("widget-1", &Widget{WidgetType: Label})
		}, "invalid source location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			tt.setup(s)
			err := s.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestKindCapabilities(t *testing.T) {
	tests := []struct {
		typ  WidgetType
		want Capabilities
	}{
		{VBox, Capabilities{HasChildren: true}},
		{Grid, Capabilities{HasChildren: true, HasProperties: true}},
		{Button, Capabilities{HasProperties: true, HasEventHandlers: true}},
		{Separator, Capabilities{}},
		{Border, Capabilities{HasChildren: true, HasProperties: true}},
		{TextEntry, Capabilities{HasProperties: true, HasEventHandlers: true}},
	}
	for _, tt := range tests {
		k, ok := LookupKind(string(tt.typ))
		if !ok {
			t.Fatalf("LookupKind(%s) missing", tt.typ)
		}
		if got := k.Capabilities(); got != tt.want {
			t.Errorf("%s capabilities = %+v, want %+v", tt.typ, got, tt.want)
		}
	}
	if _, ok := LookupKind("spinner"); ok {
		t.Error("spinner is not in the closed set")
	}
	if k, _ := LookupKind("entry"); k.Type != TextEntry {
		t.Errorf("entry kind = %s", k.Type)
	}
	if !App.Valid() || WidgetType("nope").Valid() {
		t.Error("Valid() mismatch")
	}
}
