package metadata

import "encoding/json"

// wireWidget is the exported JSON shape of a record: the stored fields plus
// the key as "id" and a nullable parent.
type wireWidget struct {
	ID                 string            `json:"id,omitempty"`
	WidgetType         WidgetType        `json:"widgetType"`
	WidgetID           *string           `json:"widgetId"`
	SourceLocation     SourceLocation    `json:"sourceLocation"`
	Properties         map[string]any    `json:"properties"`
	EventHandlers      map[string]string `json:"eventHandlers"`
	MouseEventHandlers map[string]string `json:"mouseEventHandlers"`
	Children           []string          `json:"children"`
	Parent             *string           `json:"parent"`
}

func toWire(id string, w *Widget) wireWidget {
	out := wireWidget{
		ID:                 id,
		WidgetType:         w.WidgetType,
		SourceLocation:     w.SourceLocation,
		Properties:         w.Properties,
		EventHandlers:      w.EventHandlers,
		MouseEventHandlers: w.MouseEventHandlers,
		Children:           w.Children,
	}
	if out.Properties == nil {
		out.Properties = map[string]any{}
	}
	if out.EventHandlers == nil {
		out.EventHandlers = map[string]string{}
	}
	if out.MouseEventHandlers == nil {
		out.MouseEventHandlers = map[string]string{}
	}
	if out.Children == nil {
		out.Children = []string{}
	}
	if w.WidgetID != "" {
		wid := w.WidgetID
		out.WidgetID = &wid
	}
	if w.Parent != "" {
		p := w.Parent
		out.Parent = &p
	}
	return out
}

func (w wireWidget) widget() *Widget {
	out := &Widget{
		WidgetType:         w.WidgetType,
		SourceLocation:     w.SourceLocation,
		Properties:         w.Properties,
		EventHandlers:      w.EventHandlers,
		MouseEventHandlers: w.MouseEventHandlers,
		Children:           w.Children,
	}
	if w.WidgetID != nil {
		out.WidgetID = *w.WidgetID
	}
	if w.Parent != nil {
		out.Parent = *w.Parent
	}
	return out
}

// MarshalJSON writes the widget with a nullable widgetId and parent.
func (w Widget) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire("", &w))
}

// UnmarshalJSON reads the shape produced by MarshalJSON.
func (w *Widget) UnmarshalJSON(data []byte) error {
	var ww wireWidget
	if err := json.Unmarshal(data, &ww); err != nil {
		return err
	}
	*w = *ww.widget()
	return nil
}

// Entry is an exported record: the store key merged into the record.
type Entry struct {
	ID     string
	Widget *Widget
}

// MarshalJSON flattens the key into the widget object as "id".
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(e.ID, e.Widget))
}

// UnmarshalJSON reads a flattened entry.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var ww wireWidget
	if err := json.Unmarshal(data, &ww); err != nil {
		return err
	}
	e.ID = ww.ID
	e.Widget = ww.widget()
	return nil
}

// Snapshot is the exported metadata document.
type Snapshot struct {
	Widgets []Entry `json:"widgets"`
}

// Find returns the first entry of the given type in document order.
func (s Snapshot) Find(t WidgetType) (Entry, bool) {
	for _, e := range s.Widgets {
		if e.Widget.WidgetType == t {
			return e, true
		}
	}
	return Entry{}, false
}

// Filter returns the entries accepted by keep, in document order.
func (s Snapshot) Filter(keep func(Entry) bool) []Entry {
	var out []Entry
	for _, e := range s.Widgets {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
