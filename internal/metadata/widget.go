// Package metadata holds the structural widget model built during a load and
// the in-memory store that indexes it.
package metadata

import "fmt"

// WidgetType is the discriminator of the widget tagged union.
type WidgetType string

const (
	App            WidgetType = "app"
	Window         WidgetType = "window"
	VBox           WidgetType = "vbox"
	HBox           WidgetType = "hbox"
	Grid           WidgetType = "grid"
	GridWrap       WidgetType = "gridwrap"
	Center         WidgetType = "center"
	Scroll         WidgetType = "scroll"
	Card           WidgetType = "card"
	Border         WidgetType = "border"
	HSplit         WidgetType = "hsplit"
	VSplit         WidgetType = "vsplit"
	Tabs           WidgetType = "tabs"
	Accordion      WidgetType = "accordion"
	Form           WidgetType = "form"
	Label          WidgetType = "label"
	Button         WidgetType = "button"
	TextEntry      WidgetType = "entry"
	MultiLineEntry WidgetType = "multilineentry"
	PasswordEntry  WidgetType = "passwordentry"
	Hyperlink      WidgetType = "hyperlink"
	Checkbox       WidgetType = "checkbox"
	Select         WidgetType = "select"
	RadioGroup     WidgetType = "radiogroup"
	Slider         WidgetType = "slider"
	ProgressBar    WidgetType = "progressbar"
	Image          WidgetType = "image"
	Separator      WidgetType = "separator"
	Toolbar        WidgetType = "toolbar"
	Table          WidgetType = "table"
	List           WidgetType = "list"
	Tree           WidgetType = "tree"
	RichText       WidgetType = "richtext"
)

// ArgKind classifies a positional construction argument.
type ArgKind int

const (
	// ArgProperty is decoded into Widget.Properties.
	ArgProperty ArgKind = iota
	// ArgHandler is a callback recorded in Widget.EventHandlers; it does
	// not run while the UI is built.
	ArgHandler
	// ArgBuilder is a callback run immediately with the widget as the
	// current container.
	ArgBuilder
	// ArgConfig is an object or array whose function values are builders
	// and whose plain values are properties.
	ArgConfig
)

// Param describes one positional argument of a construction call.
type Param struct {
	Name string
	Kind ArgKind
}

// Capabilities is the capability set of a widget type.
type Capabilities struct {
	HasChildren      bool
	HasProperties    bool
	HasEventHandlers bool
}

// Kind is the per-type entry of the tagged union: its argument schema and
// derived capabilities.
type Kind struct {
	Type   WidgetType
	Params []Param
	// Root marks types that may be constructed by a bare call (app(...))
	// rather than a method call on a receiver.
	Root bool
}

// Capabilities derives the capability set from the argument schema.
func (k Kind) Capabilities() Capabilities {
	var c Capabilities
	for _, p := range k.Params {
		switch p.Kind {
		case ArgProperty:
			c.HasProperties = true
		case ArgHandler:
			c.HasEventHandlers = true
		case ArgBuilder:
			c.HasChildren = true
		case ArgConfig:
			c.HasChildren = true
			c.HasProperties = true
		}
	}
	return c
}

func prop(name string) Param    { return Param{Name: name, Kind: ArgProperty} }
func handler(name string) Param { return Param{Name: name, Kind: ArgHandler} }
func builder(name string) Param { return Param{Name: name, Kind: ArgBuilder} }
func config(name string) Param  { return Param{Name: name, Kind: ArgConfig} }

var kinds = map[WidgetType]Kind{
	App:            {Type: App, Root: true, Params: []Param{config("options"), builder("builder")}},
	Window:         {Type: Window, Params: []Param{config("options"), builder("builder")}},
	VBox:           {Type: VBox, Params: []Param{builder("builder")}},
	HBox:           {Type: HBox, Params: []Param{builder("builder")}},
	Grid:           {Type: Grid, Params: []Param{prop("columns"), builder("builder")}},
	GridWrap:       {Type: GridWrap, Params: []Param{prop("itemWidth"), prop("itemHeight"), builder("builder")}},
	Center:         {Type: Center, Params: []Param{builder("builder")}},
	Scroll:         {Type: Scroll, Params: []Param{builder("builder")}},
	Card:           {Type: Card, Params: []Param{prop("title"), prop("subtitle"), builder("builder")}},
	Border:         {Type: Border, Params: []Param{config("config")}},
	HSplit:         {Type: HSplit, Params: []Param{builder("leading"), builder("trailing"), prop("offset")}},
	VSplit:         {Type: VSplit, Params: []Param{builder("leading"), builder("trailing"), prop("offset")}},
	Tabs:           {Type: Tabs, Params: []Param{config("tabs"), prop("location")}},
	Accordion:      {Type: Accordion, Params: []Param{config("items")}},
	Form:           {Type: Form, Params: []Param{config("items"), handler("onSubmit"), handler("onCancel")}},
	Label:          {Type: Label, Params: []Param{prop("text"), prop("alignment"), prop("wrapping"), prop("textStyle"), prop("className")}},
	Button:         {Type: Button, Params: []Param{prop("text"), handler("onClick"), prop("className")}},
	TextEntry:      {Type: TextEntry, Params: []Param{prop("placeholder"), handler("onSubmit"), prop("minWidth"), handler("onDoubleClick")}},
	MultiLineEntry: {Type: MultiLineEntry, Params: []Param{prop("placeholder"), prop("wrapping")}},
	PasswordEntry:  {Type: PasswordEntry, Params: []Param{prop("placeholder"), handler("onSubmit")}},
	Hyperlink:      {Type: Hyperlink, Params: []Param{prop("text"), prop("url")}},
	Checkbox:       {Type: Checkbox, Params: []Param{prop("text"), handler("onChanged")}},
	Select:         {Type: Select, Params: []Param{prop("options"), handler("onSelected")}},
	RadioGroup:     {Type: RadioGroup, Params: []Param{prop("options"), prop("initialSelected"), handler("onSelected")}},
	Slider:         {Type: Slider, Params: []Param{prop("min"), prop("max"), prop("initialValue"), handler("onChanged")}},
	ProgressBar:    {Type: ProgressBar, Params: []Param{prop("initialValue"), prop("infinite")}},
	Image:          {Type: Image, Params: []Param{prop("path"), prop("fillMode"), handler("onClick"), handler("onDrag"), handler("onDragEnd")}},
	Separator:      {Type: Separator},
	Toolbar:        {Type: Toolbar, Params: []Param{prop("items")}},
	Table:          {Type: Table, Params: []Param{prop("headers"), prop("data")}},
	List:           {Type: List, Params: []Param{prop("items"), handler("onSelected")}},
	Tree:           {Type: Tree, Params: []Param{prop("rootLabel")}},
	RichText:       {Type: RichText, Params: []Param{prop("segments")}},
}

// LookupKind returns the tagged-union entry for a widget type name.
func LookupKind(name string) (Kind, bool) {
	k, ok := kinds[WidgetType(name)]
	return k, ok
}

// KnownTypes returns every widget type in the closed set.
func KnownTypes() []WidgetType {
	out := make([]WidgetType, 0, len(kinds))
	for t := range kinds {
		out = append(out, t)
	}
	return out
}

// Valid reports whether t belongs to the closed set.
func (t WidgetType) Valid() bool {
	_, ok := kinds[t]
	return ok
}

// SourceLocation is the position of a construction call in source.
// Line and Column are 1-based; Column counts characters.
type SourceLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Valid reports whether the location satisfies file non-empty, line > 0
// and column > 0.
func (l SourceLocation) Valid() bool {
	return l.File != "" && l.Line > 0 && l.Column > 0
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Widget is one metadata record. The internal id is the store key.
type Widget struct {
	WidgetType         WidgetType        `json:"widgetType"`
	WidgetID           string            `json:"widgetId,omitempty"`
	SourceLocation     SourceLocation    `json:"sourceLocation"`
	Properties         map[string]any    `json:"properties"`
	EventHandlers      map[string]string `json:"eventHandlers"`
	MouseEventHandlers map[string]string `json:"mouseEventHandlers"`
	Children           []string          `json:"children"`
	Parent             string            `json:"-"`
}

// Kind returns the tagged-union entry for the widget's type.
func (w *Widget) Kind() Kind {
	k, ok := kinds[w.WidgetType]
	if !ok {
		return Kind{Type: w.WidgetType}
	}
	return k
}

// Clone returns a deep copy of w so callers cannot alias store state.
func (w *Widget) Clone() *Widget {
	if w == nil {
		return nil
	}
	c := *w
	c.Properties = cloneProps(w.Properties)
	c.EventHandlers = cloneStrings(w.EventHandlers)
	c.MouseEventHandlers = cloneStrings(w.MouseEventHandlers)
	c.Children = make([]string, len(w.Children))
	copy(c.Children, w.Children)
	return &c
}

func cloneStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneProps(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneProps(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
