// Package render defines the contract between the synchronization engine and
// whatever presents the mirrored variable tree. The engine only ever creates,
// attributes, wires and removes opaque nodes through a Renderer; it never
// decides how a node looks.
package render

// Handle is an opaque reference to a node owned by a Renderer.
type Handle uint64

// None is the zero Handle; it refers to no node.
const None Handle = 0

// Kind is the structural kind of a node.
type Kind string

const (
	KindRoot       Kind = "root"
	KindContainer  Kind = "container"
	KindColumn     Kind = "column"
	KindDiv        Kind = "div"
	KindLabel      Kind = "label"
	KindSection    Kind = "section"
	KindHeading    Kind = "heading"
	KindButton     Kind = "button"
	KindTable      Kind = "table"
	KindTableHead  Kind = "thead"
	KindTableBody  Kind = "tbody"
	KindRow        Kind = "row"
	KindHeaderCell Kind = "th"
	KindCell       Kind = "td"
	KindSelect     Kind = "select"
	KindStatic     Kind = "static"
	KindCanvas     Kind = "canvas"
	KindTextArea   Kind = "textarea"
	KindLink       Kind = "link"
	KindCheckbox   Kind = "checkbox"
	KindRange      Kind = "range"
	KindCoord      Kind = "coord"
	KindNumber     Kind = "number"
	KindInput      Kind = "input"
	KindComment    Kind = "comment"
	KindTooltip    Kind = "tooltip"
	KindIndicator  Kind = "indicator"
)

// Attribute names understood by renderers.
const (
	AttrID            = "id"
	AttrClass         = "class"
	AttrType          = "type"
	AttrText          = "text"
	AttrValue         = "value"
	AttrChecked       = "checked"
	AttrIndeterminate = "indeterminate"
	AttrDisabled      = "disabled"
	AttrReadOnly      = "readonly"
	AttrHidden        = "hidden"
	AttrHref          = "href"
	AttrMin           = "min"
	AttrMax           = "max"
	AttrMaxLength     = "maxlength"
	AttrPlaceholder   = "placeholder"
	AttrOptions       = "options"
	AttrTooltip       = "tooltip"
	AttrSelected      = "selected"
	AttrState         = "state"
)

// Event names a user interaction or a synthetic notification.
type Event string

const (
	EventChange   Event = "change"
	EventInput    Event = "input"
	EventClick    Event = "click"
	EventDblClick Event = "dblclick"
)

// Renderer is implemented by presentation toolkits. Implementations must be
// safe for use from the engine goroutine while a presenter reads them from
// another goroutine. Handlers registered with On may be invoked from any
// goroutine that calls Dispatch.
type Renderer interface {
	CreateNode(kind Kind) Handle
	Kind(h Handle) Kind
	SetAttr(h Handle, name string, value any)
	Attr(h Handle, name string) any
	AppendChild(parent, child Handle)
	Children(h Handle) []Handle
	Parent(h Handle) Handle
	On(h Handle, event Event, fn func())
	Dispatch(h Handle, event Event)
	Remove(h Handle)
	Query(id string) (Handle, bool)
}

// Option is a rendered entry of a choice set.
type Option struct {
	Value any
	Text  string
}
