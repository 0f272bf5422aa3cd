package varmodel

import (
	"encoding/json"
	"slices"
)

// Type is the device's name for the kind of a variable.
type Type string

const (
	TypeAppModule  Type = "appmod"
	TypeUserModule Type = "usermod"
	TypeSysModule  Type = "sysmod"
	TypeTable      Type = "table"
	TypeSelect     Type = "select"
	TypeCanvas     Type = "canvas"
	TypeTextArea   Type = "textarea"
	TypeURL        Type = "url"
	TypeCheckbox   Type = "checkbox"
	TypeButton     Type = "button"
	TypeRange      Type = "range"
	TypeCoord3D    Type = "coord3D"
	TypeNumber     Type = "number"
	TypeText       Type = "text"
	TypePassword   Type = "password"
)

// ModuleTypes lists the types a top-level module may carry.
var ModuleTypes = []Type{TypeAppModule, TypeUserModule, TypeSysModule}

// IsModule reports whether the type is one of the module kinds.
func (t Type) IsModule() bool {
	return slices.Contains(ModuleTypes, t)
}

// ComputeState tracks whether a device-side computation of a variable's
// metadata (label, options, comment) is still owed.
type ComputeState int

const (
	// ComputeFulfilled is the zero value: nothing is owed.
	ComputeFulfilled ComputeState = iota
	ComputeUnrequested
	ComputeRequested
)

func (s ComputeState) String() string {
	switch s {
	case ComputeUnrequested:
		return "unrequested"
	case ComputeRequested:
		return "requested"
	default:
		return "fulfilled"
	}
}

// rank orders states along their only legal direction of travel.
func (s ComputeState) rank() int {
	switch s {
	case ComputeUnrequested:
		return 0
	case ComputeRequested:
		return 1
	default:
		return 2
	}
}

// Variable is a node of the device's variable tree.
type Variable struct {
	ID       string      `json:"id"`
	Type     Type        `json:"type"`
	Order    int         `json:"o,omitempty"`
	Value    any         `json:"value,omitempty"`
	ReadOnly bool        `json:"ro,omitempty"`
	Min      *float64    `json:"min,omitempty"`
	Max      *float64    `json:"max,omitempty"`
	Log      bool        `json:"log,omitempty"`
	Options  []any       `json:"options,omitempty"`
	Label    string      `json:"label,omitempty"`
	Comment  string      `json:"comment,omitempty"`
	Children []*Variable `json:"n,omitempty"`

	// Module-level settings carried by the system module.
	View  string `json:"view,omitempty"`
	Theme string `json:"theme,omitempty"`

	// Compute is the deferred-compute state of the variable's own instance
	// (outside any table row).
	Compute ComputeState `json:"-"`
	// deferred records whether the device declared a computation at all.
	deferred bool
}

// wireVariable mirrors Variable for decoding, exposing the device's `uiFun`
// marker which is folded into the compute state.
type wireVariable struct {
	ID       string      `json:"id"`
	Type     Type        `json:"type"`
	Order    int         `json:"o"`
	Value    any         `json:"value"`
	ReadOnly bool        `json:"ro"`
	Min      *float64    `json:"min"`
	Max      *float64    `json:"max"`
	Log      bool        `json:"log"`
	Options  []any       `json:"options"`
	Label    string      `json:"label"`
	Comment  string      `json:"comment"`
	Children []*Variable `json:"n"`
	View     string      `json:"view"`
	Theme    string      `json:"theme"`
	UIFun    *int        `json:"uiFun"`
}

// UnmarshalJSON decodes a variable as sent by the device. The `uiFun` marker
// maps to the compute state: absent, null or -2 means fulfilled, -1 requested,
// any non-negative index unrequested.
func (v *Variable) UnmarshalJSON(data []byte) error {
	var w wireVariable
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*v = Variable{
		ID:       w.ID,
		Type:     w.Type,
		Order:    w.Order,
		Value:    w.Value,
		ReadOnly: w.ReadOnly,
		Min:      w.Min,
		Max:      w.Max,
		Log:      w.Log,
		Options:  w.Options,
		Label:    w.Label,
		Comment:  w.Comment,
		Children: w.Children,
		View:     w.View,
		Theme:    w.Theme,
	}
	if w.UIFun != nil {
		v.deferred = true
		switch {
		case *w.UIFun >= 0:
			v.Compute = ComputeUnrequested
		case *w.UIFun == -1:
			v.Compute = ComputeRequested
		}
	}
	return nil
}

// Deferred reports whether the device declared a deferred computation for
// this variable.
func (v *Variable) Deferred() bool {
	return v.deferred
}

// SetDeferred marks the variable as carrying a deferred computation in the
// unrequested state. It is used when variables are built in code rather than
// decoded.
func (v *Variable) SetDeferred() {
	v.deferred = true
	v.Compute = ComputeUnrequested
}

// IsTable reports whether the variable is a table.
func (v *Variable) IsTable() bool {
	return v.Type == TypeTable
}

// Payload returns the variable's own metadata and value in the shape of an
// update payload, used to reconcile a freshly built node with the model.
func (v *Variable) Payload() map[string]any {
	p := map[string]any{}
	if v.Label != "" {
		p["label"] = v.Label
	}
	if v.Comment != "" {
		p["comment"] = v.Comment
	}
	if v.Options != nil {
		p["options"] = v.Options
	}
	if v.Value != nil {
		p["value"] = v.Value
	}
	return p
}

// Option is one entry of an enumerated choice set.
type Option struct {
	Code  any
	Label string
}

// OptionList interprets raw options: either plain labels, coded by their
// position, or `[code, label]` pairs.
func OptionList(raw []any) []Option {
	opts := make([]Option, 0, len(raw))
	for i, entry := range raw {
		if pair, ok := entry.([]any); ok && len(pair) >= 2 {
			opts = append(opts, Option{Code: pair[0], Label: FormatScalar(pair[1])})
			continue
		}
		opts = append(opts, Option{Code: float64(i), Label: FormatScalar(entry)})
	}
	return opts
}
