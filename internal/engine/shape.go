package engine

import (
	"github.com/vk/starmirror/internal/nodeid"
	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/varmodel"
)

// Shape is the presentation variant a variable node was materialized as.
type Shape int

const (
	ShapeInput Shape = iota
	ShapeModule
	ShapeTable
	ShapeHeading
	ShapeSelect
	ShapeStaticSelect
	ShapeCanvas
	ShapeTextArea
	ShapeLink
	ShapeCheckbox
	ShapeButton
	ShapeRange
	ShapeCoord
	ShapeNumber
	ShapeStatic
)

var shapeNames = map[Shape]string{
	ShapeInput:        "input",
	ShapeModule:       "module",
	ShapeTable:        "table",
	ShapeHeading:      "heading",
	ShapeSelect:       "select",
	ShapeStaticSelect: "static-select",
	ShapeCanvas:       "canvas",
	ShapeTextArea:     "textarea",
	ShapeLink:         "link",
	ShapeCheckbox:     "checkbox",
	ShapeButton:       "button",
	ShapeRange:        "range",
	ShapeCoord:        "coord",
	ShapeNumber:       "number",
	ShapeStatic:       "static",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "unknown"
}

// shapeOf resolves the variant of a variable. Columns of a table are
// headings regardless of their type; their cells are materialized per row
// with the shape of the column type.
func shapeOf(v *varmodel.Variable, underTable bool) Shape {
	if underTable {
		return ShapeHeading
	}
	switch {
	case v.Type.IsModule():
		return ShapeModule
	case v.Type == varmodel.TypeTable:
		return ShapeTable
	case v.Type == varmodel.TypeSelect:
		if v.ReadOnly {
			return ShapeStaticSelect
		}
		return ShapeSelect
	case v.Type == varmodel.TypeCanvas:
		return ShapeCanvas
	case v.Type == varmodel.TypeTextArea:
		return ShapeTextArea
	case v.Type == varmodel.TypeURL:
		return ShapeLink
	case v.Type == varmodel.TypeCheckbox:
		return ShapeCheckbox
	case v.Type == varmodel.TypeButton:
		return ShapeButton
	case v.Type == varmodel.TypeRange:
		return ShapeRange
	case v.Type == varmodel.TypeCoord3D:
		return ShapeCoord
	case v.ReadOnly:
		return ShapeStatic
	case v.Type == varmodel.TypeNumber:
		return ShapeNumber
	}
	return ShapeInput
}

// kind returns the node kind a shape is rendered with.
func (s Shape) kind() render.Kind {
	switch s {
	case ShapeModule:
		return render.KindSection
	case ShapeTable:
		return render.KindTable
	case ShapeHeading:
		return render.KindHeaderCell
	case ShapeSelect:
		return render.KindSelect
	case ShapeStaticSelect, ShapeStatic:
		return render.KindStatic
	case ShapeCanvas:
		return render.KindCanvas
	case ShapeTextArea:
		return render.KindTextArea
	case ShapeLink:
		return render.KindLink
	case ShapeCheckbox:
		return render.KindCheckbox
	case ShapeButton:
		return render.KindButton
	case ShapeRange:
		return render.KindRange
	case ShapeCoord:
		return render.KindCoord
	case ShapeNumber:
		return render.KindNumber
	}
	return render.KindInput
}

// editable reports whether the shape sends user edits with a change event.
func (s Shape) editable() bool {
	switch s {
	case ShapeSelect, ShapeCheckbox, ShapeRange, ShapeNumber, ShapeInput, ShapeTextArea:
		return true
	}
	return false
}

// binding ties a rendered node to its variable and caches everything an
// update needs to reach the node's neighbours.
type binding struct {
	v     *varmodel.Variable
	shape Shape
	id    nodeid.ID

	node    render.Handle
	div     render.Handle // None for headings
	label   render.Handle
	echo    render.Handle
	comment render.Handle
	axes    []render.Handle

	// inCell is set for nodes materialized inside a table row cell.
	inCell bool
	// table is the table itself for ShapeTable and the owning table for
	// ShapeHeading.
	table *table
}

// table holds the structural nodes of a materialized table.
type table struct {
	v       *varmodel.Variable
	id      nodeid.ID
	node    render.Handle
	headRow render.Handle
	body    render.Handle
}
