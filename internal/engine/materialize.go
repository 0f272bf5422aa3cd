package engine

import (
	"cmp"
	"slices"

	"github.com/vk/starmirror/internal/nodeid"
	"github.com/vk/starmirror/internal/outbound"
	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/varmodel"
)

const (
	addRowCaption = "+"
	delRowCaption = "-"
	helpCaption   = "?"
	zoomGlyph     = "🔍"
	ndivClass     = "ndiv"

	defaultRangeMax = 255
)

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// sortByOrder sorts siblings in place by the absolute value of their order.
func sortByOrder(vars []*varmodel.Variable) {
	slices.SortStableFunc(vars, func(a, b *varmodel.Variable) int {
		return cmp.Compare(absInt(a.Order), absInt(b.Order))
	})
}

// materializeAll materializes siblings in order under parent.
func (e *Engine) materializeAll(vars []*varmodel.Variable, parent render.Handle, row int, tbl *table, inCell bool) {
	sortByOrder(vars)
	for _, v := range vars {
		e.materialize(v, parent, row, tbl, inCell)
	}
}

// materialize builds the nodes of one variable, its children, and then
// reconciles the new node with what the model already knows about it.
func (e *Engine) materialize(v *varmodel.Variable, parent render.Handle, row int, tbl *table, inCell bool) *binding {
	r := e.r
	b := &binding{
		v:      v,
		shape:  shapeOf(v, tbl != nil),
		id:     nodeid.InRow(v.ID, row),
		inCell: inCell,
	}
	b.node = r.CreateNode(b.shape.kind())
	caption := varmodel.InitCap(v.ID)

	if b.shape != ShapeHeading {
		b.div = r.CreateNode(render.KindDiv)
		r.SetAttr(b.div, render.AttrID, b.id.With(nodeid.PartDiv).String())
		if !inCell && b.shape != ShapeButton && b.shape != ShapeModule {
			b.label = r.CreateNode(render.KindLabel)
			r.SetAttr(b.label, render.AttrText, caption)
			r.AppendChild(b.div, b.label)
		}
	}

	switch b.shape {
	case ShapeModule:
		heading := r.CreateNode(render.KindHeading)
		r.SetAttr(heading, render.AttrText, caption)
		r.AppendChild(b.node, heading)
		help := r.CreateNode(render.KindButton)
		r.SetAttr(help, render.AttrText, helpCaption)
		r.SetAttr(help, render.AttrHref, HelpURL)
		r.AppendChild(b.node, help)
		e.on(help, render.EventClick, func() {
			e.logger.Info("Help requested.", "module", v.ID, "url", HelpURL)
		})

	case ShapeTable:
		b.table = &table{v: v, id: b.id, node: b.node}
		head := r.CreateNode(render.KindTableHead)
		b.table.headRow = r.CreateNode(render.KindRow)
		r.AppendChild(head, b.table.headRow)
		r.AppendChild(b.node, head)
		b.table.body = r.CreateNode(render.KindTableBody)
		r.AppendChild(b.node, b.table.body)

	case ShapeHeading:
		b.table = tbl
		r.SetAttr(b.node, render.AttrText, caption)

	case ShapeSelect:
		r.SetAttr(b.node, render.AttrOptions, []render.Option{})

	case ShapeCanvas, ShapeTextArea:
		glyph := r.CreateNode(render.KindStatic)
		r.SetAttr(glyph, render.AttrText, zoomGlyph)
		r.AppendChild(b.div, glyph)
		r.SetAttr(b.node, render.AttrReadOnly, v.ReadOnly)
		e.on(b.node, render.EventDblClick, func() { e.toggleModal(b.node) })

	case ShapeCheckbox:
		r.SetAttr(b.node, render.AttrDisabled, v.ReadOnly)
		r.SetAttr(b.node, render.AttrIndeterminate, true)

	case ShapeButton:
		r.SetAttr(b.node, render.AttrDisabled, v.ReadOnly)
		r.SetAttr(b.node, render.AttrText, caption)
		e.on(b.node, render.EventClick, func() { e.sendEdit(b) })

	case ShapeRange:
		r.SetAttr(b.node, render.AttrMin, floatOr(v.Min, 0))
		r.SetAttr(b.node, render.AttrMax, floatOr(v.Max, defaultRangeMax))
		r.SetAttr(b.node, render.AttrDisabled, v.ReadOnly)
		b.echo = r.CreateNode(render.KindStatic)
		r.SetAttr(b.echo, render.AttrID, b.id.With(nodeid.PartEcho).String())
		r.On(b.node, render.EventInput, func() { e.updateEcho(b) })

	case ShapeCoord:
		for _, axis := range []string{"x", "y", "z"} {
			h := r.CreateNode(render.KindNumber)
			r.SetAttr(h, render.AttrPlaceholder, axis)
			r.SetAttr(h, render.AttrMin, floatOr(v.Min, 0))
			if v.Max != nil {
				r.SetAttr(h, render.AttrMax, *v.Max)
			}
			r.AppendChild(b.node, h)
			b.axes = append(b.axes, h)
			e.on(h, render.EventChange, func() { e.sendCoord(b) })
		}

	case ShapeNumber:
		r.SetAttr(b.node, render.AttrMin, floatOr(v.Min, 0))
		if v.Max != nil {
			r.SetAttr(b.node, render.AttrMax, *v.Max)
		}

	case ShapeInput:
		r.SetAttr(b.node, render.AttrType, string(v.Type))
		if v.Max != nil {
			r.SetAttr(b.node, render.AttrMaxLength, *v.Max)
		}
	}

	if b.shape.editable() {
		e.on(b.node, render.EventChange, func() { e.sendEdit(b) })
	}

	r.SetAttr(b.node, render.AttrID, b.id.String())
	r.SetAttr(b.node, render.AttrClass, string(v.Type))

	if b.shape == ShapeHeading {
		r.AppendChild(tbl.headRow, b.node)
	} else {
		r.AppendChild(b.div, b.node)
		r.AppendChild(parent, b.div)
	}
	if b.shape == ShapeTable && !v.ReadOnly {
		add := r.CreateNode(render.KindButton)
		r.SetAttr(add, render.AttrText, addRowCaption)
		r.AppendChild(b.div, add)
		e.on(add, render.EventClick, func() { e.addRow(b.table) })
	}
	if b.echo != render.None {
		r.AppendChild(b.div, b.echo)
	}
	e.bind(b)

	switch b.shape {
	case ShapeHeading:
	case ShapeModule:
		e.materializeAll(v.Children, b.node, row, nil, false)
	case ShapeTable:
		e.materializeAll(v.Children, b.node, row, b.table, false)
	default:
		if details := e.detailsOf(v, row); len(details) > 0 {
			ndiv := r.CreateNode(render.KindDiv)
			r.SetAttr(ndiv, render.AttrID, b.id.With(nodeid.PartDetail).String())
			r.SetAttr(ndiv, render.AttrClass, ndivClass)
			r.AppendChild(b.div, ndiv)
			e.materializeAll(details, ndiv, row, nil, false)
		}
	}

	e.reconcileNew(b, row)
	return b
}

// reconcileNew applies the model's knowledge to a freshly built node. A
// variable whose computation is fulfilled is applied in full; otherwise only
// its value is shown and the computation is requested once.
func (e *Engine) reconcileNew(b *binding, row int) {
	v := b.v
	state := e.model.ComputeState(v, row)
	if row >= 0 && state == varmodel.ComputeUnrequested && v.Compute != varmodel.ComputeUnrequested {
		// The column itself has already been asked for; its answer covers
		// every row.
		e.model.Advance(v, row, v.Compute)
		state = v.Compute
	}

	if state == varmodel.ComputeFulfilled {
		e.applyToNode(b, v.Payload(), row)
		return
	}
	if v.Value != nil {
		e.applyToNode(b, map[string]any{"value": v.Value}, row)
	}
	if state == varmodel.ComputeUnrequested {
		e.out.QueueCompute(v.ID)
		e.model.Request(v, row)
	}
}

// materializeRow appends one row to a table, materializing every column in
// its own cell, plus the remove affordance of writable tables.
func (e *Engine) materializeRow(t *table, row int) render.Handle {
	r := e.r
	tr := r.CreateNode(render.KindRow)
	r.AppendChild(t.body, tr)
	for _, column := range t.v.Children {
		td := r.CreateNode(render.KindCell)
		r.AppendChild(tr, td)
		e.materialize(column, td, row, nil, true)
	}
	if !t.v.ReadOnly {
		td := r.CreateNode(render.KindCell)
		del := r.CreateNode(render.KindButton)
		r.SetAttr(del, render.AttrID, nodeid.InRow(t.v.ID, row).With(nodeid.PartDelete).String())
		r.SetAttr(del, render.AttrText, delRowCaption)
		r.AppendChild(td, del)
		r.AppendChild(tr, td)
		e.on(del, render.EventClick, func() { e.deleteRow(t, row) })
	}
	e.out.Flush()
	return tr
}

// rowCount returns the number of materialized body rows of a table.
func (e *Engine) rowCount(t *table) int {
	return len(e.r.Children(t.body))
}

// addRow optimistically appends a row and asks the device to add it.
func (e *Engine) addRow(t *table) {
	row := e.rowCount(t)
	e.materializeRow(t, row)
	e.logger.Debug("Row added.", "table", t.v.ID, "row", row)
	if err := e.out.Send(outbound.AddRow(t.v.ID, row)); err != nil {
		e.logger.Debug("Add row not sent.", "table", t.v.ID, "error", err)
	}
}

// deleteRow asks the device to delete a row. The device answers with the
// new table content.
func (e *Engine) deleteRow(t *table, row int) {
	if err := e.out.Send(outbound.DelRow(t.v.ID, row)); err != nil {
		e.logger.Debug("Delete row not sent.", "table", t.v.ID, "error", err)
	}
}

func floatOr(p *float64, def float64) float64 {
	if p == nil || *p == 0 {
		return def
	}
	return *p
}
