package engine

import (
	"encoding/json"
	"slices"

	"github.com/vk/starmirror/internal/nodeid"
	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/varmodel"
	"github.com/vk/starmirror/internal/viewfilter"
)

// replaceRows discards every body row of a table and rebuilds one row per
// entry of rows, applying each column's cell value individually.
func (e *Engine) replaceRows(t *table, rows []any) {
	for _, tr := range e.r.Children(t.body) {
		e.discard(tr)
	}
	for _, column := range t.v.Children {
		e.model.ForgetRows(column, 0)
		e.model.ForgetRowDetails(column.ID, len(rows))
		if stored, ok := column.Value.([]any); ok && len(stored) > len(rows) {
			column.Value = append([]any(nil), stored[:len(rows)]...)
		}
	}

	for i, entry := range rows {
		e.materializeRow(t, i)
		cells, ok := entry.([]any)
		if !ok {
			e.logger.Warn("Table row is not a sequence, cells left as built.", "table", t.v.ID, "row", i)
			continue
		}
		e.applyRow(t, i, cells, 0)
	}
	e.out.Flush()
	e.logger.Debug("Table rows replaced.", "table", t.v.ID, "rows", len(rows))

	if t.v.ID == viewfilter.InstancesTableID {
		e.filter.ApplyInstanceColumns()
	}
}

// applyRow writes the values of one row tuple to the cells of the given row,
// starting at column from.
func (e *Engine) applyRow(t *table, row int, cells []any, from int) {
	for ci := from; ci < len(t.v.Children); ci++ {
		column := t.v.Children[ci]
		cell, ok := e.lookup(nodeid.InRow(column.ID, row))
		if !ok {
			e.logger.Warn("Cell not found.", "id", nodeid.InRow(column.ID, row).String())
			continue
		}
		var value any
		if ci < len(cells) {
			value = cells[ci]
		}
		e.applyToNode(cell, map[string]any{"value": value}, row)
	}
}

// broadcastColumn applies a heading value to the column's cells. A scalar is
// written to every existing row. A sequence is written by row index: missing
// rows are created and rows beyond the sequence are cleared.
func (e *Engine) broadcastColumn(b *binding, value any) {
	t := b.table
	if t == nil {
		e.logger.Warn("Heading without table, value ignored.", "id", b.id.String())
		return
	}
	rows := e.rowCount(t)
	seq, isSeq := value.([]any)

	if !isSeq {
		for row := range rows {
			e.applyCell(b.v, row, value)
		}
		e.out.Flush()
		return
	}

	// The sequence replaces whatever the column held, slot by slot.
	if _, ok := b.v.Value.([]any); !ok {
		b.v.Value = nil
	}
	for row := range max(len(seq), rows) {
		if row >= rows {
			e.materializeRow(t, row)
		}
		var x any
		if row < len(seq) {
			x = seq[row]
		}
		e.applyCell(b.v, row, x)
	}
	e.out.Flush()
}

func (e *Engine) applyCell(column *varmodel.Variable, row int, value any) {
	cell, ok := e.lookup(nodeid.InRow(column.ID, row))
	if !ok {
		e.logger.Warn("Cell not found.", "id", nodeid.InRow(column.ID, row).String())
		return
	}
	e.applyToNode(cell, map[string]any{"value": value}, row)
}

// applyUpdRow reconciles rows keyed by their first column. Existing rows
// whose first cell shows the key of an incoming row get the remaining
// columns written. Incoming rows matching no existing row are appended after
// the matching pass through the regular row creation path.
func (e *Engine) applyUpdRow(raw json.RawMessage) {
	var tables map[string][]any
	if err := json.Unmarshal(raw, &tables); err != nil {
		e.logger.Warn("Row update is not a table mapping, ignored.", "error", err)
		return
	}
	ids := make([]string, 0, len(tables))
	for id := range tables {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		b, ok := e.lookup(nodeid.New(id))
		if !ok || b.shape != ShapeTable {
			e.logger.Warn("Row update for unknown table skipped.", "table", id)
			continue
		}
		t := b.table
		if len(t.v.Children) == 0 {
			e.logger.Warn("Row update for table without columns skipped.", "table", id)
			continue
		}
		incoming := tables[id]
		matched := make([]bool, len(incoming))
		keyColumn := t.v.Children[0]

		for row := range e.rowCount(t) {
			keyCell, ok := e.lookup(nodeid.InRow(keyColumn.ID, row))
			if !ok {
				e.logger.Warn("Key cell not found.", "id", nodeid.InRow(keyColumn.ID, row).String())
				continue
			}
			shown := render.TextOf(e.r, keyCell.node)
			for i, entry := range incoming {
				tuple, ok := entry.([]any)
				if !ok || len(tuple) == 0 {
					continue
				}
				if varmodel.FormatScalar(tuple[0]) == shown {
					matched[i] = true
					e.applyRow(t, row, tuple, 1)
				}
			}
		}

		var created int
		for i, entry := range incoming {
			if matched[i] {
				continue
			}
			tuple, ok := entry.([]any)
			if !ok || len(tuple) == 0 {
				e.logger.Warn("Row update entry is not a tuple, skipped.", "table", id, "entry", i)
				continue
			}
			row := e.rowCount(t)
			e.materializeRow(t, row)
			e.applyRow(t, row, tuple, 0)
			created++
		}
		if created > 0 {
			e.logger.Info("Rows created for unmatched row update entries.", "table", id, "rows", created)
		}
		e.out.Flush()

		if id == viewfilter.InstancesTableID {
			e.filter.ApplyInstanceColumns()
		}
	}
}

type detailsPayload struct {
	ID       string               `json:"id"`
	RowNr    *int                 `json:"rowNr"`
	Children []*varmodel.Variable `json:"n"`
	Var      *varmodel.Variable   `json:"var"`
}

// applyDetails replaces the detail subtree of a variable instance. The
// variable is named either directly or through a nested `var` object. A
// subtree sent for one row belongs to that row only; the column descriptor
// shared by every row is left alone.
func (e *Engine) applyDetails(raw json.RawMessage) {
	var d detailsPayload
	if err := json.Unmarshal(raw, &d); err != nil {
		e.logger.Warn("Details are malformed, ignored.", "error", err)
		return
	}
	id, children := d.ID, d.Children
	if d.Var != nil {
		id, children = d.Var.ID, d.Var.Children
	}
	row := nodeid.NoRow
	if d.RowNr != nil {
		row = *d.RowNr
	}
	target := nodeid.InRow(id, row)

	if old, ok := e.r.Query(target.With(nodeid.PartDetail).String()); ok {
		e.discard(old)
	}

	if len(children) == 0 {
		e.setDetails(id, row, nil)
		e.out.Flush()
		return
	}
	anchor, ok := e.lookup(target)
	if !ok || anchor.div == render.None {
		e.logger.Warn("Details for unknown node skipped.", "id", target.String())
		return
	}
	e.setDetails(id, row, children)
	ndiv := e.r.CreateNode(render.KindDiv)
	e.r.SetAttr(ndiv, render.AttrID, target.With(nodeid.PartDetail).String())
	e.r.SetAttr(ndiv, render.AttrClass, ndivClass)
	e.r.AppendChild(anchor.div, ndiv)
	e.materializeAll(children, ndiv, row, nil, false)
	e.logger.Debug("Details materialized.", "id", target.String(), "children", len(children))
	e.out.Flush()
}

func (e *Engine) setDetails(id string, row int, children []*varmodel.Variable) {
	if row >= 0 {
		e.model.SetRowDetails(id, row, children)
		return
	}
	if v := e.model.Find(id); v != nil {
		e.model.ReplaceChildren(v, children)
	}
}

// detailsOf returns the detail variables to build under one instance of v.
func (e *Engine) detailsOf(v *varmodel.Variable, row int) []*varmodel.Variable {
	if row >= 0 {
		if scoped, ok := e.model.RowDetails(v.ID, row); ok {
			return scoped
		}
	}
	return v.Children
}
