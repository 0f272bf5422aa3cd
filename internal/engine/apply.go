package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/starmirror/internal/nodeid"
	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/varmodel"
)

// Special keys of an update message. Any other key names a variable.
const (
	KeyView       = "view"
	KeyTheme      = "theme"
	KeyDetails    = "details"
	KeyUpdRow     = "updRow"
	KeyCanvasData = "canvasData"
	KeyUIFun      = "uiFun"
)

type field struct {
	key string
	raw json.RawMessage
}

// decodeObject splits a JSON object into its fields in document order.
func decodeObject(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("not a JSON object")
	}
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, field{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// ApplyUpdate applies an update message. Keys are processed in document
// order; a key that cannot be applied is logged and the remaining keys still
// run.
func (e *Engine) ApplyUpdate(data []byte) {
	fields, err := decodeObject(data)
	if err != nil {
		e.logger.Warn("Malformed update discarded.", "error", err)
		return
	}
	for _, f := range fields {
		e.applyField(f)
	}
}

func (e *Engine) applyField(f field) {
	switch f.key {
	case KeyUIFun, KeyCanvasData:
		e.logger.Debug("Update key needs no action.", "key", f.key)

	case KeyView:
		var view string
		if err := json.Unmarshal(f.raw, &view); err != nil {
			e.logger.Warn("View is not a string, ignored.", "error", err)
			return
		}
		e.filter.ApplyView(e.ctx, view)

	case KeyTheme:
		var theme string
		if err := json.Unmarshal(f.raw, &theme); err != nil {
			e.logger.Warn("Theme is not a string, ignored.", "error", err)
			return
		}
		e.filter.ApplyTheme(e.ctx, theme)

	case KeyDetails:
		e.applyDetails(f.raw)

	case KeyUpdRow:
		e.applyUpdRow(f.raw)

	default:
		e.applyVariable(f.key, f.raw)
	}
}

// applyVariable applies a payload addressed to a variable id.
func (e *Engine) applyVariable(id string, raw json.RawMessage) {
	v := e.model.Find(id)
	if v == nil {
		e.logger.Warn("Update for unknown variable skipped.", "id", id)
		return
	}
	e.model.Fulfill(v)

	b, ok := e.lookup(nodeid.New(id))
	if !ok {
		e.logger.Warn("Variable has no rendered node, update skipped.", "id", id)
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		e.logger.Warn("Variable update is not an object, skipped.", "id", id)
		return
	}
	e.applyToNode(b, payload, nodeid.NoRow)
}

// applyToNode applies the present fields of a payload in the fixed order
// label, comment, options, value, json, file.
func (e *Engine) applyToNode(b *binding, p map[string]any, row int) {
	r := e.r
	v := b.v

	if label, ok := p["label"]; ok {
		text := varmodel.InitCap(varmodel.FormatScalar(label))
		switch {
		case b.shape == ShapeHeading, b.shape == ShapeButton:
			r.SetAttr(b.node, render.AttrText, text)
		case b.label != render.None:
			r.SetAttr(b.label, render.AttrText, text)
		}
		v.Label = varmodel.FormatScalar(label)
	}

	if comment, ok := p["comment"]; ok {
		text := varmodel.FormatScalar(comment)
		switch {
		case b.shape == ShapeHeading:
			r.SetAttr(b.node, render.AttrTooltip, text)
		case !b.inCell && b.div != render.None:
			if b.comment == render.None {
				b.comment = r.CreateNode(render.KindComment)
				r.AppendChild(b.div, b.comment)
			}
			r.SetAttr(b.comment, render.AttrText, text)
		}
		v.Comment = text
	}

	if options, ok := p["options"]; ok {
		list, isList := options.([]any)
		if !isList && options != nil {
			e.logger.Warn("Options are not a list, ignored.", "id", b.id.String())
		} else {
			v.Options = list
			e.setOptions(b, list)
			if value, has := p["value"]; (!has || value == nil) && v.Value != nil {
				e.applyToNode(b, map[string]any{"value": v.Value}, row)
			}
		}
	}

	if value, ok := p["value"]; ok {
		e.applyValue(b, value, row)
		merged, err := varmodel.MergeValue(v.Value, value, row)
		if err != nil {
			e.logger.Warn("Value merge inconsistency.", "id", b.id.String(), "row", row, "error", err)
		} else {
			v.Value = merged
		}
	}

	if value, ok := p["json"]; ok {
		if e.side != nil {
			e.side.SetJSON(e.ctx, b.id, value)
		}
		e.logger.Debug("JSON payload stored.", "id", b.id.String())
	}

	if name, ok := p["file"]; ok {
		e.fetchFile(b.id, varmodel.FormatScalar(name))
	}
}

// setOptions renders a choice set. Options arriving for a column are passed
// on to the column's select cells.
func (e *Engine) setOptions(b *binding, list []any) {
	opts := renderOptions(list)
	switch b.shape {
	case ShapeSelect:
		e.r.SetAttr(b.node, render.AttrOptions, opts)
	case ShapeHeading:
		for row := range e.rowCount(b.table) {
			if cell, ok := e.lookup(nodeid.InRow(b.v.ID, row)); ok && cell.shape == ShapeSelect {
				e.r.SetAttr(cell.node, render.AttrOptions, opts)
			}
		}
	}
}

func renderOptions(list []any) []render.Option {
	opts := make([]render.Option, 0, len(list))
	for _, o := range varmodel.OptionList(list) {
		opts = append(opts, render.Option{Value: o.Code, Text: o.Label})
	}
	return opts
}

// applyValue shows a value on a node according to its shape.
func (e *Engine) applyValue(b *binding, value any, row int) {
	r := e.r
	seq, isSeq := value.([]any)

	switch b.shape {
	case ShapeTable:
		if !isSeq {
			e.logger.Warn("Table value is not a row sequence, ignored.", "id", b.id.String())
			return
		}
		e.replaceRows(b.table, seq)
		return

	case ShapeHeading:
		e.broadcastColumn(b, value)
		return
	}

	if isSeq && (b.inCell || row >= 0) {
		if row < 0 {
			e.logger.Warn("Row sequence delivered to a cell without row, fanning out.", "id", b.id.String(), "values", len(seq))
			for i, x := range seq {
				cell, ok := e.lookup(nodeid.InRow(b.v.ID, i))
				if !ok {
					e.logger.Warn("Cell not found for fan-out.", "id", nodeid.InRow(b.v.ID, i).String())
					continue
				}
				e.applyToNode(cell, map[string]any{"value": x}, i)
			}
			return
		}
		var slot any
		if row < len(seq) {
			slot = seq[row]
		}
		e.applyToNode(b, map[string]any{"value": slot}, row)
		return
	}

	switch b.shape {
	case ShapeStaticSelect:
		r.SetAttr(b.node, render.AttrValue, value)
		r.SetAttr(b.node, render.AttrText, optionText(b.v.Options, value))

	case ShapeStatic:
		r.SetAttr(b.node, render.AttrValue, value)
		r.SetAttr(b.node, render.AttrText, varmodel.FormatScalar(value))

	case ShapeLink:
		r.SetAttr(b.node, render.AttrText, zoomGlyph)
		r.SetAttr(b.node, render.AttrHref, varmodel.FormatScalar(value))

	case ShapeCanvas:
		e.logger.Debug("Canvas value ignored.", "id", b.id.String())

	case ShapeCheckbox:
		r.SetAttr(b.node, render.AttrChecked, truthy(value))
		r.SetAttr(b.node, render.AttrIndeterminate, value == nil)

	case ShapeButton:
		if truthy(value) {
			r.SetAttr(b.node, render.AttrText, varmodel.FormatScalar(value))
		}

	case ShapeCoord:
		axes, ok := value.(map[string]any)
		if !ok {
			e.logger.Warn("Coordinate value is not an axis mapping, ignored.", "id", b.id.String())
			return
		}
		for i, key := range axisOrder(axes) {
			if i >= len(b.axes) {
				break
			}
			r.SetAttr(b.axes[i], render.AttrValue, axes[key])
			r.Dispatch(b.axes[i], render.EventInput)
		}

	default:
		r.SetAttr(b.node, render.AttrValue, value)
		r.Dispatch(b.node, render.EventInput)
		if b.v.ID == ServerNameID {
			r.SetAttr(e.chrome.InstanceName, render.AttrText, varmodel.FormatScalar(value))
		}
	}
}

// optionText resolves a stored option code to its label.
func optionText(options []any, value any) string {
	if options == nil || value == nil {
		return varmodel.FormatScalar(value)
	}
	want, wantOK := varmodel.AsIndex(value)
	for _, o := range varmodel.OptionList(options) {
		if code, ok := varmodel.AsIndex(o.Code); ok && wantOK && code == want {
			return o.Label
		}
		if varmodel.FormatScalar(o.Code) == varmodel.FormatScalar(value) {
			return o.Label
		}
	}
	return varmodel.FormatScalar(value)
}

// axisOrder returns the keys of a coordinate mapping with x, y and z first
// and any other keys after them in sorted order.
func axisOrder(axes map[string]any) []string {
	keys := make([]string, 0, len(axes))
	for k := range axes {
		keys = append(keys, k)
	}
	rank := func(k string) int {
		switch strings.ToLower(k) {
		case "x":
			return 0
		case "y":
			return 1
		case "z":
			return 2
		}
		return 3
	}
	slices.SortFunc(keys, func(a, b string) int {
		if d := rank(a) - rank(b); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return keys
}

// truthy follows the device's notion of a set flag.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	}
	return true
}
