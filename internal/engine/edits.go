package engine

import (
	"github.com/vk/starmirror/internal/nodeid"
	"github.com/vk/starmirror/internal/outbound"
	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/varmodel"
)

// sendEdit sends the current value of a node the user changed. Every edit
// except a save marks the model dirty.
func (e *Engine) sendEdit(b *binding) {
	id := b.id.String()
	if id == outbound.SaveModelID {
		e.saveModel()
		return
	}
	e.markDirty(true)
	if err := e.out.SendValue(id, e.outgoing(b)); err != nil {
		e.logger.Debug("Edit not sent.", "id", id, "error", err)
	}
}

// outgoing converts a node's displayed state into the value sent to the
// device: checkboxes send a bool, static nodes their text, anything else a
// number when it reads as a non-zero number and the raw value otherwise.
func (e *Engine) outgoing(b *binding) any {
	switch b.shape {
	case ShapeCheckbox:
		return render.Bool(e.r, b.node, render.AttrChecked)
	case ShapeStatic, ShapeStaticSelect, ShapeButton:
		return render.TextOf(e.r, b.node)
	}
	raw := e.r.Attr(b.node, render.AttrValue)
	if f, ok := varmodel.AsFloat(raw); ok && f != 0 {
		return f
	}
	return raw
}

// sendCoord sends all three axes of a coordinate after one of them changed.
func (e *Engine) sendCoord(b *binding) {
	value := make(map[string]any, len(b.axes))
	for _, h := range b.axes {
		axis := render.String(e.r, h, render.AttrPlaceholder)
		raw := e.r.Attr(h, render.AttrValue)
		if f, ok := varmodel.AsFloat(raw); ok {
			value[axis] = f
		} else {
			value[axis] = raw
		}
	}
	e.markDirty(true)
	if err := e.out.SendValue(b.id.String(), value); err != nil {
		e.logger.Debug("Edit not sent.", "id", b.id.String(), "error", err)
	}
}

// saveModel asks the device to persist its model and resets the save
// affordance.
func (e *Engine) saveModel() {
	e.markDirty(false)
	if err := e.out.SendValue(outbound.SaveModelID, render.TextOf(e.r, e.chrome.Save)); err != nil {
		e.logger.Debug("Save not sent.", "error", err)
	}
}

func (e *Engine) markDirty(dirty bool) {
	caption := saveCaption
	if dirty {
		caption = saveDirtyCaption
	}
	e.r.SetAttr(e.chrome.Save, render.AttrText, caption)
	e.r.SetAttr(e.chrome.Save, render.AttrDisabled, !dirty)
}

// Dirty reports whether edits were sent since the last save.
func (e *Engine) Dirty() bool {
	return !render.Bool(e.r, e.chrome.Save, render.AttrDisabled)
}

// selectView applies a view picked by the user and tells the device.
func (e *Engine) selectView(view string) {
	if !e.filter.ApplyView(e.ctx, view) {
		return
	}
	if err := e.out.Send(outbound.View(view)); err != nil {
		e.logger.Debug("View not sent.", "view", view, "error", err)
	}
}

// selectTheme applies the theme picked in the theme picker and tells the
// device.
func (e *Engine) selectTheme() {
	theme := render.String(e.r, e.chrome.ThemeSelect, render.AttrValue)
	if theme == "" {
		return
	}
	e.filter.ApplyTheme(e.ctx, theme)
	if err := e.out.Send(outbound.Theme(theme)); err != nil {
		e.logger.Debug("Theme not sent.", "theme", theme, "error", err)
	}
}

// toggleModal shows a canvas or text area enlarged in the modal view, or
// closes the modal view again.
func (e *Engine) toggleModal(h render.Handle) {
	if e.modal == h {
		e.modal = render.None
		e.r.SetAttr(e.chrome.Modal, render.AttrState, "")
		e.r.SetAttr(e.chrome.Modal, render.AttrHidden, true)
		return
	}
	e.modal = h
	e.r.SetAttr(e.chrome.Modal, render.AttrState, render.String(e.r, h, render.AttrID))
	e.r.SetAttr(e.chrome.Modal, render.AttrHidden, false)
}

// Modal returns the node currently shown in the modal view.
func (e *Engine) Modal() (render.Handle, bool) {
	return e.modal, e.modal != render.None
}

// fetchFile retrieves a file named by a `file` payload in the background and
// stores its parsed content in the side table.
func (e *Engine) fetchFile(id nodeid.ID, name string) {
	if e.files == nil {
		e.logger.Warn("File payload without a file fetcher, ignored.", "id", id.String(), "file", name)
		return
	}
	ctx := e.ctx
	e.fetches.Go(func() {
		value, err := e.files.Fetch(ctx, name)
		if err != nil {
			e.logger.Warn("File fetch failed.", "id", id.String(), "file", name, "error", err)
			return
		}
		if e.side != nil {
			e.side.SetFile(ctx, id, value)
		}
		e.logger.Debug("File stored.", "id", id.String(), "file", name)
	})
}
