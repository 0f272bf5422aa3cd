// Package viewfilter decides which part of the materialized surface is
// visible. It never touches the variable model: views select modules by their
// kind or identifier, themes only classify the surface root.
package viewfilter

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/vk/starmirror/internal/ctxlog"
	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/varmodel"
)

// View identifiers, which double as the identifiers of the view buttons.
const (
	ViewApp   = "vApp"
	ViewStage = "vStage"
	ViewUser  = "vUser"
	ViewSys   = "vSys"
	ViewAll   = "vAll"
)

// Views lists every view in button order.
var Views = []string{ViewApp, ViewStage, ViewUser, ViewSys, ViewAll}

const (
	// InstancesModuleID is the module shown on its own in the stage view.
	InstancesModuleID = "Instances"
	// InstancesTableID is the table whose columns depend on the stage view.
	InstancesTableID = "insTbl"
	// SyncMasterID is the field hidden, with its caption, in the stage view.
	SyncMasterID = "sma"

	// Instance table columns [stageFirst, stageEnd) are hidden in the stage
	// view; columns from stageEnd on are shown only there.
	stageFirst = 2
	stageEnd   = 6
)

const (
	// ContainerClassApp is the container class of the application view.
	ContainerClassApp = "mdlContainer2"
	// ContainerClassPrefix is followed by the number of visible columns.
	ContainerClassPrefix = "mdlContainer"
)

// PrefKeyTheme and PrefKeyView name the persisted preferences.
const (
	PrefKeyTheme = "theme"
	PrefKeyView  = "view"
)

// Prefs persists preferences across sessions.
type Prefs interface {
	Load(ctx context.Context, key string) (string, bool)
	Save(ctx context.Context, key, value string) error
}

// Layout names the fixed chrome nodes the filter operates on.
type Layout struct {
	Root        render.Handle
	Container   render.Handle
	Columns     []render.Handle
	ViewButtons map[string]render.Handle
	ThemeSelect render.Handle
}

// Filter applies views and themes to a surface.
type Filter struct {
	r      render.Renderer
	layout Layout
	prefs  Prefs
	logger *slog.Logger

	mu    sync.Mutex
	view  string
	theme string
}

// New creates a Filter. prefs may be nil, in which case nothing is persisted.
func New(ctx context.Context, r render.Renderer, layout Layout, prefs Prefs) *Filter {
	return &Filter{
		r:      r,
		layout: layout,
		prefs:  prefs,
		logger: ctxlog.Component(ctx, "viewfilter"),
		view:   ViewApp,
	}
}

// NormalizeView maps a view name, either a button identifier or a plain
// name such as "application" or "all", to its identifier.
func NormalizeView(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vapp", "app", "application":
		return ViewApp, true
	case "vstage", "stage":
		return ViewStage, true
	case "vuser", "user":
		return ViewUser, true
	case "vsys", "sys", "system":
		return ViewSys, true
	case "vall", "all":
		return ViewAll, true
	}
	return "", false
}

// View returns the active view.
func (f *Filter) View() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Theme returns the applied theme, empty until one is applied.
func (f *Filter) Theme() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.theme
}

// Reapply applies the active view again, after modules were added.
func (f *Filter) Reapply(ctx context.Context) {
	f.ApplyView(ctx, f.View())
}

// ApplyView selects a view: the modules it matches are shown, every other
// module is hidden, columns left without a visible module are hidden and the
// container is classified by the number of visible columns.
func (f *Filter) ApplyView(ctx context.Context, name string) bool {
	view, ok := NormalizeView(name)
	if !ok {
		f.logger.Warn("Unknown view ignored.", "view", name)
		return false
	}
	f.mu.Lock()
	f.view = view
	f.mu.Unlock()

	for _, v := range Views {
		if btn, ok := f.layout.ViewButtons[v]; ok {
			f.r.SetAttr(btn, render.AttrSelected, v == view)
		}
	}

	visibleColumns := 0
	for _, column := range f.layout.Columns {
		columnVisible := false
		for _, wrapper := range f.r.Children(column) {
			found := f.matches(view, wrapper)
			f.r.SetAttr(wrapper, render.AttrHidden, !found)
			if found {
				columnVisible = true
			}
		}
		f.r.SetAttr(column, render.AttrHidden, !columnVisible)
		if columnVisible {
			visibleColumns++
		}
	}

	class := ContainerClassApp
	if view != ViewApp {
		class = ContainerClassPrefix + strconv.Itoa(visibleColumns)
	}
	if f.layout.Container != render.None {
		f.r.SetAttr(f.layout.Container, render.AttrClass, class)
	}

	f.ApplyInstanceColumns()
	f.persist(ctx, PrefKeyView, view)
	f.logger.Debug("View applied.", "view", view, "columns", visibleColumns)
	return true
}

// matches reports whether any module node inside a module wrapper belongs to
// the view.
func (f *Filter) matches(view string, wrapper render.Handle) bool {
	if view == ViewAll {
		return true
	}
	for _, mod := range f.r.Children(wrapper) {
		class := render.String(f.r, mod, render.AttrClass)
		if class == "" {
			continue
		}
		id := render.String(f.r, mod, render.AttrID)
		if view == ViewStage {
			if id == InstancesModuleID {
				return true
			}
			continue
		}
		if id == InstancesModuleID {
			continue
		}
		switch {
		case view == ViewApp && class == string(varmodel.TypeAppModule),
			view == ViewSys && class == string(varmodel.TypeSysModule),
			view == ViewUser && class == string(varmodel.TypeUserModule):
			return true
		}
	}
	return false
}

// ApplyInstanceColumns sets the column visibility of the instances table for
// the active view. It is a no-op until the table exists.
func (f *Filter) ApplyInstanceColumns() {
	tbl, ok := f.r.Query(InstancesTableID)
	if !ok {
		return
	}
	stage := f.View() == ViewStage

	var headRow render.Handle
	var bodyRows []render.Handle
	for _, part := range f.r.Children(tbl) {
		switch f.r.Kind(part) {
		case render.KindTableHead:
			if rows := f.r.Children(part); len(rows) > 0 {
				headRow = rows[0]
			}
		case render.KindTableBody:
			bodyRows = f.r.Children(part)
		}
	}
	if headRow == render.None {
		return
	}

	headings := f.r.Children(headRow)
	for col := stageFirst; col < len(headings); col++ {
		hide := stage
		if col >= stageEnd {
			hide = !stage
		}
		f.r.SetAttr(headings[col], render.AttrHidden, hide)
		for _, row := range bodyRows {
			if cells := f.r.Children(row); col < len(cells) {
				f.r.SetAttr(cells[col], render.AttrHidden, hide)
			}
		}
	}

	if sma, ok := f.r.Query(SyncMasterID); ok {
		if p := f.r.Parent(sma); p != render.None {
			f.r.SetAttr(p, render.AttrHidden, stage)
		}
	}
}

// ApplyTheme classifies the surface root with the theme, persists it for the
// next session and corrects the theme picker when it disagrees.
func (f *Filter) ApplyTheme(ctx context.Context, theme string) {
	f.mu.Lock()
	f.theme = theme
	f.mu.Unlock()

	f.persist(ctx, PrefKeyTheme, theme)
	if f.layout.Root != render.None {
		f.r.SetAttr(f.layout.Root, render.AttrClass, theme)
	}
	if sel := f.layout.ThemeSelect; sel != render.None {
		if render.String(f.r, sel, render.AttrValue) != theme {
			f.r.SetAttr(sel, render.AttrValue, theme)
		}
	}
	f.logger.Debug("Theme applied.", "theme", theme)
}

// LoadTheme applies the persisted theme, if any. It reports whether one was
// found.
func (f *Filter) LoadTheme(ctx context.Context) bool {
	if f.prefs == nil {
		return false
	}
	theme, ok := f.prefs.Load(ctx, PrefKeyTheme)
	if !ok || theme == "" || theme == "null" {
		return false
	}
	f.ApplyTheme(ctx, theme)
	return true
}

// SavedView returns the persisted view, if any.
func (f *Filter) SavedView(ctx context.Context) (string, bool) {
	if f.prefs == nil {
		return "", false
	}
	v, ok := f.prefs.Load(ctx, PrefKeyView)
	if !ok {
		return "", false
	}
	return NormalizeView(v)
}

func (f *Filter) persist(ctx context.Context, key, value string) {
	if f.prefs == nil {
		return
	}
	if err := f.prefs.Save(ctx, key, value); err != nil {
		f.logger.Warn("Failed to persist preference.", "key", key, "error", err)
	}
}
