package varmodel

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/vk/starmirror/internal/ctxlog"
)

// Model is the tree of variable descriptors mirrored from the device.
type Model struct {
	logger *slog.Logger

	mu      sync.RWMutex
	modules []*Variable

	// cells holds the compute state of row instances: variable id -> row -> state.
	cells map[string]map[int]ComputeState
	// asked holds the ids whose computation was requested and not yet answered.
	asked map[string]struct{}
	// rowDetails holds detail subtrees scoped to one row instance: variable id -> row -> children.
	rowDetails map[string]map[int][]*Variable
}

// New creates an empty model.
func New(ctx context.Context) *Model {
	return &Model{
		logger: ctxlog.Component(ctx, "varmodel"),
		cells:      make(map[string]map[int]ComputeState),
		asked:      make(map[string]struct{}),
		rowDetails: make(map[string]map[int][]*Variable),
	}
}

// Register appends a module to the model. It reports false, and leaves the
// model untouched, when a module with the same id is already known.
func (m *Model) Register(module *Variable) bool {
	if err := m.RegisterStrict(module); err != nil {
		m.logger.Debug("Module registration skipped.", "id", module.ID, "reason", err)
		return false
	}
	m.logger.Debug("Module registered.", "id", module.ID, "type", module.Type, "children", len(module.Children))
	return true
}

// RegisterStrict is Register with the reason for a refusal.
func (m *Model) RegisterStrict(module *Variable) error {
	if module == nil || !module.Type.IsModule() {
		return ErrNotModule
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, known := range m.modules {
		if known.ID == module.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateModule, module.ID)
		}
	}
	m.modules = append(m.modules, module)
	return nil
}

// Modules returns a copy of the registered module list.
func (m *Model) Modules() []*Variable {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Variable(nil), m.modules...)
}

// Len returns the number of registered modules.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.modules)
}

// Find resolves an id to the first variable found by a depth-first search
// over all modules, then over the row-scoped detail subtrees. Ids are
// expected to be globally unique.
func (m *Model) Find(id string) *Variable {
	if v := FindIn(id, m.Modules()); v != nil {
		return v
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, owner := range slices.Sorted(maps.Keys(m.rowDetails)) {
		rows := m.rowDetails[owner]
		for _, row := range slices.Sorted(maps.Keys(rows)) {
			if v := FindIn(id, rows[row]); v != nil {
				return v
			}
		}
	}
	return nil
}

// FindIn resolves an id within the given scope and its descendants.
func FindIn(id string, scope []*Variable) *Variable {
	for _, v := range scope {
		if v.ID == id {
			return v
		}
		if found := FindIn(id, v.Children); found != nil {
			return found
		}
	}
	return nil
}

// ComputeState returns the deferred-compute state of a variable instance.
// Row instances are tracked independently from the variable's own state;
// a row instance that was never touched is unrequested if the variable
// declares a computation at all.
func (m *Model) ComputeState(v *Variable, row int) ComputeState {
	if row < 0 {
		return v.Compute
	}
	if states, ok := m.cells[v.ID]; ok {
		if s, ok := states[row]; ok {
			return s
		}
	}
	if v.deferred {
		return ComputeUnrequested
	}
	return ComputeFulfilled
}

// Advance moves a variable instance to the given compute state. States only
// move forward; a backward move is refused and reported false.
func (m *Model) Advance(v *Variable, row int, to ComputeState) bool {
	from := m.ComputeState(v, row)
	if to.rank() < from.rank() {
		m.logger.Warn("Refused backward compute state change.", "id", v.ID, "row", row, "from", from, "to", to)
		return false
	}
	if row < 0 {
		v.Compute = to
		return true
	}
	states, ok := m.cells[v.ID]
	if !ok {
		states = make(map[int]ComputeState)
		m.cells[v.ID] = states
	}
	states[row] = to
	return true
}

// Request advances a variable instance to requested and remembers that the
// device owes an answer for the variable's id.
func (m *Model) Request(v *Variable, row int) bool {
	if !m.Advance(v, row, ComputeRequested) {
		return false
	}
	m.asked[v.ID] = struct{}{}
	return true
}

// Fulfill marks the variable and every row instance of it as fulfilled: the
// device answers a computation per variable id, which covers all rows.
func (m *Model) Fulfill(v *Variable) {
	delete(m.asked, v.ID)
	v.Compute = ComputeFulfilled
	for row := range m.cells[v.ID] {
		m.cells[v.ID][row] = ComputeFulfilled
	}
}

// ForgetRows drops the row instance states of a variable from the given row
// onwards, used when table rows are discarded.
func (m *Model) ForgetRows(v *Variable, from int) {
	for row := range m.cells[v.ID] {
		if row >= from {
			delete(m.cells[v.ID], row)
		}
	}
}

// ReplaceChildren swaps the detail variables of v, used when the device
// sends a new detail subtree for it.
func (m *Model) ReplaceChildren(v *Variable, children []*Variable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.Children = children
}

// Outstanding returns, sorted, the ids of variables whose computation was
// requested but never answered. A channel session that ends takes those
// requests with it.
func (m *Model) Outstanding() []string {
	ids := make([]string, 0, len(m.asked))
	for _, id := range slices.Sorted(maps.Keys(m.asked)) {
		if m.Find(id) == nil {
			delete(m.asked, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// SetRowDetails records the detail subtree of one row instance of a
// variable. An empty subtree forgets it.
func (m *Model) SetRowDetails(id string, row int, children []*Variable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(children) == 0 {
		delete(m.rowDetails[id], row)
		if len(m.rowDetails[id]) == 0 {
			delete(m.rowDetails, id)
		}
		return
	}
	rows, ok := m.rowDetails[id]
	if !ok {
		rows = make(map[int][]*Variable)
		m.rowDetails[id] = rows
	}
	rows[row] = children
}

// RowDetails returns the detail subtree recorded for one row instance.
func (m *Model) RowDetails(id string, row int) ([]*Variable, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	children, ok := m.rowDetails[id][row]
	return children, ok
}

// ForgetRowDetails drops the row-scoped detail subtrees of a variable from
// the given row onwards.
func (m *Model) ForgetRowDetails(id string, from int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for row := range m.rowDetails[id] {
		if row >= from {
			delete(m.rowDetails[id], row)
		}
	}
	if len(m.rowDetails[id]) == 0 {
		delete(m.rowDetails, id)
	}
}
