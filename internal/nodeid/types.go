// internal/nodeid/types.go
package nodeid

// NoRow marks an identifier that is not scoped to a table row.
const NoRow = -1

// Part names the auxiliary node a suffix addresses next to a variable's
// primary node.
type Part string

const (
	PartNode   Part = ""     // the variable's primary node
	PartDiv    Part = "_d"   // the container holding label, node and annotations
	PartDetail Part = "_n"   // the nested detail scope
	PartEcho   Part = "_rv"  // the live numeric echo of a range
	PartDelete Part = "_del" // the remove-row affordance of a table row
)

// parts lists every non-empty suffix, longest first so parsing is unambiguous.
var parts = []Part{PartDelete, PartEcho, PartDiv, PartDetail}

// ID is the structured form of a rendered node identifier: a variable id,
// optionally qualified by a table row number and a part suffix.
type ID struct {
	Var  string
	Row  int // NoRow when the node is not inside a table row.
	Part Part
}

// New returns the identifier of a variable's primary node outside any row.
func New(varID string) ID {
	return ID{Var: varID, Row: NoRow}
}

// InRow returns the identifier of a variable's primary node in a table row.
// A negative row yields an unscoped identifier.
func InRow(varID string, row int) ID {
	if row < 0 {
		row = NoRow
	}
	return ID{Var: varID, Row: row}
}

// HasRow reports whether the identifier is scoped to a table row.
func (id ID) HasRow() bool {
	return id.Row != NoRow
}

// With returns a copy of the identifier addressing the given part.
func (id ID) With(part Part) ID {
	id.Part = part
	return id
}

// Node returns a copy of the identifier addressing the primary node.
func (id ID) Node() ID {
	return id.With(PartNode)
}
