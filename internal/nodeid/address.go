// internal/nodeid/address.go
package nodeid

import (
	"strconv"
	"strings"
)

// String serializes the ID into the identifier the renderer indexes nodes by,
// e.g. `fx`, `pin#2`, `pin#2_n`.
func (id ID) String() string {
	var sb strings.Builder
	sb.WriteString(id.Var)
	if id.HasRow() {
		sb.WriteRune('#')
		sb.WriteString(strconv.Itoa(id.Row))
	}
	sb.WriteString(string(id.Part))
	return sb.String()
}

// Equal checks for equality between two identifiers.
func (id ID) Equal(other ID) bool {
	return id == other
}
