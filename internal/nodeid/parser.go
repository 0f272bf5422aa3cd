// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// idRegex splits a raw identifier (suffix already removed) into variable id
// and optional row number, e.g. `name` or `name#1`.
var idRegex = regexp.MustCompile(`^([^#]+?)(?:#(\d+))?$`)

// Parse creates a new ID by parsing its canonical string representation.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return ID{}, fmt.Errorf("identifier cannot be empty")
	}

	id := ID{Row: NoRow}
	for _, part := range parts {
		if strings.HasSuffix(raw, string(part)) && len(raw) > len(part) {
			id.Part = part
			raw = strings.TrimSuffix(raw, string(part))
			break
		}
	}

	matches := idRegex.FindStringSubmatch(raw)
	if matches == nil {
		return ID{}, fmt.Errorf("invalid identifier format: %q", raw)
	}
	id.Var = matches[1]
	if matches[2] != "" {
		row, err := strconv.Atoi(matches[2])
		if err != nil {
			// Unreachable due to regex `\d+`
			return ID{}, fmt.Errorf("internal error parsing row: %w", err)
		}
		id.Row = row
	}
	return id, nil
}
