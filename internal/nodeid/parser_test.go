// internal/nodeid/parser_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name       string
		raw        string
		expectErr  bool
		expectedID ID
	}{
		{name: "plain", raw: "fx", expectedID: ID{Var: "fx", Row: NoRow}},
		{name: "row", raw: "pin#12", expectedID: ID{Var: "pin", Row: 12}},
		{name: "detail in row", raw: "pin#1_n", expectedID: ID{Var: "pin", Row: 1, Part: PartDetail}},
		{name: "underscore in name is kept", raw: "my_var", expectedID: ID{Var: "my_var", Row: NoRow}},
		{name: "suffix alone is a name", raw: "_n", expectedID: ID{Var: "_n", Row: NoRow}},
		{name: "error - empty string", raw: "", expectErr: true},
		{name: "error - non numeric row", raw: "pin#x", expectErr: true},
		{name: "error - only a row", raw: "#3", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := Parse(tc.raw)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedID, id)
		})
	}
}
