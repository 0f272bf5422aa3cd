package varmodel

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeValue(t *testing.T) {
	testCases := []struct {
		name     string
		stored   any
		incoming any
		row      int
		expected any
	}{
		{name: "scalar over scalar", stored: 1.0, incoming: 2.0, row: -1, expected: 2.0},
		{name: "scalar over nothing", stored: nil, incoming: "a", row: -1, expected: "a"},
		{name: "false is a value", stored: true, incoming: false, row: -1, expected: false},
		{name: "sequence over nothing without row", stored: nil, incoming: []any{1.0, 2.0}, row: -1, expected: []any{1.0, 2.0}},
		{name: "sequence over sequence without row", stored: []any{9.0}, incoming: []any{1.0, 2.0}, row: -1, expected: []any{1.0, 2.0}},
		{name: "sequence slot copy at row", stored: []any{9.0, 9.0}, incoming: []any{1.0, 2.0}, row: 1, expected: []any{9.0, 2.0}},
		{name: "sequence slot allocates", stored: nil, incoming: []any{1.0, 2.0, 3.0}, row: 2, expected: []any{nil, nil, 3.0}},
		{name: "scalar into sequence slot", stored: []any{1.0, 2.0}, incoming: 5.0, row: 0, expected: []any{5.0, 2.0}},
		{name: "scalar into nothing at row", stored: nil, incoming: 5.0, row: 1, expected: []any{nil, 5.0}},
		{name: "scalar into sequence slot grows", stored: []any{1.0}, incoming: 5.0, row: 2, expected: []any{1.0, nil, 5.0}},
		{name: "scalar stored, scalar at row replaces", stored: 3.0, incoming: 4.0, row: 2, expected: 4.0},
		{name: "scalar broadcast keeps row sequence", stored: []any{7.0, 7.0}, incoming: 7.0, row: -1, expected: []any{7.0, 7.0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MergeValue(tc.stored, tc.incoming, tc.row)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("MergeValue() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeValue_InconsistentIsReported(t *testing.T) {
	for _, row := range []int{-1, 0, 3} {
		got, err := MergeValue(5.0, []any{1.0, 2.0}, row)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInconsistentMerge))
		assert.Equal(t, 5.0, got, "stored value must survive an inconsistent merge")
	}
}

func TestMergeValue_DoesNotAliasStoredSequence(t *testing.T) {
	stored := []any{1.0, 2.0}
	_, err := MergeValue(stored, 9.0, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, stored)
}
