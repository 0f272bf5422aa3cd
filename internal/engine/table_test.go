package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/starmirror/internal/nodeid"
	"github.com/vk/starmirror/internal/outbound"
	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/varmodel"
)

// rows returns what every body row of a table shows, cell by cell.
func (h *harness) rows(t *testing.T, tableID string, columns ...string) [][]any {
	t.Helper()
	b, ok := h.e.lookup(nodeid.New(tableID))
	require.True(t, ok)
	var out [][]any
	for row := range h.e.rowCount(b.table) {
		var cells []any
		for _, col := range columns {
			cell := h.node(t, nodeid.InRow(col, row).String())
			if h.s.Kind(cell) == render.KindStatic {
				cells = append(cells, render.TextOf(h.s, cell))
			} else {
				cells = append(cells, h.s.Attr(cell, render.AttrValue))
			}
		}
		out = append(out, cells)
	}
	return out
}

func TestTable_FullReplace(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)

	h.send(t, `{"tbl": {"value": [["x", 9], ["y", 8], ["z", 7]]}}`)
	h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2]]}}`)

	want := [][]any{{"a", 1.0}, {"b", 2.0}}
	if diff := cmp.Diff(want, h.rows(t, "tbl", "name", "val")); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	_, stale := h.s.Query("name#2")
	assert.False(t, stale, "rows of the previous content must be gone")

	assert.Equal(t, []any{"a", "b"}, h.model.Find("name").Value)
	assert.Equal(t, []any{1.0, 2.0}, h.model.Find("val").Value)
	assert.Equal(t, []any{[]any{"a", 1.0}, []any{"b", 2.0}}, h.model.Find("tbl").Value)
}

func TestTable_ColumnBroadcast(t *testing.T) {
	testCases := []struct {
		name   string
		update string
		want   []any
	}{
		{
			name:   "shorter sequence clears remaining rows",
			update: `{"val": {"value": [10, 20]}}`,
			want:   []any{10.0, 20.0, nil},
		},
		{
			name:   "scalar applies to every row",
			update: `{"val": {"value": 5}}`,
			want:   []any{5.0, 5.0, 5.0},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.send(t, fixtureModule)
			h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2], ["c", 3]]}}`)

			h.send(t, tc.update)

			var got []any
			for _, row := range h.rows(t, "tbl", "val") {
				got = append(got, row[0])
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTable_ColumnBroadcastCreatesRows(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, `{"tbl": {"value": [["a", 1]]}}`)

	h.send(t, `{"val": {"value": [10, 20, 30]}}`)

	got := h.rows(t, "tbl", "val")
	require.Len(t, got, 3)
	assert.Equal(t, [][]any{{10.0}, {20.0}, {30.0}}, got)
	assert.Equal(t, []any{10.0, 20.0, 30.0}, h.model.Find("val").Value)
}

func TestTable_ColumnValuesOnBuild(t *testing.T) {
	h := newHarness(t)
	h.send(t, `{"type":"appmod","id":"Pins","n":[
		{"id":"pinTbl","type":"table","ro":true,"n":[
			{"id":"pinNr","type":"number","ro":true,"o":1,"value":[2,4,16]},
			{"id":"owner","type":"text","ro":true,"o":2,"value":["Leds","Button","Leds"]}
		]}
	]}`)

	want := [][]any{{"2", "Leds"}, {"4", "Button"}, {"16", "Leds"}}
	if diff := cmp.Diff(want, h.rows(t, "pinTbl", "pinNr", "owner")); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	_, hasDelete := h.s.Query("pinTbl#0_del")
	assert.False(t, hasDelete, "read-only tables have no remove affordance")
}

func TestTable_UpdRow(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2]]}}`)

	h.send(t, `{"updRow": {"tbl": [["b", 22], ["z", 9]]}}`)

	want := [][]any{{"a", 1.0}, {"b", 22.0}, {"z", 9.0}}
	if diff := cmp.Diff(want, h.rows(t, "tbl", "name", "val")); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	for _, cmd := range h.out.sent {
		_, isAdd := cmd["addRow"]
		assert.False(t, isAdd, "rows created from a device update are not announced back")
	}
}

func TestTable_UpdRowUnknownTable(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)

	assert.NotPanics(t, func() {
		h.send(t, `{"updRow": {"nope": [["a", 1]]}}`)
		h.send(t, `{"updRow": ["not", "a", "mapping"]}`)
	})
}

func TestTable_AddAndDeleteRow(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, `{"tbl": {"value": [["a", 1]]}}`)

	var add render.Handle
	for _, c := range h.s.Children(h.node(t, "tbl_d")) {
		if h.s.Kind(c) == render.KindButton && render.String(h.s, c, render.AttrText) == "+" {
			add = c
		}
	}
	require.NotEqual(t, render.None, add)

	h.s.Dispatch(add, render.EventClick)

	assert.Len(t, h.rows(t, "tbl", "name"), 2)
	assert.Equal(t, outbound.AddRow("tbl", 1), h.out.last())

	h.s.Dispatch(h.node(t, "tbl#0_del"), render.EventClick)
	assert.Equal(t, outbound.DelRow("tbl", 0), h.out.last())
}

func TestTable_ColumnComputeRequestedOnce(t *testing.T) {
	h := newHarness(t)
	h.send(t, `{"type":"appmod","id":"Leds","n":[
		{"id":"fxTbl","type":"table","n":[
			{"id":"fxName","type":"select","o":1,"uiFun":0}
		]}
	]}`)
	h.send(t, `{"fxTbl": {"value": [[0], [1], [2]]}}`)

	assert.Equal(t, 1, h.out.count("fxName"))

	v := h.model.Find("fxName")
	for row := range 3 {
		assert.Equal(t, varmodel.ComputeRequested, h.model.ComputeState(v, row))
	}

	h.send(t, `{"fxName": {"options": ["Solid", "Fire"]}}`)
	for row := range 3 {
		assert.Equal(t, varmodel.ComputeFulfilled, h.model.ComputeState(v, row))
		opts, ok := h.s.Attr(h.node(t, nodeid.InRow("fxName", row).String()), render.AttrOptions).([]render.Option)
		require.True(t, ok)
		assert.Len(t, opts, 2, "column options reach the row cells")
	}
}

func TestDetails_Replace(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)

	h.send(t, `{"details": {"id": "fx", "n": [{"id": "intensity", "type": "range", "o": 1, "value": 3}]}}`)

	h.node(t, "fx_n")
	assert.Equal(t, 3.0, h.value(t, "intensity"))
	require.NotNil(t, h.model.Find("intensity"))

	h.send(t, `{"details": {"var": {"id": "fx", "n": [{"id": "palette", "type": "select", "o": 1}]}}}`)

	_, stale := h.s.Query("intensity")
	assert.False(t, stale, "previous details are removed")
	h.node(t, "palette")
	assert.Len(t, h.s.Children(h.node(t, "fx_n")), 1)
	assert.Nil(t, h.model.Find("intensity"))
}

func TestDetails_RowScoped(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2]]}}`)

	h.send(t, `{"details": {"id": "val", "rowNr": 1, "n": [{"id": "gain", "type": "number", "value": 4}]}}`)

	h.node(t, "val#1_n")
	assert.Equal(t, 4.0, h.value(t, "gain#1"))
	_, other := h.s.Query("val#0_n")
	assert.False(t, other)
}

func TestDetails_RowScopedSurvivesRebuild(t *testing.T) {
	testCases := []struct {
		name    string
		rebuild string
	}{
		{name: "full replace", rebuild: `{"tbl": {"value": [["a", 1], ["b", 2], ["c", 3]]}}`},
		{name: "column broadcast creating rows", rebuild: `{"val": {"value": [1, 2, 3]}}`},
		{name: "row update creating rows", rebuild: `{"updRow": {"tbl": [["c", 3]]}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.send(t, fixtureModule)
			h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2]]}}`)
			h.send(t, `{"details": {"id": "val", "rowNr": 1, "n": [{"id": "gain", "type": "number", "value": 4}]}}`)

			h.send(t, tc.rebuild)

			require.Len(t, h.rows(t, "tbl", "name"), 3)
			h.node(t, "val#1_n")
			h.node(t, "gain#1")
			for _, id := range []string{"val#0_n", "val#2_n", "gain#0", "gain#2"} {
				_, present := h.s.Query(id)
				assert.False(t, present, "%s must not exist", id)
			}
			assert.Empty(t, h.model.Find("val").Children, "the shared column keeps no row details")
		})
	}
}

func TestDetails_RowScopedClearedByEmptySubtree(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2]]}}`)
	h.send(t, `{"details": {"id": "val", "rowNr": 1, "n": [{"id": "gain", "type": "number"}]}}`)

	h.send(t, `{"details": {"id": "val", "rowNr": 1, "n": []}}`)
	h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2]]}}`)

	_, present := h.s.Query("val#1_n")
	assert.False(t, present)
	assert.Nil(t, h.model.Find("gain"))
}

func TestDetails_RowScopedDroppedWithRow(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2]]}}`)
	h.send(t, `{"details": {"id": "val", "rowNr": 1, "n": [{"id": "gain", "type": "number"}]}}`)

	h.send(t, `{"tbl": {"value": [["a", 1]]}}`)
	h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2]]}}`)

	_, present := h.s.Query("gain#1")
	assert.False(t, present, "a row that was removed takes its details with it")
}

func TestDetails_EmptySubtreeClearsModel(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, `{"details": {"id": "fx", "n": [{"id": "intensity", "type": "range", "o": 1}]}}`)

	h.send(t, `{"details": {"id": "fx", "n": []}}`)

	_, present := h.s.Query("fx_n")
	assert.False(t, present)
	assert.Empty(t, h.model.Find("fx").Children)
	assert.Nil(t, h.model.Find("intensity"))
}

func TestTable_ScalarThenSequenceBroadcast(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)
	h.send(t, `{"tbl": {"value": [["a", 1], ["b", 2]]}}`)

	h.send(t, `{"val": {"value": 7}}`)
	assert.Equal(t, []any{7.0, 7.0}, h.model.Find("val").Value)

	h.send(t, `{"val": {"value": [10, 20, 30]}}`)

	assert.Equal(t, [][]any{{10.0}, {20.0}, {30.0}}, h.rows(t, "tbl", "val"))
	assert.Equal(t, []any{10.0, 20.0, 30.0}, h.model.Find("val").Value)
}

func TestTable_SequenceBroadcastAfterScalarOnEmptyTable(t *testing.T) {
	h := newHarness(t)
	h.send(t, fixtureModule)

	h.send(t, `{"val": {"value": 7}}`)
	h.send(t, `{"val": {"value": [10, 20]}}`)

	assert.Equal(t, []any{10.0, 20.0}, h.model.Find("val").Value)
}
