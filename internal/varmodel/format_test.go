package varmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitCap(t *testing.T) {
	testCases := map[string]string{
		"serverName":  "ServerName",
		"led_count":   "Led Count",
		"fx-speed":    "Fx Speed",
		"insTbl":      "InsTbl",
		"a b":         "A B",
		"":            "",
		"pin2":        "Pin2",
		"9lives_here": "9lives Here",
	}
	for in, want := range testCases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, InitCap(in))
		})
	}
}

func TestFormatScalar(t *testing.T) {
	assert.Equal(t, "1", FormatScalar(1.0))
	assert.Equal(t, "1.5", FormatScalar(1.5))
	assert.Equal(t, "abc", FormatScalar("abc"))
	assert.Equal(t, "true", FormatScalar(true))
	assert.Equal(t, "", FormatScalar(nil))
	assert.Equal(t, `{"x":1}`, FormatScalar(map[string]any{"x": 1.0}))
}

func TestOptionList(t *testing.T) {
	opts := OptionList([]any{"Solid", "Rainbow"})
	assert.Equal(t, []Option{{Code: 0.0, Label: "Solid"}, {Code: 1.0, Label: "Rainbow"}}, opts)

	coded := OptionList([]any{[]any{10.0, "Ten"}, []any{20.0, "Twenty"}})
	assert.Equal(t, []Option{{Code: 10.0, Label: "Ten"}, {Code: 20.0, Label: "Twenty"}}, coded)
}

func TestAsIndex(t *testing.T) {
	i, ok := AsIndex("2")
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = AsIndex("x")
	assert.False(t, ok)

	i, ok = AsIndex(3.7)
	assert.True(t, ok)
	assert.Equal(t, 3, i)
}
