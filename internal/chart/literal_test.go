package chart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	src := `{
		// chart type
		type: 'bar',
		"data": {
			labels: ["Jan", 'Feb', ` + "`Mar`" + `,],
			datasets: [{ label: 'Sales!', data: [1, -2.5, .5, 0x10, 1e3], fill: false }],
		},
		options: { responsive: true, title: null, legend: undefined, /* inline */ 3: 'three' },
	}`
	obj, err := ParseLiteral(src)
	require.NoError(t, err)

	assert.Equal(t, "bar", obj["type"])
	data := obj["data"].(map[string]any)
	assert.Equal(t, []any{"Jan", "Feb", "Mar"}, data["labels"])
	ds := data["datasets"].([]any)[0].(map[string]any)
	assert.Equal(t, "Sales!", ds["label"])
	assert.Equal(t, []any{1.0, -2.5, 0.5, 16.0, 1000.0}, ds["data"])
	assert.Equal(t, false, ds["fill"])

	opts := obj["options"].(map[string]any)
	assert.Equal(t, true, opts["responsive"])
	assert.Nil(t, opts["title"])
	assert.Contains(t, opts, "legend")
	assert.Equal(t, "three", opts["3"])
}

func TestParseLiteralUnicodeEscapes(t *testing.T) {
	obj, err := ParseLiteral(`{a: '\uD83D\uDE00 up', b: "caf\u00e9", c: '\uD83Dx'}`)
	require.NoError(t, err)
	assert.Equal(t, "😀 up", obj["a"])
	assert.Equal(t, "café", obj["b"])
	assert.Equal(t, "\uFFFDx", obj["c"])
}

func TestParseLiteralRejectsReferences(t *testing.T) {
	for _, src := range []string{
		`{ data: values }`,
		`{ data }`,
		`{ data: getData() }`,
		`{ type: new Date() }`,
	} {
		_, err := ParseLiteral(src)
		assert.True(t, errors.Is(err, errNotSelfContained), "%s: %v", src, err)
	}
}

func TestParseLiteralSyntaxErrors(t *testing.T) {
	for _, src := range []string{
		`{ type: 'bar' `,
		`{ type: 'bar' } extra`,
		`{ a: [1, 2 }`,
		`{ a: 'unterminated }`,
		`{ a: ` + "`${x}`" + ` }`,
		`{ ...base }`,
		`{ cb: () => 1 }`,
		`{ a: -'x' }`,
		`{ a: NaN }`,
	} {
		_, err := ParseLiteral(src)
		var se *SyntaxError
		assert.True(t, errors.As(err, &se), "%s: %v", src, err)
	}
}

func TestParseLiteralRequiresObject(t *testing.T) {
	_, err := ParseLiteral(`[1, 2]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object literal")
}
