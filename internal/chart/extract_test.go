package chart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced with language tag",
			in:   "```javascript\nconst chart = new Chart(ctx, {type: 'bar'});\n```",
			want: "const chart = new Chart(ctx, {type: 'bar'});",
		},
		{
			name: "fenced without tag",
			in:   "```\nnew Chart(ctx, {})\n```\n",
			want: "new Chart(ctx, {})",
		},
		{
			name: "inline fences",
			in:   "```jsnew Chart(ctx, {})```",
			want: "new Chart(ctx, {})",
		},
		{
			name: "bare code is kept verbatim",
			in:   "  new Chart(ctx, {type: 'pie'})  \n",
			want: "new Chart(ctx, {type: 'pie'})",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Extract(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractRejectsMissingConstruction(t *testing.T) {
	for _, in := range []string{"", "```javascript\nconsole.log('hi')\n```", "Sorry, I cannot help with that."} {
		_, err := Extract(in)
		var fe *FormatError
		require.True(t, errors.As(err, &fe), "input %q", in)
		assert.Equal(t, "unexpected code format", fe.Error())
	}
}
