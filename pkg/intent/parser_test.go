package intent_test

import (
	"testing"

	"github.com/aretw0/parley/pkg/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MapPassthrough(t *testing.T) {
	args := map[string]any{"title": "Consult"}

	parsed, err := intent.Parse(args)
	require.NoError(t, err)
	assert.Equal(t, "Consult", parsed["title"])
}

func TestParse_JSONString(t *testing.T) {
	parsed, err := intent.Parse(`  {"title": "Consult", "send_email": true} `)
	require.NoError(t, err)
	assert.Equal(t, "Consult", parsed["title"])
	assert.Equal(t, true, parsed["send_email"])
}

func TestParse_Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"empty string", ""},
		{"whitespace only", "   "},
		{"broken json", `{"title": "Cons`},
		{"natural language", "sure, I booked it for you!"},
		{"json array", `[1, 2, 3]`},
		{"json scalar", `42`},
		{"unexpected type", 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := intent.Parse(tc.raw)
			assert.Error(t, err, "malformed input must be a decode error, not a crash")
			assert.Nil(t, parsed)
		})
	}
}

func TestParse_ArrayNamesType(t *testing.T) {
	_, err := intent.Parse(`["not", "an", "object"]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array")
}
