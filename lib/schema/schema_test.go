package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/soldash/lib/fetch"
)

const doc = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "tvl"],
		"properties": {
			"name": {"type": "string"},
			"tvl": {"type": ["number", "null"]}
		}
	}
}`

func TestSchema(t *testing.T) {
	s, err := Compile("test", doc)
	require.NoError(t, err)

	var out []struct {
		Name string   `json:"name"`
		TVL  *float64 `json:"tvl"`
	}

	require.NoError(t, s.Decode([]byte(`[{"name":"a","tvl":1.5},{"name":"b","tvl":null}]`), &out))
	require.Len(t, out, 2)
	assert.Nil(t, out[1].TVL)

	cases := []struct {
		name, raw, msg string
	}{
		{"missing", `[{"name":"a"}]`, "/0"},
		{"type", `[{"name":"a","tvl":"lots"}]`, "/0/tvl"},
		{"root", `{"name":"a"}`, "/"},
		{"garbage", `[1,`, "unexpected"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Validate([]byte(tc.raw))
			require.Error(t, err)
			assert.Equal(t, fetch.KindTransform, fetch.Classify(err))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}

	_, err = Compile("bad", `{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile("bad", `{`) })
}
