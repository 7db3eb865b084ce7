package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probst/tangle/internal/payload"
)

func TestJSONRoundTrip(t *testing.T) {
	c := JSON{}
	assert.Equal(t, "json", c.Name())

	v := payload.Map{
		"title": payload.String("demo"),
		"nodes": payload.List{payload.Int(1), payload.Int(2)},
		"meta":  payload.Null{},
	}

	data, err := c.Encode(v)
	require.NoError(t, err)

	back, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestJSONEncodeIsCanonical(t *testing.T) {
	c := JSON{}
	data, err := c.Encode(payload.Map{"z": payload.Int(1), "a": payload.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"z":1}`, string(data))
}

func TestJSONDecodeRejectsFloats(t *testing.T) {
	_, err := JSON{}.Decode([]byte(`{"x":1.5}`))
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	c := YAML{}
	assert.Equal(t, "yaml", c.Name())

	v := payload.Map{
		"title":  payload.String("demo"),
		"counts": payload.List{payload.Int(1), payload.Int(2)},
		"locked": payload.Bool(false),
	}

	data, err := c.Encode(v)
	require.NoError(t, err)

	back, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestYAMLDecode(t *testing.T) {
	v, err := YAML{}.Decode([]byte("title: demo\nnodes:\n  - id: 1\n  - id: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, payload.Map{
		"title": payload.String("demo"),
		"nodes": payload.List{
			payload.Map{"id": payload.Int(1)},
			payload.Map{"id": payload.Int(2)},
		},
	}, v)
}

func TestYAMLDecodeRejectsFloats(t *testing.T) {
	_, err := YAML{}.Decode([]byte("x: 1.5\n"))
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name  string
		found bool
	}{
		{"json", true},
		{"yaml", true},
		{"xml", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run("name="+tt.name, func(t *testing.T) {
			c, ok := Lookup(tt.name)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.name, c.Name())
			}
		})
	}
}
