package cache

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec_RoundTrip(t *testing.T) {
	values := []any{
		float64(42),
		"text",
		true,
		nil,
		[]any{float64(1), "two", []any{float64(3)}},
		map[string]any{"id": float64(1), "tags": []any{"a", "b"}, "nested": map[string]any{"ok": true}},
	}
	var c JSONCodec
	for _, v := range values {
		b, err := c.Encode(v)
		require.NoError(t, err)
		var out any
		require.NoError(t, c.Decode(b, &out))
		assert.Equal(t, v, out)
	}
}

type withChannel struct {
	ID      int           `json:"id"`
	Created time.Time     `json:"created"`
	Updates chan struct{} `json:"updates"`
	Skipped string        `json:"-"`
	secret  string
}

func TestJSONCodec_Fallback(t *testing.T) {
	var c JSONCodec
	created := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("struct with unsupported field becomes a mapping", func(t *testing.T) {
		b, err := c.Encode(withChannel{ID: 1, Created: created, Updates: make(chan struct{}), Skipped: "x", secret: "y"})
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, c.Decode(b, &out))
		assert.Equal(t, float64(1), out["id"])
		assert.Equal(t, "2024-03-10T08:00:00Z", out["created"])
		assert.IsType(t, "", out["updates"])
		assert.NotContains(t, out, "Skipped")
		assert.NotContains(t, out, "secret")
	})

	t.Run("NaN becomes text", func(t *testing.T) {
		b, err := c.Encode(map[string]float64{"v": math.NaN()})
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":"NaN"}`, string(b))
	})

	t.Run("functions become text", func(t *testing.T) {
		b, err := c.Encode([]any{1, func() {}})
		require.NoError(t, err)
		var out []any
		require.NoError(t, c.Decode(b, &out))
		require.Len(t, out, 2)
		assert.IsType(t, "", out[1])
	})

	t.Run("time values are ISO-8601", func(t *testing.T) {
		b, err := c.Encode(created)
		require.NoError(t, err)
		assert.Equal(t, `"2024-03-10T08:00:00Z"`, string(b))
	})
}

type failingMarshaler struct{}

func (failingMarshaler) MarshalJSON() ([]byte, error) {
	return nil, errors.New("not encodable")
}

func TestJSONCodec_Errors(t *testing.T) {
	var c JSONCodec
	_, err := c.Encode(failingMarshaler{})
	assert.Error(t, err)

	var out any
	assert.Error(t, c.Decode([]byte("{corrupt"), &out))
}

type treeNode struct {
	Name   string    `json:"name"`
	Parent *treeNode `json:"parent"`
}

func TestJSONCodec_Cycles(t *testing.T) {
	var c JSONCodec

	t.Run("self referencing pointer", func(t *testing.T) {
		n := &treeNode{Name: "root"}
		n.Parent = n
		_, err := c.Encode(n)
		require.Error(t, err)
		assert.ErrorIs(t, err, errCycle)
	})

	t.Run("self referencing map", func(t *testing.T) {
		m := map[string]any{"name": "root"}
		m["self"] = m
		_, err := c.Encode(m)
		assert.ErrorIs(t, err, errCycle)
	})

	t.Run("shared values are not cycles", func(t *testing.T) {
		leaf := &treeNode{Name: "leaf"}
		b, err := c.Encode([]any{leaf, leaf, func() {}})
		require.NoError(t, err)
		var out []any
		require.NoError(t, c.Decode(b, &out))
		require.Len(t, out, 3)
		assert.Equal(t, map[string]any{"name": "leaf", "parent": nil}, out[0])
		assert.Equal(t, out[0], out[1])
	})
}
