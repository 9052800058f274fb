package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersGetSetSingleValue(t *testing.T) {
	h := New()
	h.Set("Host", "localhost:42069")

	v, ok := h.Get("host")
	require.True(t, ok)
	assert.Equal(t, "localhost:42069", v)
	assert.Equal(t, "localhost:42069", h.GetString("HOST"))
}

func TestHeadersAddPromotesToSequence(t *testing.T) {
	h := New()
	h.Add("x-person", "some1")
	h.Add("x-person", "some2")
	h.Add("x-person", "some3")

	assert.Equal(t, []string{"some1", "some2", "some3"}, h.Values("x-person"))
	v, ok := h.Get("x-person")
	require.True(t, ok)
	assert.Equal(t, "some1", v, "Get returns the first occurrence, not a join")
}

func TestHeadersAddSingleOccurrenceStaysAString(t *testing.T) {
	h := New()
	h.Add("host", "localhost:42069")
	assert.IsType(t, "", h["host"])
}

func TestHeadersMissing(t *testing.T) {
	h := New()
	_, ok := h.Get("nope")
	assert.False(t, ok)
	assert.Nil(t, h.Values("nope"))
	assert.Equal(t, "", h.GetString("nope"))
}

func TestHeadersDelete(t *testing.T) {
	h := New()
	h.Set("connection", "close")
	h.Delete("Connection")
	_, ok := h.Get("connection")
	assert.False(t, ok)
}

func TestHeadersCountExcludesPseudoHeaders(t *testing.T) {
	h := New()
	h.Set(":method", "get")
	h.Set(":path", "/")
	h.Set(":protocol", "http/1.1")
	h.Set("host", "x")
	h.Add("x-person", "a")
	h.Add("x-person", "b")

	assert.Equal(t, 2, h.Count())
}
