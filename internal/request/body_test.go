package request

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSizeAtDigitBoundary(t *testing.T) {
	size := strings.Repeat("f", DefaultMaxChunkSizeDigits)
	// A 16-hex-digit size this large would require gigabytes of payload, so
	// this only exercises the digit-count limit, not the actual drain —
	// pairing it with a too-short payload and checking we fail on
	// "Incomplete request body", not "Invalid chunk size", proves the
	// digit count itself was accepted.
	raw := "POST /x HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" + size + "\r\nshort"
	p := newParser(t, raw)
	h, err := p.ParseHeaders(context.Background())
	require.NoError(t, err)
	_, err = p.ReadBody(context.Background(), h)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrIncompleteRequestBody, pe.Phrase)
}

func TestChunkSizeOverDigitBoundaryFails(t *testing.T) {
	size := strings.Repeat("f", DefaultMaxChunkSizeDigits+1)
	raw := "POST /x HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" + size + "\r\n"
	p := newParser(t, raw)
	h, err := p.ParseHeaders(context.Background())
	require.NoError(t, err)
	_, err = p.ReadBody(context.Background(), h)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidChunkSize, pe.Phrase)
}

func TestChunkedStreamingOneChunkPerCall(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nabcd\r\n3\r\nxyz\r\n0\r\n\r\n"
	p := newParser(t, raw)
	h, err := p.ParseHeaders(context.Background())
	require.NoError(t, err)

	first, err := p.ReadBodyChunk(context.Background(), h, false)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(first))
	assert.False(t, p.Complete())

	second, err := p.ReadBodyChunk(context.Background(), h, false)
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(second))
	assert.False(t, p.Complete())

	third, err := p.ReadBodyChunk(context.Background(), h, false)
	require.NoError(t, err)
	assert.Nil(t, third)
	assert.True(t, p.Complete())
}

func TestChunkedBufferedOnlyReturnsNilWhenChunkNotFullyBuffered(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nab"
	p := newParser(t, raw)
	h, err := p.ParseHeaders(context.Background())
	require.NoError(t, err)

	data, err := p.ReadBodyChunk(context.Background(), h, true)
	require.NoError(t, err)
	assert.Nil(t, data, "partial chunk payload must not be surfaced under buffered_only")
}

func TestHeaderValueBoundary(t *testing.T) {
	value := strings.Repeat("v", DefaultMaxHeaderValueLength)
	p := newParser(t, "GET / HTTP/1.1\r\nX-Big: "+value+"\r\n\r\n")
	h, err := p.ParseHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, value, h.GetString("x-big"))
}

func TestHeaderValueOverBoundaryFails(t *testing.T) {
	value := strings.Repeat("v", DefaultMaxHeaderValueLength+1)
	p := newParser(t, "GET / HTTP/1.1\r\nX-Big: "+value+"\r\n\r\n")
	_, err := p.ParseHeaders(context.Background())
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidHeaderValue, pe.Phrase)
}

func TestHeaderKeyOverBoundaryFails(t *testing.T) {
	key := strings.Repeat("k", DefaultMaxHeaderKeyLength+1)
	p := newParser(t, "GET / HTTP/1.1\r\n"+key+": v\r\n\r\n")
	_, err := p.ParseHeaders(context.Background())
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidHeaderKey, pe.Phrase)
}

func TestInvalidContentLengthFails(t *testing.T) {
	p := newParser(t, "POST /x HTTP/1.1\r\nContent-Length: abc\r\n\r\n")
	h, err := p.ParseHeaders(context.Background())
	require.NoError(t, err)
	_, err = p.ReadBody(context.Background(), h)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidContentLength, pe.Phrase)
}
