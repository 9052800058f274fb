package request

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"httpstream/internal/ringbuffer"
	"httpstream/internal/source"
)

func newRB(t *testing.T, data string) *ringbuffer.RingBuffer {
	t.Helper()
	src, err := source.New(strings.NewReader(data))
	require.NoError(t, err)
	return ringbuffer.New(src)
}

func TestParseRequestLineBasic(t *testing.T) {
	rb := newRB(t, "GET /path HTTP/1.1\r\n")
	rl, consumedAny, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	require.NoError(t, err)
	assert.True(t, consumedAny)
	assert.Equal(t, "get", rl.method)
	assert.Equal(t, "/path", rl.path)
	assert.Equal(t, "http/1.1", rl.protocol)
}

func TestParseRequestLineAcceptsLFOnly(t *testing.T) {
	rb := newRB(t, "POST /submit HTTP/1.0\n")
	rl, _, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	require.NoError(t, err)
	assert.Equal(t, "post", rl.method)
	assert.Equal(t, "http/1.0", rl.protocol)
}

func TestParseRequestLineCleanEOFBeforeAnyByte(t *testing.T) {
	rb := newRB(t, "")
	_, consumedAny, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	require.NoError(t, err)
	assert.False(t, consumedAny)
}

func TestParseRequestLineTruncatedAfterPartialConsumption(t *testing.T) {
	rb := newRB(t, "GET / HTTP")
	_, consumedAny, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	assert.True(t, consumedAny)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidProtocol, pe.Phrase)
}

func TestParseRequestLineMethodAtBoundary(t *testing.T) {
	method16 := strings.Repeat("A", DefaultMaxMethodLength)
	rb := newRB(t, method16+" / HTTP/1.1\r\n")
	rl, _, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(method16), rl.method)
}

func TestParseRequestLineMethodOverBoundaryFails(t *testing.T) {
	method17 := strings.Repeat("A", DefaultMaxMethodLength+1)
	rb := newRB(t, method17+" / HTTP/1.1\r\n")
	_, _, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidMethod, pe.Phrase)
}

func TestParseRequestLinePathAtBoundary(t *testing.T) {
	path := "/" + strings.Repeat("a", DefaultMaxPathLength-1)
	rb := newRB(t, "GET "+path+" HTTP/1.1\r\n")
	rl, _, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	require.NoError(t, err)
	assert.Equal(t, path, rl.path)
}

func TestParseRequestLinePathOverBoundaryFails(t *testing.T) {
	path := "/" + strings.Repeat("a", DefaultMaxPathLength)
	rb := newRB(t, "GET "+path+" HTTP/1.1\r\n")
	_, _, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidRequestTarget, pe.Phrase)
}

func TestParseRequestLineRejectsBadProtocol(t *testing.T) {
	rb := newRB(t, "GET / FOO/1.1\r\n")
	_, _, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidProtocol, pe.Phrase)
}

func TestParseRequestLineUTF8PathCountsCharsNotBytes(t *testing.T) {
	// A path of DefaultMaxPathLength characters, all but the leading "/"
	// 2-byte UTF-8, is exactly at the character limit and is accepted even
	// though its byte length is nearly double.
	path := "/" + strings.Repeat("é", DefaultMaxPathLength-1)
	rb := newRB(t, "GET "+path+" HTTP/1.1\r\n")
	_, _, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	require.NoError(t, err)
}

func TestParseRequestLineSkipsExtraSpacesBetweenTokens(t *testing.T) {
	rb := newRB(t, "GET   /path   HTTP/1.1\r\n")
	rl, _, err := parseRequestLine(context.Background(), rb, Limits{}.resolve())
	require.NoError(t, err)
	assert.Equal(t, "/path", rl.path)
}
