package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlainReaderUsesReadStrategy(t *testing.T) {
	s, err := New(bytes.NewBufferString("hello"))
	require.NoError(t, err)
	assert.Equal(t, StrategyRead, s.Strategy())

	buf := make([]byte, 5)
	n, err := s.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
}

func TestReadReportsCleanEOFAsZeroNil(t *testing.T) {
	s, err := New(bytes.NewBuffer(nil))
	require.NoError(t, err)

	n, err := s.Read(context.Background(), make([]byte, 4))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

type recvSource struct {
	data []byte
}

func (r *recvSource) ReadMethod() string { return "recv" }
func (r *recvSource) Recv(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestNewDetectsRecvStrategyViaProbe(t *testing.T) {
	src := &recvSource{data: []byte("abc")}
	s, err := New(src)
	require.NoError(t, err)
	assert.Equal(t, StrategyRecv, s.Strategy())

	buf := make([]byte, 3)
	n, err := s.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNewCallableStrategy(t *testing.T) {
	calls := 0
	var fn Callable = func(maxLen int) ([]byte, error) {
		calls++
		if calls > 1 {
			return nil, io.EOF
		}
		return []byte("xyz"), nil
	}
	s, err := New(fn)
	require.NoError(t, err)
	assert.Equal(t, StrategyCallable, s.Strategy())

	buf := make([]byte, 8)
	n, err := s.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewRejectsUnsupportedValue(t *testing.T) {
	_, err := New(42)
	assert.ErrorIs(t, err, ErrUnsupported)
}

type erroringReader struct{}

func (erroringReader) Read(p []byte) (int, error) { return 0, errors.New("boom") }

func TestReadPropagatesRealErrors(t *testing.T) {
	s, err := New(erroringReader{})
	require.NoError(t, err)
	_, err = s.Read(context.Background(), make([]byte, 1))
	assert.Error(t, err)
}

func TestReadAbortsOnCancelledContext(t *testing.T) {
	s, err := New(bytes.NewBufferString("x"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Read(ctx, make([]byte, 1))
	assert.ErrorIs(t, err, context.Canceled)
}
