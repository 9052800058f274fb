// Package source adapts whatever byte-producing thing a caller hands to a
// Parser (a net.Conn, a recv-style socket wrapper, a partial-read stream,
// or a bare callable) behind one detected read strategy, selected once at
// construction and never re-probed.
package source

import (
	"context"
	"errors"
	"io"
)

// Strategy tags which of the four read strategies a Source resolved to.
type Strategy int

const (
	StrategyRead Strategy = iota
	StrategyRecv
	StrategyReadPartial
	StrategyCallable
)

// ReadMethodProber lets a caller-supplied source advertise which native
// method the parser should drive, instead of falling back to the generic
// io.Reader strategy. ReadMethod must return one of "read", "recv", or
// "readpartial".
type ReadMethodProber interface {
	ReadMethod() string
}

// Recv is strategy 2: a recv-style read, as exposed by some socket
// wrappers in place of io.Reader's Read.
type Recv interface {
	Recv(p []byte) (int, error)
}

// ReadPartial is strategy 3: a read that blocks for at least one byte but
// is otherwise distinct from io.Reader's Read (e.g. no short-read-on-EOF
// ambiguity to resolve).
type ReadPartial interface {
	ReadPartial(p []byte) (int, error)
}

// Callable is strategy 4: an opaque function returning up to maxLen bytes
// per call, or (nil, io.EOF) at the end of the stream.
type Callable func(maxLen int) ([]byte, error)

// ErrUnsupported is returned by New when raw exposes none of the four
// recognized strategies.
var ErrUnsupported = errors.New("source: value exposes no supported read strategy")

// Source wraps a caller-supplied byte provider behind one fixed strategy.
type Source struct {
	strategy Strategy
	reader   io.Reader
	recv     Recv
	partial  ReadPartial
	call     Callable
}

// New detects raw's read strategy and returns a Source bound to it.
//
// raw may implement ReadMethodProber (its tag picks strategy 1-3 and raw
// must also implement the matching interface), or be a Callable (strategy
// 4), or — with no probe at all — a plain io.Reader. That last case covers
// the common path of handing over a net.Conn directly: requiring every
// caller to implement a probe interface just to hand over a socket would
// not be idiomatic Go, so a bare io.Reader is accepted as strategy 1
// without requiring it to advertise anything.
func New(raw any) (*Source, error) {
	if prober, ok := raw.(ReadMethodProber); ok {
		switch prober.ReadMethod() {
		case "read":
			if r, ok := raw.(io.Reader); ok {
				return &Source{strategy: StrategyRead, reader: r}, nil
			}
		case "recv":
			if r, ok := raw.(Recv); ok {
				return &Source{strategy: StrategyRecv, recv: r}, nil
			}
		case "readpartial":
			if r, ok := raw.(ReadPartial); ok {
				return &Source{strategy: StrategyReadPartial, partial: r}, nil
			}
		}
		return nil, ErrUnsupported
	}
	if fn, ok := raw.(Callable); ok {
		return &Source{strategy: StrategyCallable, call: fn}, nil
	}
	if fn, ok := raw.(func(int) ([]byte, error)); ok {
		return &Source{strategy: StrategyCallable, call: fn}, nil
	}
	if r, ok := raw.(io.Reader); ok {
		return &Source{strategy: StrategyRead, reader: r}, nil
	}
	return nil, ErrUnsupported
}

// Strategy reports which strategy this Source resolved to.
func (s *Source) Strategy() Strategy { return s.strategy }

// Read appends up to len(p) bytes into p using the detected strategy. A
// clean end-of-stream is reported as (0, nil) — never io.EOF — so callers
// (the RingBuffer's Fill) distinguish EOF purely by a zero return, per the
// "delta of zero means EOF" convention. A genuine I/O error is returned
// unchanged.
func (s *Source) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	switch s.strategy {
	case StrategyRead:
		return squashEOF(s.reader.Read(p))
	case StrategyRecv:
		return squashEOF(s.recv.Recv(p))
	case StrategyReadPartial:
		return squashEOF(s.partial.ReadPartial(p))
	case StrategyCallable:
		b, err := s.call(len(p))
		if err != nil {
			return squashEOF(0, err)
		}
		if b == nil {
			return 0, nil
		}
		return copy(p, b), nil
	default:
		return 0, ErrUnsupported
	}
}

func squashEOF(n int, err error) (int, error) {
	if err != nil && errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}
