// Package request implements the streaming HTTP/1.x request parser: a
// Parser bound to one connection's source.Source, reused across every
// keep-alive request sent over it.
package request

import (
	"context"

	"httpstream/internal/headers"
	"httpstream/internal/ringbuffer"
	"httpstream/internal/source"
)

// Parser is bound to one connection and reused across the keep-alive
// requests read from it. It is never shared across goroutines — there is
// no internal locking.
type Parser struct {
	src       *source.Source
	rb        *ringbuffer.RingBuffer
	limits    Limits
	headers   headers.Headers
	bodyMode  bodyMode
	bodyLeft  int64
	chunk     chunkState
	currentRx int
	completed bool
}

// NewParser detects raw's read strategy (see package source) and returns a
// Parser ready to read requests from it. limits overrides the compile-time
// defaults downward only; Limits{} reproduces them exactly.
func NewParser(raw any, limits Limits) (*Parser, error) {
	if err := limits.validate(); err != nil {
		return nil, err
	}
	src, err := source.New(raw)
	if err != nil {
		return nil, err
	}
	return &Parser{
		src:    src,
		rb:     ringbuffer.New(src),
		limits: limits.resolve(),
	}, nil
}

// Release returns the parser's pooled buffer to the pool. Call once, at
// connection teardown; the Parser must not be used afterwards.
func (p *Parser) Release() {
	p.rb.Release()
}

// ParseHeaders parses one request's start-line and header block.
//
// It returns (nil, nil) on a clean EOF at a request boundary: either
// before any byte of the request line arrived (the ordinary way a
// keep-alive connection ends), or mid-header-block (treated the same way,
// regardless of how much of the header block had already been read). Any
// grammar or limit violation is returned as a *ParseError.
func (p *Parser) ParseHeaders(ctx context.Context) (headers.Headers, error) {
	p.rb.Trim()
	p.headers = nil
	p.bodyMode = bodyModeUnknown
	p.bodyLeft = 0
	p.chunk = chunkState{}
	p.currentRx = 0
	p.completed = false

	startPos := p.rb.Pos()

	rl, consumedAny, err := parseRequestLine(ctx, p.rb, p.limits)
	if err != nil {
		return nil, err
	}
	if !consumedAny {
		return nil, nil
	}

	h := headers.New()
	h.Set(headers.KeyMethod, rl.method)
	h.Set(headers.KeyPath, rl.path)
	h.Set(headers.KeyProtocol, rl.protocol)

	if err := parseHeaderBlock(ctx, p.rb, p.limits, h); err != nil {
		if err == errEOFMidHeaders {
			return nil, nil
		}
		return nil, err
	}

	p.currentRx = p.rb.Pos() - startPos
	h.SetRX(p.currentRx)
	p.headers = h
	return h, nil
}

// Complete reports whether the current request's body has been fully
// consumed (or never had one). It detects the body mode from the last
// parsed headers if that hasn't happened yet; a malformed Content-Length
// header is not reported here — it surfaces from ReadBody/ReadBodyChunk
// instead, since Complete has no error return.
func (p *Parser) Complete() bool {
	if p.bodyMode == bodyModeUnknown && p.headers != nil {
		_ = p.detectBodyMode(p.headers)
	}
	return p.completed
}
