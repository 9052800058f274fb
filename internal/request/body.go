package request

import (
	"context"
	"errors"

	"github.com/intuitivelabs/bytescase"

	"httpstream/internal/headers"
	"httpstream/internal/ringbuffer"
)

type bodyMode int

const (
	bodyModeUnknown bodyMode = iota
	bodyModeNone
	bodyModeContentLength
	bodyModeChunked
)

type chunkPhase int

const (
	chunkPhaseActive chunkPhase = iota
	chunkPhaseDone
)

type chunkState struct {
	phase chunkPhase
}

// errNeedMore signals that a buffered-only (non-blocking) step ran out of
// already-buffered bytes before completing a grammar unit. It never
// escapes this file: callers roll the cursor back and report (nil, nil).
var errNeedMore = errors.New("request: need more buffered data")

// detectBodyMode inspects h's Content-Length/Transfer-Encoding headers
// once per request and caches the result on p. Content-Length is checked
// first and wins if both are present.
func (p *Parser) detectBodyMode(h headers.Headers) error {
	if p.bodyMode != bodyModeUnknown {
		return nil
	}
	if cl, ok := h.Get("content-length"); ok {
		n, err := parseContentLength(cl)
		if err != nil {
			return err
		}
		p.bodyMode = bodyModeContentLength
		p.bodyLeft = n
		if n == 0 {
			p.completed = true
		}
		return nil
	}
	if te, ok := h.Get("transfer-encoding"); ok && bytescase.CmpEq([]byte(te), []byte("chunked")) {
		p.bodyMode = bodyModeChunked
		return nil
	}
	p.bodyMode = bodyModeNone
	p.completed = true
	return nil
}

func parseContentLength(s string) (int64, error) {
	if s == "" {
		return 0, newParseError(ErrInvalidContentLength)
	}
	var n int64
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return 0, newParseError(ErrInvalidContentLength)
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}

// ReadBody drains the entire body and returns it as a single slice. For a
// content-length body it loops the source for up to MaxBodyReadLength
// bytes per call until bodyLeft reaches zero; for a chunked body it drains
// chunk after chunk until the terminating zero-size chunk.
func (p *Parser) ReadBody(ctx context.Context, h headers.Headers) ([]byte, error) {
	if err := p.detectBodyMode(h); err != nil {
		return nil, err
	}
	var body []byte
	var err error
	switch p.bodyMode {
	case bodyModeNone:
		return nil, nil
	case bodyModeContentLength:
		body, err = p.drainContentLengthFull(ctx)
	case bodyModeChunked:
		body, err = p.drainChunkedFull(ctx)
	}
	if err != nil {
		return nil, err
	}
	h.SetRX(p.currentRx)
	return body, nil
}

// ReadBodyChunk returns the next available slice of body bytes without
// necessarily draining the whole body, so a caller can stream it. If
// bufferedOnly is true, only bytes already sitting in the RingBuffer are
// returned and the source is never called. A (nil, nil) result means
// either "nothing buffered right now" (bufferedOnly) or that the body is
// already fully consumed; Complete tells the two apart.
func (p *Parser) ReadBodyChunk(ctx context.Context, h headers.Headers, bufferedOnly bool) ([]byte, error) {
	if err := p.detectBodyMode(h); err != nil {
		return nil, err
	}
	var data []byte
	var err error
	switch p.bodyMode {
	case bodyModeNone:
		return nil, nil
	case bodyModeContentLength:
		data, err = p.contentLengthChunk(ctx, bufferedOnly)
	case bodyModeChunked:
		data, err = p.drainChunkedChunk(ctx, bufferedOnly)
	}
	if err != nil {
		return nil, err
	}
	h.SetRX(p.currentRx)
	return data, nil
}

func (p *Parser) drainContentLengthFull(ctx context.Context) ([]byte, error) {
	body := make([]byte, 0, p.bodyLeft)
	for p.bodyLeft > 0 {
		if p.rb.Avail() == 0 {
			fillLen := p.bodyLeft
			if fillLen > ringbuffer.MaxBodyReadLength {
				fillLen = ringbuffer.MaxBodyReadLength
			}
			delta, err := p.rb.Fill(ctx, int(fillLen))
			if err != nil {
				return nil, err
			}
			if delta == 0 {
				return nil, newParseError(ErrIncompleteBody)
			}
		}
		n := p.bodyLeft
		if int64(p.rb.Avail()) < n {
			n = int64(p.rb.Avail())
		}
		body = append(body, p.rb.Bytes()[:n]...)
		p.rb.Advance(int(n))
		p.bodyLeft -= n
		p.currentRx += int(n)
	}
	p.completed = true
	return body, nil
}

// contentLengthChunk implements the streaming read for a content-length
// body: it first drains whatever is already buffered (a partial result is
// fine here, unlike the chunked case), and only if nothing was buffered
// and bufferedOnly is false does it make exactly one source call.
func (p *Parser) contentLengthChunk(ctx context.Context, bufferedOnly bool) ([]byte, error) {
	if p.bodyLeft == 0 {
		p.completed = true
		return nil, nil
	}
	if avail := p.rb.Avail(); avail > 0 {
		n := p.bodyLeft
		if int64(avail) < n {
			n = int64(avail)
		}
		data := append([]byte(nil), p.rb.Bytes()[:n]...)
		p.rb.Advance(int(n))
		p.bodyLeft -= n
		p.currentRx += int(n)
		if p.bodyLeft == 0 {
			p.completed = true
		}
		return data, nil
	}
	if bufferedOnly {
		return nil, nil
	}
	fillLen := p.bodyLeft
	if fillLen > ringbuffer.MaxBodyReadLength {
		fillLen = ringbuffer.MaxBodyReadLength
	}
	delta, err := p.rb.Fill(ctx, int(fillLen))
	if err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, newParseError(ErrIncompleteBody)
	}
	n := p.bodyLeft
	if int64(p.rb.Avail()) < n {
		n = int64(p.rb.Avail())
	}
	data := append([]byte(nil), p.rb.Bytes()[:n]...)
	p.rb.Advance(int(n))
	p.bodyLeft -= n
	p.currentRx += int(n)
	if p.bodyLeft == 0 {
		p.completed = true
	}
	return data, nil
}

func (p *Parser) drainChunkedFull(ctx context.Context) ([]byte, error) {
	var body []byte
	for p.chunk.phase != chunkPhaseDone {
		part, err := p.drainChunkedChunk(ctx, false)
		if err != nil {
			return nil, err
		}
		body = append(body, part...)
	}
	return body, nil
}

// drainChunkedChunk processes exactly one chunk (its size line, payload,
// and trailing CRLF) and returns its payload, or (nil, nil) once the
// terminating zero-size chunk has been consumed. With bufferedOnly, the
// whole step is attempted without calling the source; if the buffer runs
// dry partway through, the cursor and byte-count are rolled back to where
// they started and (nil, nil) is returned — chunked streaming is all the
// current chunk or nothing, unlike the content-length chunk variant.
func (p *Parser) drainChunkedChunk(ctx context.Context, bufferedOnly bool) ([]byte, error) {
	if p.chunk.phase == chunkPhaseDone {
		return nil, nil
	}
	mayFill := !bufferedOnly
	savedPos := p.rb.Pos()
	savedRx := p.currentRx
	rollback := func() ([]byte, error) {
		p.rb.SeekTo(savedPos)
		p.currentRx = savedRx
		return nil, nil
	}

	size, err := p.readChunkSizeLine(ctx, mayFill)
	if err != nil {
		if err == errNeedMore {
			return rollback()
		}
		return nil, err
	}
	if size == 0 {
		if err := p.consumeChunkCRLF(ctx, mayFill); err != nil {
			if err == errNeedMore {
				return rollback()
			}
			return nil, err
		}
		p.chunk.phase = chunkPhaseDone
		p.completed = true
		return nil, nil
	}
	if _, err := p.ensureOrFail(ctx, int(size), mayFill, ErrIncompleteRequestBody); err != nil {
		if err == errNeedMore {
			return rollback()
		}
		return nil, err
	}
	payload := append([]byte(nil), p.rb.Bytes()[:size]...)
	p.rb.Advance(int(size))
	p.currentRx += int(size)
	if err := p.consumeChunkCRLF(ctx, mayFill); err != nil {
		if err == errNeedMore {
			return rollback()
		}
		return nil, err
	}
	return payload, nil
}

// ensureOrFail blocks for n buffered bytes (mayFill) or just checks
// whether they're already buffered (!mayFill). A shortfall is reported as
// onEOF when mayFill is true (genuine end-of-stream mid-body) or as
// errNeedMore when mayFill is false (caller should retry later).
func (p *Parser) ensureOrFail(ctx context.Context, n int, mayFill bool, onEOF string) (bool, error) {
	for p.rb.Avail() < n {
		if !mayFill {
			return false, errNeedMore
		}
		fillLen := ringbuffer.MaxBodyReadLength
		delta, err := p.rb.Fill(ctx, fillLen)
		if err != nil {
			return false, err
		}
		if delta == 0 {
			return false, newParseError(onEOF)
		}
	}
	return true, nil
}

func (p *Parser) readChunkSizeLine(ctx context.Context, mayFill bool) (int64, error) {
	var digits []byte
	for {
		if _, err := p.ensureOrFail(ctx, 1, mayFill, ErrIncompleteRequestBody); err != nil {
			return 0, err
		}
		b := p.rb.Bytes()[0]
		if b == cr || b == lf {
			if len(digits) == 0 {
				return 0, newParseError(ErrInvalidChunkSize)
			}
			p.rb.Advance(1)
			p.currentRx++
			if b == cr {
				if _, err := p.ensureOrFail(ctx, 1, mayFill, ErrIncompleteRequestBody); err != nil {
					return 0, err
				}
				if p.rb.Bytes()[0] != lf {
					return 0, newParseError(ErrInvalidChunkSize)
				}
				p.rb.Advance(1)
				p.currentRx++
			}
			return parseHexUint(digits)
		}
		if !isHexDigit(b) {
			return 0, newParseError(ErrInvalidChunkSize)
		}
		digits = append(digits, b)
		p.rb.Advance(1)
		p.currentRx++
		if len(digits) > p.limits.MaxChunkSizeDigits {
			return 0, newParseError(ErrInvalidChunkSize)
		}
	}
}

func (p *Parser) consumeChunkCRLF(ctx context.Context, mayFill bool) error {
	if _, err := p.ensureOrFail(ctx, 1, mayFill, ErrIncompleteRequestBody); err != nil {
		return err
	}
	switch b := p.rb.Bytes()[0]; b {
	case cr:
		p.rb.Advance(1)
		p.currentRx++
		if _, err := p.ensureOrFail(ctx, 1, mayFill, ErrIncompleteRequestBody); err != nil {
			return err
		}
		if p.rb.Bytes()[0] != lf {
			return newParseError(ErrMalformedRequestBody)
		}
		p.rb.Advance(1)
		p.currentRx++
	case lf:
		p.rb.Advance(1)
		p.currentRx++
	default:
		return newParseError(ErrMalformedRequestBody)
	}
	return nil
}
