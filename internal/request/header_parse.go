package request

import (
	"errors"

	"context"

	"httpstream/internal/headers"
	"httpstream/internal/ringbuffer"
)

// errEndOfHeaders and errEOFMidHeaders are internal control-flow signals,
// never returned to a Parser caller directly: parseHeaderBlock maps the
// first to "headers done", and ParseHeaders maps the second to the
// "(nil, nil)" clean-EOF case.
var (
	errEndOfHeaders  = errors.New("request: end of header block")
	errEOFMidHeaders = errors.New("request: eof mid header block")
)

// parseHeaderBlock reads "key: value" lines into h until the blank-line
// terminator, enforcing MaxHeaderKeyLength/MaxHeaderValueLength (UTF-8
// characters) and MaxHeaderCount.
func parseHeaderBlock(ctx context.Context, rb *ringbuffer.RingBuffer, lim Limits, h headers.Headers) error {
	count := 0
	for {
		key, err := readHeaderKey(ctx, rb, lim.MaxHeaderKeyLength)
		if err == errEndOfHeaders {
			return nil
		}
		if err != nil {
			return err
		}

		value, err := readHeaderValue(ctx, rb, lim.MaxHeaderValueLength)
		if err != nil {
			return err
		}

		count++
		if count > lim.MaxHeaderCount {
			return newParseError(ErrTooManyHeaders)
		}
		h.Add(lowerASCII([]byte(key)), value)
	}
}

// readHeaderKey reads up to the terminating colon. A CR or LF found as the
// very first byte of the key (a zero-length key) signals the blank line
// that ends the header block: its terminator bytes are consumed without
// filling past them (only the LF paired with a CR is waited for) — the
// byte right after may be the first byte of the body, and forcing a read
// there could block on data that belongs to a later phase (or, for a
// streamed body, hasn't arrived yet).
func readHeaderKey(ctx context.Context, rb *ringbuffer.RingBuffer, maxChars int) (string, error) {
	var buf []byte
	count := 0
	for {
		ok, err := rb.Ensure(ctx, 1)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errEOFMidHeaders
		}
		lead := rb.Bytes()[0]
		if len(buf) == 0 && count == 0 && (lead == cr || lead == lf) {
			if err := consumeLineTerminatorNoFill(ctx, rb); err != nil {
				return "", err
			}
			return "", errEndOfHeaders
		}
		if lead == colon {
			if count == 0 {
				return "", newParseError(ErrInvalidHeaderKey)
			}
			rb.Advance(1)
			return string(buf), nil
		}
		if lead == sp || lead == '\t' || lead == cr || lead == lf {
			return "", newParseError(ErrInvalidHeaderKey)
		}
		width := ringbuffer.RuneWidth(lead)
		ok, err = rb.Ensure(ctx, width)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errEOFMidHeaders
		}
		count++
		if count > maxChars {
			return "", newParseError(ErrInvalidHeaderKey)
		}
		buf = append(buf, rb.Bytes()[:width]...)
		rb.Advance(width)
	}
}

// readHeaderValue skips leading spaces, then reads 1-maxChars UTF-8
// characters up to the line terminator (CRLF or bare LF).
func readHeaderValue(ctx context.Context, rb *ringbuffer.RingBuffer, maxChars int) (string, error) {
	if err := skipSpaces(ctx, rb); err != nil {
		return "", err
	}
	var buf []byte
	count := 0
	for {
		ok, err := rb.Ensure(ctx, 1)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errEOFMidHeaders
		}
		lead := rb.Bytes()[0]
		if lead == cr {
			rb.Advance(1)
			ok, err := rb.Ensure(ctx, 1)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", errEOFMidHeaders
			}
			if rb.Bytes()[0] != lf {
				return "", newParseError(ErrInvalidHeaderValue)
			}
			rb.Advance(1)
			break
		}
		if lead == lf {
			rb.Advance(1)
			break
		}
		width := ringbuffer.RuneWidth(lead)
		ok, err = rb.Ensure(ctx, width)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errEOFMidHeaders
		}
		count++
		if count > maxChars {
			return "", newParseError(ErrInvalidHeaderValue)
		}
		buf = append(buf, rb.Bytes()[:width]...)
		rb.Advance(width)
	}
	if count == 0 {
		return "", newParseError(ErrInvalidHeaderValue)
	}
	return string(buf), nil
}

// consumeLineTerminatorNoFill consumes the blank-line terminator at the
// cursor. A bare LF is consumed as-is. A CR is always paired with an LF in
// this grammar, so unlike an ordinary no-fill step this one does fill if
// needed to obtain that LF, the same way the request line and header
// values treat a CR as committing to its LF. Only the byte right after
// the terminator stays unfilled, since it may belong to the body (or
// hasn't arrived yet for a streamed body) and forcing a read there could
// block on data from a later phase.
func consumeLineTerminatorNoFill(ctx context.Context, rb *ringbuffer.RingBuffer) error {
	b := rb.Bytes()
	if len(b) == 0 {
		return errEOFMidHeaders
	}
	if b[0] == lf {
		rb.Advance(1)
		return nil
	}
	ok, err := rb.Ensure(ctx, 2)
	if err != nil {
		return err
	}
	if !ok {
		return errEOFMidHeaders
	}
	if rb.Bytes()[1] != lf {
		return newParseError(ErrInvalidHeaderKey)
	}
	rb.Advance(2)
	return nil
}
