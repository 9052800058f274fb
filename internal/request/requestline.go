package request

import (
	"context"

	"github.com/intuitivelabs/bytescase"

	"httpstream/internal/ringbuffer"
)

const (
	sp    = ' '
	cr    = '\r'
	lf    = '\n'
	colon = ':'
)

// requestLine holds the start-line tokens (method and protocol lowercased,
// path verbatim), ready to become the pseudo-headers :method/:path/:protocol.
type requestLine struct {
	method   string
	path     string
	protocol string
}

// parseRequestLine scans "method SP request-target SP protocol CRLF" (or
// LF-terminated) per the request-line grammar. consumedAny reports whether
// any byte of the request line was consumed before a clean EOF — the
// distinction ParseHeaders needs to choose between returning (nil, nil)
// and raising.
func parseRequestLine(ctx context.Context, rb *ringbuffer.RingBuffer, lim Limits) (rl requestLine, consumedAny bool, err error) {
	method, n, eof, err := readToken(ctx, rb, lim.MaxMethodLength, ErrInvalidMethod)
	if err != nil {
		return rl, true, err
	}
	if eof {
		if n == 0 {
			return rl, false, nil
		}
		return rl, true, newParseError(ErrInvalidMethod)
	}
	if len(method) == 0 {
		return rl, true, newParseError(ErrInvalidMethod)
	}
	rl.method = lowerASCII([]byte(method))

	if err := skipSpaces(ctx, rb); err != nil {
		return rl, true, err
	}
	target, _, eof, err := readToken(ctx, rb, lim.MaxPathLength, ErrInvalidRequestTarget)
	if err != nil {
		return rl, true, err
	}
	if eof || len(target) == 0 {
		return rl, true, newParseError(ErrInvalidRequestTarget)
	}
	rl.path = target

	if err := skipSpaces(ctx, rb); err != nil {
		return rl, true, err
	}
	proto, err := readProtocol(ctx, rb)
	if err != nil {
		return rl, true, err
	}
	rl.protocol = proto
	return rl, true, nil
}

// readToken scans UTF-8 characters into a string until it finds the
// terminating single space, enforcing maxChars UTF-8 characters. A CR or
// LF encountered before the space is a grammar violation (method and
// request-target never contain a line terminator). eof is true only on a
// clean end-of-stream; n is the number of characters read before it.
func readToken(ctx context.Context, rb *ringbuffer.RingBuffer, maxChars int, limitErr string) (value string, n int, eof bool, err error) {
	var buf []byte
	count := 0
	for {
		ok, e := rb.Ensure(ctx, 1)
		if e != nil {
			return "", count, false, e
		}
		if !ok {
			return "", count, true, nil
		}
		lead := rb.Bytes()[0]
		if lead == sp {
			rb.Advance(1)
			return string(buf), count, false, nil
		}
		if lead == cr || lead == lf {
			return "", count, false, newParseError(limitErr)
		}
		width := ringbuffer.RuneWidth(lead)
		ok, e = rb.Ensure(ctx, width)
		if e != nil {
			return "", count, false, e
		}
		if !ok {
			return "", count, true, nil
		}
		count++
		if count > maxChars {
			return "", count, false, newParseError(limitErr)
		}
		buf = append(buf, rb.Bytes()[:width]...)
		rb.Advance(width)
	}
}

// skipSpaces consumes zero or more literal spaces at the cursor.
func skipSpaces(ctx context.Context, rb *ringbuffer.RingBuffer) error {
	for {
		ok, err := rb.Ensure(ctx, 1)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if rb.Bytes()[0] != sp {
			return nil
		}
		rb.Advance(1)
	}
}

// readProtocol reads the raw protocol token (ASCII only, byte-counted, not
// UTF-8-counted — the grammar bounds it to 6-8 bytes) up to its CRLF/LF
// terminator, then validates it against "HTTP/1[.0|.1]".
func readProtocol(ctx context.Context, rb *ringbuffer.RingBuffer) (string, error) {
	const maxProtocolBytes = 8
	var raw []byte
	for {
		ok, err := rb.Ensure(ctx, 1)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", newParseError(ErrInvalidProtocol)
		}
		b := rb.Bytes()[0]
		if b == cr {
			rb.Advance(1)
			ok, err := rb.Ensure(ctx, 1)
			if err != nil {
				return "", err
			}
			if !ok || rb.Bytes()[0] != lf {
				return "", newParseError(ErrInvalidProtocol)
			}
			rb.Advance(1)
			return parseProtocolToken(raw)
		}
		if b == lf {
			rb.Advance(1)
			return parseProtocolToken(raw)
		}
		if len(raw) >= maxProtocolBytes {
			return "", newParseError(ErrInvalidProtocol)
		}
		raw = append(raw, b)
		rb.Advance(1)
	}
}

func parseProtocolToken(raw []byte) (string, error) {
	if len(raw) < 6 || len(raw) > 8 {
		return "", newParseError(ErrInvalidProtocol)
	}
	n, ok := bytescase.Prefix([]byte("HTTP/1"), raw)
	if !ok || n != 6 {
		return "", newParseError(ErrInvalidProtocol)
	}
	switch rest := raw[6:]; len(rest) {
	case 0:
	case 2:
		if rest[0] != '.' || (rest[1] != '0' && rest[1] != '1') {
			return "", newParseError(ErrInvalidProtocol)
		}
	default:
		return "", newParseError(ErrInvalidProtocol)
	}
	return lowerASCII(raw), nil
}

// lowerASCII lowercases b byte-by-byte using bytescase, then returns the
// result as a string. Multi-byte UTF-8 sequences pass through unchanged:
// every continuation/lead byte has its high bit set and so falls outside
// bytescase's 'A'-'Z' range.
func lowerASCII(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = bytescase.ByteToLower(c)
	}
	return string(out)
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func parseHexUint(digits []byte) (int64, error) {
	const maxInt64 = 1<<63 - 1
	var n int64
	for _, c := range digits {
		var v int64
		switch {
		case c >= '0' && c <= '9':
			v = int64(c - '0')
		case c >= 'a' && c <= 'f':
			v = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = int64(c-'A') + 10
		default:
			return 0, newParseError(ErrInvalidChunkSize)
		}
		if n > (maxInt64-v)>>4 {
			// Saturate instead of wrapping negative: a size this large
			// can never be satisfied, so the drain fails as incomplete.
			n = maxInt64
			continue
		}
		n = n<<4 | v
	}
	return n, nil
}
