// Package ringbuffer implements the single growable buffer shared by
// header parsing and body buffering on one connection: a pooled backing
// array plus a read cursor, compacted between requests instead of on
// every read.
package ringbuffer

import (
	"context"

	"github.com/valyala/bytebufferpool"

	"httpstream/internal/source"
)

const (
	// InitialBufferSize is reserved at construction; no source read
	// happens until the first Fill call.
	InitialBufferSize = 4096

	// TrimMinLen and TrimMinPos gate Trim's compaction: the buffer is only
	// worth memmove-ing once it has grown past TrimMinLen bytes and the
	// cursor has advanced past TrimMinPos, and only when the consumed
	// prefix is strictly larger than the remaining unread suffix (so a
	// trim never does more copying than it saves).
	TrimMinLen = 4096
	TrimMinPos = 2048

	// MaxHeadersReadLength caps a single Fill call while scanning the
	// request line and header block.
	MaxHeadersReadLength = 4096

	// MaxBodyReadLength caps a single Fill call while draining a body.
	MaxBodyReadLength = 1 << 20
)

var pool bytebufferpool.Pool

// RuneWidth returns the length, in bytes, of the UTF-8 sequence led by b:
// 1 for ASCII, 2/3/4 for the 0xC0/0xE0/0xF0 lead-byte prefixes. A stray
// continuation byte (or any byte matching none of these prefixes) is
// treated as a single-byte character — this classifier does not validate
// UTF-8 well-formedness, it only tells the scanner how many continuation
// bytes to skip over as part of "one character" for length-limit purposes.
func RuneWidth(b byte) int {
	switch {
	case b&0x80 == 0x00:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

// RingBuffer is the growable byte buffer bound to one connection's Source,
// reused across every keep-alive request on that connection.
type RingBuffer struct {
	bb  *bytebufferpool.ByteBuffer
	pos int
	src *source.Source
}

// New returns a RingBuffer bound to src, with InitialBufferSize bytes of
// capacity reserved from the pool. No source read happens yet.
func New(src *source.Source) *RingBuffer {
	bb := pool.Get()
	if cap(bb.B) < InitialBufferSize {
		bb.B = make([]byte, 0, InitialBufferSize)
	}
	return &RingBuffer{bb: bb, src: src}
}

// Release returns the backing buffer to the pool. The RingBuffer must not
// be used again afterwards.
func (r *RingBuffer) Release() {
	pool.Put(r.bb)
	r.bb = nil
}

// Len reports the total number of buffered bytes, including already-read
// ones before pos.
func (r *RingBuffer) Len() int { return len(r.bb.B) }

// Pos reports the current read cursor.
func (r *RingBuffer) Pos() int { return r.pos }

// SeekTo rewinds (or fast-forwards) the read cursor to a position obtained
// from an earlier Pos() call on the same buffer generation — used to back
// out of a speculative buffered-only parse that ran out of data.
func (r *RingBuffer) SeekTo(pos int) { r.pos = pos }

// Avail reports the number of unread, already-buffered bytes.
func (r *RingBuffer) Avail() int { return len(r.bb.B) - r.pos }

// Bytes returns the unread portion of the buffer; Bytes()[0] is the next
// byte to be consumed. The slice is invalidated by the next Fill or Trim.
func (r *RingBuffer) Bytes() []byte { return r.bb.B[r.pos:] }

// Advance moves the read cursor forward by n bytes, which must not exceed
// Avail().
func (r *RingBuffer) Advance(n int) {
	r.pos += n
	if r.pos > len(r.bb.B) {
		panic("ringbuffer: advance past buffered data")
	}
}

// Fill makes exactly one call to the bound Source, appending up to maxLen
// bytes at the end of the buffer, growing the backing array geometrically
// if needed. It returns the number of bytes appended; zero means clean
// end-of-stream.
func (r *RingBuffer) Fill(ctx context.Context, maxLen int) (int, error) {
	start := len(r.bb.B)
	need := start + maxLen
	if cap(r.bb.B) < need {
		newCap := cap(r.bb.B) * 2
		if newCap < need {
			newCap = need
		}
		grown := make([]byte, start, newCap)
		copy(grown, r.bb.B)
		r.bb.B = grown
	}
	dst := r.bb.B[start : start+maxLen]
	n, err := r.src.Read(ctx, dst)
	r.bb.B = r.bb.B[:start+n]
	return n, err
}

// Ensure blocks on repeated Fill calls (each capped at MaxHeadersReadLength)
// until at least n unread bytes are buffered. ok is false on a clean EOF
// before n bytes arrived; err is non-nil only on a genuine source error.
func (r *RingBuffer) Ensure(ctx context.Context, n int) (ok bool, err error) {
	for r.Avail() < n {
		delta, err := r.Fill(ctx, MaxHeadersReadLength)
		if err != nil {
			return false, err
		}
		if delta == 0 {
			return false, nil
		}
	}
	return true, nil
}

// Trim compacts the buffer per the three-condition policy: only once the
// buffer has grown past TrimMinLen, the cursor has advanced past
// TrimMinPos, and the consumed prefix is strictly larger than the
// remaining unread suffix. Called at the start of every ParseHeaders, so
// the common case (buffer fully drained between requests) is a single
// cheap reset.
func (r *RingBuffer) Trim() {
	if len(r.bb.B) < TrimMinLen {
		return
	}
	if r.pos < TrimMinPos {
		return
	}
	if r.pos <= len(r.bb.B)-r.pos {
		return
	}
	n := copy(r.bb.B, r.bb.B[r.pos:])
	r.bb.B = r.bb.B[:n]
	r.pos = 0
}
