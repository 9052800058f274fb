package request

import "fmt"

// Compile-time defaults (spec §6.1). These are the limits every boundary
// test in spec §8 is written against.
const (
	DefaultMaxMethodLength      = 16
	DefaultMaxPathLength        = 1024
	DefaultMaxHeaderKeyLength   = 128
	DefaultMaxHeaderValueLength = 2048
	DefaultMaxHeaderCount       = 128
	DefaultMaxChunkSizeDigits   = 16

	// InitialBufferSize, TrimMinLen, TrimMinPos,
	// MaxHeadersReadLength and MaxBodyReadLength live in
	// internal/ringbuffer, the package that actually owns the buffer.
)

// Limits lets a caller override the compile-time defaults above, down
// only. This mirrors the original tipi/polyphony parser's per-parser
// headers_limit override (see SPEC_FULL.md, "supplemented features"): a host
// application may tighten a limit for a given connection (e.g. a stricter
// header cap behind a public load balancer) but may never loosen one,
// since the defaults are the ceiling the rest of this module's invariants
// were written against. The zero value reproduces the defaults exactly.
type Limits struct {
	MaxMethodLength      int
	MaxPathLength        int
	MaxHeaderKeyLength   int
	MaxHeaderValueLength int
	MaxHeaderCount       int
	MaxChunkSizeDigits   int
}

func (l Limits) validate() error {
	type bound struct {
		name    string
		value   int
		ceiling int
	}
	bounds := []bound{
		{"MaxMethodLength", l.MaxMethodLength, DefaultMaxMethodLength},
		{"MaxPathLength", l.MaxPathLength, DefaultMaxPathLength},
		{"MaxHeaderKeyLength", l.MaxHeaderKeyLength, DefaultMaxHeaderKeyLength},
		{"MaxHeaderValueLength", l.MaxHeaderValueLength, DefaultMaxHeaderValueLength},
		{"MaxHeaderCount", l.MaxHeaderCount, DefaultMaxHeaderCount},
		{"MaxChunkSizeDigits", l.MaxChunkSizeDigits, DefaultMaxChunkSizeDigits},
	}
	for _, b := range bounds {
		if b.value < 0 {
			return fmt.Errorf("request: %s must not be negative", b.name)
		}
		if b.value > b.ceiling {
			return fmt.Errorf("request: %s (%d) exceeds the compile-time default (%d); limits may only be tightened", b.name, b.value, b.ceiling)
		}
	}
	return nil
}

// resolve fills in any zero field with its compile-time default.
func (l Limits) resolve() Limits {
	if l.MaxMethodLength == 0 {
		l.MaxMethodLength = DefaultMaxMethodLength
	}
	if l.MaxPathLength == 0 {
		l.MaxPathLength = DefaultMaxPathLength
	}
	if l.MaxHeaderKeyLength == 0 {
		l.MaxHeaderKeyLength = DefaultMaxHeaderKeyLength
	}
	if l.MaxHeaderValueLength == 0 {
		l.MaxHeaderValueLength = DefaultMaxHeaderValueLength
	}
	if l.MaxHeaderCount == 0 {
		l.MaxHeaderCount = DefaultMaxHeaderCount
	}
	if l.MaxChunkSizeDigits == 0 {
		l.MaxChunkSizeDigits = DefaultMaxChunkSizeDigits
	}
	return l
}
