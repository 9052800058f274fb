// Package headers implements the request headers mapping produced by the
// streaming HTTP/1.x parser in internal/request.
//
// Keys are always lowercase. A value is either a plain string (the header
// appeared once) or an ordered []string (the header repeated, in the order
// the occurrences were parsed). Pseudo-headers injected by the parser
// (":method", ":path", ":protocol", ":rx") live in the same map as ordinary
// header names; Go has no reserved-key type, so, like the teacher's plain
// map[string]string, callers rely on convention rather than the type system
// to tell the two apart.
package headers

import "strings"

// Pseudo-header keys the parser injects into the same map as ordinary
// header names.
const (
	KeyMethod   = ":method"
	KeyPath     = ":path"
	KeyProtocol = ":protocol"
	KeyRX       = ":rx"
)

// Headers is the parsed header mapping for one request. It is owned by the
// Parser that produced it and is mutated by body reads (the ":rx"
// pseudo-header is updated after every body operation) — callers that need
// to retain a snapshot across the next request on the same connection must
// copy it first.
type Headers map[string]any

// New returns an empty Headers map, ready for use.
func New() Headers {
	return Headers{}
}

// Get returns the single string value stored for name, lowercased for
// lookup. If name repeated, the first occurrence is returned; use Values
// to retrieve every occurrence in order.
func (h Headers) Get(name string) (string, bool) {
	v, ok := h[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []string:
		if len(t) == 0 {
			return "", false
		}
		return t[0], true
	default:
		return "", false
	}
}

// GetString is a convenience wrapper around Get returning "" for a missing
// or non-string-shaped header.
func (h Headers) GetString(name string) string {
	v, _ := h.Get(name)
	return v
}

// Values returns every value stored for name, in occurrence order.
func (h Headers) Values(name string) []string {
	v, ok := h[strings.ToLower(name)]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	default:
		return nil
	}
}

// Add appends a value for an already-lowercased name. A first occurrence is
// stored as a plain string; a second or later occurrence promotes the
// stored value to an ordered []string, preserving occurrence order.
func (h Headers) Add(name, value string) {
	existing, ok := h[name]
	if !ok {
		h[name] = value
		return
	}
	switch t := existing.(type) {
	case string:
		h[name] = []string{t, value}
	case []string:
		h[name] = append(t, value)
	}
}

// Set overwrites name with a single value, discarding any prior occurrences.
func (h Headers) Set(name, value string) {
	h[strings.ToLower(name)] = value
}

// Delete removes name (and all of its occurrences) from the map.
func (h Headers) Delete(name string) {
	delete(h, strings.ToLower(name))
}

// RX returns the ":rx" pseudo-header (bytes consumed so far for the
// current request), or 0 if it has not been set yet.
func (h Headers) RX() int {
	if v, ok := h[KeyRX].(int); ok {
		return v
	}
	return 0
}

// SetRX sets the ":rx" pseudo-header.
func (h Headers) SetRX(n int) {
	h[KeyRX] = n
}

// Count returns the number of distinct header names currently stored,
// excluding pseudo-headers (those beginning with ":"). A repeated name
// counts once.
func (h Headers) Count() int {
	n := 0
	for k := range h {
		if len(k) > 0 && k[0] == ':' {
			continue
		}
		n++
	}
	return n
}
