// Package protocol implements the chat wire protocol: a fixed 4-byte
// header (message id and payload length, both big-endian uint16) followed
// by an opaque JSON payload.
//
// The codec is pure and performs no I/O. Reading and writing frames off a
// socket belongs to the session layer; this package only converts between
// (id, payload) pairs and wire bytes, and enforces the protocol bounds.
package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderLen is the fixed size of a frame header in bytes:
	// 2 bytes message id followed by 2 bytes payload length.
	HeaderLen = 4

	// DefaultMaxPayload bounds both header fields. A header whose message
	// id or payload length exceeds the bound is a protocol violation and
	// the session carrying it must be closed.
	DefaultMaxPayload = 2048
)

// ErrHeaderBounds reports a header field exceeding the configured bound.
type ErrHeaderBounds struct {
	Field string // "msg_id" or "payload_len"
	Value uint16
	Max   uint16
}

func (e *ErrHeaderBounds) Error() string {
	return fmt.Sprintf("frame %s %d exceeds maximum %d", e.Field, e.Value, e.Max)
}

// Codec encodes and decodes chat frames against a configured payload bound.
// The zero value is not usable; construct with NewCodec.
type Codec struct {
	maxPayload uint16
}

// NewCodec returns a codec enforcing the given bound on both header
// fields. A zero bound selects DefaultMaxPayload.
func NewCodec(maxPayload uint16) *Codec {
	if maxPayload == 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Codec{maxPayload: maxPayload}
}

// MaxPayload returns the configured bound.
func (c *Codec) MaxPayload() uint16 {
	return c.maxPayload
}

// Encode produces a complete wire frame for the given message id and
// payload. The returned slice is freshly allocated and owned by the
// caller. Encoding fails when either the id or the payload length
// exceeds the configured bound.
func (c *Codec) Encode(id uint16, payload []byte) ([]byte, error) {
	if id > c.maxPayload {
		return nil, &ErrHeaderBounds{Field: "msg_id", Value: id, Max: c.maxPayload}
	}
	if len(payload) > int(c.maxPayload) {
		return nil, fmt.Errorf("payload length %d exceeds maximum %d", len(payload), c.maxPayload)
	}

	frame := make([]byte, HeaderLen+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], id)
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(payload)))
	copy(frame[HeaderLen:], payload)
	return frame, nil
}

// DecodeHeader validates a 4-byte header and returns the message id and
// payload length. Both fields are checked against the configured bound;
// a violation is unrecoverable for the session that read it.
func (c *Codec) DecodeHeader(hdr []byte) (id uint16, length uint16, err error) {
	if len(hdr) != HeaderLen {
		return 0, 0, fmt.Errorf("frame header must be %d bytes, got %d", HeaderLen, len(hdr))
	}

	id = binary.BigEndian.Uint16(hdr[0:2])
	length = binary.BigEndian.Uint16(hdr[2:4])

	if id > c.maxPayload {
		return 0, 0, &ErrHeaderBounds{Field: "msg_id", Value: id, Max: c.maxPayload}
	}
	if length > c.maxPayload {
		return 0, 0, &ErrHeaderBounds{Field: "payload_len", Value: length, Max: c.maxPayload}
	}

	return id, length, nil
}
