package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// headerSize is the fixed 8-byte frame header: type (uint16), flags (uint16),
// length (uint32), all big-endian (§3 "Frame").
const headerSize = 8

// ErrIncompleteFrame is returned when a stream ends in the middle of a frame
// header or a frame payload, rather than at a frame boundary.
var ErrIncompleteFrame = errors.New("protocol: stream ended with incomplete message")

// Frame is one decoded wire frame: an 8-byte header plus its payload.
type Frame struct {
	Type    MessageType
	Flags   Flags
	Payload []byte
}

// EncodeHeader writes the 8-byte header for a frame carrying a payload of the
// given length.
func EncodeHeader(t MessageType, flags Flags, length uint32) [headerSize]byte {
	var h [headerSize]byte
	binary.BigEndian.PutUint16(h[0:2], uint16(t))
	binary.BigEndian.PutUint16(h[2:4], uint16(flags))
	binary.BigEndian.PutUint32(h[4:8], length)
	return h
}

// DecodeHeader parses an 8-byte header. The caller guarantees len(b) ==
// headerSize.
func DecodeHeader(b []byte) (t MessageType, flags Flags, length uint32, err error) {
	if len(b) != headerSize {
		return 0, 0, 0, fmt.Errorf("protocol: frame header must be %d bytes, got %d", headerSize, len(b))
	}
	t = MessageType(binary.BigEndian.Uint16(b[0:2]))
	flags = Flags(binary.BigEndian.Uint16(b[2:4]))
	length = binary.BigEndian.Uint32(b[4:8])
	return t, flags, length, nil
}
