package protocol

import (
	"errors"
	"fmt"
	"io"
)

// Reader decodes a stream of frames from an io.Reader one at a time. It is
// not safe for concurrent use; the invocation core serializes all reads
// through the single incoming-notification activity (§4.6.4).
type Reader struct {
	r   io.Reader
	buf [headerSize]byte
}

// NewReader wraps r as a frame-oriented Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadFrame reads and returns the next frame. It returns io.EOF only when the
// stream ends cleanly on a frame boundary (no bytes of the next header have
// been read). A stream that ends partway through a header or payload returns
// ErrIncompleteFrame, distinguishing a clean End-of-stream from the runtime
// dropping the connection mid-message.
func (rd *Reader) ReadFrame() (Frame, error) {
	n, err := io.ReadFull(rd.r, rd.buf[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("%w: %v", ErrIncompleteFrame, err)
	}
	t, flags, length, err := DecodeHeader(rd.buf[:])
	if err != nil {
		return Frame{}, err
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(rd.r, payload); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrIncompleteFrame, err)
	}
	return Frame{Type: t, Flags: flags, Payload: payload}, nil
}
