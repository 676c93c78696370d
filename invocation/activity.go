package invocation

import (
	"context"
	"errors"
	"io"
)

// RunIncomingActivity is the steady-state incoming-notification activity
// (spec §4.6.4): once the start handshake has returned, it is the only
// reader of the stream, continuously decoding notification frames and
// routing them to the journal or signal completion manager while the
// handler goroutine runs concurrently against the same Machine.
//
// It returns nil on a clean stream close (io.EOF at a frame boundary) and a
// wrapped protocol error otherwise. Cancellation is driven by the caller
// closing (or half-closing) the underlying transport out from under the
// blocked read, not by ctx alone — ReadFrame has no deadline hook — so ctx
// is only consulted at the top of each iteration for an already-cancelled
// fast exit.
func (m *Machine) RunIncomingActivity(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := m.reader.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if frame.Type.IsNotification() {
			if err := m.routeNotification(frame); err != nil {
				return err
			}
			continue
		}
		// Control frames observed after Start (EntryAck and similar) carry
		// no journal shape; the runtime, not the SDK, acts on them (spec §9
		// Open Question "EntryAck correlation").
	}
}
