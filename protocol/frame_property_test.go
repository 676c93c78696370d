package protocol

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestHeaderRoundTripProperty checks invariant 9: header decode is pure,
// for every (type, flags, length) triple, not just the one example in
// TestFrameHeaderRoundTrip.
func TestHeaderRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("EncodeHeader then DecodeHeader recovers (type, flags, length) exactly", prop.ForAll(
		func(ty, flags uint16, length uint32) bool {
			h := EncodeHeader(MessageType(ty), Flags(flags), length)
			gotType, gotFlags, gotLength, err := DecodeHeader(h[:])
			return err == nil &&
				gotType == MessageType(ty) &&
				gotFlags == Flags(flags) &&
				gotLength == length
		},
		gen.UInt16(),
		gen.UInt16(),
		gen.UInt32(),
	))

	properties.TestingRun(t)
}
