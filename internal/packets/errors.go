package packets

import "errors"

// ErrMalformedPacket is wrapped by every decode error that stems from an
// impossible wire value (bad QoS, reserved bits, truncated body, runaway
// varint). Callers use errors.Is to decide whether the transport must be
// torn down.
var ErrMalformedPacket = errors.New("malformed packet")

// errNeedMoreData signals that a buffer holds only a partial frame; it never
// escapes the packets package.
var errNeedMoreData = errors.New("need more data")
