package packets

import (
	"fmt"
	"log/slog"
)

// Encoder batches outbound packets into a single byte buffer up to a frame
// size budget, so the transport's write loop can coalesce several small
// packets (PUBACK, PINGREQ) into one syscall instead of one write per packet.
type Encoder struct {
	maxFrameSize int
	logger       *slog.Logger
}

// NewEncoder builds an Encoder that will not let a single batch exceed
// maxFrameSize bytes. A non-positive maxFrameSize disables the budget.
func NewEncoder(maxFrameSize int, logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{maxFrameSize: maxFrameSize, logger: logger}
}

// EncodeBatch encodes as many leading packets as fit within the frame size
// budget into dst, returning the extended buffer and the number of packets
// consumed from the front of pkts. consumed counts every packet resolved
// one way or another — written into dst, or dropped as malformed/oversize.
// Packets beyond consumed were never attempted because the batch budget was
// reached; the caller owns requeuing them. A single packet that exceeds the
// budget on its own, or that fails to encode, is dropped with a logged
// warning, returned in dropped, and reported via the returned error so the
// caller can fail its waiter; encoding continues with the remaining packets.
func (e *Encoder) EncodeBatch(dst []byte, pkts []Packet) ([]byte, int, []Packet, error) {
	var firstErr error
	var dropped []Packet
	consumed := 0
	start := len(dst)

	for _, pkt := range pkts {
		before := len(dst)
		next, err := e.appendPacket(dst, pkt)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			dropped = append(dropped, pkt)
			consumed++
			continue
		}

		if e.maxFrameSize > 0 && len(next)-start > e.maxFrameSize && before > start {
			// Adding this packet would blow the batch budget; stop here and
			// let the caller flush, then start a fresh batch next call.
			break
		}

		if e.maxFrameSize > 0 && len(next)-before > e.maxFrameSize {
			e.logger.Warn("dropping oversize packet", "type", PacketNames[pkt.Type()], "size", len(next)-before)
			if firstErr == nil {
				firstErr = fmt.Errorf("packet of type %s exceeds max frame size %d", PacketNames[pkt.Type()], e.maxFrameSize)
			}
			dropped = append(dropped, pkt)
			consumed++
			continue
		}

		dst = next
		consumed++
	}

	return dst, consumed, dropped, firstErr
}

func (e *Encoder) appendPacket(dst []byte, pkt Packet) ([]byte, error) {
	if enc, ok := pkt.(interface{ Encode([]byte) ([]byte, error) }); ok {
		return enc.Encode(dst)
	}

	w := &byteSliceWriter{buf: dst}
	if _, err := pkt.WriteTo(w); err != nil {
		return dst, err
	}
	return w.buf, nil
}

// byteSliceWriter adapts an io.Writer onto a growing []byte, used for
// packet types that only implement WriteTo.
type byteSliceWriter struct {
	buf []byte
}

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
