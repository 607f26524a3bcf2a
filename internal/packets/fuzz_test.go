package packets

import (
	"bytes"
	"testing"
)

// FuzzReadPacket hammers the top-level packet reader with arbitrary bytes;
// it must never panic, whatever the input.
func FuzzReadPacket(f *testing.F) {
	f.Add([]byte{0x10, 0x00})             // CONNECT, zero remaining length
	f.Add([]byte{0x20, 0x02, 0x00, 0x00}) // CONNACK
	f.Add([]byte{0x30, 0x00})             // PUBLISH QoS0, empty
	f.Add([]byte{0x82, 0x00})             // SUBSCRIBE
	f.Add([]byte{0xc0, 0x00})             // PINGREQ
	f.Add([]byte{0xe0, 0x00})             // DISCONNECT

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = ReadPacket(bytes.NewReader(data), 4, 0)
	})
}

// FuzzDecodeFixedHeader targets the variable-length remaining-length field,
// the part of the header most likely to misbehave on truncated input.
func FuzzDecodeFixedHeader(f *testing.F) {
	f.Add([]byte{0x10, 0x00})
	f.Add([]byte{0x30, 0x7f})
	f.Add([]byte{0x30, 0x80, 0x01})
	f.Add([]byte{0x30, 0xff, 0xff, 0xff, 0x7f})
	f.Add([]byte{0x30, 0xff, 0xff, 0xff, 0xff, 0xff}) // one continuation byte too many

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeFixedHeader(bytes.NewReader(data))
	})
}

// FuzzDecodeVarInt exercises the remaining-length varint decoder directly.
func FuzzDecodeVarInt(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0x7f})
	f.Add([]byte{0x80, 0x01})
	f.Add([]byte{0xff, 0x7f})
	f.Add([]byte{0x80, 0x80, 0x80, 0x01})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = decodeVarInt(bytes.NewReader(data))
	})
}

// FuzzDecodeString targets the length-prefixed UTF-8 string decoder shared
// by every packet type that carries topic names or identifiers.
func FuzzDecodeString(f *testing.F) {
	f.Add([]byte{0x00, 0x00})
	f.Add([]byte{0x00, 0x04, 'M', 'Q', 'T', 'T'})
	f.Add([]byte{0x00, 0x03, 'a', '/', 'b'})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _, _ = decodeString(data)
	})
}

// FuzzDecodeConnect drives the CONNECT variable-header/payload decoder with
// a valid seed and arbitrary mutations of it.
func FuzzDecodeConnect(f *testing.F) {
	f.Add([]byte{
		0x00, 0x04, 'M', 'Q', 'T', 'T', // protocol name
		0x04,       // protocol level
		0x02,       // connect flags: clean session
		0x00, 0x3c, // keep alive
		0x00, 0x06, 'f', 'u', 'z', 'z', 'e', 'r', // client id
	})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeConnect(data)
	})
}

// FuzzDecodePublish drives the PUBLISH payload decoder across both the
// QoS0 (no packet id) and QoS1+ (packet id present) layouts.
func FuzzDecodePublish(f *testing.F) {
	f.Add([]byte{0x00, 0x05, 't', 'o', 'p', 'i', 'c', 'h', 'e', 'l', 'l', 'o'})
	f.Add([]byte{0x00, 0x05, 't', 'o', 'p', 'i', 'c', 0x00, 0x2a, 'd', 'a', 't', 'a'})

	f.Fuzz(func(t *testing.T, data []byte) {
		header := &FixedHeader{PacketType: PUBLISH, RemainingLength: len(data)}
		_, _ = DecodePublish(data, header, 4)
	})
}
