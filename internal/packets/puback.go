package packets

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PubackPacket represents an MQTT PUBACK control packet (QoS 1 acknowledgment).
type PubackPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubackPacket) Type() uint8 {
	return PUBACK
}

// Encode serializes the PUBACK packet into dst.
func (p *PubackPacket) Encode(dst []byte) ([]byte, error) {
	header := FixedHeader{
		PacketType:      PUBACK,
		Flags:           0,
		RemainingLength: 2,
	}
	dst = header.appendBytes(dst)
	dst = binary.BigEndian.AppendUint16(dst, p.PacketID)
	return dst, nil
}

// WriteTo writes the PUBACK packet to the writer.
func (p *PubackPacket) WriteTo(w io.Writer) (int64, error) {
	bufPtr := GetBuffer(4096)
	defer PutBuffer(bufPtr)

	data, err := p.Encode((*bufPtr)[:0])
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// DecodePuback decodes a PUBACK packet from the buffer.
func DecodePuback(buf []byte, _ uint8) (*PubackPacket, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: buffer too short for PUBACK packet", ErrMalformedPacket)
	}
	return &PubackPacket{PacketID: binary.BigEndian.Uint16(buf[0:2])}, nil
}
