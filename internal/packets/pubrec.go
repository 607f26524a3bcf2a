package packets

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PubrecPacket represents an MQTT PUBREC control packet (QoS 2, step 1).
type PubrecPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubrecPacket) Type() uint8 {
	return PUBREC
}

// WriteTo writes the PUBREC packet to the writer.
func (p *PubrecPacket) WriteTo(w io.Writer) (int64, error) {
	header := FixedHeader{
		PacketType:      PUBREC,
		Flags:           0,
		RemainingLength: 2,
	}

	hN, err := header.WriteTo(w)
	total := hN
	if err != nil {
		return total, err
	}

	var packetIDBytes [2]byte
	binary.BigEndian.PutUint16(packetIDBytes[:], p.PacketID)
	n, err := w.Write(packetIDBytes[:])
	total += int64(n)
	return total, err
}

// DecodePubrec decodes a PUBREC packet from the buffer.
func DecodePubrec(buf []byte, _ uint8) (*PubrecPacket, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: buffer too short for PUBREC packet", ErrMalformedPacket)
	}
	return &PubrecPacket{PacketID: binary.BigEndian.Uint16(buf[0:2])}, nil
}
