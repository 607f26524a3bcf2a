package packets

import "io"

// DisconnectPacket represents an MQTT DISCONNECT control packet.
// In v3.1.1 it carries no variable header or payload.
type DisconnectPacket struct{}

// Type returns the packet type.
func (p *DisconnectPacket) Type() uint8 {
	return DISCONNECT
}

// WriteTo writes the DISCONNECT packet to the writer.
func (p *DisconnectPacket) WriteTo(w io.Writer) (int64, error) {
	header := FixedHeader{
		PacketType:      DISCONNECT,
		Flags:           0,
		RemainingLength: 0,
	}
	return header.WriteTo(w)
}

// DecodeDisconnect decodes a DISCONNECT packet.
func DecodeDisconnect(_ []byte, _ uint8) (*DisconnectPacket, error) {
	return &DisconnectPacket{}, nil
}
