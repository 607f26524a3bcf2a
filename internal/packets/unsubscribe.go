package packets

import (
	"encoding/binary"
	"fmt"
	"io"
)

// UnsubscribePacket represents an MQTT UNSUBSCRIBE control packet.
type UnsubscribePacket struct {
	PacketID uint16
	Topics   []string
}

// Type returns the packet type.
func (p *UnsubscribePacket) Type() uint8 {
	return UNSUBSCRIBE
}

// WriteTo writes the UNSUBSCRIBE packet to the writer.
func (p *UnsubscribePacket) WriteTo(w io.Writer) (int64, error) {
	var payloadLen int
	var topicBytesList [][]byte

	for _, topic := range p.Topics {
		tb := encodeString(topic)
		topicBytesList = append(topicBytesList, tb)
		payloadLen += len(tb)
	}

	// UNSUBSCRIBE fixed header flags are reserved as 0x02.
	header := FixedHeader{
		PacketType:      UNSUBSCRIBE,
		Flags:           0x02,
		RemainingLength: 2 + payloadLen,
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
	if err != nil {
		return total, err
	}

	for _, tb := range topicBytesList {
		n, err = w.Write(tb)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// DecodeUnsubscribe decodes an UNSUBSCRIBE packet from the buffer.
func DecodeUnsubscribe(buf []byte, _ uint8) (*UnsubscribePacket, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: buffer too short for UNSUBSCRIBE packet", ErrMalformedPacket)
	}

	pkt := &UnsubscribePacket{
		PacketID: binary.BigEndian.Uint16(buf[0:2]),
	}
	offset := 2

	for offset < len(buf) {
		topic, n, err := decodeString(buf[offset:])
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode topic filter: %v", ErrMalformedPacket, err)
		}
		offset += n
		pkt.Topics = append(pkt.Topics, topic)
	}

	if len(pkt.Topics) == 0 {
		return nil, fmt.Errorf("%w: UNSUBSCRIBE packet must contain at least one topic filter", ErrMalformedPacket)
	}

	return pkt, nil
}
