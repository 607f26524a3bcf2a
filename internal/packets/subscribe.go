package packets

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SubscribePacket represents an MQTT SUBSCRIBE control packet.
type SubscribePacket struct {
	PacketID uint16
	Topics   []string
	QoS      []uint8 // QoS level requested for each topic
}

// Type returns the packet type.
func (p *SubscribePacket) Type() uint8 {
	return SUBSCRIBE
}

// WriteTo writes the SUBSCRIBE packet to the writer.
func (p *SubscribePacket) WriteTo(w io.Writer) (int64, error) {
	var payloadLen int
	var topicBytesList [][]byte

	for _, topic := range p.Topics {
		tb := encodeString(topic)
		topicBytesList = append(topicBytesList, tb)
		payloadLen += len(tb) + 1 // topic + QoS byte
	}

	// SUBSCRIBE fixed header flags are reserved as 0x02.
	header := FixedHeader{
		PacketType:      SUBSCRIBE,
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

	for i, tb := range topicBytesList {
		n, err = w.Write(tb)
		total += int64(n)
		if err != nil {
			return total, err
		}

		qos := uint8(QoS0)
		if i < len(p.QoS) {
			qos = p.QoS[i]
		}
		if err := writeByte(w, qos&0x03); err != nil {
			return total, err
		}
		total++
	}

	return total, nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// DecodeSubscribe decodes a SUBSCRIBE packet from the buffer.
func DecodeSubscribe(buf []byte, _ uint8) (*SubscribePacket, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: buffer too short for SUBSCRIBE packet", ErrMalformedPacket)
	}

	pkt := &SubscribePacket{
		PacketID: binary.BigEndian.Uint16(buf[0:2]),
	}
	offset := 2

	for offset < len(buf) {
		topic, n, err := decodeString(buf[offset:])
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode topic filter: %v", ErrMalformedPacket, err)
		}
		offset += n

		if offset >= len(buf) {
			return nil, fmt.Errorf("%w: buffer too short for subscription options byte", ErrMalformedPacket)
		}
		qos := buf[offset] & 0x03
		if buf[offset]&0xFC != 0 {
			return nil, fmt.Errorf("%w: reserved bits set in subscription options", ErrMalformedPacket)
		}
		offset++

		pkt.Topics = append(pkt.Topics, topic)
		pkt.QoS = append(pkt.QoS, qos)
	}

	if len(pkt.Topics) == 0 {
		return nil, fmt.Errorf("%w: SUBSCRIBE packet must contain at least one topic filter", ErrMalformedPacket)
	}

	return pkt, nil
}
