package mq

import (
	"github.com/turbomqtt/turbomqtt/internal/packets"
)

// Publish sends a message. For QoS0 the returned Token completes as soon as
// the packet is accepted onto the outbound queue; for QoS1/2 it completes on
// the matching ack (or Timeout/Cancelled/DuplicatePacketId).
func (c *Client) Publish(topic string, payload []byte, qos QoS, retain bool) Token {
	tok := newToken()

	if err := validatePublishTopic(topic, c.opts.MaxTopicLength); err != nil {
		tok.complete(err)
		return tok
	}
	if err := validatePayload(payload, c.opts.MaxPayloadSize); err != nil {
		tok.complete(err)
		return tok
	}

	c.do(func() {
		switch qos {
		case AtMostOnce:
			c.outbound.push(&packets.PublishPacket{Topic: topic, Payload: payload, QoS: 0, Retain: retain})
			tok.complete(nil)

		case AtLeastOnce:
			id := c.session.ids.nextID()
			pkt := &packets.PublishPacket{Topic: topic, Payload: payload, QoS: 1, Retain: retain, PacketID: id}
			if err := c.qos1.publish(pkt, tok.complete); err != nil {
				tok.complete(err)
			}

		case ExactlyOnce:
			id := c.session.ids.nextID()
			pkt := &packets.PublishPacket{Topic: topic, Payload: payload, QoS: 2, Retain: retain, PacketID: id}
			if err := c.qos2.publish(pkt, tok.complete); err != nil {
				tok.complete(err)
			}
		}
	})

	return tok
}
