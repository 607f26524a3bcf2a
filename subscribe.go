package mq

import (
	"time"

	"github.com/turbomqtt/turbomqtt/internal/packets"
)

const ackDeadline = 5 * time.Second

// Subscribe registers filter/handler and sends SUBSCRIBE. The returned
// Token completes on SUBACK (success iff every granted QoS is valid), or on
// Timeout if no SUBACK arrives within the per-op deadline.
func (c *Client) Subscribe(filter string, qos QoS, handler Handler) Token {
	tok := newToken()

	if err := validateSubscribeTopic(filter, c.opts.MaxTopicLength); err != nil {
		tok.complete(err)
		return tok
	}

	c.do(func() {
		id := c.session.ids.nextID()
		c.session.subscriptions[filter] = &topicSubscription{Filter: filter, QoS: qos, Handler: handler}
		c.acks.registerSubscribe(id, time.Now().Add(ackDeadline), tok.complete)
		c.outbound.push(&packets.SubscribePacket{PacketID: id, Topics: []string{filter}, QoS: []uint8{uint8(qos)}})
	})

	return tok
}

// Unsubscribe sends UNSUBSCRIBE for the given filters and drops their local
// handlers immediately (delivery to those filters stops at once; the ack
// only confirms the broker's side).
func (c *Client) Unsubscribe(filters ...string) Token {
	tok := newToken()

	c.do(func() {
		for _, f := range filters {
			delete(c.session.subscriptions, f)
		}
		id := c.session.ids.nextID()
		c.acks.registerUnsubscribe(id, time.Now().Add(ackDeadline), tok.complete)
		c.outbound.push(&packets.UnsubscribePacket{PacketID: id, Topics: filters})
	})

	return tok
}
