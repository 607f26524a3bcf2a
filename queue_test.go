package mq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbomqtt/turbomqtt/internal/packets"
)

func TestOutboundQueuePushPop(t *testing.T) {
	q := newOutboundQueue()
	q.push(&packets.PingreqPacket{})
	q.push(&packets.PingreqPacket{})

	batch := q.popBatch(1)
	require.Len(t, batch, 1)

	batch = q.popBatch(10)
	require.Len(t, batch, 1)

	require.Nil(t, q.popBatch(10))
}

func TestOutboundQueuePushFrontPreservesOrder(t *testing.T) {
	q := newOutboundQueue()
	q.push(&packets.PublishPacket{PacketID: 3})
	q.pushFront([]packets.Packet{
		&packets.PublishPacket{PacketID: 1},
		&packets.PublishPacket{PacketID: 2},
	})

	got := q.popBatch(10)
	require.Len(t, got, 3)
	assert.Equal(t, uint16(1), got[0].(*packets.PublishPacket).PacketID)
	assert.Equal(t, uint16(2), got[1].(*packets.PublishPacket).PacketID)
	assert.Equal(t, uint16(3), got[2].(*packets.PublishPacket).PacketID)
}

func TestOutboundQueueDrainAllDropsDisconnect(t *testing.T) {
	q := newOutboundQueue()
	q.push(&packets.PublishPacket{PacketID: 1})
	q.push(&packets.DisconnectPacket{})
	q.push(&packets.PublishPacket{PacketID: 2})

	kept := q.drainAll()
	require.Len(t, kept, 2)
	for _, pkt := range kept {
		assert.NotEqual(t, packets.DISCONNECT, pkt.Type())
	}
	assert.Nil(t, q.popBatch(10))
}

func TestOutboundQueueNotifiesOnPush(t *testing.T) {
	q := newOutboundQueue()
	select {
	case <-q.wait():
		t.Fatal("unexpected notification before any push")
	default:
	}

	q.push(&packets.PingreqPacket{})
	select {
	case <-q.wait():
	default:
		t.Fatal("expected notification after push")
	}
}

func TestOutboundQueueClosedRejectsPush(t *testing.T) {
	q := newOutboundQueue()
	q.close()
	q.push(&packets.PingreqPacket{})
	assert.Nil(t, q.popBatch(10))
}

func TestOutboundQueueConcurrentPush(t *testing.T) {
	q := newOutboundQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id uint16) {
			defer wg.Done()
			q.push(&packets.PublishPacket{PacketID: id})
		}(uint16(i + 1))
	}
	wg.Wait()
	assert.Len(t, q.popBatch(1000), 50)
}
