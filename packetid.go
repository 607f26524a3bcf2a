package mq

// packetIDAllocator hands out nonzero u16 packet identifiers for outbound
// SUBSCRIBE, UNSUBSCRIBE, and PUBLISH(QoS>0) packets.
//
// It does NOT consult any in-flight/pending set when issuing an id: the
// 65,535-value space is assumed large relative to the number of concurrent
// in-flight operations. If a caller discovers the chosen id collides with an
// entry it already tracks, it rejects the new operation with
// ErrDuplicatePacketId rather than asking the allocator to skip ahead.
//
// Not safe for concurrent use; callers run on the single client task.
type packetIDAllocator struct {
	next uint16
}

func newPacketIDAllocator() *packetIDAllocator {
	return &packetIDAllocator{next: 0}
}

// nextID returns the next id in the monotonic wrapping sequence 1..65535,
// never 0.
func (a *packetIDAllocator) nextID() uint16 {
	a.next++
	if a.next == 0 {
		a.next = 1
	}
	return a.next
}
