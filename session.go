package mq

// topicSubscription is the client-side record of a single subscribed topic
// filter, restored verbatim onto every reconnected transport.
type topicSubscription struct {
	Filter  string
	QoS     QoS
	Handler Handler
}

// sessionState is the data SessionState block from the data model: saved
// subscriptions, the two in-flight tables, the packet id source, and the
// reconnect budget. The supervisor is the sole owner; it is never touched
// from the transport goroutines.
type sessionState struct {
	subscriptions map[string]*topicSubscription

	qos1 map[uint16]*pendingQos1
	qos2 map[uint16]*pendingQos2

	ids *packetIDAllocator

	remainingReconnects int
}

func newSessionState(maxReconnects int) *sessionState {
	return &sessionState{
		subscriptions:       make(map[string]*topicSubscription),
		qos1:                make(map[uint16]*pendingQos1),
		qos2:                make(map[uint16]*pendingQos2),
		ids:                 newPacketIDAllocator(),
		remainingReconnects: maxReconnects,
	}
}

// reset clears the two in-flight tables without completing their waiters;
// saved subscriptions and the id allocator survive. The maps are
// cleared in place, not reassigned: qos1Engine and qos2Engine were built
// against these exact map values and would otherwise keep ticking against
// the stale, pre-reset one.
func (s *sessionState) reset() {
	for id := range s.qos1 {
		delete(s.qos1, id)
	}
	for id := range s.qos2 {
		delete(s.qos2, id)
	}
}
