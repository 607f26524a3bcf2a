package mq

import "time"

const connectWaiterID = 0 // sentinel key: CONNECT has no packet id of its own

// ackWaiter is a registered caller awaiting a broker acknowledgement.
type ackWaiter struct {
	deadline time.Time
	complete func(error)
}

// ackRouter implements the Inbound Ack Router (C3): separate pending-waiter
// tables for CONNECT, SUBSCRIBE, and UNSUBSCRIBE, each swept once a second
// for overdue entries.
type ackRouter struct {
	connect     map[uint16]*ackWaiter
	subscribe   map[uint16]*ackWaiter
	unsubscribe map[uint16]*ackWaiter
}

func newAckRouter() *ackRouter {
	return &ackRouter{
		connect:     make(map[uint16]*ackWaiter),
		subscribe:   make(map[uint16]*ackWaiter),
		unsubscribe: make(map[uint16]*ackWaiter),
	}
}

func (r *ackRouter) registerConnect(deadline time.Time, complete func(error)) {
	r.connect[connectWaiterID] = &ackWaiter{deadline: deadline, complete: complete}
}

func (r *ackRouter) registerSubscribe(id uint16, deadline time.Time, complete func(error)) {
	r.subscribe[id] = &ackWaiter{deadline: deadline, complete: complete}
}

func (r *ackRouter) registerUnsubscribe(id uint16, deadline time.Time, complete func(error)) {
	r.unsubscribe[id] = &ackWaiter{deadline: deadline, complete: complete}
}

// completeConnect resolves the CONNECT waiter: success iff reason code is
// 0x00, else the named connack error.
func (r *ackRouter) completeConnect(returnCode uint8) {
	w, ok := r.connect[connectWaiterID]
	if !ok {
		return
	}
	delete(r.connect, connectWaiterID)
	w.complete(connackError(returnCode))
}

// completeSubscribe resolves a SUBACK: success iff every return code is a
// granted QoS value (< 0x80).
func (r *ackRouter) completeSubscribe(id uint16, returnCodes []uint8) {
	w, ok := r.subscribe[id]
	if !ok {
		return
	}
	delete(r.subscribe, id)

	var err error
	for _, code := range returnCodes {
		if code >= 0x80 {
			err = ErrSubscriptionFailed
			break
		}
	}
	w.complete(err)
}

// completeUnsubscribe resolves an UNSUBACK, always success under v3.1.1.
func (r *ackRouter) completeUnsubscribe(id uint16) {
	w, ok := r.unsubscribe[id]
	if !ok {
		return
	}
	delete(r.unsubscribe, id)
	w.complete(nil)
}

// sweep fails every waiter whose deadline has passed with ErrTimeout. Meant
// to run off the supervisor's 1 Hz tick.
func (r *ackRouter) sweep(now time.Time) {
	sweepTable(r.connect, now)
	sweepTable(r.subscribe, now)
	sweepTable(r.unsubscribe, now)
}

func sweepTable(table map[uint16]*ackWaiter, now time.Time) {
	for id, w := range table {
		if now.After(w.deadline) {
			delete(table, id)
			w.complete(ErrTimeout)
		}
	}
}

// cancelAll fails every outstanding waiter across all three tables, used
// when the client is torn down.
func (r *ackRouter) cancelAll(err error) {
	cancelTable(r.connect, err)
	cancelTable(r.subscribe, err)
	cancelTable(r.unsubscribe, err)
}

func cancelTable(table map[uint16]*ackWaiter, err error) {
	for id, w := range table {
		delete(table, id)
		w.complete(err)
	}
}
