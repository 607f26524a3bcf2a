package mq

// Message is an inbound application-visible PUBLISH delivered to a
// subscription handler.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       QoS
	Retained  bool
	Duplicate bool
}

// Handler processes a delivered Message. Handlers run on their own
// goroutine so a slow handler cannot stall the client's single-threaded
// core loop.
type Handler func(Message)
