// Package mq provides a lightweight, idiomatic MQTT v3.1.1 client library
// for Go, built around a single cooperative core goroutine per connection.
//
// # Features
//
//   - Full MQTT v3.1.1 support (QoS 0/1/2, wildcards, Last Will and Testament)
//   - Automatic reconnection with session restoration (subscriptions and
//     in-flight QoS1/QoS2 publishes survive a reconnect)
//   - Pluggable transport: the caller supplies a TransportManager; a TCP/TLS
//     implementation lives in transport/tcp
//   - Clean, idiomatic Go API with functional options
//   - Context-based cancellation and timeouts
//
// # Quick Start
//
//	mgr := tcp.NewManager("tcp://localhost:1883", 0)
//	client, err := mq.Dial(ctx, mgr, mq.WithClientID("my-client"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect(context.Background())
//
//	token := client.Publish("sensors/temperature", []byte("22.5"), mq.AtLeastOnce, false)
//	err = token.Wait(context.Background())
//
// Subscribe to a topic:
//
//	client.Subscribe("sensors/+/temperature", mq.AtLeastOnce,
//	    func(msg mq.Message) {
//	        fmt.Printf("%s: %s\n", msg.Topic, msg.Payload)
//	    })
//
// # Quality of Service
//
//   - QoS 0 (mq.AtMostOnce): fire and forget
//   - QoS 1 (mq.AtLeastOnce): acknowledged, retried until PUBACK
//   - QoS 2 (mq.ExactlyOnce): four-step handshake (PUBLISH/PUBREC/PUBREL/PUBCOMP)
//
// # Wildcard Subscriptions
//
//   - '+' matches a single level (e.g., "sensors/+/temperature")
//   - '#' matches multiple levels (e.g., "sensors/#")
//
// # Error Handling
//
// Operations return a Token for both blocking and non-blocking completion:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	if err := token.Wait(ctx); err != nil {
//	    if errors.Is(err, mq.ErrSubscriptionFailed) {
//	        log.Printf("server rejected subscription: %v", err)
//	    }
//	}
//
// The client reconnects automatically unless WithAutoReconnect(false) is set.
package mq
