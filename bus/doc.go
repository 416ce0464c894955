// Package bus carries change notifications between the API and its
// subscribers.
//
// # Overview
//
// Every successful save is announced on SubjectMemorySaved. Live feeds
// (SSE, WebSocket) subscribe per connection; external consumers can attach
// to the same subject on a shared NATS server.
//
// # Available Implementations
//
//   - MemoryBus: in-process fan-out, the default
//   - NATSBus: publishes through a NATS server when bus.nats_url is set
//
// # Usage
//
//	sub, _ := b.Subscribe(bus.SubjectMemorySaved)
//	defer sub.Unsubscribe()
//	for msg := range sub.Messages() {
//	    ev, err := bus.DecodeMemorySaved(msg.Data)
//	    ...
//	}
//
// Delivery is best effort. A subscriber whose buffer is full misses
// messages rather than stalling the publisher.
package bus
