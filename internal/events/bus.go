// Package events provides a publish/subscribe event bus for operational
// observability. Events flow from components (pipeline, pollers, gateway)
// to subscribers (the stats endpoint's counter tally, future metrics
// collectors). The bus is nil-safe: calling Publish on a nil *Bus is a
// no-op, so components do not need guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourcePipeline identifies events from the command pipeline.
	SourcePipeline = "pipeline"
	// SourceRegistry identifies events from the device registry poller.
	SourceRegistry = "registry"
	// SourceAutomation identifies events from the automation state poller.
	SourceAutomation = "automation"
	// SourceGateway identifies events from the device cloud gateway.
	SourceGateway = "gateway"
)

// Kind constants describe the type of event within a source.
const (
	// KindPollOK signals a completed poll pass.
	// Data: entities (registry) or states (automation), elapsed_ms.
	KindPollOK = "poll_ok"
	// KindPollFailed signals a poll pass that was swallowed and logged.
	// Data: error, consecutive_failures.
	KindPollFailed = "poll_failed"
	// KindDiscovery signals a completed registry replacement.
	// Data: entities, trigger (timer, command, api).
	KindDiscovery = "discovery"
	// KindCommandExecuted signals a device command that reached the cloud.
	// Data: device_id, capability, command.
	KindCommandExecuted = "command_executed"
	// KindCommandFailed signals a pipeline run that ended in Failed.
	// Data: stage, error.
	KindCommandFailed = "command_failed"
	// KindGateIgnored signals an utterance the intent gate dropped.
	// Data: decision (ignore, stop).
	KindGateIgnored = "gate_ignored"
)

// Event represents a single operational event published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs. This allows
	// Unsubscribe to accept <-chan Event (the caller's view) without
	// an illegal type conversion.
	recvToSend map[<-chan Event]chan Event
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber. Safe to call on a nil receiver (no-op).
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full; drop the event rather than block.
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid resource leaks.
// bufSize controls the channel buffer; 64 is a reasonable default.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
