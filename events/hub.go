// Package events implements the websocket fan-out that streams
// core.VM execution and exception events to connected observers (a
// GUI front-end, a log collector) without pulling that front-end into
// this module. Adapted from the teacher's api/broadcaster.go
// subscription/channel pattern, with the SessionID-per-client concept
// dropped (one gbacore process runs one guest program, not many
// concurrent debugger sessions) and the teacher's generic
// map[string]interface{} payload replaced with a concrete Event shape.
package events

import "sync"

// Type distinguishes what kind of thing happened.
type Type string

const (
	TypeException  Type = "exception"  // exception/interrupt entry
	TypeBreakpoint Type = "breakpoint" // execution paused at a breakpoint
	TypeHalt       Type = "halt"       // guest halted the VM
)

// Event is one notification broadcast to subscribers.
type Event struct {
	Type Type                   `json:"type"`
	PC   uint32                 `json:"pc"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// subscriber holds one client's delivery channel.
type subscriber struct {
	channel chan Event
}

// Hub fans out Events to every subscribed client, mirroring the
// teacher's Broadcaster.run: a single goroutine owns the subscriber
// set so Subscribe/Unsubscribe/Publish never need external locking
// beyond the channel sends themselves.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]bool
	publish     chan Event
	register    chan *subscriber
	unregister  chan *subscriber
	done        chan struct{}
}

// NewHub creates and starts a running event hub.
func NewHub() *Hub {
	h := &Hub{
		subscribers: make(map[*subscriber]bool),
		publish:     make(chan Event, 256),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		done:        make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub] = true
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			if h.subscribers[sub] {
				delete(h.subscribers, sub)
				close(sub.channel)
			}
			h.mu.Unlock()

		case event := <-h.publish:
			h.mu.RLock()
			for sub := range h.subscribers {
				select {
				case sub.channel <- event:
				default:
					// Slow subscriber: drop rather than block the hub.
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for sub := range h.subscribers {
				close(sub.channel)
			}
			h.subscribers = make(map[*subscriber]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Subscribe registers a new listener and returns its delivery channel
// plus an unsubscribe function the caller must call when done.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	sub := &subscriber{channel: make(chan Event, 256)}
	h.register <- sub
	return sub.channel, func() { h.unregister <- sub }
}

// Publish broadcasts event to every current subscriber; it never
// blocks on a slow consumer.
func (h *Hub) Publish(event Event) {
	select {
	case h.publish <- event:
	default:
		// Hub's own buffer is full: drop rather than stall the caller
		// (core.VM's instruction-boundary yield point).
	}
}

// Close stops the hub's goroutine and disconnects all subscribers.
func (h *Hub) Close() { close(h.done) }
