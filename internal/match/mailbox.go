package match

import (
	"context"
	"sync"

	"github.com/roach88/wbarena/internal/protocol"
)

// seatEvent is an engine event tagged with the seat it came from. Engine
// names alone are ambiguous when an engine plays itself.
type seatEvent struct {
	seat  int
	event protocol.Event
}

// Mailbox is an unbounded FIFO between engine tick goroutines and the game
// loop.
//
// Posting never blocks, so an engine's tick is never held up by a slow
// consumer. The buffered signal channel lets Next wait with a context.
type Mailbox struct {
	mu     sync.Mutex
	events []seatEvent
	signal chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		events: make([]seatEvent, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Handler returns a protocol.EventHandler posting into the mailbox for seat.
func (m *Mailbox) Handler(seat int) protocol.EventHandler {
	return func(ev protocol.Event) {
		m.post(seatEvent{seat: seat, event: ev})
	}
}

func (m *Mailbox) post(e seatEvent) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()

	// Non-blocking: a buffer of 1 coalesces signals.
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *Mailbox) tryNext() (seatEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return seatEvent{}, false
	}
	e := m.events[0]
	m.events[0] = seatEvent{}
	m.events = m.events[1:]
	return e, true
}

// Next blocks until an event is available or ctx is done.
func (m *Mailbox) Next(ctx context.Context) (seatEvent, error) {
	for {
		if e, ok := m.tryNext(); ok {
			return e, nil
		}
		select {
		case <-ctx.Done():
			return seatEvent{}, ctx.Err()
		case <-m.signal:
		}
	}
}

// Drain discards everything queued and returns how many events were dropped.
func (m *Mailbox) Drain() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.events)
	m.events = m.events[:0]
	return n
}

// Len returns the number of queued events.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
