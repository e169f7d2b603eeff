package eventbus

import (
	"sync"
)

// DefaultBufferSize is the default per-subscriber bounded buffer
// size named in §4.6.
const DefaultBufferSize = 1024

// Bus is a multi-producer, multi-consumer broadcast channel. The
// scheduler and drivers are its publishers; the TUI progress
// renderer, an SSE stream, and a log-file sink are typical
// subscribers. Publish never blocks: a subscriber whose buffer is
// full has its oldest event dropped to make room. The drop is
// counted, and a DroppedEvents event carrying the count is enqueued
// on a later send that leaves room for it, not at the moment of the
// drop.
//
// Subscribers may join or leave at any time; a late joiner receives
// only events published after Subscribe returns — there is no
// replay buffer.
type Bus struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	bufferSize  int
}

type subscriber struct {
	ch chan Event

	// mu guards dropped: OnLogLine callbacks fire from concurrently
	// executing tasks within a layer (§5), so distinct goroutines can
	// call send for the same subscriber at once.
	mu      sync.Mutex
	dropped int
}

// New creates a Bus whose subscriber channels are each buffered to
// bufferSize events. bufferSize <= 0 uses DefaultBufferSize.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		subscribers: make(map[*subscriber]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscription is a live subscriber handle. Events arrives on C;
// call Unsubscribe when the consumer is done to stop future
// publishes from buffering for it.
type Subscription struct {
	C    <-chan Event
	bus  *Bus
	sub  *subscriber
	once sync.Once
}

// Unsubscribe removes this subscription from the bus. Idempotent.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subscribers, s.sub)
		s.bus.mu.Unlock()
		close(s.sub.ch)
	})
}

// Subscribe registers a new subscriber and returns its Subscription.
func (b *Bus) Subscribe() *Subscription {
	sub := &subscriber{ch: make(chan Event, b.bufferSize)}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	return &Subscription{C: sub.ch, bus: b, sub: sub}
}

// Publish broadcasts ev to every current subscriber without
// blocking the caller (the executor's arbiter goroutine, per §5,
// must never block on the bus). A subscriber whose channel is full
// has its single oldest buffered event discarded to make room; the
// discard is tracked and surfaces as a best-effort DroppedEvents
// event on that subscriber's next successful send.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		b.send(s, ev)
	}
}

func (b *Bus) send(s *subscriber, ev Event) {
	select {
	case s.ch <- ev:
		b.flushDropNotice(s)
		return
	default:
	}

	// Buffer full: drop the oldest buffered event to make room, then
	// deliver ev. The dropped count accumulates until a send
	// succeeds and the DroppedEvents notice can itself be enqueued
	// without blocking.
	select {
	case <-s.ch:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	default:
	}

	select {
	case s.ch <- ev:
	default:
		// Buffer filled again between the drain and the send (a
		// concurrent publisher raced us); count this event as
		// dropped too rather than blocking.
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// flushDropNotice attempts to enqueue a DroppedEvents event for a
// subscriber that has accumulated drops, now that a send has
// succeeded and there is a moment of headroom. It is itself
// non-blocking: if the buffer is immediately full again the notice
// is deferred to the next successful send.
func (b *Bus) flushDropNotice(s *subscriber) {
	s.mu.Lock()
	dropped := s.dropped
	s.mu.Unlock()
	if dropped == 0 {
		return
	}
	select {
	case s.ch <- Event{Type: TypeDroppedEvents, Count: dropped}:
		s.mu.Lock()
		s.dropped -= dropped
		s.mu.Unlock()
	default:
	}
}
