// Package progressbus fans a single Generation's ProgressEvents and
// AgentInteractions out to any number of SSE subscribers on one shared
// channel. Each Generation gets exactly one bus, created idempotently on
// first use and torn down once the generation reaches a terminal state and
// every subscriber has drained.
package progressbus

import (
	"sync"
	"time"

	"adreel/internal/domain"
)

// Bus fans every StreamEvent emitted for one generation out to whichever
// subscribers are live at publish time. Subscribe replays nothing: a
// subscriber only sees events published after Subscribe returns, per §4.3.
type Bus struct {
	mu          sync.Mutex
	bufferDepth int
	subs        map[int]chan domain.StreamEvent
	nextSub     int
	closed      bool
}

func newBus(bufferDepth int) *Bus {
	if bufferDepth <= 0 {
		bufferDepth = 256
	}
	return &Bus{
		bufferDepth: bufferDepth,
		subs:        map[int]chan domain.StreamEvent{},
	}
}

// Publish wraps a lifecycle ProgressEvent in a StreamEvent and fans it out.
func (b *Bus) Publish(evt domain.ProgressEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.publish(domain.StreamEvent{Kind: domain.StreamEventProgress, Progress: &evt, Timestamp: evt.Timestamp})
}

// PublishInteraction wraps an AgentInteraction in a StreamEvent and fans it
// out on the same channel as lifecycle ProgressEvents, per §4.3.
func (b *Bus) PublishInteraction(ai domain.AgentInteraction) {
	if ai.Timestamp.IsZero() {
		ai.Timestamp = time.Now()
	}
	b.publish(domain.StreamEvent{Kind: domain.StreamEventLLMInteraction, Interaction: &ai, Timestamp: ai.Timestamp})
}

// publish delivers an event to every live subscriber. A subscriber whose
// channel is full has its oldest buffered event dropped to make room, so a
// slow reader never blocks the publisher.
func (b *Bus) publish(evt domain.StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		deliver(ch, evt)
	}
}

func deliver(ch chan domain.StreamEvent, evt domain.StreamEvent) {
	select {
	case ch <- evt:
		return
	default:
	}
	// Channel full: drop the oldest buffered event, then retry once.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
	default:
	}
}

// Subscribe registers a new subscriber. It replays nothing: the returned
// channel only receives events published after Subscribe returns, per
// §4.3. Subscribing to a closed bus returns an already-closed channel so a
// late subscriber sees immediate end-of-stream instead of blocking. The
// returned unsubscribe func must be called when the caller stops reading.
func (b *Bus) Subscribe() (<-chan domain.StreamEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.StreamEvent, b.bufferDepth)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Close marks the bus closed and closes every live subscriber channel. Call
// once the generation reaches a terminal status.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Registry looks up or creates per-generation Buses.
type Registry struct {
	mu          sync.Mutex
	buses       map[string]*Bus
	bufferDepth int
}

// NewRegistry builds a Registry. bufferDepth bounds each subscriber's
// channel depth.
func NewRegistry(bufferDepth int) *Registry {
	return &Registry{buses: map[string]*Bus{}, bufferDepth: bufferDepth}
}

// GetOrCreate returns the Bus for a generation ID, creating it idempotently
// on first call.
func (r *Registry) GetOrCreate(generationID string) *Bus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buses[generationID]; ok {
		return b
	}
	b := newBus(r.bufferDepth)
	r.buses[generationID] = b
	return b
}

// Get returns the Bus for a generation ID if one exists.
func (r *Registry) Get(generationID string) (*Bus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buses[generationID]
	return b, ok
}

// Remove closes and forgets the Bus for a generation ID. Safe to call after
// the generation reaches a terminal status and all known subscribers have
// had a chance to drain.
func (r *Registry) Remove(generationID string) {
	r.mu.Lock()
	b, ok := r.buses[generationID]
	delete(r.buses, generationID)
	r.mu.Unlock()
	if ok {
		b.Close()
	}
}
