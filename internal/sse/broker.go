// Package sse streams recipe book changes to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Change event types. Recipe and ingredient types match the store's
// change kinds.
const (
	TypeRecipeCreated   = "recipe.created"
	TypeRecipeUpdated   = "recipe.updated"
	TypeRecipeDeleted   = "recipe.deleted"
	TypeIngredientAdded = "ingredient.added"
	TypeFiltersUpdated  = "filters.updated"
)

const clientBuffer = 64

type change struct {
	kind    string
	subject string
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets the keepalive interval for open streams. Zero or a
// negative value disables keepalives.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// WithClock replaces the time source used for filters throttling.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// Broker fans store changes out to connected stream clients.
//
// A single loop goroutine owns the client set, the event sequence and the
// filters throttle timestamp. Public methods talk to it over channels.
type Broker struct {
	filtersMin time.Duration
	heartbeat  time.Duration
	now        func() time.Time

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	changeCh      chan change
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. filtersThrottle is the minimum gap between two
// filters.updated events.
func NewBroker(filtersThrottle time.Duration, opts ...Option) *Broker {
	if filtersThrottle <= 0 {
		filtersThrottle = 2 * time.Second
	}

	b := &Broker{
		filtersMin:    filtersThrottle,
		now:           time.Now,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		changeCh:      make(chan change, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// frame renders one event in wire format.
func frame(seq uint64, typ string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\nid: %d\ndata: %s\n\n", typ, seq, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq         uint64
		lastFilters time.Time
	)

	broadcast := func(typ string, data any) {
		seq++
		msg, err := frame(seq, typ, data)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case c := <-b.changeCh:
			switch c.kind {
			case TypeRecipeCreated, TypeRecipeUpdated, TypeRecipeDeleted:
				broadcast(c.kind, map[string]string{"id": c.subject})
			case TypeIngredientAdded:
				broadcast(c.kind, map[string]string{"name": c.subject})
				continue
			default:
				continue
			}

			// Any recipe change may alter the category and tag lists.
			now := b.now()
			if now.Sub(lastFilters) >= b.filtersMin {
				lastFilters = now
				broadcast(TypeFiltersUpdated, map[string]string{})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishChange publishes a store change. Recipe changes are followed by a
// throttled filters.updated event; unknown kinds are dropped. Its signature
// matches cookbook.EventCallback.
func (b *Broker) PublishChange(kind, subject string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change{kind: kind, subject: subject}:
	case <-b.stopped:
	}
}

// ServeHTTP is the event stream endpoint (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
