// Package audit emits structured records for accumulator mutations. The sink
// decouples event consumers from the mutation path: emission never blocks and
// a slow consumer only ever costs dropped events, not stalled writes.
package audit

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/sealedsum/sealedsum/hebackend"
	"github.com/sealedsum/sealedsum/log"
)

// DefaultBuffer is the number of events a LogSink holds before it starts
// dropping.
const DefaultBuffer = 1024

// Event is a single audit record.
type Event struct {
	ID        uuid.UUID        `json:"id"`
	Kind      string           `json:"kind"`
	Principal common.Address   `json:"principal"`
	Handle    hebackend.Handle `json:"handle"`
	Time      time.Time        `json:"time"`
}

// LogSink writes audit events to the process log from a background goroutine.
// Emit may be called concurrently with Close; events emitted after Close is
// requested are dropped.
type LogSink struct {
	events chan Event
	quit   chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

// NewLogSink starts a sink with the given buffer size. A non-positive size
// falls back to DefaultBuffer.
func NewLogSink(buffer int) *LogSink {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &LogSink{
		events: make(chan Event, buffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Emit queues an audit event. It never blocks; if the buffer is full or the
// sink is closing, the event is dropped.
func (s *LogSink) Emit(event string, principal common.Address, handle hebackend.Handle) {
	select {
	case <-s.quit:
		return
	default:
	}
	e := Event{
		ID:        uuid.New(),
		Kind:      event,
		Principal: principal,
		Handle:    handle,
		Time:      time.Now(),
	}
	select {
	case s.events <- e:
	default:
		log.Warnw("audit event dropped", "kind", event, "principal", principal.Hex())
	}
}

// Close stops the sink after draining any queued events.
func (s *LogSink) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
}

func (s *LogSink) run() {
	defer close(s.done)
	for {
		select {
		case e := <-s.events:
			logEvent(e)
		case <-s.quit:
			for {
				select {
				case e := <-s.events:
					logEvent(e)
				default:
					return
				}
			}
		}
	}
}

func logEvent(e Event) {
	log.Infow("audit",
		"id", e.ID.String(),
		"kind", e.Kind,
		"principal", e.Principal.Hex(),
		"handle", e.Handle.String(),
		"time", e.Time.Format(time.RFC3339Nano),
	)
}
