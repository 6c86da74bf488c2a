package events

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/internal/contracts"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const deliverTimeout = 5 * time.Second

// Event is one marshalled envelope queued for delivery.
type Event struct {
	Type          contracts.EventType
	CorrelationID string
	Raw           []byte
}

// Sink receives every emitted event, in emission order, from a single goroutine.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, evt Event) error
}

// Notifier decouples event producers from sinks. Emit never blocks; when
// the queue is full the event is dropped and counted.
type Notifier struct {
	logger  zerolog.Logger
	queue   chan Event
	sinks   []Sink
	dropped atomic.Int64

	now   func() time.Time
	newID func() string
}

func NewNotifier(logger zerolog.Logger, buffer int, sinks ...Sink) *Notifier {
	if buffer <= 0 {
		buffer = 1
	}
	return &Notifier{
		logger: logger,
		queue:  make(chan Event, buffer),
		sinks:  sinks,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (n *Notifier) Emit(eventType contracts.EventType, correlationID string, connID uint64, payload any) {
	if len(n.sinks) == 0 {
		return
	}
	var connRef *uint64
	if connID != 0 {
		connRef = &connID
	}
	raw, err := contracts.MarshalV1(n.newID(), eventType, n.now(), correlationID, connRef, payload)
	if err != nil {
		n.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("marshal fleet event")
		return
	}
	select {
	case n.queue <- Event{Type: eventType, CorrelationID: correlationID, Raw: raw}:
	default:
		n.dropped.Add(1)
		n.logger.Warn().Str("event_type", string(eventType)).Msg("event queue full, dropping event")
	}
}

func (n *Notifier) Dropped() int64 { return n.dropped.Load() }

// Run delivers queued events until ctx is canceled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-n.queue:
			n.deliver(ctx, evt)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, evt Event) {
	for _, sink := range n.sinks {
		deliverCtx, cancel := context.WithTimeout(ctx, deliverTimeout)
		err := sink.Deliver(deliverCtx, evt)
		cancel()
		if err != nil {
			n.logger.Warn().Err(err).
				Str("sink", sink.Name()).
				Str("event_type", string(evt.Type)).
				Str("correlation_id", evt.CorrelationID).
				Msg("deliver fleet event")
		}
	}
}
