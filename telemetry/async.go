package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/types"
)

// DefaultQueueSize bounds the events waiting for delivery.
const DefaultQueueSize = 64

// Async hands events to a background goroutine. Report never blocks: when
// the queue is full the event is dropped and counted.
type Async struct {
	sink    Sink
	queue   chan types.ProgressEvent
	timeout time.Duration
	log     logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewAsync starts the delivery goroutine. Close stops it after draining.
func NewAsync(sink Sink, size int, log logrus.FieldLogger) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	a := &Async{
		sink:    sink,
		queue:   make(chan types.ProgressEvent, size),
		timeout: 5 * time.Second,
		log:     logger.OrDiscard(log),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.sink.Report(ctx, ev)
		cancel()
		if err != nil {
			a.failed.Add(1)
			a.log.WithError(err).WithFields(logrus.Fields{
				"session": ev.SessionID,
				"island":  ev.IslandIndex,
			}).Error("progress telemetry failed")
			continue
		}
		a.delivered.Add(1)
	}
}

// Report enqueues ev. The error is always nil; delivery failures are logged.
func (a *Async) Report(_ context.Context, ev types.ProgressEvent) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return nil
	}
	select {
	case a.queue <- ev:
	default:
		a.dropped.Add(1)
		a.log.WithField("island", ev.IslandIndex).Warn("telemetry queue full, event dropped")
	}
	return nil
}

// Close delivers queued events, then closes the underlying sink.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.sink.Close()
}

// Delivered returns how many events reached the sink.
func (a *Async) Delivered() int64 { return a.delivered.Load() }

// Failed returns how many deliveries returned an error.
func (a *Async) Failed() int64 { return a.failed.Load() }

// Dropped returns how many events were discarded because the queue was full.
func (a *Async) Dropped() int64 { return a.dropped.Load() }
