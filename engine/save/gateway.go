package save

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/store"
)

// StorageKey is the single key progress is stored under.
const StorageKey = "cosmic-isles-progress"

// Gateway reads and writes SavedProgress through a keyed store.
type Gateway struct {
	store store.Store
	key   string
	log   logrus.FieldLogger
}

// NewGateway wraps st using StorageKey.
func NewGateway(st store.Store, log logrus.FieldLogger) *Gateway {
	return &Gateway{store: st, key: StorageKey, log: logger.OrDiscard(log)}
}

// Save writes p, stamping SavedAt when it is empty.
func (g *Gateway) Save(ctx context.Context, p SavedProgress) error {
	if p.SavedAt == "" {
		p.SavedAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := Encode(p)
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}
	if err := g.store.Save(ctx, g.key, data); err != nil {
		return fmt.Errorf("writing progress: %w", err)
	}
	g.log.WithFields(logrus.Fields{
		"island": p.CurrentIslandIndex,
		"room":   p.CurrentRoom,
		"bytes":  len(data),
	}).Debug("progress saved")
	return nil
}

// Load returns the stored progress, or (nil, nil) when nothing is saved.
func (g *Gateway) Load(ctx context.Context) (*SavedProgress, error) {
	data, ok, err := g.store.Load(ctx, g.key)
	if err != nil {
		return nil, fmt.Errorf("reading progress: %w", err)
	}
	if !ok {
		return nil, nil
	}
	p, err := Decode(data)
	if err != nil {
		g.log.WithError(err).Warn("stored progress is unreadable")
		return nil, err
	}
	return p, nil
}

// Exists reports whether progress is stored.
func (g *Gateway) Exists(ctx context.Context) (bool, error) {
	_, ok, err := g.store.Load(ctx, g.key)
	return ok, err
}

// Clear deletes stored progress.
func (g *Gateway) Clear(ctx context.Context) error {
	if err := g.store.Clear(ctx, g.key); err != nil {
		return fmt.Errorf("clearing progress: %w", err)
	}
	return nil
}

// DefaultAutosaveInterval is the wall-clock autosave period.
const DefaultAutosaveInterval = 30 * time.Second

// Autosaver writes snapshots in the background. While one write is in
// flight every further request is dropped; the next interval picks up
// whatever was missed.
type Autosaver struct {
	gw       *Gateway
	interval time.Duration
	timeout  time.Duration
	log      logrus.FieldLogger

	inflight atomic.Bool
	last     time.Time // time of the last accepted request; owner goroutine only
	wg       sync.WaitGroup

	writes  atomic.Int64
	dropped atomic.Int64
}

// NewAutosaver returns an autosaver firing every interval.
func NewAutosaver(gw *Gateway, interval time.Duration, log logrus.FieldLogger) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{
		gw:       gw,
		interval: interval,
		timeout:  10 * time.Second,
		log:      logger.OrDiscard(log),
	}
}

// Gateway returns the underlying gateway.
func (a *Autosaver) Gateway() *Gateway { return a.gw }

// Due reports whether the interval has elapsed since the last accepted
// request. It is true before the first request.
func (a *Autosaver) Due(now time.Time) bool {
	return a.last.IsZero() || now.Sub(a.last) >= a.interval
}

// Request captures a snapshot and writes it asynchronously. capture runs on
// the caller's goroutine, and only when the request is accepted. It returns
// false when a write is already in flight.
func (a *Autosaver) Request(now time.Time, reason string, capture func() SavedProgress) bool {
	if !a.inflight.CompareAndSwap(false, true) {
		a.dropped.Add(1)
		a.log.WithField("reason", reason).Debug("autosave coalesced")
		return false
	}
	a.last = now
	p := capture()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.inflight.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.gw.Save(ctx, p); err != nil {
			a.log.WithError(err).WithField("reason", reason).Error("autosave failed")
			return
		}
		a.writes.Add(1)
	}()
	return true
}

// Wait blocks until no write is in flight.
func (a *Autosaver) Wait() {
	a.wg.Wait()
}

// Writes returns the number of completed writes.
func (a *Autosaver) Writes() int64 { return a.writes.Load() }

// Dropped returns the number of coalesced requests.
func (a *Autosaver) Dropped() int64 { return a.dropped.Load() }
