// Package telemetry delivers per-island progress events to an external
// sink. Delivery is best effort: failures are logged by the caller and never
// affect the journey.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/types"
)

// Sink receives progress events.
type Sink interface {
	Report(ctx context.Context, ev types.ProgressEvent) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Report(context.Context, types.ProgressEvent) error { return nil }
func (Nop) Close() error                                     { return nil }

// Options selects and configures a sink.
type Options struct {
	Sink      string // none, redis or jsonl
	Dir       string
	RedisAddr string
	Channel   string
}

// Open constructs the sink named by opts.Sink, wrapped in an Async
// dispatcher so reports never block the caller.
func Open(ctx context.Context, opts Options, log logrus.FieldLogger) (Sink, error) {
	var s Sink
	switch strings.ToLower(opts.Sink) {
	case "", "none":
		return Nop{}, nil
	case "redis":
		r := NewRedis(opts.RedisAddr, opts.Channel, log)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		s = r
	case "jsonl":
		s = NewJSONL(opts.Dir, "progress")
	default:
		return nil, fmt.Errorf("unknown telemetry sink %q", opts.Sink)
	}
	return NewAsync(s, DefaultQueueSize, log), nil
}
