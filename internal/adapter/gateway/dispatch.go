package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/956zs/pinit/internal/adapter/metrics"
	"github.com/956zs/pinit/internal/platform/correlation"
)

const queueSize = 256

// dispatcher fans decoded events out to a fixed pool of workers so a slow pin
// call never stalls the gateway read loop. Each event runs under its own
// correlation ID.
type dispatcher struct {
	queue   chan func(context.Context)
	workers int
	metrics *metrics.GatewayMetrics
	wg      sync.WaitGroup
}

func newDispatcher(workers int, m *metrics.GatewayMetrics) *dispatcher {
	return &dispatcher{
		queue:   make(chan func(context.Context), queueSize),
		workers: workers,
		metrics: m,
	}
}

// start launches the worker pool. Workers inherit ctx for handler calls.
func (d *dispatcher) start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for job := range d.queue {
				job(correlation.WithID(ctx, correlation.NewID()))
			}
		}()
	}
}

// stop drains the queue and waits for in-flight handlers. Only call after the
// last enqueue.
func (d *dispatcher) stop() {
	close(d.queue)
	d.wg.Wait()
}

// enqueue hands a job to the pool. Under sustained overload the queue fills
// and events are dropped; upstream delivery is at-least-once, so losing one
// costs a vote at worst, not consistency.
func (d *dispatcher) enqueue(job func(context.Context)) {
	select {
	case d.queue <- job:
	default:
		d.metrics.EventsDropped.Inc()
		slog.Warn("Event dropped, dispatch queue full", "queue_size", queueSize)
	}
}
