package voting

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// Sweeper periodically drops sessions that outlived the max age, bounding
// memory when a vote never reaches quorum. Losing the sweeper only costs
// memory; vote handling keeps working without it.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	maxAge   time.Duration
	clock    clockwork.Clock

	active prometheus.Gauge
	swept  prometheus.Counter

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSweeper wires a sweeper to the registry. active is set to the live
// session count after every pass; swept accumulates evictions.
func NewSweeper(registry *Registry, interval, maxAge time.Duration, clock clockwork.Clock, active prometheus.Gauge, swept prometheus.Counter) *Sweeper {
	return &Sweeper{
		registry: registry,
		interval: interval,
		maxAge:   maxAge,
		clock:    clock,
		active:   active,
		swept:    swept,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	ticker := s.clock.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		for {
			select {
			case <-ticker.Chan():
				removed := s.registry.SweepExpired(s.maxAge)
				live := s.registry.Len()
				if removed > 0 {
					slog.Info("Swept expired voting sessions",
						"removed", removed,
						"remaining", live,
					)
					s.swept.Add(float64(removed))
				}
				s.active.Set(float64(live))
			case <-s.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
	slog.Info("Session sweeper started", "interval", s.interval, "max_age", s.maxAge)
}

// Stop terminates the sweep loop and waits for it to exit. Safe to call more
// than once; must follow Start.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.done
}
