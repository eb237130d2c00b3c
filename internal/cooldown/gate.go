// Package cooldown rate-limits side-effecting actions per target.
package cooldown

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"
)

const gateShards = 16

// Gate enforces a per-channel cooldown between pin actions. TryAcquire is the
// single check-and-record step: a grant claims the channel's cooldown slot
// right away, so two near-simultaneous quorums on one channel can never both
// proceed. The slot is spent even if the action afterwards fails.
type Gate struct {
	shards   [gateShards]gateShard
	cooldown time.Duration
	clock    clockwork.Clock
}

type gateShard struct {
	mu    sync.Mutex
	byKey map[string]time.Time
}

// NewGate creates a gate granting at most one acquire per channel per
// cooldown window.
func NewGate(cooldown time.Duration, clock clockwork.Clock) *Gate {
	g := &Gate{cooldown: cooldown, clock: clock}
	for i := range g.shards {
		g.shards[i].byKey = make(map[string]time.Time)
	}
	return g
}

// TryAcquire reports whether channelID may act now. A true return records the
// grant atomically; false leaves the previous grant untouched. Channels on
// different shards never contend.
func (g *Gate) TryAcquire(channelID string) bool {
	sh := &g.shards[xxhash.Sum64String(channelID)%gateShards]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := g.clock.Now()
	if last, ok := sh.byKey[channelID]; ok && now.Sub(last) < g.cooldown {
		return false
	}
	sh.byKey[channelID] = now
	return true
}
