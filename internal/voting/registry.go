package voting

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"

	"github.com/956zs/pinit/internal/domain"
)

// shardCount trades memory for contention: votes on unrelated requests only
// ever collide when their keys hash to the same shard.
const shardCount = 32

// Registry is the concurrent store of live voting sessions, keyed by request
// (command message) ID. Each shard carries its own lock, so operations on one
// request are serialized while distinct requests proceed in parallel. There is
// no lock spanning the whole registry; SweepExpired works shard by shard.
type Registry struct {
	shards [shardCount]registryShard
	clock  clockwork.Clock
}

type registryShard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. The clock stamps session creation
// times and is injected so expiry is testable.
func NewRegistry(clock clockwork.Clock) *Registry {
	r := &Registry{clock: clock}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]*Session)
	}
	return r
}

func (r *Registry) shard(requestID string) *registryShard {
	return &r.shards[xxhash.Sum64String(requestID)%shardCount]
}

// Create opens a session for requestID voting on targetMessageID. Request IDs
// are unique upstream (message IDs); a duplicate create replaces the session.
func (r *Registry) Create(requestID, targetMessageID, channelID string) {
	sh := r.shard(requestID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.sessions[requestID] = newSession(targetMessageID, channelID, r.clock.Now())
}

// CastVote records voterID's vote on the session for requestID. The returned
// outcome carries the post-vote count and a copy of the pin target, taken
// under the shard lock so the caller never touches the session afterwards.
// Returns domain.ErrNoSession when the session is gone (resolved or expired).
func (r *Registry) CastVote(requestID, voterID string) (domain.VoteOutcome, error) {
	sh := r.shard(requestID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.sessions[requestID]
	if !ok {
		return domain.VoteOutcome{}, domain.ErrNoSession
	}

	applied := s.addVote(voterID)
	return domain.VoteOutcome{
		Applied:         applied,
		Count:           s.Count(),
		TargetMessageID: s.targetMessageID,
		ChannelID:       s.channelID,
	}, nil
}

// RetractVote withdraws voterID's vote. Outcome semantics mirror CastVote;
// Applied is true when a vote was actually removed.
func (r *Registry) RetractVote(requestID, voterID string) (domain.VoteOutcome, error) {
	sh := r.shard(requestID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.sessions[requestID]
	if !ok {
		return domain.VoteOutcome{}, domain.ErrNoSession
	}

	removed := s.removeVote(voterID)
	return domain.VoteOutcome{
		Applied:         removed,
		Count:           s.Count(),
		TargetMessageID: s.targetMessageID,
		ChannelID:       s.channelID,
	}, nil
}

// Remove deletes the session for requestID. No-op when absent, so the
// post-pin removal and a concurrent sweep cannot trip over each other.
func (r *Registry) Remove(requestID string) {
	sh := r.shard(requestID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.sessions, requestID)
}

// SweepExpired removes every session older than maxAge and returns how many
// were dropped. Each shard is locked, swept, and released in turn; a vote
// racing the sweep either lands before the delete or observes ErrNoSession.
func (r *Registry) SweepExpired(maxAge time.Duration) int {
	now := r.clock.Now()
	removed := 0

	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for id, s := range sh.sessions {
			if s.expired(now, maxAge) {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}

	return removed
}

// Len reports the number of live sessions across all shards.
func (r *Registry) Len() int {
	total := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		total += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return total
}
