package voting

import (
	"sync/atomic"
	"time"
)

// Session tracks the vote tally for a single pin request. It is keyed in the
// registry by the command message that opened it and carries the coordinates
// of the message the vote is about.
//
// Sessions are owned by the Registry: voters is only touched under the owning
// shard's write lock. count mirrors len(voters) after every completed mutation
// and is the one field that may be read without the lock.
type Session struct {
	targetMessageID string
	channelID       string
	voters          map[string]struct{}
	count           atomic.Int32
	createdAt       time.Time
}

func newSession(targetMessageID, channelID string, now time.Time) *Session {
	return &Session{
		targetMessageID: targetMessageID,
		channelID:       channelID,
		voters:          make(map[string]struct{}),
		createdAt:       now,
	}
}

// addVote records userID as a voter and returns true if the vote was newly
// counted, false if the user had already voted. Caller holds the shard lock.
func (s *Session) addVote(userID string) bool {
	if _, ok := s.voters[userID]; ok {
		return false
	}
	s.voters[userID] = struct{}{}
	s.count.Add(1)
	return true
}

// removeVote withdraws userID's vote and returns true if one was present.
// Caller holds the shard lock.
func (s *Session) removeVote(userID string) bool {
	if _, ok := s.voters[userID]; !ok {
		return false
	}
	delete(s.voters, userID)
	s.count.Add(-1)
	return true
}

// Count returns the number of distinct voters. Safe to call without the shard
// lock; pairs with a consistent voter set once the mutating call returned.
func (s *Session) Count() int {
	return int(s.count.Load())
}

// expired reports whether the session has outlived maxAge at time now.
// A session exactly maxAge old is still live.
func (s *Session) expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.createdAt) > maxAge
}
