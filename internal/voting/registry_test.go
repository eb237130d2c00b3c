package voting

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/956zs/pinit/internal/domain"
)

func TestRegistry_CastVote_NoSession(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())

	_, err := reg.CastVote("req-unknown", "user-1")
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestRegistry_CreateAndVote(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())
	reg.Create("req-1", "msg-1", "chan-1")

	outcome, err := reg.CastVote("req-1", "user-1")
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, 1, outcome.Count)
	assert.Equal(t, "msg-1", outcome.TargetMessageID, "outcome must carry the pin target")
	assert.Equal(t, "chan-1", outcome.ChannelID)
}

func TestRegistry_DuplicateVote(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())
	reg.Create("req-1", "msg-1", "chan-1")

	first, err := reg.CastVote("req-1", "user-1")
	require.NoError(t, err)
	second, err := reg.CastVote("req-1", "user-1")
	require.NoError(t, err)

	assert.True(t, first.Applied)
	assert.False(t, second.Applied, "same voter must not count twice")
	assert.Equal(t, 1, second.Count)
}

func TestRegistry_RetractVote(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())
	reg.Create("req-1", "msg-1", "chan-1")

	_, err := reg.RetractVote("req-unknown", "user-1")
	assert.ErrorIs(t, err, domain.ErrNoSession)

	// Retracting before voting is benign.
	outcome, err := reg.RetractVote("req-1", "user-1")
	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	assert.Equal(t, 0, outcome.Count)

	reg.CastVote("req-1", "user-1")
	outcome, err = reg.RetractVote("req-1", "user-1")
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, 0, outcome.Count)
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())
	reg.Create("req-1", "msg-1", "chan-1")

	reg.Remove("req-1")
	_, err := reg.CastVote("req-1", "user-1")
	assert.ErrorIs(t, err, domain.ErrNoSession)

	// Removing an absent session is a no-op.
	reg.Remove("req-1")
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_ConcurrentDistinctVoters(t *testing.T) {
	reg := NewRegistry(clockwork.NewRealClock())
	reg.Create("req-1", "msg-1", "chan-1")

	const voters = 100
	var wg sync.WaitGroup
	wg.Add(voters)
	for i := 0; i < voters; i++ {
		go func(i int) {
			defer wg.Done()
			outcome, err := reg.CastVote("req-1", fmt.Sprintf("user-%d", i))
			assert.NoError(t, err)
			assert.True(t, outcome.Applied)
		}(i)
	}
	wg.Wait()

	outcome, err := reg.CastVote("req-1", "user-0")
	require.NoError(t, err)
	assert.Equal(t, voters, outcome.Count, "every distinct voter counts exactly once")
}

func TestRegistry_ConcurrentVotesAcrossRequests(t *testing.T) {
	reg := NewRegistry(clockwork.NewRealClock())

	const requests = 50
	for i := 0; i < requests; i++ {
		reg.Create(fmt.Sprintf("req-%d", i), fmt.Sprintf("msg-%d", i), "chan-1")
	}

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func(i, j int) {
				defer wg.Done()
				_, err := reg.CastVote(fmt.Sprintf("req-%d", i), fmt.Sprintf("user-%d", j))
				assert.NoError(t, err)
			}(i, j)
		}
	}
	wg.Wait()

	assert.Equal(t, requests, reg.Len())
	for i := 0; i < requests; i++ {
		outcome, err := reg.CastVote(fmt.Sprintf("req-%d", i), "user-0")
		require.NoError(t, err)
		assert.Equal(t, 4, outcome.Count, "votes must not leak between requests")
	}
}

func TestRegistry_SweepExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)

	reg.Create("req-old", "msg-1", "chan-1")
	clock.Advance(30 * time.Minute)
	reg.Create("req-young", "msg-2", "chan-1")
	clock.Advance(31 * time.Minute)

	// req-old is 61m old, req-young 31m.
	removed := reg.SweepExpired(time.Hour)
	assert.Equal(t, 1, removed)

	_, err := reg.CastVote("req-old", "user-1")
	assert.ErrorIs(t, err, domain.ErrNoSession)
	_, err = reg.CastVote("req-young", "user-1")
	assert.NoError(t, err)
}

func TestRegistry_SweepExpired_KeepsSessionAtExactMaxAge(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)

	reg.Create("req-1", "msg-1", "chan-1")
	clock.Advance(time.Hour)

	assert.Equal(t, 0, reg.SweepExpired(time.Hour), "a session exactly max age old stays")

	clock.Advance(time.Second)
	assert.Equal(t, 1, reg.SweepExpired(time.Hour))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_SweepVsVote_Race(t *testing.T) {
	// Exercises the shard lock under -race: concurrent votes either land or
	// observe a clean miss, never a torn session.
	reg := NewRegistry(clockwork.NewRealClock())
	reg.Create("req-1", "msg-1", "chan-1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.CastVote("req-1", fmt.Sprintf("user-%d", i))
			if err != nil {
				assert.True(t, errors.Is(err, domain.ErrNoSession))
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		reg.SweepExpired(0)
	}()
	wg.Wait()

	// Everything is at least a nanosecond old by now.
	reg.SweepExpired(0)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Len(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())
	assert.Equal(t, 0, reg.Len())

	for i := 0; i < 10; i++ {
		reg.Create(fmt.Sprintf("req-%d", i), "msg", "chan")
	}
	assert.Equal(t, 10, reg.Len())

	reg.Remove("req-3")
	assert.Equal(t, 9, reg.Len())
}
