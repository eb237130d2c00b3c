package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/956zs/pinit/internal/adapter/metrics"
	"github.com/956zs/pinit/internal/cooldown"
	"github.com/956zs/pinit/internal/domain"
	"github.com/956zs/pinit/internal/voting"
)

// Settings carries the tunables the service needs from configuration.
type Settings struct {
	// ConfirmCap is the number of distinct votes that pins a message.
	// 0 means a request pins its target immediately, without a session.
	ConfirmCap    int
	PinTimeout    time.Duration
	SessionMaxAge time.Duration
	SweepInterval time.Duration
}

// Service is the application layer - the only component that touches the
// session registry, the cooldown gate, and the chat client together. It turns
// gateway events into session mutations and drives the pin exactly once when
// a request reaches quorum.
type Service struct {
	registry *voting.Registry
	sweeper  *voting.Sweeper
	gate     *cooldown.Gate
	chat     domain.ChatClient
	settings Settings

	votes *metrics.VoteMetrics
	pins  *metrics.PinMetrics

	pinGroup singleflight.Group
	clock    clockwork.Clock
}

// NewService creates the application layer service and starts the session
// sweeper. Call Stop to shut the sweeper down.
func NewService(registry *voting.Registry, gate *cooldown.Gate, chat domain.ChatClient, settings Settings, votes *metrics.VoteMetrics, pins *metrics.PinMetrics, clock clockwork.Clock) *Service {
	s := &Service{
		registry: registry,
		gate:     gate,
		chat:     chat,
		settings: settings,
		votes:    votes,
		pins:     pins,
		clock:    clock,
	}

	s.sweeper = voting.NewSweeper(registry, settings.SweepInterval, settings.SessionMaxAge, clock, votes.SessionsActive, votes.SessionsSwept)
	s.sweeper.Start()
	return s
}

// HandleRequestCreated opens a voting session for a new pin request and seeds
// the vote prompt on the command message. With a zero confirm cap the target
// is pinned right away and no session ever exists.
func (s *Service) HandleRequestCreated(ctx context.Context, ev domain.RequestCreated) {
	if s.settings.ConfirmCap == 0 {
		s.attemptPin(ctx, ev.RequestID, ev.ChannelID, ev.TargetMessageID)
		return
	}

	s.registry.Create(ev.RequestID, ev.TargetMessageID, ev.ChannelID)
	s.votes.SessionsCreated.Inc()
	s.votes.SessionsActive.Set(float64(s.registry.Len()))
	slog.InfoContext(ctx, "Voting session opened",
		"request_id", ev.RequestID,
		"target_message_id", ev.TargetMessageID,
		"channel_id", ev.ChannelID,
		"requester_id", ev.RequesterID,
		"confirm_cap", s.settings.ConfirmCap,
	)

	s.seedVotePrompt(ctx, ev)
}

// seedVotePrompt decorates the command message with the vote, decline, and
// quorum emojis. Failures only cost the prompt, never the session.
func (s *Service) seedVotePrompt(ctx context.Context, ev domain.RequestCreated) {
	for _, emoji := range []string{
		domain.VoteEmoji,
		domain.DeclineEmoji,
		domain.CountEmoji(s.settings.ConfirmCap),
	} {
		reactCtx, cancel := context.WithTimeout(ctx, s.settings.PinTimeout)
		err := s.chat.AddReaction(reactCtx, ev.ChannelID, ev.RequestID, emoji)
		cancel()
		if err != nil {
			slog.WarnContext(ctx, "Failed to seed vote prompt reaction",
				"request_id", ev.RequestID,
				"emoji", emoji,
				"error", err,
			)
		}
	}
}

// HandleVoteCast counts a vote and, at quorum, runs the pin. Votes for
// unknown requests are a benign race against expiry or resolution.
func (s *Service) HandleVoteCast(ctx context.Context, ev domain.VoteCast) {
	outcome, err := s.registry.CastVote(ev.RequestID, ev.VoterID)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			slog.DebugContext(ctx, "Vote for unknown session ignored",
				"request_id", ev.RequestID,
				"voter_id", ev.VoterID,
			)
			s.votes.VotesProcessed.WithLabelValues(metrics.VoteResultNoSession).Inc()
		}
		return
	}

	if !outcome.Applied {
		slog.DebugContext(ctx, "Duplicate vote ignored",
			"request_id", ev.RequestID,
			"voter_id", ev.VoterID,
		)
		s.votes.VotesProcessed.WithLabelValues(metrics.VoteResultDuplicate).Inc()
		return
	}

	s.votes.VotesProcessed.WithLabelValues(metrics.VoteResultApplied).Inc()
	slog.InfoContext(ctx, "Vote counted",
		"request_id", ev.RequestID,
		"voter_id", ev.VoterID,
		"count", outcome.Count,
		"confirm_cap", s.settings.ConfirmCap,
	)

	if outcome.Count >= s.settings.ConfirmCap {
		s.attemptPin(ctx, ev.RequestID, outcome.ChannelID, outcome.TargetMessageID)
	}
}

// HandleVoteRetracted withdraws a vote. A session already gone is as benign
// here as it is for votes.
func (s *Service) HandleVoteRetracted(ctx context.Context, ev domain.VoteRetracted) {
	outcome, err := s.registry.RetractVote(ev.RequestID, ev.VoterID)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			slog.DebugContext(ctx, "Retraction for unknown session ignored",
				"request_id", ev.RequestID,
				"voter_id", ev.VoterID,
			)
			s.votes.VotesProcessed.WithLabelValues(metrics.VoteResultNoSession).Inc()
		}
		return
	}

	if !outcome.Applied {
		return
	}

	s.votes.VotesProcessed.WithLabelValues(metrics.VoteResultRetracted).Inc()
	slog.InfoContext(ctx, "Vote retracted",
		"request_id", ev.RequestID,
		"voter_id", ev.VoterID,
		"count", outcome.Count,
	)
}

// attemptPin runs the quorum protocol: claim the channel's cooldown slot,
// pin with no registry lock held, and remove the session only on success.
// A denied slot leaves the session intact for the next qualifying vote; a
// failed pin does too, and nothing here retries.
func (s *Service) attemptPin(ctx context.Context, requestID, channelID, targetMessageID string) {
	if !s.gate.TryAcquire(channelID) {
		slog.InfoContext(ctx, "Pin deferred by channel cooldown",
			"request_id", requestID,
			"channel_id", channelID,
		)
		s.pins.Attempts.WithLabelValues(metrics.PinResultDeferred).Inc()
		return
	}

	// Concurrent quorum triggers for one request collapse into one call.
	_, err, _ := s.pinGroup.Do(requestID, func() (any, error) {
		pinCtx, cancel := context.WithTimeout(ctx, s.settings.PinTimeout)
		defer cancel()

		start := s.clock.Now()
		err := s.chat.PinMessage(pinCtx, channelID, targetMessageID)
		s.pins.Duration.Observe(s.clock.Since(start).Seconds())
		return nil, err
	})
	if err != nil {
		slog.ErrorContext(ctx, "Pin failed, session retained",
			"request_id", requestID,
			"channel_id", channelID,
			"target_message_id", targetMessageID,
			"error", err,
		)
		s.pins.Attempts.WithLabelValues(metrics.PinResultFailure).Inc()
		return
	}

	s.registry.Remove(requestID)
	s.votes.SessionsActive.Set(float64(s.registry.Len()))
	s.pins.Attempts.WithLabelValues(metrics.PinResultSuccess).Inc()
	slog.InfoContext(ctx, "Message pinned",
		"request_id", requestID,
		"channel_id", channelID,
		"target_message_id", targetMessageID,
	)
}

// Stop shuts down the session sweeper.
func (s *Service) Stop() {
	s.sweeper.Stop()
}
