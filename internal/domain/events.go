package domain

import "context"

// RequestCreated signals that a user asked the bot to put a message up for a
// pin vote. RequestID is the ID of the command message and keys the session;
// TargetMessageID is the message the vote is about.
type RequestCreated struct {
	RequestID       string
	TargetMessageID string
	ChannelID       string
	RequesterID     string
}

// VoteCast signals that a user added a confirming reaction to a command message.
type VoteCast struct {
	RequestID string
	VoterID   string
}

// VoteRetracted signals that a user removed their confirming reaction.
type VoteRetracted struct {
	RequestID string
	VoterID   string
}

// EventHandler consumes decoded gateway events. Delivery is at-least-once and
// unordered across requests; implementations must tolerate duplicates and
// events for unknown requests.
type EventHandler interface {
	HandleRequestCreated(ctx context.Context, ev RequestCreated)
	HandleVoteCast(ctx context.Context, ev VoteCast)
	HandleVoteRetracted(ctx context.Context, ev VoteRetracted)
}
