package domain

// VoteOutcome reports the result of a registry mutation. Target fields are
// copied out under the session's lock so callers never touch the session
// itself after the call returns.
type VoteOutcome struct {
	Applied         bool
	Count           int
	TargetMessageID string
	ChannelID       string
}
