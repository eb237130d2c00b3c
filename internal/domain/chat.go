package domain

import "context"

// ChatClient performs chat-platform REST actions on behalf of the bot.
type ChatClient interface {
	PinMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
}
