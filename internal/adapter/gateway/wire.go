package gateway

import "encoding/json"

// Gateway frames are JSON envelopes: "t" names the event, "d" carries the
// payload. The client sends identify once per connection and receives ready
// before any events flow.
type envelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d"`
}

const (
	eventIdentify        = "identify"
	eventReady           = "ready"
	eventMessageCreated  = "message_created"
	eventReactionAdded   = "reaction_added"
	eventReactionRemoved = "reaction_removed"
)

type identifyPayload struct {
	Token      string   `json:"token"`
	InstanceID string   `json:"instance_id"`
	Intents    []string `json:"intents"`
}

type readyPayload struct {
	SessionID string `json:"session_id"`
	BotUserID string `json:"bot_user_id"`
}

type messagePayload struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channel_id"`
	AuthorID    string `json:"author_id"`
	Content     string `json:"content"`
	ReferenceID string `json:"reference_id"`
	AuthorIsBot bool   `json:"author_is_bot"`
}

type reactionPayload struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
	UserIsBot bool   `json:"user_is_bot"`
}
