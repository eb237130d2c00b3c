package domain

// VoteEmoji is the reaction that counts as a vote on a command message.
const VoteEmoji = "✅"

// DeclineEmoji is seeded next to the vote prompt so users can signal dissent.
// It never affects the tally.
const DeclineEmoji = "\U0001F6AB" // 🚫

// UnknownCountEmoji stands in when a quorum has no catalog entry.
const UnknownCountEmoji = "❓"

// countEmojis advertises the quorum 1..10 on the command message.
var countEmojis = [...]string{
	"1️⃣",
	"2️⃣",
	"3️⃣",
	"4️⃣",
	"5️⃣",
	"6️⃣",
	"7️⃣",
	"8️⃣",
	"9️⃣",
	"\U0001F51F", // 🔟
}

// CountEmoji returns the emoji advertising a quorum of n votes, or
// UnknownCountEmoji when n is outside the 1..10 catalog.
func CountEmoji(n int) string {
	if n < 1 || n > len(countEmojis) {
		return UnknownCountEmoji
	}
	return countEmojis[n-1]
}
