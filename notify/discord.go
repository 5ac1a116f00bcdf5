// Package notify delivers call results back to the chat channel that asked
// for them.
package notify

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Discord limit: 2000 characters
const maxMessageLength = 2000

// Discord sends notifications through an open Discord session.
type Discord struct {
	session *discordgo.Session
}

// NewDiscord wraps an open session.
func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

// Notify posts the message to the channel, truncated to the platform limit.
func (d *Discord) Notify(channelID, message string) error {
	if _, err := d.session.ChannelMessageSend(channelID, Truncate(message)); err != nil {
		return fmt.Errorf("failed to send channel message: %w", err)
	}
	return nil
}

// Truncate caps text at the platform message limit.
func Truncate(text string) string {
	if len(text) > maxMessageLength {
		return text[:maxMessageLength-3] + "..."
	}
	return text
}
