package conversation

import (
	"fmt"
	"strings"

	"github.com/room4-2/DineCall/callstate"
)

func reservationPrompt(c *callstate.Context, initial bool) string {
	special := c.SpecialRequests
	if special == "" {
		special = "None"
	}

	task := `You're in the middle of the call:
1. Respond naturally to what they just said
2. Stay focused on confirming the reservation
3. Handle their response appropriately`
	if initial {
		task = `This is the initial greeting:
1. Introduce yourself professionally as an AI assistant
2. Clearly state all reservation details
3. Ask if the time works for them`
	}

	return fmt.Sprintf(`You are an AI assistant making a restaurant reservation call.
You are the one MAKING the call TO the restaurant.

Current reservation details:
- Party size: %d people
- Date: %s
- Time: %s
- Name: %s
- Special requests: %s

Your task:
%s
4. If they say no/busy: Ask about 30 minutes earlier/later
5. If they have questions: Answer professionally
6. Keep responses conversational but focused

Remember: YOU are making the reservation, they are answering your call.
Keep the conversation focused on confirming this reservation.`,
		c.PartySize,
		c.ReservationTime.Format("Monday, January 2"),
		c.ReservationTime.Format("03:04 PM"),
		c.CustomerName,
		special,
		task,
	)
}

// formatTranscript renders the accumulated conversation for the model.
func formatTranscript(lines []callstate.TranscriptLine) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch line.Speaker {
		case callstate.SpeakerAssistant:
			b.WriteString("AI Assistant: ")
		default:
			b.WriteString("Restaurant: ")
		}
		b.WriteString(line.Text)
	}
	return b.String()
}

const outcomePrompt = `You just finished a phone call made to book a restaurant reservation.
Below is the full transcript. Decide whether the restaurant confirmed the
reservation.

Reply with exactly two lines:
- First line: CONFIRMED or UNCONFIRMED
- Second line: one short sentence summarizing how the call went, including the
  agreed time if it changed.`
