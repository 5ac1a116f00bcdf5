package intent

import (
	"fmt"
	"time"
)

const extractionInstructions = `
Validate the following:
1. All required fields are present
2. Reservation time must be in the future
3. Phone number must be either:
   - 10 digits for US numbers (will add +1)
   - Full international format with + and country code
4. Party size must be a positive number

Required fields: phone_number, party_size, reservation_time, customer_name
Optional fields: special_requests

Phone number format:
- US numbers: 10 digits (e.g., "1234567890" or "123-456-7890")
- International: Include + and country code (e.g., "+441234567890")
Note: US numbers will automatically get +1 prefix if not provided.

Handle these date/time formats:
- Relative: "tomorrow", "next Tuesday", "this Friday"
- Time: "7pm", "7:30 PM", "19:30"
- Combined: "tomorrow at 7", "next Friday at 8:30 PM"

If information is missing, provide a helpful error message explaining what's needed.
Example error messages:
- "Please provide a phone number for the restaurant"
- "I need to know the name for the reservation"
- "Could you specify what time you'd like the reservation?"
- "How many people will be dining?"

Return in JSON format:
{
    "complete": true/false,
    "missing_fields": ["field1", "field2"],
    "error_message": "A helpful, conversational message explaining what information is needed",
    "details": {
        "phone_number": "phone number with country code",
        "party_size": number,
        "reservation_time": "YYYY-MM-DD HH:MM",
        "customer_name": "name",
        "special_requests": "requests or null"
    }
}
`

// extractionPrompt builds the system instruction, anchoring relative dates to
// the injected reference time rather than the wall clock.
func extractionPrompt(now time.Time) string {
	return fmt.Sprintf(
		"Extract reservation details from the message and convert relative dates/times to absolute dates.\nCurrent date/time reference: %s\n%s",
		now.Format("2006-01-02 15:04"), extractionInstructions)
}
