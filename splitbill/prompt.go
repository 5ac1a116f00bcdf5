package splitbill

const transcribePrompt = `You are a helpful agent that transcribes the text from bill images.
Extract the text from this bill image.
Don't send anything else other than the extracted text.
This is a bill, so make sure the values add up.`

const breakdownInstructions = `Below is a transcription from a restaurant bill and instructions on how to
split it. Parse the bill into the following JSON format.

Response format example:
{
  "people": {
    "Sherry": [{"item": "Burger", "price": 11.25}, {"item": "Cheese", "price": 19.75}],
    "Rishi": [{"item": "Burger", "price": 11.25}, {"item": "Egg Roll", "price": 8.9}]
  },
  "tax": 10.3,
  "tip": 11.0,
  "total": 72.45
}

"Sherry" and "Rishi" are example names of group members; use the actual
names from the instructions. If someone says "I", use "You". In the example
a single burger was shared between two people, so its price appears under
both; make that kind of split when the instructions ask for it. "tax", "tip"
and "total" must always be present (use 0 when the bill does not show them).

Output only the JSON object, nothing else.`

const presentationInstructions = `Generate a concise, human-readable breakdown in clear and formatted text.

Example output:
**Sherry** pays **$13** for Burger, Cheese, and shared tax/tip.
**You** pay **$48** for Burger, Egg Roll, and shared tax/tip.
**Total Bill:** *$72.45*.
Follow this format strictly. Do not add explanations or extra text.`
