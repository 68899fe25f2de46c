package llm

import (
	"fmt"
)

// Wire contract shared by every remote provider
const (
	MaxTokens   = 200
	Temperature = 0.3
)

const promptFormat = `Analyze the following message for spam/scam detection:

Message: "%s"

Respond with a JSON object containing:
- is_spam: boolean (true if spam, false if not)
- confidence: number between 0 and 1 (how confident you are in your assessment)
- reason: string (brief explanation of the verdict)
- classification: one of "legitimate", "suspicious", "spam"

Consider these factors:
- Urgency and pressure tactics
- Requests for money or transfers
- Suspicious links or downloads
- Too-good-to-be-true offers
- Requests for personal or account information
- Social engineering tactics
- Grammar and spelling anomalies

Respond only with the JSON object and nothing else.`

// BuildPrompt embeds the message text into the fixed analysis prompt.
// Deterministic: the same text always produces the same prompt.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptFormat, text)
}
