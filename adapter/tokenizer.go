// Token estimation used when an upstream response omits usage counts.
//
// Adapted from the teacher's provider/tokenizer.go per-provider chars-
// per-token strategy table, trimmed to the providers this gateway ships
// and exposed as a single EstimateTokens function (the teacher's
// message-shaped CountMessages has no equivalent here since this
// gateway's ProviderPlan/Result model is prompt-string based, not
// chat-message based).
package adapter

import "unicode/utf8"

// charsPerToken gives each provider's rough character-per-token ratio.
var charsPerToken = map[string]float64{
	"openai":    3.3,
	"anthropic": 3.7,
	"google":    4.0,
	"ollama":    4.0,
	"stub":      4.0,
}

// EstimateTokens approximates the token count of text for a provider,
// marking the estimate via the caller's provenance (§4.5: "the adapter
// may estimate but must mark the estimate in provenance").
func EstimateTokens(providerName, text string) int {
	if text == "" {
		return 0
	}
	ratio, ok := charsPerToken[providerName]
	if !ok {
		ratio = 4.0
	}
	n := int(float64(utf8.RuneCountInString(text)) / ratio)
	if n == 0 {
		return 1
	}
	return n
}
