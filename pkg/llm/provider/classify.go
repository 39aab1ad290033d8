package provider

import "strings"

// Family identifies one of the two supported wire-format families.
type Family string

const (
	// FamilyChat is the OpenAI-compatible chat-completions family
	// (OpenAI, DeepSeek, Qwen, Moonshot and most aggregators).
	FamilyChat Family = "chatcompat"

	// FamilyGenAI is the multi-part generateContent family (Gemini).
	FamilyGenAI Family = "genai"
)

// genaiMarkers are matched case-insensitively against the provider name
// and the model name. Everything that doesn't match is served by the
// chat-completions family, which is the de-facto default wire format.
var genaiMarkers = []string{"gemini", "google"}

// Classify picks the wire-format family for a provider/model pair by
// case-insensitive substring match.
func Classify(providerName, modelName string) Family {
	subject := strings.ToLower(providerName) + " " + strings.ToLower(modelName)
	for _, marker := range genaiMarkers {
		if strings.Contains(subject, marker) {
			return FamilyGenAI
		}
	}
	return FamilyChat
}
