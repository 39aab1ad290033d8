package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerline/pkg/llm/provider"
)

var _ = Describe("Classify", func() {
	It("routes gemini models to the genai family", func() {
		Expect(provider.Classify("my-provider", "gemini-2.0-flash")).To(Equal(provider.FamilyGenAI))
	})

	It("routes google providers to the genai family", func() {
		Expect(provider.Classify("Google AI Studio", "some-model")).To(Equal(provider.FamilyGenAI))
	})

	It("matches markers case-insensitively", func() {
		Expect(provider.Classify("GEMINI", "model")).To(Equal(provider.FamilyGenAI))
		Expect(provider.Classify("provider", "Gemini-2.0-Pro")).To(Equal(provider.FamilyGenAI))
	})

	It("defaults everything else to the chat-completions family", func() {
		Expect(provider.Classify("deepseek", "deepseek-chat")).To(Equal(provider.FamilyChat))
		Expect(provider.Classify("openai", "gpt-4o")).To(Equal(provider.FamilyChat))
		Expect(provider.Classify("", "")).To(Equal(provider.FamilyChat))
	})
})

var _ = Describe("ForModel", func() {
	It("returns the genai adapter for gemini pairs", func() {
		Expect(provider.ForModel("google", "gemini-2.0-flash").Name()).To(Equal("genai"))
	})

	It("returns the chat-completions adapter otherwise", func() {
		Expect(provider.ForModel("deepseek", "deepseek-reasoner").Name()).To(Equal("chatcompat"))
	})
})
