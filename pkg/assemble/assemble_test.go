package assemble_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerline/pkg/assemble"
	"github.com/papercomputeco/answerline/pkg/chatstore"
	"github.com/papercomputeco/answerline/pkg/chatstore/inmemory"
	"github.com/papercomputeco/answerline/pkg/tools"
)

type staticBindings struct {
	ids map[string][]string
}

func (b *staticBindings) AgentBindingToolIDs(_ context.Context, agentName string) ([]string, error) {
	return b.ids[agentName], nil
}

// recordingRouter captures what the assembler routes and answers with
// canned results.
type recordingRouter struct {
	gotIDs   []string
	gotQuery string
	results  []tools.InvocationResult
	warnings []string
}

func (r *recordingRouter) Route(_ context.Context, enabledIDs []string, query string) ([]tools.InvocationResult, []string) {
	r.gotIDs = enabledIDs
	r.gotQuery = query
	return r.results, r.warnings
}

var _ = Describe("Assembler", func() {
	var (
		ctx      context.Context
		store    chatstore.Store
		bindings *staticBindings
		router   *recordingRouter
		asm      *assemble.Assembler
		conv     *chatstore.Conversation
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore()
		bindings = &staticBindings{ids: map[string][]string{}}
		router = &recordingRouter{}
		asm = assemble.New(store, bindings, router, 4, nil)

		conv = &chatstore.Conversation{OwnerID: "alice", Title: "questions"}
		Expect(store.CreateConversation(ctx, conv)).To(Succeed())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	prepare := func(in assemble.PrepareInput) (*assemble.Context, error) {
		if in.ConversationID == "" {
			in.ConversationID = conv.ID
		}
		if in.OwnerID == "" {
			in.OwnerID = "alice"
		}
		return asm.Prepare(ctx, in)
	}

	It("rejects a blank query with no attachments", func() {
		_, err := prepare(assemble.PrepareInput{Query: "   "})
		Expect(err).To(BeAssignableToTypeOf(assemble.ValidationError{}))
	})

	It("propagates conversation lookup failures", func() {
		_, err := prepare(assemble.PrepareInput{ConversationID: "ghost", Query: "hi"})
		Expect(err).To(BeAssignableToTypeOf(chatstore.NotFoundError{}))
	})

	It("refuses a conversation owned by someone else", func() {
		_, err := prepare(assemble.PrepareInput{OwnerID: "mallory", Query: "hi"})
		Expect(err).To(BeAssignableToTypeOf(chatstore.NotFoundError{}))
	})

	It("persists the user turn before returning", func() {
		_, err := prepare(assemble.PrepareInput{Query: "what is Go?"})
		Expect(err).NotTo(HaveOccurred())

		turns, err := store.ListTurns(ctx, conv.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(turns).To(HaveLen(1))
		Expect(turns[0].Role).To(Equal(chatstore.RoleUser))
		Expect(turns[0].Content).To(Equal("what is Go?"))
	})

	It("stores a placeholder turn for an attachment-only request", func() {
		att := &chatstore.Attachment{
			ConversationID: conv.ID,
			FileName:       "notes.txt",
			ParseStatus:    chatstore.ParseStatusDone,
			SanitizedText:  "some notes",
		}
		Expect(store.PutAttachment(ctx, att)).To(Succeed())

		_, err := prepare(assemble.PrepareInput{AttachmentIDs: []string{att.ID}})
		Expect(err).NotTo(HaveOccurred())

		turns, err := store.ListTurns(ctx, conv.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(turns[0].Content).To(Equal("(attachment only)"))
	})

	Describe("history trimming", func() {
		seed := func(n int) {
			for i := 0; i < n; i++ {
				_, err := store.AppendTurn(ctx, conv.ID, chatstore.RoleUser, "q", "")
				Expect(err).NotTo(HaveOccurred())
				_, err = store.AppendTurn(ctx, conv.ID, chatstore.RoleAssistant, "a", "")
				Expect(err).NotTo(HaveOccurred())
			}
		}

		It("keeps only the newest turns up to the process limit", func() {
			seed(5)
			out, err := prepare(assemble.PrepareInput{Query: "latest"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Messages).To(HaveLen(4))
			Expect(out.Messages[3].Text).To(Equal("latest"))
			Expect(out.HistoryCount).To(Equal(4))
		})

		It("prefers the conversation's own limit", func() {
			conv.ContextLimit = 2
			Expect(store.UpdateConversation(ctx, conv)).To(Succeed())

			seed(5)
			out, err := prepare(assemble.PrepareInput{Query: "latest"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Messages).To(HaveLen(2))
			Expect(out.Messages[1].Text).To(Equal("latest"))
		})

		It("keeps everything when under the limit", func() {
			seed(1)
			out, err := prepare(assemble.PrepareInput{Query: "latest"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Messages).To(HaveLen(3))
		})
	})

	Describe("context block", func() {
		It("appends attachment excerpts to the final user message", func() {
			att := &chatstore.Attachment{
				ConversationID: conv.ID,
				FileName:       "paper.md",
				ParseStatus:    chatstore.ParseStatusDone,
				SanitizedText:  "the key finding",
			}
			Expect(store.PutAttachment(ctx, att)).To(Succeed())

			out, err := prepare(assemble.PrepareInput{Query: "summarize", AttachmentIDs: []string{att.ID}})
			Expect(err).NotTo(HaveOccurred())

			last := out.Messages[len(out.Messages)-1]
			Expect(last.Role).To(Equal(chatstore.RoleUser))
			Expect(last.Text).To(HavePrefix("summarize"))
			Expect(last.Text).To(ContainSubstring("--- Reference material ---"))
			Expect(last.Text).To(ContainSubstring("Attachment excerpt (paper.md):\nthe key finding"))
			Expect(last.Text).To(ContainSubstring("Summarize the relevant points in your own words"))
			Expect(out.AttachmentCount).To(Equal(1))
		})

		It("folds tool results into the block", func() {
			router.results = []tools.InvocationResult{{EndpointName: "web-search", Output: "[web-search] summarize"}}
			router.warnings = []string{"calculator: simulated failure"}

			out, err := prepare(assemble.PrepareInput{Query: "summarize"})
			Expect(err).NotTo(HaveOccurred())

			last := out.Messages[len(out.Messages)-1]
			Expect(last.Text).To(ContainSubstring("Tool result (web-search):\n[web-search] summarize"))
			Expect(out.ToolWarnings).To(Equal([]string{"calculator: simulated failure"}))
		})

		It("leaves the message untouched when there is nothing to fold", func() {
			out, err := prepare(assemble.PrepareInput{Query: "plain"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Messages[0].Text).To(Equal("plain"))
		})

		It("clips an oversized excerpt at the rune limit", func() {
			att := &chatstore.Attachment{
				ConversationID: conv.ID,
				FileName:       "big.txt",
				ParseStatus:    chatstore.ParseStatusDone,
				SanitizedText:  strings.Repeat("ü", 2500),
			}
			Expect(store.PutAttachment(ctx, att)).To(Succeed())

			out, err := prepare(assemble.PrepareInput{Query: "read this", AttachmentIDs: []string{att.ID}})
			Expect(err).NotTo(HaveOccurred())

			last := out.Messages[len(out.Messages)-1]
			Expect(last.Text).To(ContainSubstring(strings.Repeat("ü", 2000) + "…[truncated]"))
			Expect(last.Text).NotTo(ContainSubstring(strings.Repeat("ü", 2001)))
		})
	})

	Describe("attachments", func() {
		It("flags image attachments", func() {
			att := &chatstore.Attachment{
				ConversationID: conv.ID,
				FileName:       "chart.png",
				ContentType:    "image/png",
				ParseStatus:    chatstore.ParseStatusDone,
				SanitizedText:  "a bar chart",
			}
			Expect(store.PutAttachment(ctx, att)).To(Succeed())

			out, err := prepare(assemble.PrepareInput{Query: "describe", AttachmentIDs: []string{att.ID}})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.HasImage).To(BeTrue())
		})

		It("fails the request when an attachment is unknown", func() {
			_, err := prepare(assemble.PrepareInput{Query: "q", AttachmentIDs: []string{"ghost"}})
			Expect(err).To(BeAssignableToTypeOf(chatstore.NotFoundError{}))
		})

		It("fails the request when an attachment is still processing", func() {
			att := &chatstore.Attachment{
				ConversationID: conv.ID,
				FileName:       "slow.pdf",
				ParseStatus:    chatstore.ParseStatusProcessing,
			}
			Expect(store.PutAttachment(ctx, att)).To(Succeed())

			_, err := prepare(assemble.PrepareInput{Query: "q", AttachmentIDs: []string{att.ID}})
			Expect(err).To(BeAssignableToTypeOf(chatstore.NotReadyError{}))
		})
	})

	Describe("tool selection", func() {
		It("routes the agent's bound tools by default", func() {
			bindings.ids["qa"] = []string{"tool-1", "tool-2"}

			_, err := prepare(assemble.PrepareInput{AgentName: "qa", Query: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(router.gotIDs).To(Equal([]string{"tool-1", "tool-2"}))
			Expect(router.gotQuery).To(Equal("q"))
		})

		It("prefers the conversation's default tools", func() {
			bindings.ids["qa"] = []string{"tool-1"}
			conv.DefaultToolIDs = []string{"tool-9"}
			Expect(store.UpdateConversation(ctx, conv)).To(Succeed())

			_, err := prepare(assemble.PrepareInput{AgentName: "qa", Query: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(router.gotIDs).To(Equal([]string{"tool-9"}))
		})

		It("lets an explicit request list win over both", func() {
			bindings.ids["qa"] = []string{"tool-1"}
			conv.DefaultToolIDs = []string{"tool-9"}
			Expect(store.UpdateConversation(ctx, conv)).To(Succeed())

			explicit := []string{"tool-5"}
			_, err := prepare(assemble.PrepareInput{AgentName: "qa", Query: "q", ToolIDs: &explicit})
			Expect(err).NotTo(HaveOccurred())
			Expect(router.gotIDs).To(Equal([]string{"tool-5"}))
		})

		It("suppresses tools entirely for an explicitly empty list", func() {
			bindings.ids["qa"] = []string{"tool-1"}

			empty := []string{}
			_, err := prepare(assemble.PrepareInput{AgentName: "qa", Query: "q", ToolIDs: &empty})
			Expect(err).NotTo(HaveOccurred())
			Expect(router.gotIDs).To(BeEmpty())
		})
	})

	Describe("system prompt", func() {
		It("uses the request override first", func() {
			conv.BackgroundPrompt = "conversation prompt"
			Expect(store.UpdateConversation(ctx, conv)).To(Succeed())

			out, err := prepare(assemble.PrepareInput{Query: "q", BackgroundPrompt: "request prompt"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.SystemPrompt).To(Equal("request prompt"))
		})

		It("falls back to the conversation's background prompt", func() {
			conv.BackgroundPrompt = "conversation prompt"
			conv.RoleName = "qa"
			Expect(store.UpdateConversation(ctx, conv)).To(Succeed())

			out, err := prepare(assemble.PrepareInput{Query: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.SystemPrompt).To(Equal("conversation prompt"))
		})

		It("falls back to the role's canned prompt", func() {
			conv.RoleName = "researcher"
			Expect(store.UpdateConversation(ctx, conv)).To(Succeed())

			out, err := prepare(assemble.PrepareInput{Query: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.SystemPrompt).To(ContainSubstring("research assistant"))
		})

		It("resolves to empty for an unknown role", func() {
			conv.RoleName = "astronaut"
			Expect(store.UpdateConversation(ctx, conv)).To(Succeed())

			out, err := prepare(assemble.PrepareInput{Query: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.SystemPrompt).To(BeEmpty())
		})
	})

	It("binds a newly requested runtime profile onto the conversation", func() {
		_, err := prepare(assemble.PrepareInput{Query: "q", RuntimeProfileID: "profile-7"})
		Expect(err).NotTo(HaveOccurred())

		got, err := store.GetConversation(ctx, conv.ID, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.RuntimeProfileID).To(Equal("profile-7"))
	})
})
