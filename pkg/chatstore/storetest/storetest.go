// Package storetest holds the shared behavior specs every chatstore.Store
// driver must pass. Driver test suites call Behavior with a factory that
// returns a fresh, empty store.
package storetest

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/answerline/pkg/chatstore"
)

// Behavior registers the driver-agnostic store specs.
func Behavior(newStore func() chatstore.Store) {
	var (
		ctx   context.Context
		store chatstore.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newStore()
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	newConversation := func(ownerID string) *chatstore.Conversation {
		conv := &chatstore.Conversation{
			OwnerID: ownerID,
			Title:   "test conversation",
		}
		Expect(store.CreateConversation(ctx, conv)).To(Succeed())
		return conv
	}

	Describe("conversations", func() {
		It("assigns an id and timestamps on create", func() {
			conv := newConversation("owner-1")
			Expect(conv.ID).NotTo(BeEmpty())
			Expect(conv.CreatedAt).NotTo(BeZero())
			Expect(conv.UpdatedAt).NotTo(BeZero())
		})

		It("round-trips all conversation fields", func() {
			conv := &chatstore.Conversation{
				OwnerID:          "owner-1",
				Title:            "full",
				BackgroundPrompt: "act as a librarian",
				RoleName:         "researcher",
				RuntimeProfileID: "profile-1",
				ReasoningEnabled: true,
				ReasoningBudget:  1024,
				ShowReasoning:    true,
				ContextLimit:     20,
				DefaultToolIDs:   []string{"tool-a", "tool-b"},
			}
			Expect(store.CreateConversation(ctx, conv)).To(Succeed())

			loaded, err := store.GetConversation(ctx, conv.ID, "owner-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Title).To(Equal("full"))
			Expect(loaded.BackgroundPrompt).To(Equal("act as a librarian"))
			Expect(loaded.RoleName).To(Equal("researcher"))
			Expect(loaded.RuntimeProfileID).To(Equal("profile-1"))
			Expect(loaded.ReasoningEnabled).To(BeTrue())
			Expect(loaded.ReasoningBudget).To(Equal(1024))
			Expect(loaded.ShowReasoning).To(BeTrue())
			Expect(loaded.ContextLimit).To(Equal(20))
			Expect(loaded.DefaultToolIDs).To(Equal([]string{"tool-a", "tool-b"}))
		})

		It("rejects nil conversations", func() {
			Expect(store.CreateConversation(ctx, nil)).To(HaveOccurred())
		})

		It("hides conversations from other owners", func() {
			conv := newConversation("owner-1")

			_, err := store.GetConversation(ctx, conv.ID, "someone-else")
			var notFound chatstore.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Kind).To(Equal("conversation"))
		})

		It("returns NotFoundError for unknown ids", func() {
			_, err := store.GetConversation(ctx, "nope", "owner-1")
			var notFound chatstore.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("updates mutable fields", func() {
			conv := newConversation("owner-1")
			conv.RuntimeProfileID = "late-profile"
			conv.Title = "renamed"
			Expect(store.UpdateConversation(ctx, conv)).To(Succeed())

			loaded, err := store.GetConversation(ctx, conv.ID, "owner-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.RuntimeProfileID).To(Equal("late-profile"))
			Expect(loaded.Title).To(Equal("renamed"))
		})

		It("lists only the owner's live conversations", func() {
			first := newConversation("owner-1")
			newConversation("owner-2")
			deleted := newConversation("owner-1")
			Expect(store.DeleteConversation(ctx, deleted.ID, "owner-1")).To(Succeed())

			listed, err := store.ListConversations(ctx, "owner-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(HaveLen(1))
			Expect(listed[0].ID).To(Equal(first.ID))
		})

		It("soft-deletes and hides the conversation afterwards", func() {
			conv := newConversation("owner-1")
			Expect(store.DeleteConversation(ctx, conv.ID, "owner-1")).To(Succeed())

			_, err := store.GetConversation(ctx, conv.ID, "owner-1")
			var notFound chatstore.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("refuses deletion by a non-owner", func() {
			conv := newConversation("owner-1")
			err := store.DeleteConversation(ctx, conv.ID, "intruder")
			var notFound chatstore.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())

			_, err = store.GetConversation(ctx, conv.ID, "owner-1")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("turns", func() {
		It("appends turns with increasing sequence numbers", func() {
			conv := newConversation("owner-1")

			first, err := store.AppendTurn(ctx, conv.ID, chatstore.RoleUser, "hello", "")
			Expect(err).NotTo(HaveOccurred())
			second, err := store.AppendTurn(ctx, conv.ID, chatstore.RoleAssistant, "hi", "thought about it")
			Expect(err).NotTo(HaveOccurred())

			Expect(first.Seq).To(Equal(1))
			Expect(second.Seq).To(Equal(2))
			Expect(first.ID).NotTo(BeEmpty())
			Expect(second.ReasoningContent).To(Equal("thought about it"))
		})

		It("lists turns in creation order", func() {
			conv := newConversation("owner-1")
			for _, content := range []string{"one", "two", "three"} {
				_, err := store.AppendTurn(ctx, conv.ID, chatstore.RoleUser, content, "")
				Expect(err).NotTo(HaveOccurred())
			}

			turns, err := store.ListTurns(ctx, conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(3))
			Expect(turns[0].Content).To(Equal("one"))
			Expect(turns[1].Content).To(Equal("two"))
			Expect(turns[2].Content).To(Equal("three"))
		})

		It("refuses turns on unknown conversations", func() {
			_, err := store.AppendTurn(ctx, "nope", chatstore.RoleUser, "hello", "")
			var notFound chatstore.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("refuses turns on soft-deleted conversations", func() {
			conv := newConversation("owner-1")
			Expect(store.DeleteConversation(ctx, conv.ID, "owner-1")).To(Succeed())

			_, err := store.AppendTurn(ctx, conv.ID, chatstore.RoleUser, "hello", "")
			Expect(err).To(HaveOccurred())
		})

		It("returns an empty list for a conversation with no turns", func() {
			conv := newConversation("owner-1")
			turns, err := store.ListTurns(ctx, conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})
	})

	Describe("attachments", func() {
		It("stores and retrieves an attachment", func() {
			conv := newConversation("owner-1")
			att := &chatstore.Attachment{
				ConversationID: conv.ID,
				FileName:       "notes.txt",
				ContentType:    "text/plain",
				ParseStatus:    chatstore.ParseStatusDone,
				SanitizedText:  "sanitized contents",
			}
			Expect(store.PutAttachment(ctx, att)).To(Succeed())
			Expect(att.ID).NotTo(BeEmpty())

			loaded, err := store.GetAttachment(ctx, conv.ID, att.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.FileName).To(Equal("notes.txt"))
			Expect(loaded.ParseStatus).To(Equal(chatstore.ParseStatusDone))
		})

		It("scopes attachments to their conversation", func() {
			conv := newConversation("owner-1")
			other := newConversation("owner-1")
			att := &chatstore.Attachment{
				ConversationID: conv.ID,
				FileName:       "notes.txt",
				ParseStatus:    chatstore.ParseStatusDone,
				SanitizedText:  "text",
			}
			Expect(store.PutAttachment(ctx, att)).To(Succeed())

			_, err := store.GetAttachment(ctx, other.ID, att.ID)
			var notFound chatstore.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Kind).To(Equal("attachment"))
		})

		It("returns the sanitized text for a parsed attachment", func() {
			conv := newConversation("owner-1")
			att := &chatstore.Attachment{
				ConversationID: conv.ID,
				FileName:       "notes.txt",
				ParseStatus:    chatstore.ParseStatusDone,
				SanitizedText:  "the sanitized body",
			}
			Expect(store.PutAttachment(ctx, att)).To(Succeed())

			text, err := store.AttachmentText(ctx, conv.ID, att.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("the sanitized body"))
		})

		It("returns NotReadyError while parsing is in flight", func() {
			conv := newConversation("owner-1")
			att := &chatstore.Attachment{
				ConversationID: conv.ID,
				FileName:       "pending.pdf",
				ParseStatus:    chatstore.ParseStatusProcessing,
			}
			Expect(store.PutAttachment(ctx, att)).To(Succeed())

			_, err := store.AttachmentText(ctx, conv.ID, att.ID)
			var notReady chatstore.NotReadyError
			Expect(errors.As(err, &notReady)).To(BeTrue())
		})

		It("returns NotReadyError for failed parses", func() {
			conv := newConversation("owner-1")
			att := &chatstore.Attachment{
				ConversationID: conv.ID,
				FileName:       "broken.pdf",
				ParseStatus:    chatstore.ParseStatusError,
			}
			Expect(store.PutAttachment(ctx, att)).To(Succeed())

			_, err := store.AttachmentText(ctx, conv.ID, att.ID)
			var notReady chatstore.NotReadyError
			Expect(errors.As(err, &notReady)).To(BeTrue())
		})

		It("returns NotFoundError for unknown attachments", func() {
			conv := newConversation("owner-1")
			_, err := store.AttachmentText(ctx, conv.ID, "nope")
			var notFound chatstore.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})
}
