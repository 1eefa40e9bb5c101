package sqlite_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crosswirelabs/loom/pkg/msglog"
	"github.com/crosswirelabs/loom/pkg/msglog/sqlite"
)

var _ = Describe("Log", func() {
	var log *sqlite.Log
	var ctx context.Context

	BeforeEach(func() {
		var err error
		log, err = sqlite.NewLog(":memory:", "test-tenant")
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(log.Close()).To(Succeed())
	})

	It("implements msglog.Log", func() {
		var _ msglog.Log = (*sqlite.Log)(nil)
	})

	Describe("Append", func() {
		It("creates the conversation on first append", func() {
			_, err := log.Append(ctx, "conv-1", msglog.RoleUser, "hello")
			Expect(err).NotTo(HaveOccurred())

			conv, found, err := log.Conversation(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(conv.Tenant).To(Equal("test-tenant"))
			Expect(conv.Status).To(Equal(msglog.ConversationActive))
		})

		It("assigns strictly increasing sequence numbers", func() {
			for i := 1; i <= 3; i++ {
				msg, err := log.Append(ctx, "conv-1", msglog.RoleUser, fmt.Sprintf("turn %d", i))
				Expect(err).NotTo(HaveOccurred())
				Expect(msg.Seq).To(Equal(uint64(i)))
				Expect(msg.ID).NotTo(BeEmpty())
			}
		})

		It("sequences conversations independently", func() {
			_, err := log.Append(ctx, "conv-1", msglog.RoleUser, "a")
			Expect(err).NotTo(HaveOccurred())

			msg, err := log.Append(ctx, "conv-2", msglog.RoleUser, "b")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Seq).To(Equal(uint64(1)))
		})
	})

	Describe("RecentN", func() {
		BeforeEach(func() {
			for i := 1; i <= 5; i++ {
				_, err := log.Append(ctx, "conv-1", msglog.RoleUser, fmt.Sprintf("turn %d", i))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("returns the newest n messages oldest first", func() {
			messages, err := log.RecentN(ctx, "conv-1", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(HaveLen(3))
			Expect(messages[0].Content).To(Equal("turn 3"))
			Expect(messages[2].Content).To(Equal("turn 5"))
		})

		It("returns everything when n exceeds the log", func() {
			messages, err := log.RecentN(ctx, "conv-1", 50)
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(HaveLen(5))
			Expect(messages[0].Content).To(Equal("turn 1"))
		})

		It("returns nothing for an unknown conversation", func() {
			messages, err := log.RecentN(ctx, "nope", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(BeEmpty())
		})

		It("returns nothing for a non-positive n", func() {
			messages, err := log.RecentN(ctx, "conv-1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(BeEmpty())
		})
	})

	Describe("Conversation", func() {
		It("reports an unknown conversation as not found", func() {
			_, found, err := log.Conversation(ctx, "nope")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})
})
