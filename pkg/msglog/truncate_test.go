package msglog_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crosswirelabs/loom/pkg/msglog"
)

func makeMessages(contents ...string) []*msglog.Message {
	out := make([]*msglog.Message, len(contents))
	for i, c := range contents {
		out[i] = &msglog.Message{
			ConversationID: "conv-1",
			Role:           msglog.RoleUser,
			Content:        c,
			Seq:            uint64(i + 1),
		}
	}
	return out
}

var _ = Describe("TruncateOldest", func() {
	It("returns the input untouched when it fits the budget", func() {
		messages := makeMessages("short", "also short")
		out := msglog.TruncateOldest(messages, 100)
		Expect(out).To(HaveLen(2))
		Expect(out[0]).To(BeIdenticalTo(messages[0]))
	})

	It("trims the oldest message first", func() {
		messages := makeMessages("aaaaaaaaaa", "bbbbbbbbbb")
		out := msglog.TruncateOldest(messages, 15)

		Expect(out).To(HaveLen(2))
		Expect(out[0].Content).To(Equal("aaaaa" + msglog.Ellipsis))
		Expect(out[1].Content).To(Equal("bbbbbbbbbb"))
	})

	It("never drops a message entirely", func() {
		messages := makeMessages("aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc")
		out := msglog.TruncateOldest(messages, 12)

		Expect(out).To(HaveLen(3))
		for _, m := range out {
			Expect(m.Content).NotTo(BeEmpty())
		}
		// Newest keeps full content.
		Expect(out[2].Content).To(Equal("cccccccccc"))
	})

	It("does not mutate the input slice", func() {
		messages := makeMessages("aaaaaaaaaa", "bbbbbbbbbb")
		_ = msglog.TruncateOldest(messages, 15)
		Expect(messages[0].Content).To(Equal("aaaaaaaaaa"))
	})

	It("counts runes, not bytes", func() {
		messages := makeMessages("éééééééééé", "bbbbbbbbbb")
		out := msglog.TruncateOldest(messages, 15)
		Expect(out[0].Content).To(Equal("ééééé" + msglog.Ellipsis))
	})

	It("passes through on a non-positive budget", func() {
		messages := makeMessages("anything")
		out := msglog.TruncateOldest(messages, 0)
		Expect(out[0].Content).To(Equal("anything"))
	})
})
