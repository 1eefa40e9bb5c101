package prompt_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crosswirelabs/loom/pkg/msglog"
	"github.com/crosswirelabs/loom/pkg/prompt"
	"github.com/crosswirelabs/loom/pkg/vector"
)

var _ = Describe("Build", func() {
	It("orders sections summary, transcript, retrieved, query", func() {
		recent := []*msglog.Message{
			{Role: msglog.RoleUser, Content: "what is loom?"},
			{Role: msglog.RoleAssistant, Content: "a reasoning server"},
		}
		retrieved := []vector.QueryResult{
			{Chunk: vector.Chunk{ID: "c1", Title: "Loom README", Text: "loom serves chat"}},
		}

		out := prompt.Build("user is exploring the project", recent, retrieved, "how do I run it?")

		idxSummary := strings.Index(out, "## Conversation summary")
		idxRecent := strings.Index(out, "## Recent conversation")
		idxRetrieved := strings.Index(out, "## Retrieved context")
		idxQuery := strings.Index(out, "## Query")

		Expect(idxSummary).To(BeNumerically(">=", 0))
		Expect(idxRecent).To(BeNumerically(">", idxSummary))
		Expect(idxRetrieved).To(BeNumerically(">", idxRecent))
		Expect(idxQuery).To(BeNumerically(">", idxRetrieved))
		Expect(strings.TrimRight(out[idxQuery:], "\n")).To(HaveSuffix("how do I run it?"))
	})

	It("emits the placeholder for a missing summary", func() {
		out := prompt.Build("", nil, nil, "q")
		Expect(out).To(ContainSubstring("## Conversation summary\n" + prompt.NonePlaceholder))
	})

	It("emits the placeholder for empty transcript and retrieval", func() {
		out := prompt.Build("s", nil, nil, "q")
		Expect(out).To(ContainSubstring("## Recent conversation\n" + prompt.NonePlaceholder))
		Expect(out).To(ContainSubstring("## Retrieved context\n" + prompt.NonePlaceholder))
	})

	It("prefixes transcript lines with roles", func() {
		recent := []*msglog.Message{
			{Role: msglog.RoleUser, Content: "hi"},
			{Role: msglog.RoleAssistant, Content: "hello"},
		}
		out := prompt.Build("", recent, nil, "q")
		Expect(out).To(ContainSubstring("user: hi\n"))
		Expect(out).To(ContainSubstring("assistant: hello\n"))
	})

	It("cites retrieved chunks with 1-based rank markers", func() {
		retrieved := []vector.QueryResult{
			{Chunk: vector.Chunk{ID: "c1", Title: "First", Text: "alpha"}},
			{Chunk: vector.Chunk{ID: "c2", Title: "Second", Text: "beta"}},
		}
		out := prompt.Build("", nil, retrieved, "q")
		Expect(out).To(ContainSubstring("[1] First\nalpha\n"))
		Expect(out).To(ContainSubstring("[2] Second\nbeta\n"))
	})

	It("falls back from title to URI to document ID for chunk labels", func() {
		retrieved := []vector.QueryResult{
			{Chunk: vector.Chunk{ID: "c1", URI: "docs/run.md", Text: "x"}},
			{Chunk: vector.Chunk{ID: "c2", DocumentID: "doc-9", Text: "y"}},
		}
		out := prompt.Build("", nil, retrieved, "q")
		Expect(out).To(ContainSubstring("[1] docs/run.md\n"))
		Expect(out).To(ContainSubstring("[2] doc-9\n"))
	})
})
