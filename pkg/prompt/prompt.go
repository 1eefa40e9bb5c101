// Package prompt assembles the bounded generation prompt from conversational
// memory and retrieved evidence.
//
// The section order is a design invariant: rolling summary first (cheapest,
// most compressed signal), recent transcript second (temporal context),
// retrieved evidence third (grounding), and the user's query last, closest to
// the generation boundary where the downstream model attends hardest.
package prompt

import (
	"fmt"
	"strings"

	"github.com/crosswirelabs/loom/pkg/msglog"
	"github.com/crosswirelabs/loom/pkg/vector"
)

// NonePlaceholder is emitted for a conversation with no rolling summary.
const NonePlaceholder = "(none)"

// Build produces the prompt string from a rolling summary, a chronological
// recent-message window, retrieved chunks in rank order, and the user's
// current query. Retrieved chunks are cited with [n] markers matching their
// rank position, 1-based.
func Build(summary string, recent []*msglog.Message, retrieved []vector.QueryResult, query string) string {
	var b strings.Builder

	b.WriteString("## Conversation summary\n")
	if strings.TrimSpace(summary) == "" {
		b.WriteString(NonePlaceholder)
	} else {
		b.WriteString(strings.TrimSpace(summary))
	}
	b.WriteString("\n\n")

	b.WriteString("## Recent conversation\n")
	if len(recent) == 0 {
		b.WriteString(NonePlaceholder)
		b.WriteString("\n")
	} else {
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Retrieved context\n")
	if len(retrieved) == 0 {
		b.WriteString(NonePlaceholder)
		b.WriteString("\n")
	} else {
		for i, chunk := range retrieved {
			fmt.Fprintf(&b, "[%d] %s\n%s\n", i+1, chunkLabel(chunk.Chunk), chunk.Text)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Query\n")
	b.WriteString(query)
	b.WriteString("\n")

	return b.String()
}

// chunkLabel renders the citation label for a chunk: title when present,
// falling back to the URI, then the source document ID.
func chunkLabel(c vector.Chunk) string {
	switch {
	case c.Title != "":
		return c.Title
	case c.URI != "":
		return c.URI
	default:
		return c.DocumentID
	}
}
