package msglog

// Ellipsis marks a truncated message in an assembled transcript.
const Ellipsis = "…"

// TruncateOldest fits a recent-message window into a character budget by
// trimming content from the oldest retained messages, never dropping a
// message entirely. Recency bias: newest messages keep their full content;
// trimming walks from the oldest end and marks each cut with an ellipsis.
//
// The input is chronological (oldest first) and is not mutated; trimmed
// messages are replaced by copies in the returned slice.
func TruncateOldest(messages []*Message, budget int) []*Message {
	if budget <= 0 || len(messages) == 0 {
		return messages
	}

	total := 0
	for _, m := range messages {
		total += len([]rune(m.Content))
	}
	if total <= budget {
		return messages
	}

	out := make([]*Message, len(messages))
	copy(out, messages)

	excess := total - budget
	for i := 0; i < len(out) && excess > 0; i++ {
		m := *out[i]
		content := []rune(m.Content)

		cut := excess
		if cut > len(content) {
			cut = len(content)
		}

		m.Content = string(content[:len(content)-cut]) + Ellipsis
		excess -= cut
		out[i] = &m
	}

	return out
}
