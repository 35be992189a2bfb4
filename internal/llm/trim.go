package llm

// TrimMessages drops the oldest exchanges until messages fit in maxTokens.
// An assistant tool call and its results are one exchange and go together.
// The newest exchange is always kept, even when it alone is over budget.
func TrimMessages(messages []Message, maxTokens int) []Message {
	if len(messages) == 0 {
		return messages
	}

	groups := groupMessages(messages)
	total := 0
	for _, g := range groups {
		total += g.tokens
	}

	start := 0
	for start < len(groups)-1 && total > maxTokens {
		total -= groups[start].tokens
		start++
	}
	if start == 0 {
		return messages
	}

	var out []Message
	for _, g := range groups[start:] {
		out = append(out, g.messages...)
	}
	return out
}

type messageGroup struct {
	messages []Message
	tokens   int
}

// groupMessages splits messages into exchanges: an assistant message with
// tool calls absorbs the tool results that follow it; anything else stands
// alone.
func groupMessages(messages []Message) []messageGroup {
	var groups []messageGroup
	for i := 0; i < len(messages); {
		g := messageGroup{messages: messages[i : i+1], tokens: EstimateMessageTokens(messages[i])}
		j := i + 1
		if messages[i].Role == "assistant" && len(messages[i].ToolCalls) > 0 {
			for j < len(messages) && messages[j].ToolCallID != "" {
				g.tokens += EstimateMessageTokens(messages[j])
				j++
			}
			g.messages = messages[i:j]
		}
		groups = append(groups, g)
		i = j
	}
	return groups
}
