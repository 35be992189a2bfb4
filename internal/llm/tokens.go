package llm

import "encoding/json"

// charsPerToken approximates English text; good enough for budgeting.
const charsPerToken = 4

const (
	messageOverhead  = 4
	toolCallOverhead = 4
	toolDefOverhead  = 10
	// MinMessageBudget is the floor for the message budget, so the current
	// turn always fits even with a tiny context window.
	MinMessageBudget = 1000
)

// EstimateTokens returns a rough token count for s, rounded up.
func EstimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}

func estimateJSON(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return EstimateTokens(string(b))
}

// EstimateMessageTokens counts content, tool calls and framing for one message.
func EstimateMessageTokens(m Message) int {
	n := messageOverhead + EstimateTokens(m.Content)
	for _, tc := range m.ToolCalls {
		n += toolCallOverhead + EstimateTokens(tc.Name) + estimateJSON(tc.Params)
	}
	if m.ToolCallID != "" {
		n += EstimateTokens(m.ToolCallID) + 2
	}
	return n
}

func EstimateMessagesTokens(messages []Message) int {
	n := 0
	for _, m := range messages {
		n += EstimateMessageTokens(m)
	}
	return n
}

// EstimateToolsTokens counts tool definitions, which are sent as JSON schema
// on every request.
func EstimateToolsTokens(tools []Tool) int {
	n := 0
	for _, t := range tools {
		n += toolDefOverhead + EstimateTokens(t.Name) + EstimateTokens(t.Description) + estimateJSON(t.Parameters)
	}
	return n
}

// MessageBudget is what remains of maxContext for messages once the system
// prompt and tool definitions are paid for, never less than MinMessageBudget.
func MessageBudget(maxContext int, systemPrompt string, tools []Tool) int {
	budget := maxContext - EstimateTokens(systemPrompt) - EstimateToolsTokens(tools)
	if budget < MinMessageBudget {
		return MinMessageBudget
	}
	return budget
}
