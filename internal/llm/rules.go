package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// RulesClient is an offline Client that routes a message to a tool by
// keyword. It needs no network and no API key, which makes it useful for
// demos, tests and as a last resort when no model is configured.
type RulesClient struct{}

func NewRulesClient() *RulesClient { return &RulesClient{} }

func (RulesClient) Name() string { return "rules" }

const rulesSmallTalk = "I'm here with you. I can set reminders, tell you what's coming up, or call your caregiver if you need help."

var (
	emergencyRe = regexp.MustCompile(`(?i)\b(fell|fallen|fall down|can'?t get up|hurts?|in pain|bleeding|can'?t breathe|chest|emergency|need help|i'?m lost|scared|dizzy)\b`)
	cancelRe    = regexp.MustCompile(`(?i)^(please |can you |could you )*(cancel|delete|remove|forget about)\b|\b(cancel|delete|remove)\b.*\breminders?\b`)
	remindRe    = regexp.MustCompile(`(?i)\b(remind|reminder|don'?t let me forget)\b`)
	listRe      = regexp.MustCompile(`(?i)\b(what do i (have|need)|what'?s (next|on|coming)|(my|any|list|show) (upcoming )?reminders|what are my|anything (today|coming up))\b`)
	timeRe      = regexp.MustCompile(`(?i)\b(what time|what day|what'?s the (time|date|day)|what is the (time|date|day)|today'?s date)\b`)
	cancelNoise = regexp.MustCompile(`(?i)\b(please|can you|could you|cancel|delete|remove|stop|forget about|my|the|a|an|reminders?|about|for|to|that|one)\b`)
)

func (RulesClient) Chat(_ context.Context, _ string, messages []Message, _ []Tool) (*Response, error) {
	if n := len(messages); n > 0 && messages[n-1].ToolCallID != "" {
		return &Response{Content: replyFromToolResult(messages[n-1].Content)}, nil
	}

	text := strings.TrimSpace(lastUserText(messages))
	call := func(name string, params map[string]any) (*Response, error) {
		return &Response{ToolCalls: []ToolCall{{ID: "rules_" + uuid.NewString(), Name: name, Params: params}}}, nil
	}

	switch {
	case text == "":
		return &Response{Content: rulesSmallTalk}, nil
	case emergencyRe.MatchString(text):
		return call("send_emergency_alert", map[string]any{"reason": text})
	case cancelRe.MatchString(text):
		title := strings.Join(strings.Fields(cancelNoise.ReplaceAllString(text, " ")), " ")
		title = strings.Trim(title, ".!?, ")
		if title == "" {
			return &Response{Content: "Which reminder would you like me to cancel?"}, nil
		}
		return call("delete_reminder", map[string]any{"reminder_title": title})
	case listRe.MatchString(text):
		return call("list_reminders", map[string]any{})
	case remindRe.MatchString(text):
		return call("create_reminder", map[string]any{"text": text})
	case timeRe.MatchString(text):
		return call("get_time", map[string]any{})
	}
	return &Response{Content: rulesSmallTalk}, nil
}

// replyFromToolResult turns a tool's JSON result into a reply, preferring a
// follow-up question over a plain message.
func replyFromToolResult(result string) string {
	var r struct {
		Message  string `json:"message"`
		Question string `json:"question"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal([]byte(result), &r); err != nil {
		return rulesSmallTalk
	}
	switch {
	case r.Question != "":
		return r.Question
	case r.Message != "":
		return r.Message
	case r.Error != "":
		return "I couldn't do that just now, but I'm here with you."
	}
	return rulesSmallTalk
}
