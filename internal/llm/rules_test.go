package llm

import (
	"context"
	"strings"
	"testing"
)

func TestRulesClient_Routing(t *testing.T) {
	tests := []struct {
		text string
		tool string
		key  string
		want string
	}{
		{"Remind me to take my pills at 8pm", "create_reminder", "text", "Remind me to take my pills at 8pm"},
		{"don't let me forget to call Sam tomorrow", "create_reminder", "text", "don't let me forget to call Sam tomorrow"},
		{"What do I need to do today?", "list_reminders", "", ""},
		{"what are my reminders", "list_reminders", "", ""},
		{"Cancel my medicine reminder", "delete_reminder", "reminder_title", "medicine"},
		{"please remove the doctor appointment", "delete_reminder", "reminder_title", "doctor appointment"},
		{"I fell and I can't get up", "send_emergency_alert", "reason", "I fell and I can't get up"},
		{"My chest hurts", "send_emergency_alert", "reason", "My chest hurts"},
		{"what time is it?", "get_time", "", ""},
	}

	c := NewRulesClient()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			resp, err := c.Chat(context.Background(), SystemPrompt, []Message{{Role: "user", Content: tt.text}}, AgentTools)
			if err != nil {
				t.Fatalf("Chat: %v", err)
			}
			if len(resp.ToolCalls) != 1 {
				t.Fatalf("expected 1 tool call, got %d (content %q)", len(resp.ToolCalls), resp.Content)
			}
			tc := resp.ToolCalls[0]
			if tc.Name != tt.tool {
				t.Errorf("expected tool %s, got %s", tt.tool, tc.Name)
			}
			if !strings.HasPrefix(tc.ID, "rules_") {
				t.Errorf("expected rules_ call ID, got %q", tc.ID)
			}
			if tt.key != "" && tc.Params[tt.key] != tt.want {
				t.Errorf("expected %s=%q, got %v", tt.key, tt.want, tc.Params[tt.key])
			}
		})
	}
}

func TestRulesClient_SmallTalk(t *testing.T) {
	c := NewRulesClient()
	for _, text := range []string{"I'm feeling sad", "", "remind me to stop at the bank"} {
		resp, err := c.Chat(context.Background(), SystemPrompt, []Message{{Role: "user", Content: text}}, AgentTools)
		if err != nil {
			t.Fatalf("Chat(%q): %v", text, err)
		}
		if text == "remind me to stop at the bank" {
			if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "create_reminder" {
				t.Errorf("expected create_reminder for %q, got %+v", text, resp)
			}
			continue
		}
		if len(resp.ToolCalls) != 0 || resp.Content == "" {
			t.Errorf("expected a plain reply for %q, got %+v", text, resp)
		}
	}
}

func TestRulesClient_ReplyFromToolResult(t *testing.T) {
	tests := []struct {
		result string
		want   string
	}{
		{`{"message":"I'll remind you to take medicine at 8:00 PM."}`, "I'll remind you to take medicine at 8:00 PM."},
		{`{"error":"empty input","question":"What should I remind you about?"}`, "What should I remind you about?"},
		{`{"error":"boom"}`, "I couldn't do that just now, but I'm here with you."},
		{`not json`, rulesSmallTalk},
	}
	c := NewRulesClient()
	for _, tt := range tests {
		msgs := []Message{
			{Role: "user", Content: "remind me"},
			{Role: "assistant", ToolCalls: []ToolCall{{ID: "1", Name: "create_reminder"}}},
			{Role: "user", Content: tt.result, ToolCallID: "1"},
		}
		resp, err := c.Chat(context.Background(), SystemPrompt, msgs, AgentTools)
		if err != nil {
			t.Fatalf("Chat: %v", err)
		}
		if resp.Content != tt.want {
			t.Errorf("result %s: expected %q, got %q", tt.result, tt.want, resp.Content)
		}
	}
}

func TestNewClient_Providers(t *testing.T) {
	for _, p := range []string{"anthropic", "openai", "ollama", "gemini", "rules"} {
		c, err := NewClient(ProviderConfig{Provider: p, APIKey: "k"})
		if err != nil {
			t.Fatalf("NewClient(%s): %v", p, err)
		}
		if c.Name() != p {
			t.Errorf("expected name %s, got %s", p, c.Name())
		}
	}
	if _, err := NewClient(ProviderConfig{Provider: "bogus"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
