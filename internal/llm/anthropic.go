package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// AnthropicClient talks to the Messages API directly so that OAuth bearer
// tokens work alongside API keys.
type AnthropicClient struct {
	apiKey    string
	authToken string
	model     string
	maxTokens int
	endpoint  string
	http      *http.Client
}

func NewAnthropicClient(apiKey, authToken, model string) *AnthropicClient {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicClient{
		apiKey:    apiKey,
		authToken: authToken,
		model:     model,
		maxTokens: DefaultMaxTokens,
		endpoint:  anthropicAPI,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

type anthRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    []anthText    `json:"system,omitempty"`
	Messages  []anthMessage `json:"messages"`
	Tools     []anthTool    `json:"tools,omitempty"`
}

type anthText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []anthBlock
}

type anthBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthResponse struct {
	Content []anthBlock `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// buildRequest converts provider-neutral messages. Consecutive tool results
// are merged into one user turn, as the API requires.
func (c *AnthropicClient) buildRequest(systemPrompt string, messages []Message, tools []Tool) anthRequest {
	anthTools := make([]anthTool, len(tools))
	for i, t := range tools {
		schema := map[string]any{"type": "object"}
		if props, ok := t.Parameters["properties"]; ok {
			schema["properties"] = props
		}
		if req, ok := t.Parameters["required"]; ok {
			schema["required"] = req
		}
		anthTools[i] = anthTool{Name: t.Name, Description: t.Description, InputSchema: schema}
	}

	var out []anthMessage
	for _, m := range messages {
		switch {
		case m.Role == "user" && m.ToolCallID != "":
			block := anthBlock{Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Content}
			if n := len(out); n > 0 {
				if blocks, ok := out[n-1].Content.([]anthBlock); ok && out[n-1].Role == "user" {
					out[n-1].Content = append(blocks, block)
					continue
				}
			}
			out = append(out, anthMessage{Role: "user", Content: []anthBlock{block}})

		case m.Role == "assistant" && len(m.ToolCalls) > 0:
			var blocks []anthBlock
			if m.Content != "" {
				blocks = append(blocks, anthBlock{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				input, _ := json.Marshal(tc.Params)
				blocks = append(blocks, anthBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			out = append(out, anthMessage{Role: "assistant", Content: blocks})

		case m.Role == "user" || m.Role == "assistant":
			out = append(out, anthMessage{Role: m.Role, Content: m.Content})
		}
	}

	return anthRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []anthText{{Type: "text", Text: systemPrompt}},
		Messages:  out,
		Tools:     anthTools,
	}
}

func (c *AnthropicClient) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []Tool) (*Response, error) {
	body, err := json.Marshal(c.buildRequest(systemPrompt, messages, tools))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("User-Agent", "anchor/1.0")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
		req.Header.Set("anthropic-beta", "oauth-2025-04-20")
	} else if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var anthResp anthResponse
	jsonErr := json.Unmarshal(respBody, &anthResp)
	if resp.StatusCode != http.StatusOK {
		if jsonErr == nil && anthResp.Error != nil {
			return nil, fmt.Errorf("anthropic chat: %s: %s: %s", resp.Status, anthResp.Error.Type, anthResp.Error.Message)
		}
		return nil, fmt.Errorf("anthropic chat: %s %s", resp.Status, string(respBody))
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("parsing response: %w", jsonErr)
	}

	result := &Response{}
	for _, block := range anthResp.Content {
		switch block.Type {
		case "text":
			result.Content += block.Text
		case "tool_use":
			params := map[string]any{}
			_ = json.Unmarshal(block.Input, &params)
			result.ToolCalls = append(result.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Params: params})
		}
	}
	return result, nil
}
