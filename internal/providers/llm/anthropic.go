package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandevgo/muse/internal/core"
)

const anthropicVersion = "2023-06-01"

type Anthropic struct {
	baseProvider
}

func NewAnthropic(apiKey, model string, opts Options) *Anthropic {
	return NewAnthropicWithBaseURL("https://api.anthropic.com", apiKey, model, opts)
}

func NewAnthropicWithBaseURL(baseURL, apiKey, model string, opts Options) *Anthropic {
	return &Anthropic{
		baseProvider: newBaseProvider(baseURL, apiKey, model, opts),
	}
}

// Chat sends system turns as the top-level system field; the messages list
// holds only user and assistant turns.
func (a *Anthropic) Chat(ctx context.Context, history []core.Message) (core.Message, error) {
	var system []string
	messages := make([]core.Message, 0, len(history))
	for _, m := range history {
		if m.Role == core.RoleSystem {
			if m.Content != "" {
				system = append(system, m.Content)
			}
			continue
		}
		messages = append(messages, m)
	}

	payload := map[string]any{
		"model":       a.model,
		"max_tokens":  a.opts.MaxTokens,
		"temperature": a.opts.Temperature,
		"messages":    messages,
	}
	if len(system) > 0 {
		payload["system"] = strings.Join(system, "\n\n")
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	data, err := a.post(ctx, "/v1/messages", payload, headers)
	if err != nil {
		return core.Message{}, err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("decode: %w", err)
	}

	var text strings.Builder
	for _, c := range result.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return core.Message{Role: core.RoleAssistant, Content: text.String()}, nil
}
