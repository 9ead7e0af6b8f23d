package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"ResidentPulse-Server/model"
)

// ChatMessage is one turn passed to the model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the single operation the engine needs from the LLM:
// system prompt plus ordered history in, one text completion out.
// Chat turns and alert classification use small budgets; insight
// synthesis uses 1500-2500 tokens.
type Completer interface {
	Complete(ctx context.Context, system string, history []ChatMessage, maxTokens int) (string, error)
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	mdl     string
	client  *http.Client
}

func NewClient() *Client {
	mdl := os.Getenv("AI_MODEL")
	if mdl == "" {
		mdl = "gpt-4o-mini"
	}
	return &Client{
		baseURL: os.Getenv("AI_BASE_URL"),
		apiKey:  os.Getenv("AI_API_KEY"),
		mdl:     mdl,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) Complete(ctx context.Context, system string, history []ChatMessage, maxTokens int) (string, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: system})
	messages = append(messages, history...)

	body := map[string]interface{}{
		"model":      c.mdl,
		"messages":   messages,
		"max_tokens": maxTokens,
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", model.NewExternal("llm call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		data, _ := io.ReadAll(resp.Body)
		return "", model.NewExternal(fmt.Sprintf("llm status %d", resp.StatusCode), fmt.Errorf("%s", data))
	}

	data, _ := io.ReadAll(resp.Body)
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return result.Choices[0].Message.Content, nil
}
