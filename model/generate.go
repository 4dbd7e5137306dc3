package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Generator is the opaque text-generation capability. A failure is an
// error, never a silent empty answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CohereChat calls the Cohere chat endpoint with low temperature so
// answers stay close to the supplied grounding context.
type CohereChat struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
}

type cohereChatRequest struct {
	Model       string  `json:"model"`
	Message     string  `json:"message"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type cohereChatResponse struct {
	Text string `json:"text"`
}

func NewCohereChat(apiURL, apiKey, model string) *CohereChat {
	return &CohereChat{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *CohereChat) Generate(ctx context.Context, prompt string) (string, error) {
	req := cohereChatRequest{
		Model:       c.model,
		Message:     prompt,
		Temperature: 0.1,
		MaxTokens:   512,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v1/chat", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cohere chat error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chatResp cohereChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if chatResp.Text == "" {
		return "", fmt.Errorf("cohere chat returned an empty answer")
	}
	return chatResp.Text, nil
}
