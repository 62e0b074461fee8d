package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseSchema is a JSON Schema the provider must constrain its reply to.
type ResponseSchema struct {
	Name       string
	Definition map[string]any
}

type CompletionRequest struct {
	Messages    []ChatMessage
	MaxTokens   int
	Temperature *float64
	Schema      *ResponseSchema
}

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type OpenAICompatibleClient struct {
	httpClient *http.Client
	chat       ChatConfig
	embedding  EmbeddingConfig
}

func NewOpenAICompatibleClient(chat ChatConfig, embedding EmbeddingConfig, timeout time.Duration) *OpenAICompatibleClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: timeout},
		chat:       chat,
		embedding:  embedding,
	}
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, in CompletionRequest) (string, error) {
	if len(in.Messages) == 0 {
		return "", ErrEmptyInput
	}

	reqBody := map[string]interface{}{
		"model":    c.chat.Model,
		"messages": in.Messages,
		"stream":   false,
	}
	if in.MaxTokens > 0 {
		reqBody["max_tokens"] = in.MaxTokens
	}
	if in.Temperature != nil {
		reqBody["temperature"] = *in.Temperature
	}
	if in.Schema != nil {
		reqBody["response_format"] = map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   in.Schema.Name,
				"strict": true,
				"schema": in.Schema.Definition,
			},
		}
	}

	raw, err := c.post(ctx, c.chat.BaseURL, c.chat.APIKey, "/chat/completions", "chat completion", reqBody)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse llm json: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty llm choices", ErrMalformedResponse)
	}
	return parsed.Choices[0].Message.Content, nil
}

// post sends one JSON request and returns the raw 2xx body.
func (c *OpenAICompatibleClient) post(ctx context.Context, baseURL, apiKey, path, op string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request failed: %w", op, err)
	}

	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build %s request failed: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response failed: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: truncateBody(raw)}
	}
	return raw, nil
}
