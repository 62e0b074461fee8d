package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// EmbeddingConfig holds API settings for text-embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
}

// Embed returns the embedding vector for the given text.
func (c *OpenAICompatibleClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	vectors, err := c.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", ErrMalformedResponse)
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
func (c *OpenAICompatibleClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	trimmed := make([]string, 0, len(texts))
	for _, t := range texts {
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, ErrEmptyInput
		}
		trimmed = append(trimmed, s)
	}

	vectors, err := c.embed(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(trimmed) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrMalformedResponse, len(vectors), len(trimmed))
	}
	return vectors, nil
}

func (c *OpenAICompatibleClient) embed(ctx context.Context, input interface{}) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"model": c.embedding.Model,
		"input": input,
	}
	if c.embedding.Dimensions > 0 {
		reqBody["dimensions"] = c.embedding.Dimensions
	}

	raw, err := c.post(ctx, c.embedding.BaseURL, c.embedding.APIKey, "/embeddings", "embedding", reqBody)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse embedding json: %v", ErrMalformedResponse, err)
	}
	result := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		pos := d.Index
		if pos < 0 || pos >= len(result) {
			pos = i
		}
		result[pos] = d.Embedding
	}
	return result, nil
}
