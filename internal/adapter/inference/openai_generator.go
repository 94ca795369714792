package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shorui-orchestrator/internal/domain"
	"shorui-orchestrator/internal/infra/httpclient"
)

const generationTemperature = 0.0

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
}

// OpenAIGenerator sends grounded prompts to an OpenAI-compatible chat
// completions endpoint. The context block travels as the system message so
// retrieved evidence stays structurally separated from the user query.
type OpenAIGenerator struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
}

// NewOpenAIGenerator constructs a generator for the given endpoint and model.
func NewOpenAIGenerator(baseURL, model, apiKey string) *OpenAIGenerator {
	return &OpenAIGenerator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		APIKey:  apiKey,
		Client:  httpclient.NewPooledClient(120 * time.Second),
	}
}

// Generate sends the query with the labeled context block and returns the
// assistant message.
func (g *OpenAIGenerator) Generate(ctx context.Context, query, contextBlock string) (*domain.GenerationResponse, error) {
	reqBody := chatRequest{
		Model: g.Model,
		Messages: []chatMessage{
			{Role: "system", Content: contextBlock},
			{Role: "user", Content: query},
		},
		Temperature: generationTemperature,
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("generation endpoint returned no choices")
	}

	model := chatResp.Model
	if model == "" {
		model = g.Model
	}

	return &domain.GenerationResponse{
		Answer: strings.TrimSpace(chatResp.Choices[0].Message.Content),
		Model:  model,
	}, nil
}

// Version returns the wrapped model name.
func (g *OpenAIGenerator) Version() string {
	return g.Model
}

var _ domain.GenerativeModel = (*OpenAIGenerator)(nil)
