package domain

import "context"

// GenerationResponse carries the text produced by a generation backend.
type GenerationResponse struct {
	Answer string
	Model  string
}

// GenerativeModel is the narrow capability the grounded generator consumes.
// Any backend (OpenAI-compatible, local model, mock) can stand behind it.
type GenerativeModel interface {
	Generate(ctx context.Context, query string, contextBlock string) (*GenerationResponse, error)
	Version() string
}

// VectorEncoder converts query strings into embedding vectors for retrieval.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
