package domain

import "context"

// GenerationResult carries generated answer text and token usage.
type GenerationResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Generator produces an answer from a question and an assembled context block.
type Generator interface {
	Generate(ctx context.Context, question, contextBlock string) (GenerationResult, error)
}
